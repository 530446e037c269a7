/*
clock.go - Frequency clock: elapsed base periods from wall-clock time

PURPOSE:
  Converts "now" + a group's start date + its contribution frequency into
  an elapsed-period count. This is the root of every dues calculation:
  projection and classification both start from the clock's answer.

RULES:
  - Period numbering is 1-based. Before the start date the clock reports 1.
  - DAILY:   period = elapsedWholeDays + 1 (partial days round up)
  - WEEKLY:  period = floor(elapsedWholeDays / 7) + 1
  - MONTHLY: period = calendar-month boundaries crossed + 1. Day-of-month is
    ignored on purpose: entering a new month advances the period even when
    fewer than 30 days have elapsed.
  - Callers clamp to the group's TotalPeriods; a group never reports a
    period beyond its declared length.

PURITY:
  The clock is pure and re-evaluated on every read. The cached
  ChitGroup.CurrentPeriod is only ever advanced forward to match a fresh
  evaluation, never moved backward - collections may already reference
  periods that a lower correction would un-count.

SEE ALSO:
  - store.go: AdvancePeriod, the monotonic compare-and-set for the cache
  - projector.go: consumes the clamped clock output
*/
package chitfund

// CurrentPeriod returns the 1-based elapsed base period at now for a group
// that started at start with the given frequency. Unclamped; callers apply
// ClampPeriod against the group's total length.
func CurrentPeriod(now, start TimePoint, frequency Frequency) int {
	if now.Before(start) {
		return 1
	}

	switch frequency {
	case FreqDaily:
		return ElapsedDays(start, now) + 1
	case FreqWeekly:
		return ElapsedDays(start, now)/7 + 1
	case FreqMonthly:
		return MonthsCrossed(start, now) + 1
	default:
		// Unrecognized frequencies never advance past the first period.
		return 1
	}
}

// ClampPeriod bounds a computed period to [1, totalPeriods]. A period beyond
// the group's declared length is always recovered locally by clamping and
// never surfaced as an error.
func ClampPeriod(period, totalPeriods int) int {
	if period < 1 {
		return 1
	}
	if totalPeriods >= 1 && period > totalPeriods {
		return totalPeriods
	}
	return period
}

// GroupPeriod is the clamped clock evaluation for a group at now.
func GroupPeriod(group ChitGroup, now TimePoint) int {
	return ClampPeriod(CurrentPeriod(now, group.StartDate, group.Frequency), group.TotalPeriods)
}
