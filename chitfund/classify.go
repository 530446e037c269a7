/*
classify.go - Overdue amount and payment-status classification

PURPOSE:
  Combines projected dues and ledger totals into an overdue amount and a
  discrete payment status. Recomputed on every read; never persisted as
  authoritative state. The persisted GroupMember.Status (ACTIVE/DEFAULTED)
  is a slower-moving administrative state machine fed by an explicit,
  external DefaultPolicy - the classifier never infers it.

CLASSIFICATION:
  overdueAmount = max(0, expectedDue - collectedTotal)

  COMPLETED:   collected >= the subscription's full lifetime obligation,
               independent of the current period. Takes precedence over
               everything else (a fully pre-paid member mid-schedule is
               COMPLETED, not ON_TRACK).
  NOT_STARTED: now < the group's start date.
  OVERDUE:     overdueAmount > 0.
  ON_TRACK:    overdueAmount = 0 and collected >= expected.

IDEMPOTENCE:
  Classify is pure: the same snapshot of group/subscription/ledger yields
  identical output every time.
*/
package chitfund

import "github.com/shopspring/decimal"

// Classify computes the overdue amount and payment status for a subscription
// given its collected total and projected expected due at now.
func Classify(group ChitGroup, sub GroupMember, collected, expectedDue decimal.Decimal, now TimePoint) (decimal.Decimal, PaymentStatus) {
	overdue := expectedDue.Sub(collected)
	if overdue.IsNegative() {
		overdue = decimal.Zero
	}

	totalDue := sub.TotalDue
	if totalDue.IsZero() {
		totalDue = LifetimeDue(group, sub)
	}

	switch {
	case totalDue.IsPositive() && collected.GreaterThanOrEqual(totalDue):
		return decimal.Zero, PaymentCompleted
	case now.Before(group.StartDate):
		return overdue, PaymentNotStarted
	case overdue.IsPositive():
		return overdue, PaymentOverdue
	default:
		return overdue, PaymentOnTrack
	}
}

// =============================================================================
// DEFAULT POLICY - External input, never inferred by the classifier
// =============================================================================

// DefaultPolicy decides when persistent delinquency should move a
// subscription's administrative status to DEFAULTED. The thresholds are
// operator-supplied policy, not engine logic.
type DefaultPolicy struct {
	// GracePeriods is how many full base periods of obligation a member may
	// be behind before defaulting.
	GracePeriods int

	// MinOverdue is an absolute floor below which a member never defaults,
	// regardless of periods behind.
	MinOverdue decimal.Decimal
}

// ShouldDefault reports whether the overdue amount represents delinquency
// beyond the policy's thresholds. Callers apply the resulting ACTIVE ->
// DEFAULTED transition themselves; the engine only evaluates.
func (p DefaultPolicy) ShouldDefault(group ChitGroup, sub GroupMember, overdue decimal.Decimal) bool {
	if !overdue.IsPositive() || overdue.LessThan(p.MinOverdue) {
		return false
	}
	perPeriod := group.ContributionAmount.Mul(sub.Units)
	if !perPeriod.IsPositive() {
		return false
	}
	threshold := perPeriod.Mul(decimal.NewFromInt(int64(p.GracePeriods)))
	return overdue.GreaterThan(threshold)
}
