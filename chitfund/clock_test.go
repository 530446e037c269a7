package chitfund_test

import (
	"testing"
	"time"

	"github.com/AppfinityLabs/chitwise-new-sub001/chitfund"
)

// =============================================================================
// FREQUENCY CLOCK TESTS
// =============================================================================

func TestCurrentPeriod_Daily_StartAndNextDay(t *testing.T) {
	// GIVEN: A daily group starting Jan 1
	// WHEN: Evaluating at the start and one day later
	// THEN: Periods are 1 and 2

	start := chitfund.NewTimePoint(2024, time.January, 1)

	if got := chitfund.CurrentPeriod(start, start, chitfund.FreqDaily); got != 1 {
		t.Errorf("expected period 1 at start, got %d", got)
	}
	if got := chitfund.CurrentPeriod(start.AddDays(1), start, chitfund.FreqDaily); got != 2 {
		t.Errorf("expected period 2 after one day, got %d", got)
	}
}

func TestCurrentPeriod_Daily_PartialDayCounts(t *testing.T) {
	// GIVEN: A daily group starting at midnight
	// WHEN: Evaluating one hour into the next day
	// THEN: The partial day counts as a full elapsed day

	start := chitfund.NewTimePoint(2024, time.January, 1)
	now := chitfund.At(time.Date(2024, time.January, 2, 1, 0, 0, 0, time.UTC))

	if got := chitfund.CurrentPeriod(now, start, chitfund.FreqDaily); got != 3 {
		t.Errorf("expected partial day to round up to period 3, got %d", got)
	}
}

func TestCurrentPeriod_Weekly_Boundaries(t *testing.T) {
	// GIVEN: A weekly group
	// WHEN: Evaluating 6 days in and then 7 days in
	// THEN: Period is 1 then 2

	start := chitfund.NewTimePoint(2024, time.January, 1)

	if got := chitfund.CurrentPeriod(start.AddDays(6), start, chitfund.FreqWeekly); got != 1 {
		t.Errorf("expected period 1 at day 6, got %d", got)
	}
	if got := chitfund.CurrentPeriod(start.AddDays(7), start, chitfund.FreqWeekly); got != 2 {
		t.Errorf("expected period 2 at day 7, got %d", got)
	}
}

func TestCurrentPeriod_Monthly_IgnoresDayOfMonth(t *testing.T) {
	// GIVEN: A monthly group starting Jan 31
	// WHEN: Crossing into February after only one day
	// THEN: The period advances anyway - month boundaries count, not 30 days

	start := chitfund.NewTimePoint(2024, time.January, 31)

	if got := chitfund.CurrentPeriod(start, start, chitfund.FreqMonthly); got != 1 {
		t.Errorf("expected period 1 at start, got %d", got)
	}
	if got := chitfund.CurrentPeriod(chitfund.NewTimePoint(2024, time.February, 1), start, chitfund.FreqMonthly); got != 2 {
		t.Errorf("expected period 2 on Feb 1, got %d", got)
	}
}

func TestCurrentPeriod_Monthly_StableWithinMonth(t *testing.T) {
	// GIVEN: A monthly group starting Jan 1
	// WHEN: Evaluating at start and 20 days later (no boundary crossed)
	// THEN: Both report period 1

	start := chitfund.NewTimePoint(2024, time.January, 1)

	p0 := chitfund.CurrentPeriod(start, start, chitfund.FreqMonthly)
	p20 := chitfund.CurrentPeriod(start.AddDays(20), start, chitfund.FreqMonthly)
	if p0 != p20 {
		t.Errorf("expected equal periods within a month, got %d and %d", p0, p20)
	}

	// Year boundary: Dec 2024 -> Jan 2025 is exactly one boundary.
	dec := chitfund.NewTimePoint(2024, time.December, 15)
	jan := chitfund.NewTimePoint(2025, time.January, 2)
	if got := chitfund.CurrentPeriod(jan, dec, chitfund.FreqMonthly); got != 2 {
		t.Errorf("expected period 2 across year boundary, got %d", got)
	}
}

func TestCurrentPeriod_BeforeStart_ReturnsOne(t *testing.T) {
	// GIVEN: A group that has not started
	// WHEN: Evaluating any frequency before the start date
	// THEN: Period is 1 (numbering is 1-based, never 0)

	start := chitfund.NewTimePoint(2024, time.June, 1)
	before := chitfund.NewTimePoint(2024, time.January, 1)

	for _, freq := range []chitfund.Frequency{chitfund.FreqDaily, chitfund.FreqWeekly, chitfund.FreqMonthly} {
		if got := chitfund.CurrentPeriod(before, start, freq); got != 1 {
			t.Errorf("%s: expected period 1 before start, got %d", freq, got)
		}
	}
}

func TestCurrentPeriod_NonDecreasing(t *testing.T) {
	// GIVEN: A fixed start date and frequency
	// WHEN: Advancing "now" day by day for two years
	// THEN: The period never decreases and never drops below 1

	start := chitfund.NewTimePoint(2024, time.January, 15)

	for _, freq := range []chitfund.Frequency{chitfund.FreqDaily, chitfund.FreqWeekly, chitfund.FreqMonthly} {
		prev := 0
		now := start.AddDays(-30)
		for i := 0; i < 730; i++ {
			got := chitfund.CurrentPeriod(now, start, freq)
			if got < 1 {
				t.Fatalf("%s: period %d < 1 at %s", freq, got, now)
			}
			if got < prev {
				t.Fatalf("%s: period decreased from %d to %d at %s", freq, prev, got, now)
			}
			prev = got
			now = now.AddDays(1)
		}
	}
}

func TestClampPeriod_Bounds(t *testing.T) {
	// GIVEN: Computed periods outside a group's declared length
	// WHEN: Clamping
	// THEN: Results stay within [1, totalPeriods], recovered locally

	cases := []struct {
		period, total, want int
	}{
		{0, 10, 1},
		{-5, 10, 1},
		{1, 10, 1},
		{10, 10, 10},
		{11, 10, 10},
		{500, 20, 20},
		{3, 1, 1},
	}
	for _, c := range cases {
		if got := chitfund.ClampPeriod(c.period, c.total); got != c.want {
			t.Errorf("ClampPeriod(%d, %d) = %d, want %d", c.period, c.total, got, c.want)
		}
	}
}

func TestGroupPeriod_FarFuture_ClampsToTotal(t *testing.T) {
	// GIVEN: A 20-period monthly group
	// WHEN: Evaluating ten years after the start
	// THEN: The group never reports a period beyond its declared length

	group := chitfund.ChitGroup{
		Frequency:    chitfund.FreqMonthly,
		TotalPeriods: 20,
		StartDate:    chitfund.NewTimePoint(2024, time.January, 1),
	}
	now := chitfund.NewTimePoint(2034, time.January, 1)

	if got := chitfund.GroupPeriod(group, now); got != 20 {
		t.Errorf("expected clamp to 20, got %d", got)
	}
}
