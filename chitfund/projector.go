/*
projector.go - Expected cumulative dues from elapsed base periods

PURPOSE:
  Answers "how much should this subscription have contributed by now?"
  independently of what was actually paid. The projection is always
  denominated in base periods: a member paying weekly into a monthly
  group owes the same cumulative amount as one paying monthly - the
  collection factor only matters when translating recorded payments back
  into base-period coverage (see factor.go).

FORMULA:
  expectedDue = clampedElapsedPeriods x contributionAmount x units

  Before the group's start date the obligation is zero: the clock reports
  period 1 from the start instant onward, and the first period's dues fall
  due at the start date, not before it. This keeps the classifier's
  invariant (OVERDUE iff overdue > 0) intact for not-yet-started groups.

TOTALITY:
  ExpectedDue never fails for well-formed inputs, including degenerate
  ones (units = 0, totalPeriods = 1, now far in the past or future).
*/
package chitfund

import "github.com/shopspring/decimal"

// ExpectedDue computes the cumulative obligation of a subscription as of now.
// Always >= 0.
func ExpectedDue(group ChitGroup, sub GroupMember, now TimePoint) decimal.Decimal {
	if now.Before(group.StartDate) {
		return decimal.Zero
	}
	periods := GroupPeriod(group, now)
	return group.ContributionAmount.
		Mul(sub.Units).
		Mul(decimal.NewFromInt(int64(periods)))
}

// LifetimeDue computes the subscription's full obligation over the group's
// declared length. Used to precompute GroupMember.TotalDue and to decide
// COMPLETED classification.
func LifetimeDue(group ChitGroup, sub GroupMember) decimal.Decimal {
	return group.LifetimeDue().Mul(sub.Units)
}
