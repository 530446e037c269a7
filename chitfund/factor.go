/*
factor.go - Collection factor: member cadence to base-period coverage

PURPOSE:
  A member may contribute on a different cadence than the group's
  accounting cadence (daily collections into a monthly group, or the
  reverse). The collection factor expresses how many base periods of
  obligation one of the member's collection cycles satisfies.

CONVERSION TABLE:
  Each cadence is assigned a nominal day span: DAILY=1, WEEKLY=7,
  MONTHLY=30. The factor is span(memberPattern) / span(groupFrequency).

    member \ group |  DAILY  WEEKLY  MONTHLY
    DAILY          |    1     1/7     1/30
    WEEKLY         |    7      1      7/30
    MONTHLY        |   30    30/7       1

  Matching cadences give factor 1. A finer member cadence gives a
  fractional factor (more collections per base period); a coarser one
  gives a multiple >= 1. The factor is strictly positive, deterministic,
  and stable for the lifetime of the subscription - changing a member's
  pattern goes through the explicit GroupMember.Rebase operation.

ERROR HANDLING:
  An unrecognized cadence on either side is fatal to the single operation:
  ResolveCollectionFactor returns InvalidCadenceError and never silently
  defaults.
*/
package chitfund

import "github.com/shopspring/decimal"

// Nominal day spans per cadence. MONTHLY uses the conventional 30-day month;
// the clock itself counts real calendar boundaries, this span only shapes
// the coverage ratio.
var cadenceDays = map[Frequency]int64{
	FreqDaily:   1,
	FreqWeekly:  7,
	FreqMonthly: 30,
}

// ResolveCollectionFactor maps a (group frequency, member pattern) pair to
// the ratio of base periods one member collection cycle covers.
func ResolveCollectionFactor(groupFrequency, memberPattern Frequency) (decimal.Decimal, error) {
	groupSpan, ok := cadenceDays[groupFrequency]
	if !ok {
		return decimal.Zero, &InvalidCadenceError{GroupFrequency: groupFrequency, MemberPattern: memberPattern}
	}
	memberSpan, ok := cadenceDays[memberPattern]
	if !ok {
		return decimal.Zero, &InvalidCadenceError{GroupFrequency: groupFrequency, MemberPattern: memberPattern}
	}
	return decimal.NewFromInt(memberSpan).Div(decimal.NewFromInt(groupSpan)), nil
}

// CoverageInBasePeriods translates a number of member collection cycles into
// base-period coverage using the subscription's factor. This is where the
// factor applies; projection itself is always denominated in base periods.
func CoverageInBasePeriods(collectionCycles decimal.Decimal, factor decimal.Decimal) decimal.Decimal {
	return collectionCycles.Mul(factor)
}
