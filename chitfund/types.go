/*
Package chitfund provides the period and dues calculation engine for
rotating-savings ("chit fund") groups.

PURPOSE:
  A pool of members contributes periodically. For every member-in-group
  subscription the engine derives, from wall-clock time and recorded
  payments alone, how much is currently owed, how much has been collected,
  and whether the member is delinquent. There is no single mutable balance
  field: the collection ledger is the source of truth and everything else
  is a projection.

KEY CONCEPTS IN THIS FILE (types.go):
  - ChitGroup: a contribution pool with a base cadence (DAILY/WEEKLY/MONTHLY)
  - GroupMember: one member's subscription to one group
  - Collection: one immutable payment record occupying a ledger slot
  - Frequency: cadence of a group or of a member's personal collections

DESIGN PRINCIPLES:
  1. Purity: all calculations take an explicit evaluation instant ("now")
  2. Precision: decimal.Decimal for money, never float64
  3. Ledger authority: denormalized totals are caches of the ledger sum
  4. Forward-only: a group's cached period only ever advances

SEE ALSO:
  - clock.go:     elapsed-period derivation from dates
  - factor.go:    member-cadence to base-period conversion
  - projector.go: expected cumulative dues
  - ledger.go:    de-duplicated payment recording
  - classify.go:  overdue amount and payment status
*/
package chitfund

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type GroupID string
type MemberID string
type SubscriptionID string
type CollectionID string
type OrgID string

// =============================================================================
// FREQUENCY - Cadence of a group or of a member's collections
// =============================================================================

type Frequency string

const (
	FreqDaily   Frequency = "DAILY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqMonthly Frequency = "MONTHLY"
)

// Valid reports whether f is one of the recognized cadences.
func (f Frequency) Valid() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly:
		return true
	}
	return false
}

// =============================================================================
// STATUS ENUMS
// =============================================================================

// GroupStatus is the administrative lifecycle state of a group.
type GroupStatus string

const (
	GroupActive    GroupStatus = "ACTIVE"
	GroupClosed    GroupStatus = "CLOSED"
	GroupSuspended GroupStatus = "SUSPENDED"
)

// MemberStatus is the slow-moving administrative state of a subscription.
// It is distinct from PaymentStatus, which is recomputed on every read.
type MemberStatus string

const (
	MemberActive    MemberStatus = "ACTIVE"
	MemberClosed    MemberStatus = "CLOSED"
	MemberDefaulted MemberStatus = "DEFAULTED"
)

// CollectionStatus is the state of a single recorded payment.
type CollectionStatus string

const (
	CollectionPending CollectionStatus = "PENDING"
	CollectionPaid    CollectionStatus = "PAID"
	CollectionPartial CollectionStatus = "PARTIAL"
	CollectionFailed  CollectionStatus = "FAILED"
)

// Valid reports whether s is one of the recognized collection statuses.
func (s CollectionStatus) Valid() bool {
	switch s {
	case CollectionPending, CollectionPaid, CollectionPartial, CollectionFailed:
		return true
	}
	return false
}

// PaymentStatus is the per-read classification of a subscription's dues.
// Never persisted as authoritative state.
type PaymentStatus string

const (
	PaymentNotStarted PaymentStatus = "NOT_STARTED"
	PaymentOnTrack    PaymentStatus = "ON_TRACK"
	PaymentOverdue    PaymentStatus = "OVERDUE"
	PaymentCompleted  PaymentStatus = "COMPLETED"
)

// =============================================================================
// CHIT GROUP - A contribution pool
// =============================================================================

// ChitGroup is a contribution pool.
//
// INVARIANT: 1 <= CurrentPeriod <= TotalPeriods.
// CurrentPeriod is a cache of the Frequency Clock's output. It is refreshed
// lazily on read and only ever moves forward (see Store.AdvancePeriod).
type ChitGroup struct {
	ID    GroupID
	OrgID OrgID
	Name  string

	// Base cadence of the group's accounting periods.
	Frequency Frequency

	// Currency units owed per unit-share per base period.
	ContributionAmount decimal.Decimal

	TotalUnits   decimal.Decimal
	TotalPeriods int

	StartDate TimePoint
	EndDate   *TimePoint

	// Cached, monotonically advancing projection of elapsed base periods.
	CurrentPeriod int

	Status    GroupStatus
	CreatedAt TimePoint
}

// LifetimeDue returns the full obligation of one unit-share over the group's
// declared length.
func (g ChitGroup) LifetimeDue() decimal.Decimal {
	return g.ContributionAmount.Mul(decimal.NewFromInt(int64(g.TotalPeriods)))
}

// =============================================================================
// GROUP MEMBER - One member's subscription to one group
// =============================================================================

// GroupMember is a subscription: one member's participation in one group.
//
// INVARIANT: TotalCollected equals the sum of AmountPaid over all non-failed
// Collection records referencing this subscription. TotalCollected and
// PendingAmount are caches, not sources of truth; the ledger is authoritative.
type GroupMember struct {
	ID       SubscriptionID
	MemberID MemberID
	GroupID  GroupID

	// Contribution multiplier. May be fractional (e.g. 0.5 for a half share).
	Units decimal.Decimal

	// The member's own cadence, independent of the group's.
	CollectionPattern Frequency

	// How many base periods one of this member's collection cycles covers.
	// Derived once via ResolveCollectionFactor; stable for the subscription's
	// lifetime. Changing CollectionPattern requires an explicit Rebase.
	CollectionFactor decimal.Decimal

	// Precomputed lifetime obligation.
	TotalDue decimal.Decimal

	// Denormalized caches of the ledger (refreshed in lockstep with writes).
	TotalCollected decimal.Decimal
	PendingAmount  decimal.Decimal

	Status   MemberStatus
	JoinedAt TimePoint
}

// Rebase re-derives the collection factor after an explicit pattern change.
// This is never a side effect of any read.
func (m *GroupMember) Rebase(groupFrequency Frequency, pattern Frequency) error {
	factor, err := ResolveCollectionFactor(groupFrequency, pattern)
	if err != nil {
		return err
	}
	m.CollectionPattern = pattern
	m.CollectionFactor = factor
	return nil
}

// =============================================================================
// COLLECTION - One recorded payment event against a subscription
// =============================================================================

// Collection is one payment record. Collections are immutable: amendments
// happen by recording a new PARTIAL/FAILED entry in the next free sequence
// slot, never by mutating history.
//
// INVARIANT: the (GroupMemberID, BasePeriod, Sequence) triple is unique.
// This prevents double-recording a due and lets a member whose cadence is
// finer than the group's accumulate several sequence entries inside one
// base period.
type Collection struct {
	ID            CollectionID
	GroupMemberID SubscriptionID
	GroupID       GroupID
	MemberID      MemberID

	// Which base period of the group this payment is attributed to.
	BasePeriod int

	// Ordinal among payments within the same base period. 1-based.
	Sequence int

	PeriodDate  TimePoint
	AmountDue   decimal.Decimal
	AmountPaid  decimal.Decimal
	PaymentMode string
	CollectedAt TimePoint

	Status CollectionStatus
}

// Slot returns the ledger-slot coordinate this collection occupies.
func (c Collection) Slot() Slot {
	return Slot{GroupMemberID: c.GroupMemberID, BasePeriod: c.BasePeriod, Sequence: c.Sequence}
}

// Slot is the unique (subscription, base period, sequence) coordinate a
// payment record occupies in the ledger.
type Slot struct {
	GroupMemberID SubscriptionID
	BasePeriod    int
	Sequence      int
}

// =============================================================================
// DUES STATEMENT - Per-read view of a subscription's standing
// =============================================================================

// DuesStatement is the computed standing of a subscription at an instant.
// It is derived on every read and never persisted.
type DuesStatement struct {
	SubscriptionID SubscriptionID
	GroupID        GroupID
	AsOf           TimePoint

	CurrentPeriod  int
	ExpectedDue    decimal.Decimal
	TotalCollected decimal.Decimal
	OverdueAmount  decimal.Decimal
	PaymentStatus  PaymentStatus
}
