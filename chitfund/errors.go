/*
errors.go - Centralized error types for the dues engine

PURPOSE:
  All engine error types in one place. Callers match with errors.Is /
  errors.As; structured errors carry the context needed to recover.

ERROR CATEGORIES:
  1. Ledger errors     - duplicate slot, inconsistent denormalized totals
  2. Cadence errors    - unrecognized frequency/pattern pairs
  3. Lookup errors     - missing groups/subscriptions at the store boundary

RECOVERY CONTRACTS:
  - DuplicateSlot: recoverable. The caller re-derives the next free
    sequence number (Ledger.NextSequence) and retries.
  - InvalidCadence: fatal to the single operation, never defaulted.
  - InconsistentLedger: the ledger sum is authoritative; the denormalized
    cache is corrected, never the reverse.
  - Out-of-range periods never surface: ClampPeriod recovers locally.
*/
package chitfund

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateSlot is returned when a payment targets an already-occupied
	// (subscription, base period, sequence) slot. Expected under concurrent
	// recording; callers retry with the next sequence number.
	ErrDuplicateSlot = errors.New("ledger slot already occupied")

	// ErrInvalidCadence is returned when an unrecognized frequency/pattern
	// pair reaches the collection factor resolver.
	ErrInvalidCadence = errors.New("invalid cadence pair")

	// ErrInconsistentLedger is returned when denormalized totals diverge from
	// the ledger's own sum.
	ErrInconsistentLedger = errors.New("denormalized totals diverge from ledger")

	// ErrGroupNotFound is returned when a referenced group doesn't exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrSubscriptionNotFound is returned when a referenced subscription
	// doesn't exist.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateSlotError reports the exact slot that was already occupied.
type DuplicateSlotError struct {
	Slot       Slot
	ExistingID CollectionID
}

func (e *DuplicateSlotError) Error() string {
	return fmt.Sprintf("slot already occupied: subscription %s period %d seq %d (collection: %s)",
		e.Slot.GroupMemberID, e.Slot.BasePeriod, e.Slot.Sequence, e.ExistingID)
}

func (e *DuplicateSlotError) Unwrap() error { return ErrDuplicateSlot }

// InvalidCadenceError reports the pair that could not be resolved.
type InvalidCadenceError struct {
	GroupFrequency Frequency
	MemberPattern  Frequency
}

func (e *InvalidCadenceError) Error() string {
	return fmt.Sprintf("invalid cadence pair: group %q, member %q", e.GroupFrequency, e.MemberPattern)
}

func (e *InvalidCadenceError) Unwrap() error { return ErrInvalidCadence }

// InconsistentLedgerError reports a drifted denormalized cache alongside the
// authoritative ledger sum.
type InconsistentLedgerError struct {
	SubscriptionID SubscriptionID
	Cached         decimal.Decimal
	LedgerSum      decimal.Decimal
}

func (e *InconsistentLedgerError) Error() string {
	return fmt.Sprintf("inconsistent ledger for %s: cached %s, ledger sum %s",
		e.SubscriptionID, e.Cached, e.LedgerSum)
}

func (e *InconsistentLedgerError) Unwrap() error { return ErrInconsistentLedger }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the operation may succeed when retried with a
// re-derived sequence number.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDuplicateSlot)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateSlot) ||
		errors.Is(err, ErrInvalidCadence)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound)
}
