/*
ledger.go - The de-duplicated collection ledger

PURPOSE:
  The ordered set of payment records for a subscription. This is the one
  source of truth for "how much has this member actually paid"; any
  denormalized counter on the subscription is a cache kept in lockstep
  with the ledger sum on every successful record.

CRITICAL INVARIANTS:
  1. SLOT UNIQUENESS: at most one record per (subscription, base period,
     sequence). Double-recording the same due is rejected, never merged
     silently.
  2. APPEND-ONLY: no update, no delete. Corrections are new PARTIAL/FAILED
     records in the next free sequence slot.
  3. FAILED EXCLUDED: failed payments stay in history but never count
     toward the collected total.

CONFLICT HANDLING:
  Record checks the slot before inserting and relies on the store's unique
  constraint as the final arbiter under concurrency. A DuplicateSlot error
  means "already recorded" - callers re-derive the next sequence number
  via NextSequence and retry, they do not treat it as fatal.

SEE ALSO:
  - store.go:    CollectionStore contract
  - engine.go:   keeps the denormalized caches in lockstep
  - classify.go: consumes TotalCollected
*/
package chitfund

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER - Idempotent recording and summation over a CollectionStore
// =============================================================================

// Ledger wraps a CollectionStore with the slot-uniqueness invariant and the
// summation queries the projector and classifier consume.
type Ledger struct {
	store CollectionStore
}

func NewLedger(store CollectionStore) *Ledger {
	return &Ledger{store: store}
}

// Record inserts a payment record. Returns a *DuplicateSlotError if the
// (subscription, base period, sequence) slot is already occupied.
func (l *Ledger) Record(ctx context.Context, c Collection) error {
	if c.Sequence < 1 {
		c.Sequence = 1
	}

	taken, existing, err := l.store.SlotOccupant(ctx, c.Slot())
	if err != nil {
		return fmt.Errorf("failed to check ledger slot: %w", err)
	}
	if taken {
		return &DuplicateSlotError{Slot: c.Slot(), ExistingID: existing}
	}

	err = l.store.InsertCollection(ctx, c)
	// The store's unique constraint is the final arbiter under concurrency;
	// normalize its rejection to the structured error.
	if errors.Is(err, ErrDuplicateSlot) {
		var dup *DuplicateSlotError
		if errors.As(err, &dup) {
			return dup
		}
		return &DuplicateSlotError{Slot: c.Slot()}
	}
	return err
}

// TotalCollected sums AmountPaid across all records for the subscription
// whose status is not FAILED. This sum is authoritative.
func (l *Ledger) TotalCollected(ctx context.Context, id SubscriptionID) (decimal.Decimal, error) {
	records, err := l.store.CollectionsBySubscription(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return SumCollected(records), nil
}

// Collections returns the subscription's records, ordered by slot.
func (l *Ledger) Collections(ctx context.Context, id SubscriptionID) ([]Collection, error) {
	return l.store.CollectionsBySubscription(ctx, id)
}

// NextSequence returns the lowest free sequence number for a subscription's
// base period. Used by callers retrying after a DuplicateSlot rejection and
// by members whose cadence is finer than the group's.
func (l *Ledger) NextSequence(ctx context.Context, id SubscriptionID, basePeriod int) (int, error) {
	records, err := l.store.CollectionsBySubscription(ctx, id)
	if err != nil {
		return 0, err
	}
	next := 1
	for _, c := range records {
		if c.BasePeriod == basePeriod && c.Sequence >= next {
			next = c.Sequence + 1
		}
	}
	return next, nil
}

// =============================================================================
// SUMMATION AND RECONCILIATION
// =============================================================================

// SumCollected sums AmountPaid over non-failed records.
func SumCollected(records []Collection) decimal.Decimal {
	total := decimal.Zero
	for _, c := range records {
		if c.Status == CollectionFailed {
			continue
		}
		total = total.Add(c.AmountPaid)
	}
	return total
}

// ReconcileTotals compares a subscription's denormalized TotalCollected
// against the ledger sum. On divergence it returns the corrected value and
// an *InconsistentLedgerError describing the drift; the ledger sum is
// authoritative and the cache must be corrected, never the reverse.
func (l *Ledger) ReconcileTotals(ctx context.Context, sub GroupMember) (decimal.Decimal, error) {
	sum, err := l.TotalCollected(ctx, sub.ID)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Equal(sub.TotalCollected) {
		return sum, &InconsistentLedgerError{
			SubscriptionID: sub.ID,
			Cached:         sub.TotalCollected,
			LedgerSum:      sum,
		}
	}
	return sum, nil
}
