package chitfund_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AppfinityLabs/chitwise-new-sub001/chitfund"
	"github.com/AppfinityLabs/chitwise-new-sub001/chitfund/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger() *chitfund.Ledger {
	return chitfund.NewLedger(store.NewMemory())
}

func payment(subID string, period, seq int, paid int64, id string) chitfund.Collection {
	return chitfund.Collection{
		ID:            chitfund.CollectionID(id),
		GroupMemberID: chitfund.SubscriptionID(subID),
		GroupID:       "grp-1",
		MemberID:      "mem-1",
		BasePeriod:    period,
		Sequence:      seq,
		PeriodDate:    chitfund.NewTimePoint(2024, time.January, 1),
		AmountDue:     decimal.NewFromInt(1000),
		AmountPaid:    decimal.NewFromInt(paid),
		CollectedAt:   chitfund.NewTimePoint(2024, time.January, 1),
		Status:        chitfund.CollectionPaid,
	}
}

// =============================================================================
// SLOT UNIQUENESS TESTS
// =============================================================================

func TestLedger_DuplicateSlot_Rejected(t *testing.T) {
	// GIVEN: A payment recorded into (sub-1, period 1, seq 1)
	// WHEN: Recording a second payment into the same slot
	// THEN: The second is rejected with DuplicateSlotError, never overwritten

	ledger := newTestLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, payment("sub-1", 1, 1, 1000, "col-1")))

	err := ledger.Record(ctx, payment("sub-1", 1, 1, 500, "col-2"))
	require.Error(t, err)

	var dup *chitfund.DuplicateSlotError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, chitfund.SubscriptionID("sub-1"), dup.Slot.GroupMemberID)
	assert.Equal(t, 1, dup.Slot.BasePeriod)
	assert.Equal(t, 1, dup.Slot.Sequence)
	assert.Equal(t, chitfund.CollectionID("col-1"), dup.ExistingID)
	assert.True(t, chitfund.IsRetryable(err))

	// The original record is untouched.
	total, err := ledger.TotalCollected(ctx, "sub-1")
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(1000)), "got %s", total)
}

func TestLedger_SameperiodDifferentSequence_Allowed(t *testing.T) {
	// GIVEN: A member whose cadence is finer than the group's
	// WHEN: Recording several sequence entries inside one base period
	// THEN: All succeed and all count toward the total

	ledger := newTestLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, payment("sub-1", 1, 1, 250, "col-1")))
	require.NoError(t, ledger.Record(ctx, payment("sub-1", 1, 2, 250, "col-2")))
	require.NoError(t, ledger.Record(ctx, payment("sub-1", 1, 3, 250, "col-3")))

	total, err := ledger.TotalCollected(ctx, "sub-1")
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(750)), "got %s", total)
}

func TestLedger_NextSequence(t *testing.T) {
	// GIVEN: Two records in period 3
	// WHEN: Asking for the next free sequence
	// THEN: 3 for period 3, 1 for an empty period

	ledger := newTestLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, payment("sub-1", 3, 1, 100, "col-1")))
	require.NoError(t, ledger.Record(ctx, payment("sub-1", 3, 2, 100, "col-2")))

	next, err := ledger.NextSequence(ctx, "sub-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	next, err = ledger.NextSequence(ctx, "sub-1", 4)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestLedger_ZeroSequence_DefaultsToOne(t *testing.T) {
	// GIVEN: A payment recorded without an explicit sequence
	// THEN: It occupies sequence 1, and a second default collides

	ledger := newTestLedger()
	ctx := context.Background()

	first := payment("sub-1", 2, 0, 100, "col-1")
	require.NoError(t, ledger.Record(ctx, first))

	second := payment("sub-1", 2, 0, 100, "col-2")
	err := ledger.Record(ctx, second)
	assert.ErrorIs(t, err, chitfund.ErrDuplicateSlot)
}

// =============================================================================
// SUMMATION TESTS
// =============================================================================

func TestLedger_TotalCollected_ExcludesFailed(t *testing.T) {
	// GIVEN: Paid, partial, and failed records
	// WHEN: Summing the collected total
	// THEN: Failed records stay in history but never count

	ledger := newTestLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, payment("sub-1", 1, 1, 1000, "col-1")))

	partial := payment("sub-1", 2, 1, 400, "col-2")
	partial.Status = chitfund.CollectionPartial
	require.NoError(t, ledger.Record(ctx, partial))

	failed := payment("sub-1", 3, 1, 1000, "col-3")
	failed.Status = chitfund.CollectionFailed
	require.NoError(t, ledger.Record(ctx, failed))

	total, err := ledger.TotalCollected(ctx, "sub-1")
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(1400)), "got %s", total)

	records, err := ledger.Collections(ctx, "sub-1")
	require.NoError(t, err)
	assert.Len(t, records, 3, "failed records remain in history")
}

func TestLedger_ReconcileTotals_DetectsDrift(t *testing.T) {
	// GIVEN: A subscription whose denormalized cache diverged from the ledger
	// WHEN: Reconciling
	// THEN: InconsistentLedgerError with the authoritative sum

	ledger := newTestLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, payment("sub-1", 1, 1, 1000, "col-1")))

	sub := chitfund.GroupMember{
		ID:             "sub-1",
		TotalCollected: decimal.NewFromInt(900), // drifted
	}

	sum, err := ledger.ReconcileTotals(ctx, sub)
	require.Error(t, err)

	var inconsistent *chitfund.InconsistentLedgerError
	require.ErrorAs(t, err, &inconsistent)
	assert.True(t, inconsistent.LedgerSum.Equal(decimal.NewFromInt(1000)))
	assert.True(t, sum.Equal(decimal.NewFromInt(1000)), "ledger sum is authoritative")

	// A cache in lockstep reconciles cleanly.
	sub.TotalCollected = decimal.NewFromInt(1000)
	_, err = ledger.ReconcileTotals(ctx, sub)
	assert.NoError(t, err)
}
