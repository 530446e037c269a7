package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AppfinityLabs/chitwise-new-sub001/chitfund"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedGroupAndMember(t *testing.T, store *Store) (chitfund.ChitGroup, chitfund.GroupMember) {
	t.Helper()
	ctx := context.Background()

	group := chitfund.ChitGroup{
		ID:                 "grp-1",
		OrgID:              "org-1",
		Name:               "Evergreen Monthly",
		Frequency:          chitfund.FreqMonthly,
		ContributionAmount: decimal.NewFromInt(1000),
		TotalUnits:         decimal.NewFromInt(20),
		TotalPeriods:       20,
		StartDate:          chitfund.NewTimePoint(2024, time.January, 1),
		CurrentPeriod:      1,
		Status:             chitfund.GroupActive,
		CreatedAt:          chitfund.NewTimePoint(2024, time.January, 1),
	}
	require.NoError(t, store.PutGroup(ctx, group))

	member := chitfund.GroupMember{
		ID:                "sub-1",
		MemberID:          "mem-1",
		GroupID:           group.ID,
		Units:             decimal.NewFromInt(1),
		CollectionPattern: chitfund.FreqMonthly,
		CollectionFactor:  decimal.NewFromInt(1),
		TotalDue:          decimal.NewFromInt(20000),
		TotalCollected:    decimal.Zero,
		PendingAmount:     decimal.Zero,
		Status:            chitfund.MemberActive,
		JoinedAt:          chitfund.NewTimePoint(2024, time.January, 1),
	}
	require.NoError(t, store.PutMember(ctx, member))
	return group, member
}

func collection(id string, subID chitfund.SubscriptionID, period, seq int, paid int64) chitfund.Collection {
	return chitfund.Collection{
		ID:            chitfund.CollectionID(id),
		GroupMemberID: subID,
		GroupID:       "grp-1",
		MemberID:      "mem-1",
		BasePeriod:    period,
		Sequence:      seq,
		PeriodDate:    chitfund.NewTimePoint(2024, time.January, 1),
		AmountDue:     decimal.NewFromInt(1000),
		AmountPaid:    decimal.NewFromInt(paid),
		PaymentMode:   "UPI",
		CollectedAt:   chitfund.NewTimePoint(2024, time.January, 1),
		Status:        chitfund.CollectionPaid,
	}
}

// =============================================================================
// SLOT UNIQUENESS AT THE DATABASE LEVEL
// =============================================================================

func TestSQLite_UniqueSlotIndex_RejectsDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, member := seedGroupAndMember(t, store)

	require.NoError(t, store.InsertCollection(ctx, collection("col-1", member.ID, 1, 1, 1000)))

	err := store.InsertCollection(ctx, collection("col-2", member.ID, 1, 1, 500))
	require.Error(t, err)

	var dup *chitfund.DuplicateSlotError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, member.ID, dup.Slot.GroupMemberID)
	assert.Equal(t, 1, dup.Slot.BasePeriod)
	assert.Equal(t, 1, dup.Slot.Sequence)

	// Only the first record survives; the rejection left no partial write.
	records, err := store.CollectionsBySubscription(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, chitfund.CollectionID("col-1"), records[0].ID)
	assert.True(t, records[0].AmountPaid.Equal(decimal.NewFromInt(1000)))
}

func TestSQLite_SameSlotDifferentSequence_Allowed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, member := seedGroupAndMember(t, store)

	require.NoError(t, store.InsertCollection(ctx, collection("col-1", member.ID, 2, 1, 250)))
	require.NoError(t, store.InsertCollection(ctx, collection("col-2", member.ID, 2, 2, 250)))
	require.NoError(t, store.InsertCollection(ctx, collection("col-3", member.ID, 3, 1, 250)))

	records, err := store.CollectionsBySubscription(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Ordered by (base_period, seq).
	assert.Equal(t, chitfund.CollectionID("col-1"), records[0].ID)
	assert.Equal(t, chitfund.CollectionID("col-2"), records[1].ID)
	assert.Equal(t, chitfund.CollectionID("col-3"), records[2].ID)
}

func TestSQLite_SlotOccupant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, member := seedGroupAndMember(t, store)

	require.NoError(t, store.InsertCollection(ctx, collection("col-1", member.ID, 1, 1, 1000)))

	occupied, id, err := store.SlotOccupant(ctx, chitfund.Slot{GroupMemberID: member.ID, BasePeriod: 1, Sequence: 1})
	require.NoError(t, err)
	assert.True(t, occupied)
	assert.Equal(t, chitfund.CollectionID("col-1"), id)

	occupied, _, err = store.SlotOccupant(ctx, chitfund.Slot{GroupMemberID: member.ID, BasePeriod: 1, Sequence: 2})
	require.NoError(t, err)
	assert.False(t, occupied)
}

// =============================================================================
// MONOTONIC PERIOD CACHE
// =============================================================================

func TestSQLite_AdvancePeriod_NeverDecreases(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group, _ := seedGroupAndMember(t, store)

	stored, err := store.AdvancePeriod(ctx, group.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, stored)

	// A stale writer with an earlier evaluation is a no-op.
	stored, err = store.AdvancePeriod(ctx, group.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, stored)

	stored, err = store.AdvancePeriod(ctx, group.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, stored)

	fresh, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, fresh.CurrentPeriod)
}

func TestSQLite_AdvancePeriod_UnknownGroup(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AdvancePeriod(context.Background(), "nope", 2)
	assert.ErrorIs(t, err, chitfund.ErrGroupNotFound)
}

// =============================================================================
// ROUND TRIPS
// =============================================================================

func TestSQLite_GroupRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group, _ := seedGroupAndMember(t, store)

	fresh, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)

	assert.Equal(t, group.ID, fresh.ID)
	assert.Equal(t, group.OrgID, fresh.OrgID)
	assert.Equal(t, group.Frequency, fresh.Frequency)
	assert.True(t, fresh.ContributionAmount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, group.TotalPeriods, fresh.TotalPeriods)
	assert.True(t, fresh.StartDate.Equal(group.StartDate))
	assert.Nil(t, fresh.EndDate)

	groups, err := store.GroupsByOrg(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	_, err = store.GetGroup(ctx, "missing")
	assert.ErrorIs(t, err, chitfund.ErrGroupNotFound)
}

func TestSQLite_MemberRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, member := seedGroupAndMember(t, store)

	fresh, err := store.GetMember(ctx, member.ID)
	require.NoError(t, err)

	assert.Equal(t, member.MemberID, fresh.MemberID)
	assert.Equal(t, member.GroupID, fresh.GroupID)
	assert.Equal(t, chitfund.FreqMonthly, fresh.CollectionPattern)
	assert.True(t, fresh.CollectionFactor.Equal(decimal.NewFromInt(1)))
	assert.True(t, fresh.TotalDue.Equal(decimal.NewFromInt(20000)))

	byGroup, err := store.MembersByGroup(ctx, member.GroupID)
	require.NoError(t, err)
	assert.Len(t, byGroup, 1)

	byMember, err := store.MembersByMember(ctx, member.MemberID)
	require.NoError(t, err)
	assert.Len(t, byMember, 1)

	_, err = store.GetMember(ctx, "missing")
	assert.ErrorIs(t, err, chitfund.ErrSubscriptionNotFound)
}

func TestSQLite_UpdateMemberTotals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, member := seedGroupAndMember(t, store)

	collected := decimal.NewFromInt(2000)
	pending := decimal.NewFromInt(1500)
	require.NoError(t, store.UpdateMemberTotals(ctx, member.ID, collected, pending))

	fresh, err := store.GetMember(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, fresh.TotalCollected.Equal(collected))
	assert.True(t, fresh.PendingAmount.Equal(pending))

	err = store.UpdateMemberTotals(ctx, "missing", collected, pending)
	assert.ErrorIs(t, err, chitfund.ErrSubscriptionNotFound)
}

// =============================================================================
// FULL ENGINE OVER SQLITE
// =============================================================================

func TestSQLite_EngineStatement(t *testing.T) {
	// The same dues scenario the in-memory tests exercise, run against the
	// durable store end to end.

	store := newTestStore(t)
	ctx := context.Background()
	_, member := seedGroupAndMember(t, store)

	engine := chitfund.NewEngine(store)
	asOf := chitfund.NewTimePoint(2024, time.April, 1)

	_, err := engine.RecordPayment(ctx, collection("col-1", member.ID, 1, 1, 2000), asOf)
	require.NoError(t, err)

	st, err := engine.Statement(ctx, member.ID, asOf)
	require.NoError(t, err)

	assert.Equal(t, 4, st.CurrentPeriod)
	assert.True(t, st.ExpectedDue.Equal(decimal.NewFromInt(4000)))
	assert.True(t, st.OverdueAmount.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, chitfund.PaymentOverdue, st.PaymentStatus)

	fresh, err := store.GetGroup(ctx, "grp-1")
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.CurrentPeriod)
}
