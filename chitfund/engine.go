/*
engine.go - Read-path and write-path orchestration

PURPOSE:
  Ties the pure pieces together over the store interfaces:

  Statement (read path):
    clock -> projector -> classifier, feeding the ledger's collected total
    into both. Opportunistically advances the group's cached current
    period through the store's monotonic compare-and-set and refreshes
    the subscription's denormalized caches. Reads are idempotent: the
    same snapshot always yields the same statement.

  RecordPayment (write path):
    ledger insert guarded by slot uniqueness, then denormalized totals
    refreshed in lockstep from the ledger sum - the caches are never
    mutated independently of a ledger write.

  Join (subscription creation):
    derives the collection factor and the lifetime obligation once, at
    join time.

SEE ALSO:
  - ledger.go:  slot invariant and summation
  - classify.go: status rules and the external DefaultPolicy
*/
package chitfund

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Engine coordinates clock, projector, ledger, and classifier over a Store.
type Engine struct {
	store  Store
	ledger *Ledger
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, ledger: NewLedger(store)}
}

// Ledger exposes the engine's ledger for callers that need raw record access.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// =============================================================================
// READ PATH
// =============================================================================

// Statement computes the dues standing of a subscription at now.
//
// Side effects, both forward-only: the group's cached period is advanced to
// the fresh clock evaluation, and the subscription's denormalized totals are
// refreshed from the ledger sum. Neither ever moves a value backward in a
// way that would un-count periods collections already reference.
func (e *Engine) Statement(ctx context.Context, subID SubscriptionID, now TimePoint) (DuesStatement, error) {
	sub, err := e.store.GetMember(ctx, subID)
	if err != nil {
		return DuesStatement{}, err
	}
	group, err := e.store.GetGroup(ctx, sub.GroupID)
	if err != nil {
		return DuesStatement{}, err
	}

	period := GroupPeriod(group, now)
	if period > group.CurrentPeriod {
		if _, err := e.store.AdvancePeriod(ctx, group.ID, period); err != nil {
			return DuesStatement{}, fmt.Errorf("failed to advance cached period: %w", err)
		}
	}

	collected, err := e.ledger.TotalCollected(ctx, sub.ID)
	if err != nil {
		return DuesStatement{}, err
	}

	expected := ExpectedDue(group, sub, now)
	overdue, status := Classify(group, sub, collected, expected, now)

	if err := e.store.UpdateMemberTotals(ctx, sub.ID, collected, overdue); err != nil {
		return DuesStatement{}, fmt.Errorf("failed to refresh totals: %w", err)
	}

	return DuesStatement{
		SubscriptionID: sub.ID,
		GroupID:        group.ID,
		AsOf:           now,
		CurrentPeriod:  period,
		ExpectedDue:    expected,
		TotalCollected: collected,
		OverdueAmount:  overdue,
		PaymentStatus:  status,
	}, nil
}

// GroupStatements computes statements for every subscription in a group.
func (e *Engine) GroupStatements(ctx context.Context, groupID GroupID, now TimePoint) ([]DuesStatement, error) {
	members, err := e.store.MembersByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	statements := make([]DuesStatement, 0, len(members))
	for _, m := range members {
		st, err := e.Statement(ctx, m.ID, now)
		if err != nil {
			return nil, err
		}
		statements = append(statements, st)
	}
	return statements, nil
}

// =============================================================================
// WRITE PATH
// =============================================================================

// RecordPayment records a collection and refreshes the subscription's
// denormalized totals from the ledger sum. Returns *DuplicateSlotError when
// the slot is occupied; callers re-derive the sequence and retry.
func (e *Engine) RecordPayment(ctx context.Context, c Collection, now TimePoint) (Collection, error) {
	sub, err := e.store.GetMember(ctx, c.GroupMemberID)
	if err != nil {
		return Collection{}, err
	}
	group, err := e.store.GetGroup(ctx, sub.GroupID)
	if err != nil {
		return Collection{}, err
	}

	c.GroupID = group.ID
	c.MemberID = sub.MemberID
	if c.BasePeriod < 1 {
		c.BasePeriod = GroupPeriod(group, now)
	}
	// Normalize here, not just inside Record: the returned Collection must
	// carry the slot coordinates actually stored in the ledger.
	if c.Sequence < 1 {
		c.Sequence = 1
	}
	if c.Status == "" {
		c.Status = CollectionPaid
	}

	if err := e.ledger.Record(ctx, c); err != nil {
		return Collection{}, err
	}

	collected, err := e.ledger.TotalCollected(ctx, sub.ID)
	if err != nil {
		return Collection{}, err
	}
	expected := ExpectedDue(group, sub, now)
	overdue, _ := Classify(group, sub, collected, expected, now)

	if err := e.store.UpdateMemberTotals(ctx, sub.ID, collected, overdue); err != nil {
		return Collection{}, fmt.Errorf("failed to refresh totals: %w", err)
	}
	return c, nil
}

// =============================================================================
// SUBSCRIPTION CREATION
// =============================================================================

// Join creates a subscription for a member in a group, deriving the
// collection factor and the lifetime obligation once.
func (e *Engine) Join(ctx context.Context, id SubscriptionID, memberID MemberID, groupID GroupID, units decimal.Decimal, pattern Frequency, joinedAt TimePoint) (GroupMember, error) {
	group, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return GroupMember{}, err
	}

	if pattern == "" {
		pattern = group.Frequency
	}
	factor, err := ResolveCollectionFactor(group.Frequency, pattern)
	if err != nil {
		return GroupMember{}, err
	}

	sub := GroupMember{
		ID:                id,
		MemberID:          memberID,
		GroupID:           groupID,
		Units:             units,
		CollectionPattern: pattern,
		CollectionFactor:  factor,
		TotalCollected:    decimal.Zero,
		PendingAmount:     decimal.Zero,
		Status:            MemberActive,
		JoinedAt:          joinedAt,
	}
	sub.TotalDue = LifetimeDue(group, sub)

	if err := e.store.PutMember(ctx, sub); err != nil {
		return GroupMember{}, err
	}
	return sub, nil
}
