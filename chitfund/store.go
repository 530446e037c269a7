/*
store.go - Persistence interfaces for groups, subscriptions, and collections

PURPOSE:
  Defines the boundary between the pure engine and the document store.
  The engine never performs I/O itself; it is handed plain records fetched
  through these interfaces.

KEY INTERFACES:
  CollectionStore: Append-only payment records with slot uniqueness
  GroupStore:      Groups and subscriptions by primary key and simple filters

APPEND-ONLY CONTRACT:
  Collections are never updated or deleted. Amendments are new records
  with status PARTIAL/FAILED in the next free sequence slot. The store
  enforces uniqueness of (group_member_id, base_period, seq) and rejects
  conflicting inserts with ErrDuplicateSlot - a unique-constraint
  rejection, not an engine-level lock.

MONOTONIC PERIOD CACHE:
  AdvancePeriod is a compare-and-set: it only ever writes a value >= the
  stored one, so a slow reader's stale computation can never roll the
  cached period backward.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:  production SQLite
  - chitfund/store/memory.go: in-memory for testing

SEE ALSO:
  - ledger.go: higher-level ledger using CollectionStore
  - engine.go: read-path orchestration over both interfaces
*/
package chitfund

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COLLECTION STORE - Append-only payment records
// =============================================================================

// CollectionStore persists payment records.
// IMPORTANT: append-only. No Update, no Delete. Corrections are new records.
type CollectionStore interface {
	// InsertCollection persists a payment record. Returns ErrDuplicateSlot
	// (or a *DuplicateSlotError) if the slot is already occupied.
	InsertCollection(ctx context.Context, c Collection) error

	// CollectionsBySubscription returns all records for a subscription,
	// ordered by (base period, sequence).
	CollectionsBySubscription(ctx context.Context, id SubscriptionID) ([]Collection, error)

	// CollectionsByGroup returns all records for a group.
	CollectionsByGroup(ctx context.Context, id GroupID) ([]Collection, error)

	// SlotOccupant reports whether a slot is taken and by which record.
	SlotOccupant(ctx context.Context, slot Slot) (bool, CollectionID, error)
}

// =============================================================================
// GROUP STORE - Groups and subscriptions
// =============================================================================

// GroupStore persists groups and subscriptions.
type GroupStore interface {
	PutGroup(ctx context.Context, g ChitGroup) error

	// GetGroup returns ErrGroupNotFound if the id is unknown.
	GetGroup(ctx context.Context, id GroupID) (ChitGroup, error)

	GroupsByOrg(ctx context.Context, org OrgID) ([]ChitGroup, error)

	// AdvancePeriod moves the cached current period forward, monotonically.
	// If period <= the stored value, the stored value is kept. Returns the
	// value now stored.
	AdvancePeriod(ctx context.Context, id GroupID, period int) (int, error)

	PutMember(ctx context.Context, m GroupMember) error

	// GetMember returns ErrSubscriptionNotFound if the id is unknown.
	GetMember(ctx context.Context, id SubscriptionID) (GroupMember, error)

	MembersByGroup(ctx context.Context, id GroupID) ([]GroupMember, error)
	MembersByMember(ctx context.Context, id MemberID) ([]GroupMember, error)

	// UpdateMemberTotals refreshes the denormalized caches on a subscription.
	// Called in lockstep with every successful ledger write; the ledger sum
	// remains the source of truth.
	UpdateMemberTotals(ctx context.Context, id SubscriptionID, collected, pending decimal.Decimal) error
}

// Store combines both persistence concerns. The SQLite and memory
// implementations satisfy it; callers needing only one side depend on the
// narrower interface.
type Store interface {
	CollectionStore
	GroupStore
}
