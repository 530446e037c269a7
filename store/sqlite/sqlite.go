/*
Package sqlite provides a SQLite-backed implementation of chitfund.Store.

PURPOSE:
  Implements CollectionStore and GroupStore using SQLite. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements touch the collections table. Amendments
  are new records with status PARTIAL/FAILED; the slot-uniqueness index
  is the final arbiter under concurrent writes.

KEY TABLES:
  chit_groups:   Contribution pools with the cached current period
  group_members: Subscriptions with denormalized (cached) totals
  collections:   Immutable payment ledger

CRITICAL INDEXES:
  idx_unique_collection_slot: UNIQUE(group_member_id, base_period, seq).
  This is the mechanism that rejects double-recording the same due and
  serializes concurrent writers on the same slot - a unique-constraint
  rejection, not an application lock.

MONOTONIC PERIOD:
  AdvancePeriod uses "UPDATE ... WHERE current_period < ?" so a slow
  reader's stale value can never roll the cached period backward.

WAL MODE:
  SQLite is opened with WAL for better read concurrency.

SEE ALSO:
  - chitfund/store.go: interface definitions
  - chitfund/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/AppfinityLabs/chitwise-new-sub001/chitfund"
)

// Store implements chitfund.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chit_groups (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL,
		frequency TEXT NOT NULL,
		contribution_amount TEXT NOT NULL,
		total_units TEXT NOT NULL,
		total_periods INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		current_period INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_groups_org ON chit_groups(org_id);

	CREATE TABLE IF NOT EXISTS group_members (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		group_id TEXT NOT NULL,
		units TEXT NOT NULL,
		collection_pattern TEXT NOT NULL,
		collection_factor TEXT NOT NULL,
		total_due TEXT NOT NULL,
		total_collected TEXT NOT NULL DEFAULT '0',
		pending_amount TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		joined_at TEXT NOT NULL,
		FOREIGN KEY (group_id) REFERENCES chit_groups(id)
	);

	CREATE INDEX IF NOT EXISTS idx_members_group ON group_members(group_id);
	CREATE INDEX IF NOT EXISTS idx_members_member ON group_members(member_id);

	-- Collections (append-only payment ledger)
	CREATE TABLE IF NOT EXISTS collections (
		id TEXT PRIMARY KEY,
		group_member_id TEXT NOT NULL,
		group_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		base_period INTEGER NOT NULL,
		seq INTEGER NOT NULL DEFAULT 1,
		period_date TEXT NOT NULL,
		amount_due TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		payment_mode TEXT,
		collected_at TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (group_member_id) REFERENCES group_members(id)
	);

	-- CRITICAL: one record per (subscription, base period, sequence) slot.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_collection_slot
		ON collections(group_member_id, base_period, seq);

	CREATE INDEX IF NOT EXISTS idx_collections_subscription
		ON collections(group_member_id, base_period, seq);
	CREATE INDEX IF NOT EXISTS idx_collections_group
		ON collections(group_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// COLLECTION STORE (chitfund.CollectionStore interface)
// =============================================================================

// InsertCollection appends a payment record to the ledger.
func (s *Store) InsertCollection(ctx context.Context, c chitfund.Collection) error {
	query := `
		INSERT INTO collections
		(id, group_member_id, group_id, member_id, base_period, seq, period_date,
		 amount_due, amount_paid, payment_mode, collected_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID,
		c.GroupMemberID,
		c.GroupID,
		c.MemberID,
		c.BasePeriod,
		c.Sequence,
		c.PeriodDate.Time.Format(time.RFC3339),
		c.AmountDue.String(),
		c.AmountPaid.String(),
		c.PaymentMode,
		c.CollectedAt.Time.Format(time.RFC3339),
		c.Status,
		time.Now().UTC().Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return &chitfund.DuplicateSlotError{Slot: c.Slot()}
		}
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	return nil
}

// CollectionsBySubscription returns a subscription's records ordered by slot.
func (s *Store) CollectionsBySubscription(ctx context.Context, id chitfund.SubscriptionID) ([]chitfund.Collection, error) {
	query := selectCollections + `
		WHERE group_member_id = ?
		ORDER BY base_period ASC, seq ASC
	`
	return s.queryCollections(ctx, query, id)
}

// CollectionsByGroup returns all records for a group ordered by slot.
func (s *Store) CollectionsByGroup(ctx context.Context, id chitfund.GroupID) ([]chitfund.Collection, error) {
	query := selectCollections + `
		WHERE group_id = ?
		ORDER BY base_period ASC, seq ASC
	`
	return s.queryCollections(ctx, query, id)
}

// SlotOccupant reports whether a ledger slot is taken.
func (s *Store) SlotOccupant(ctx context.Context, slot chitfund.Slot) (bool, chitfund.CollectionID, error) {
	var id chitfund.CollectionID
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM collections WHERE group_member_id = ? AND base_period = ? AND seq = ?",
		slot.GroupMemberID, slot.BasePeriod, slot.Sequence,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("failed to check slot: %w", err)
	}
	return true, id, nil
}

const selectCollections = `
	SELECT id, group_member_id, group_id, member_id, base_period, seq, period_date,
	       amount_due, amount_paid, payment_mode, collected_at, status
	FROM collections
`

func (s *Store) queryCollections(ctx context.Context, query string, args ...any) ([]chitfund.Collection, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var collections []chitfund.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

func scanCollection(rows *sql.Rows) (chitfund.Collection, error) {
	var (
		c           chitfund.Collection
		periodDate  string
		amountDue   string
		amountPaid  string
		paymentMode sql.NullString
		collectedAt string
	)

	err := rows.Scan(
		&c.ID, &c.GroupMemberID, &c.GroupID, &c.MemberID, &c.BasePeriod, &c.Sequence,
		&periodDate, &amountDue, &amountPaid, &paymentMode, &collectedAt, &c.Status,
	)
	if err != nil {
		return c, fmt.Errorf("failed to scan collection: %w", err)
	}

	c.PeriodDate = parseTimePoint(periodDate)
	c.CollectedAt = parseTimePoint(collectedAt)
	c.AmountDue = parseDecimal(amountDue)
	c.AmountPaid = parseDecimal(amountPaid)
	c.PaymentMode = paymentMode.String
	return c, nil
}

// =============================================================================
// GROUP STORE (chitfund.GroupStore interface)
// =============================================================================

// PutGroup inserts or replaces a group.
func (s *Store) PutGroup(ctx context.Context, g chitfund.ChitGroup) error {
	query := `
		INSERT OR REPLACE INTO chit_groups
		(id, org_id, name, frequency, contribution_amount, total_units, total_periods,
		 start_date, end_date, current_period, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var endDate any
	if g.EndDate != nil {
		endDate = g.EndDate.Time.Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, query,
		g.ID, g.OrgID, g.Name, g.Frequency,
		g.ContributionAmount.String(), g.TotalUnits.String(), g.TotalPeriods,
		g.StartDate.Time.Format(time.RFC3339), endDate,
		g.CurrentPeriod, g.Status, g.CreatedAt.Time.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to put group: %w", err)
	}
	return nil
}

// GetGroup fetches a group by id.
func (s *Store) GetGroup(ctx context.Context, id chitfund.GroupID) (chitfund.ChitGroup, error) {
	row := s.db.QueryRowContext(ctx, selectGroups+" WHERE id = ?", id)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return chitfund.ChitGroup{}, chitfund.ErrGroupNotFound
	}
	return g, err
}

// GroupsByOrg lists an organisation's groups.
func (s *Store) GroupsByOrg(ctx context.Context, org chitfund.OrgID) ([]chitfund.ChitGroup, error) {
	rows, err := s.db.QueryContext(ctx, selectGroups+" WHERE org_id = ? ORDER BY id", org)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []chitfund.ChitGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// AdvancePeriod moves the cached period forward. The WHERE guard makes the
// write a monotonic compare-and-set: stale writers are no-ops.
func (s *Store) AdvancePeriod(ctx context.Context, id chitfund.GroupID, period int) (int, error) {
	_, err := s.db.ExecContext(ctx,
		"UPDATE chit_groups SET current_period = ? WHERE id = ? AND current_period < ?",
		period, id, period,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to advance period: %w", err)
	}

	var stored int
	err = s.db.QueryRowContext(ctx,
		"SELECT current_period FROM chit_groups WHERE id = ?", id,
	).Scan(&stored)
	if err == sql.ErrNoRows {
		return 0, chitfund.ErrGroupNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read period: %w", err)
	}
	return stored, nil
}

// PutMember inserts or replaces a subscription.
func (s *Store) PutMember(ctx context.Context, m chitfund.GroupMember) error {
	query := `
		INSERT OR REPLACE INTO group_members
		(id, member_id, group_id, units, collection_pattern, collection_factor,
		 total_due, total_collected, pending_amount, status, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.MemberID, m.GroupID,
		m.Units.String(), m.CollectionPattern, m.CollectionFactor.String(),
		m.TotalDue.String(), m.TotalCollected.String(), m.PendingAmount.String(),
		m.Status, m.JoinedAt.Time.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to put member: %w", err)
	}
	return nil
}

// GetMember fetches a subscription by id.
func (s *Store) GetMember(ctx context.Context, id chitfund.SubscriptionID) (chitfund.GroupMember, error) {
	row := s.db.QueryRowContext(ctx, selectMembers+" WHERE id = ?", id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return chitfund.GroupMember{}, chitfund.ErrSubscriptionNotFound
	}
	return m, err
}

// MembersByGroup lists a group's subscriptions.
func (s *Store) MembersByGroup(ctx context.Context, id chitfund.GroupID) ([]chitfund.GroupMember, error) {
	return s.queryMembers(ctx, selectMembers+" WHERE group_id = ? ORDER BY id", id)
}

// MembersByMember lists a member's subscriptions across groups.
func (s *Store) MembersByMember(ctx context.Context, id chitfund.MemberID) ([]chitfund.GroupMember, error) {
	return s.queryMembers(ctx, selectMembers+" WHERE member_id = ? ORDER BY id", id)
}

// UpdateMemberTotals refreshes the denormalized caches. Only ever called in
// lockstep with a ledger read; the collections table itself is untouched.
func (s *Store) UpdateMemberTotals(ctx context.Context, id chitfund.SubscriptionID, collected, pending decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE group_members SET total_collected = ?, pending_amount = ? WHERE id = ?",
		collected.String(), pending.String(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update totals: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return chitfund.ErrSubscriptionNotFound
	}
	return nil
}

const selectGroups = `
	SELECT id, org_id, name, frequency, contribution_amount, total_units,
	       total_periods, start_date, end_date, current_period, status, created_at
	FROM chit_groups
`

const selectMembers = `
	SELECT id, member_id, group_id, units, collection_pattern, collection_factor,
	       total_due, total_collected, pending_amount, status, joined_at
	FROM group_members
`

func (s *Store) queryMembers(ctx context.Context, query string, args ...any) ([]chitfund.GroupMember, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []chitfund.GroupMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanGroup(row scanner) (chitfund.ChitGroup, error) {
	var (
		g            chitfund.ChitGroup
		contribution string
		totalUnits   string
		startDate    string
		endDate      sql.NullString
		createdAt    string
	)
	err := row.Scan(
		&g.ID, &g.OrgID, &g.Name, &g.Frequency, &contribution, &totalUnits,
		&g.TotalPeriods, &startDate, &endDate, &g.CurrentPeriod, &g.Status, &createdAt,
	)
	if err != nil {
		return g, err
	}
	g.ContributionAmount = parseDecimal(contribution)
	g.TotalUnits = parseDecimal(totalUnits)
	g.StartDate = parseTimePoint(startDate)
	if endDate.Valid {
		tp := parseTimePoint(endDate.String)
		g.EndDate = &tp
	}
	g.CreatedAt = parseTimePoint(createdAt)
	return g, nil
}

func scanMember(row scanner) (chitfund.GroupMember, error) {
	var (
		m         chitfund.GroupMember
		units     string
		factor    string
		totalDue  string
		collected string
		pending   string
		joinedAt  string
	)
	err := row.Scan(
		&m.ID, &m.MemberID, &m.GroupID, &units, &m.CollectionPattern, &factor,
		&totalDue, &collected, &pending, &m.Status, &joinedAt,
	)
	if err != nil {
		return m, err
	}
	m.Units = parseDecimal(units)
	m.CollectionFactor = parseDecimal(factor)
	m.TotalDue = parseDecimal(totalDue)
	m.TotalCollected = parseDecimal(collected)
	m.PendingAmount = parseDecimal(pending)
	m.JoinedAt = parseTimePoint(joinedAt)
	return m, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseTimePoint(s string) chitfund.TimePoint {
	t, _ := time.Parse(time.RFC3339, s)
	return chitfund.TimePoint{Time: t}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
