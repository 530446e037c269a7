// Package store provides chitfund.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/AppfinityLabs/chitwise-new-sub001/chitfund"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	groups      map[chitfund.GroupID]chitfund.ChitGroup
	members     map[chitfund.SubscriptionID]chitfund.GroupMember
	collections map[chitfund.SubscriptionID][]chitfund.Collection
	slots       map[chitfund.Slot]chitfund.CollectionID
}

func NewMemory() *Memory {
	return &Memory{
		groups:      make(map[chitfund.GroupID]chitfund.ChitGroup),
		members:     make(map[chitfund.SubscriptionID]chitfund.GroupMember),
		collections: make(map[chitfund.SubscriptionID][]chitfund.Collection),
		slots:       make(map[chitfund.Slot]chitfund.CollectionID),
	}
}

// =============================================================================
// COLLECTION STORE
// =============================================================================

// InsertCollection adds a payment record. Rejects occupied slots.
func (m *Memory) InsertCollection(_ context.Context, c chitfund.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot := c.Slot()
	if existing, taken := m.slots[slot]; taken {
		return &chitfund.DuplicateSlotError{Slot: slot, ExistingID: existing}
	}

	records := m.collections[c.GroupMemberID]

	// Insert ordered by (base period, sequence): O(log n) search.
	i := sort.Search(len(records), func(i int) bool {
		r := records[i]
		if r.BasePeriod != c.BasePeriod {
			return r.BasePeriod > c.BasePeriod
		}
		return r.Sequence > c.Sequence
	})
	records = append(records, chitfund.Collection{})
	copy(records[i+1:], records[i:])
	records[i] = c
	m.collections[c.GroupMemberID] = records

	m.slots[slot] = c.ID
	return nil
}

func (m *Memory) CollectionsBySubscription(_ context.Context, id chitfund.SubscriptionID) ([]chitfund.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]chitfund.Collection, len(m.collections[id]))
	copy(result, m.collections[id])
	return result, nil
}

func (m *Memory) CollectionsByGroup(_ context.Context, id chitfund.GroupID) ([]chitfund.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []chitfund.Collection
	for _, records := range m.collections {
		for _, c := range records {
			if c.GroupID == id {
				result = append(result, c)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].BasePeriod != result[j].BasePeriod {
			return result[i].BasePeriod < result[j].BasePeriod
		}
		return result[i].Sequence < result[j].Sequence
	})
	return result, nil
}

func (m *Memory) SlotOccupant(_ context.Context, slot chitfund.Slot) (bool, chitfund.CollectionID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, taken := m.slots[slot]
	return taken, id, nil
}

// =============================================================================
// GROUP STORE
// =============================================================================

func (m *Memory) PutGroup(_ context.Context, g chitfund.ChitGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[g.ID] = g
	return nil
}

func (m *Memory) GetGroup(_ context.Context, id chitfund.GroupID) (chitfund.ChitGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.groups[id]
	if !ok {
		return chitfund.ChitGroup{}, chitfund.ErrGroupNotFound
	}
	return g, nil
}

func (m *Memory) GroupsByOrg(_ context.Context, org chitfund.OrgID) ([]chitfund.ChitGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []chitfund.ChitGroup
	for _, g := range m.groups {
		if g.OrgID == org {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// AdvancePeriod is a monotonic compare-and-set: the stored value never
// decreases, even under concurrent stale writers.
func (m *Memory) AdvancePeriod(_ context.Context, id chitfund.GroupID, period int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[id]
	if !ok {
		return 0, chitfund.ErrGroupNotFound
	}
	if period > g.CurrentPeriod {
		g.CurrentPeriod = period
		m.groups[id] = g
	}
	return g.CurrentPeriod, nil
}

func (m *Memory) PutMember(_ context.Context, member chitfund.GroupMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[member.ID] = member
	return nil
}

func (m *Memory) GetMember(_ context.Context, id chitfund.SubscriptionID) (chitfund.GroupMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	member, ok := m.members[id]
	if !ok {
		return chitfund.GroupMember{}, chitfund.ErrSubscriptionNotFound
	}
	return member, nil
}

func (m *Memory) MembersByGroup(_ context.Context, id chitfund.GroupID) ([]chitfund.GroupMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []chitfund.GroupMember
	for _, member := range m.members {
		if member.GroupID == id {
			result = append(result, member)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) MembersByMember(_ context.Context, id chitfund.MemberID) ([]chitfund.GroupMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []chitfund.GroupMember
	for _, member := range m.members {
		if member.MemberID == id {
			result = append(result, member)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) UpdateMemberTotals(_ context.Context, id chitfund.SubscriptionID, collected, pending decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	member, ok := m.members[id]
	if !ok {
		return chitfund.ErrSubscriptionNotFound
	}
	member.TotalCollected = collected
	member.PendingAmount = pending
	m.members[id] = member
	return nil
}
