// Package roster holds the host-fed crew roster the engine reconciles against.
package roster

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
)

// Memory is a thread-safe in-memory roster. The host pushes entries with
// Upsert; the engine reads and updates them through the Roster contract.
type Memory struct {
	mu      sync.RWMutex
	members map[string]crew.Member
}

// NewMemory creates a roster seeded with members.
func NewMemory(members ...crew.Member) *Memory {
	m := &Memory{members: make(map[string]crew.Member, len(members))}
	for _, member := range members {
		m.members[member.Name] = normalize(member)
	}
	return m
}

func normalize(m crew.Member) crew.Member {
	if m.Category == "" {
		m.Category = crew.CategoryCrew
	}
	if m.Status == "" {
		m.Status = crew.StatusAvailable
	}
	if m.Status != crew.StatusAssigned {
		m.Placement = ""
	}
	return m
}

// Upsert adds or replaces a member and returns its previous status, if any.
func (m *Memory) Upsert(member crew.Member) (prev crew.Status, existed bool) {
	member = normalize(member)
	m.mu.Lock()
	defer m.mu.Unlock()
	old, existed := m.members[member.Name]
	m.members[member.Name] = member
	return old.Status, existed
}

// Delete drops a member from the roster.
func (m *Memory) Delete(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[name]; !ok {
		return false
	}
	delete(m.members, name)
	return true
}

// Crew returns every member in name order.
func (m *Memory) Crew(ctx context.Context) ([]crew.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]crew.Member, 0, len(m.members))
	for _, member := range m.members {
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) Lookup(ctx context.Context, name string) (crew.Member, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	member, ok := m.members[name]
	return member, ok, nil
}

// Detach clears the placement of an assigned member and makes it available.
func (m *Memory) Detach(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[name]
	if !ok {
		return fmt.Errorf("detach %s: not on roster", name)
	}
	if member.Status == crew.StatusAssigned {
		member.Status = crew.StatusAvailable
	}
	member.Placement = ""
	m.members[name] = member
	return nil
}

func (m *Memory) SetStatus(ctx context.Context, name string, status crew.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[name]
	if !ok {
		return fmt.Errorf("set status %s: not on roster", name)
	}
	member.Status = status
	if status != crew.StatusAssigned {
		member.Placement = ""
	}
	m.members[name] = member
	return nil
}
