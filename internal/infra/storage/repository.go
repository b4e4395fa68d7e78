// Package storage provides the persistence layer for the aging server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/MRamiBalles/CrewAging/server/internal/events"
	"github.com/MRamiBalles/CrewAging/server/internal/savetree"
)

// ErrNotFound is returned when a save slot does not exist.
var ErrNotFound = errors.New("not found")

// SlotInfo describes a stored save slot.
type SlotInfo struct {
	Slot    string    `json:"slot"`
	UT      float64   `json:"ut"`
	SavedAt time.Time `json:"saved_at"`
}

// SaveRepository stores whole save trees by slot name.
type SaveRepository interface {
	// SaveTree writes tree to slot, replacing what was there.
	SaveTree(ctx context.Context, slot string, ut float64, tree *savetree.Node) error

	// LoadTree returns the tree in slot, or ErrNotFound.
	LoadTree(ctx context.Context, slot string) (*savetree.Node, error)

	// ListSlots returns every slot, most recently saved first.
	ListSlots(ctx context.Context) ([]SlotInfo, error)
}

// EventRepository defines the interface for lifecycle event persistence.
// Events are partitioned by save slot.
type EventRepository interface {
	// Append adds a new event to the immutable history.
	Append(ctx context.Context, slot string, event events.LifecycleEvent) error

	// GetBySlot retrieves all events for a slot (for replay).
	GetBySlot(ctx context.Context, slot string) ([]events.LifecycleEvent, error)

	// GetByCrew retrieves all events affecting one crew member.
	GetByCrew(ctx context.Context, slot, crewName string) ([]events.LifecycleEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, slot string, eventType events.EventType) ([]events.LifecycleEvent, error)
}
