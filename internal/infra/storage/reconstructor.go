// Package storage - reconstructor.go
// Rebuilds the lifecycle history of a save slot from the event repository.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/calendar"
	"github.com/MRamiBalles/CrewAging/server/internal/events"
)

// Reconstructor reads a slot's persisted history back. It is used for:
// 1. Restoring the in-memory event log at startup
// 2. The per-crew recap served by the API
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new history reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEvent is a simplified event for a crew member's history.
type RecapEvent struct {
	Date    string `json:"date"`
	Type    string `json:"type"`
	Summary string `json:"summary"` // Human-readable description
}

// Restore loads every persisted event of slot into log without re-persisting them.
func (r *Reconstructor) Restore(ctx context.Context, slot string, log *events.EventLog) (int, error) {
	history, err := r.eventRepo.GetBySlot(ctx, slot)
	if err != nil {
		return 0, fmt.Errorf("failed to restore history for %s: %w", slot, err)
	}
	log.Restore(history)
	return len(history), nil
}

// Recap builds the readable history of one crew member.
func (r *Reconstructor) Recap(ctx context.Context, slot, crewName string) ([]RecapEvent, error) {
	history, err := r.eventRepo.GetByCrew(ctx, slot, crewName)
	if err != nil {
		return nil, err
	}

	recap := make([]RecapEvent, 0, len(history))
	for _, e := range history {
		recap = append(recap, RecapEvent{
			Date:    calendar.DateOf(e.UT).String(),
			Type:    string(e.Type),
			Summary: summarize(e),
		})
	}
	return recap, nil
}

// summarize generates a human-readable description of a lifecycle event.
func summarize(e events.LifecycleEvent) string {
	raw, _ := e.Payload.(json.RawMessage)

	switch e.Type {
	case events.EventTypeRecordCreated:
		var p events.RecordCreatedPayload
		if json.Unmarshal(raw, &p) == nil {
			if !p.Alive {
				return fmt.Sprintf("Found already dead at age %d", p.CurrentAge)
			}
			return fmt.Sprintf("Joined the roster aged %d", p.CurrentAge)
		}
	case events.EventTypeBirthday:
		var p events.BirthdayPayload
		if json.Unmarshal(raw, &p) == nil {
			return fmt.Sprintf("Turned %d", p.NewAge)
		}
	case events.EventTypeCrewDied:
		var p events.DeathPayload
		if json.Unmarshal(raw, &p) == nil {
			if p.Known {
				return fmt.Sprintf("Died at age %d", p.Age)
			}
			return fmt.Sprintf("Died at age %d, date unknown", p.Age)
		}
	case events.EventTypeCrewReanimated:
		return "Recovered from cryo records"
	case events.EventTypeRecordEdited:
		var p events.EditPayload
		if json.Unmarshal(raw, &p) == nil {
			return fmt.Sprintf("%s changed from %v to %v", p.Field, p.From, p.To)
		}
	case events.EventTypeRecordRemoved:
		return "No longer tracked"
	}
	return string(e.Type)
}

// SlotPersister writes events through to the repository under one slot.
// It satisfies events.EventPersister.
type SlotPersister struct {
	repo    EventRepository
	slot    string
	timeout time.Duration
}

func NewSlotPersister(repo EventRepository, slot string) *SlotPersister {
	return &SlotPersister{repo: repo, slot: slot, timeout: 5 * time.Second}
}

func (p *SlotPersister) Append(event events.LifecycleEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.repo.Append(ctx, p.slot, event)
}

var _ events.EventPersister = (*SlotPersister)(nil)
