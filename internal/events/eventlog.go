// Package events provides the lifecycle event log for the aging ledger.
// Every creation, removal, death, reanimation and manual edit is appended here
// and written through to persistent storage.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventTypeRecordCreated  EventType = "RECORD_CREATED"
	EventTypeRecordRemoved  EventType = "RECORD_REMOVED"
	EventTypeCrewDied       EventType = "CREW_DIED"
	EventTypeCrewReanimated EventType = "CREW_REANIMATED"
	EventTypeBirthday       EventType = "BIRTHDAY"
	EventTypeRecordEdited   EventType = "RECORD_EDITED"
	EventTypeRangesApplied  EventType = "RANGES_APPLIED"
	EventTypeSettingsLocked EventType = "SETTINGS_LOCKED"
)

// ActorSystem marks events raised by the engine itself rather than an operator.
const ActorSystem = "SYSTEM"

// RecordCreatedPayload describes a freshly sampled record.
type RecordCreatedPayload struct {
	CurrentAge int  `json:"current_age"`
	DeathAge   int  `json:"death_age"`
	Alive      bool `json:"alive"`
	Blessed    bool `json:"blessed"`
	Suspended  bool `json:"suspended"`
}

// DeathPayload describes a death transition.
type DeathPayload struct {
	Age     int     `json:"age"`
	Known   bool    `json:"known"`
	DeathUT float64 `json:"death_ut,omitempty"`
}

// BirthdayPayload describes age advanced by the time accounting pass.
type BirthdayPayload struct {
	Birthdays int `json:"birthdays"`
	NewAge    int `json:"new_age"`
}

// EditPayload describes a manual override.
type EditPayload struct {
	Field string `json:"field"`
	From  any    `json:"from"`
	To    any    `json:"to"`
}

// LifecycleEvent represents an immutable record of a ledger transition.
type LifecycleEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ActorID   string    `json:"actor_id"`  // SYSTEM or the operator that triggered it
	CrewName  string    `json:"crew_name"` // affected crew member, empty for settings events
	UT        float64   `json:"ut"`        // simulation time of the transition
	Payload   any       `json:"payload"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event LifecycleEvent) error
}

// EventLog is the in-memory append-only log of lifecycle events.
type EventLog struct {
	mu        sync.RWMutex
	events    []LifecycleEvent
	persister EventPersister
	wg        sync.WaitGroup
	onError   func(error)
	lastWrite chan struct{} // closed when the newest write-through finishes
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]LifecycleEvent, 0),
		persister: persister,
	}
}

// OnPersistError registers a callback for write-through failures.
func (el *EventLog) OnPersistError(fn func(error)) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.onError = fn
}

// Append adds a new event to the log. Events are immutable once appended.
// Missing IDs and timestamps are filled in.
func (el *EventLog) Append(event LifecycleEvent) LifecycleEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ActorID == "" {
		event.ActorID = ActorSystem
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	onError := el.onError
	var prev, done chan struct{}
	if el.persister != nil {
		prev, done = el.lastWrite, make(chan struct{})
		el.lastWrite = done
		el.wg.Add(1)
	}
	el.mu.Unlock()

	if done != nil {
		// Write through off the tick path, in append order; Flush waits for these.
		go func(e LifecycleEvent) {
			defer el.wg.Done()
			defer close(done)
			if prev != nil {
				<-prev
			}
			if err := el.persister.Append(e); err != nil && onError != nil {
				onError(err)
			}
		}(event)
	}
	return event
}

// Restore appends previously persisted events without writing them through again.
func (el *EventLog) Restore(history []LifecycleEvent) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.events = append(el.events, history...)
}

// Flush blocks until pending write-throughs finish.
func (el *EventLog) Flush() {
	el.wg.Wait()
}

// Len returns the number of events appended so far.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// Since returns a copy of the events after the first n.
func (el *EventLog) Since(n int) []LifecycleEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(el.events) {
		return nil
	}
	out := make([]LifecycleEvent, len(el.events)-n)
	copy(out, el.events[n:])
	return out
}

// GetByCrew returns all events affecting a specific crew member.
func (el *EventLog) GetByCrew(name string) []LifecycleEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []LifecycleEvent
	for _, e := range el.events {
		if e.CrewName == name {
			result = append(result, e)
		}
	}
	return result
}

// GetByType returns all events of a given type.
func (el *EventLog) GetByType(t EventType) []LifecycleEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []LifecycleEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns the full history of events.
func (el *EventLog) Replay() []LifecycleEvent {
	return el.Since(0)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
