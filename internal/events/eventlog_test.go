package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	mu   sync.Mutex
	got  []LifecycleEvent
	fail error
}

func (p *memPersister) Append(e LifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.got = append(p.got, e)
	return nil
}

func TestAppendFillsDefaultsAndPersists(t *testing.T) {
	p := &memPersister{}
	log := NewEventLog(p)

	e := log.Append(LifecycleEvent{Type: EventTypeCrewDied, CrewName: "Jeb", UT: 42})
	log.Flush()

	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, ActorSystem, e.ActorID)

	require.Len(t, p.got, 1)
	assert.Equal(t, e, p.got[0])
}

func TestQueries(t *testing.T) {
	log := NewEventLog(nil)
	log.Append(LifecycleEvent{Type: EventTypeRecordCreated, CrewName: "Jeb"})
	log.Append(LifecycleEvent{Type: EventTypeRecordCreated, CrewName: "Bill"})
	log.Append(LifecycleEvent{Type: EventTypeCrewDied, CrewName: "Jeb"})

	assert.Equal(t, 3, log.Len())
	assert.Len(t, log.GetByCrew("Jeb"), 2)
	assert.Len(t, log.GetByType(EventTypeRecordCreated), 2)
	assert.Len(t, log.Since(2), 1)
	assert.Nil(t, log.Since(3))
	assert.Len(t, log.Replay(), 3)
}

func TestPersistErrorsAreReported(t *testing.T) {
	p := &memPersister{fail: errors.New("disk full")}
	log := NewEventLog(p)

	var mu sync.Mutex
	var seen []error
	log.OnPersistError(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, err)
	})

	log.Append(LifecycleEvent{Type: EventTypeBirthday})
	log.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.EqualError(t, seen[0], "disk full")
	assert.Equal(t, 1, log.Len())
}

func TestWriteThroughKeepsAppendOrder(t *testing.T) {
	p := &memPersister{}
	log := NewEventLog(p)

	for i := 0; i < 50; i++ {
		log.Append(LifecycleEvent{Type: EventTypeBirthday, UT: float64(i)})
	}
	log.Flush()

	require.Len(t, p.got, 50)
	for i, e := range p.got {
		assert.Equal(t, float64(i), e.UT)
	}
}

func TestRestoreDoesNotPersist(t *testing.T) {
	p := &memPersister{}
	log := NewEventLog(p)

	log.Restore([]LifecycleEvent{{ID: "a", Type: EventTypeCrewDied}, {ID: "b", Type: EventTypeBirthday}})
	log.Flush()

	assert.Equal(t, 2, log.Len())
	assert.Empty(t, p.got)
}
