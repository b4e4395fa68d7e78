// Package ledger is the authoritative store of mortality records.
// It owns every record; callers receive copies and mutate through Mutate.
// The ledger is not safe for concurrent use: the engine's serialized worker owns it.
package ledger

import (
	"errors"
	"sort"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
)

// ErrExists is returned when creating a record for an already tracked name.
var ErrExists = errors.New("record already exists")

// Ledger maps crew identity to its mortality record.
type Ledger struct {
	records map[string]*crew.Record
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{records: make(map[string]*crew.Record)}
}

// Len returns the number of tracked records.
func (l *Ledger) Len() int { return len(l.records) }

// Create adds a new record keyed by rec.Name.
func (l *Ledger) Create(rec crew.Record) error {
	if _, ok := l.records[rec.Name]; ok {
		return ErrExists
	}
	r := rec
	l.records[rec.Name] = &r
	return nil
}

// Get returns a copy of the record for name.
func (l *Ledger) Get(name string) (crew.Record, bool) {
	r, ok := l.records[name]
	if !ok {
		return crew.Record{}, false
	}
	return *r, true
}

// Has reports whether name is tracked.
func (l *Ledger) Has(name string) bool {
	_, ok := l.records[name]
	return ok
}

// Mutate applies fn to the stored record in place. The record's name cannot change.
func (l *Ledger) Mutate(name string, fn func(r *crew.Record)) bool {
	r, ok := l.records[name]
	if !ok {
		return false
	}
	fn(r)
	r.Name = name
	return true
}

// Remove drops the record for name.
func (l *Ledger) Remove(name string) bool {
	if _, ok := l.records[name]; !ok {
		return false
	}
	delete(l.records, name)
	return true
}

// Names returns the tracked identities in ascending order.
func (l *Ledger) Names() []string {
	names := make([]string, 0, len(l.records))
	for name := range l.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns copies of every record in name order.
func (l *Ledger) Snapshot() []crew.Record {
	out := make([]crew.Record, 0, len(l.records))
	for _, name := range l.Names() {
		out = append(out, *l.records[name])
	}
	return out
}

// Replace discards all records and installs recs. Later duplicates win.
func (l *Ledger) Replace(recs []crew.Record) {
	l.records = make(map[string]*crew.Record, len(recs))
	for _, rec := range recs {
		r := rec
		l.records[rec.Name] = &r
	}
}

// Counts returns the number of living and dead records.
func (l *Ledger) Counts() (alive, dead int) {
	for _, r := range l.records {
		if r.Alive {
			alive++
		} else {
			dead++
		}
	}
	return alive, dead
}
