package ledger

import (
	"cmp"
	"slices"
	"strings"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
)

// Predicate selects records.
type Predicate func(r crew.Record) bool

// Compare orders records; negative means a sorts before b.
type Compare func(a, b crew.Record) int

// Select returns copies of the records matching every predicate, ordered by cmpFn.
// A nil cmpFn keeps name order.
func (l *Ledger) Select(cmpFn Compare, preds ...Predicate) []crew.Record {
	var out []crew.Record
	for _, r := range l.Snapshot() {
		if matches(r, preds) {
			out = append(out, r)
		}
	}
	if cmpFn != nil {
		slices.SortStableFunc(out, cmpFn)
	}
	return out
}

func matches(r crew.Record, preds []Predicate) bool {
	for _, p := range preds {
		if p != nil && !p(r) {
			return false
		}
	}
	return true
}

// Alive selects living records.
func Alive() Predicate {
	return func(r crew.Record) bool { return r.Alive }
}

// Dead selects dead records.
func Dead() Predicate {
	return func(r crew.Record) bool { return !r.Alive }
}

// NameContains matches a case-insensitive substring of the name.
func NameContains(q string) Predicate {
	q = strings.ToLower(strings.TrimSpace(q))
	return func(r crew.Record) bool {
		return q == "" || strings.Contains(strings.ToLower(r.Name), q)
	}
}

// NameIn matches names present in the set.
func NameIn(names map[string]bool) Predicate {
	return func(r crew.Record) bool { return names[r.Name] }
}

// SortMode names a stock presentation ordering.
type SortMode string

const (
	SortOldestFirst   SortMode = "oldest"
	SortYoungestFirst SortMode = "youngest"
	SortAZ            SortMode = "az"
	SortZA            SortMode = "za"
)

// Next cycles through the stock modes in display order.
func (m SortMode) Next() SortMode {
	switch m {
	case SortOldestFirst:
		return SortYoungestFirst
	case SortYoungestFirst:
		return SortAZ
	case SortAZ:
		return SortZA
	default:
		return SortOldestFirst
	}
}

// Label is the human readable name of the mode.
func (m SortMode) Label() string {
	switch m {
	case SortYoungestFirst:
		return "Youngest First"
	case SortAZ:
		return "A to Z"
	case SortZA:
		return "Z to A"
	default:
		return "Oldest First"
	}
}

// Comparator returns the ordering for m. Unknown modes fall back to oldest first.
func (m SortMode) Comparator() Compare {
	switch m {
	case SortYoungestFirst:
		return ByYoungest
	case SortAZ:
		return ByName
	case SortZA:
		return func(a, b crew.Record) int { return ByName(b, a) }
	default:
		return ByOldest
	}
}

// ByName orders alphabetically.
func ByName(a, b crew.Record) int {
	return cmp.Compare(a.Name, b.Name)
}

// ByOldest orders by age descending, then earlier birth year, then earlier
// birthday. Births before calendar start order their birthdays in reverse.
func ByOldest(a, b crew.Record) int {
	if c := cmp.Compare(b.CurrentAge, a.CurrentAge); c != 0 {
		return c
	}
	if c := cmp.Compare(a.BirthYear, b.BirthYear); c != 0 {
		return c
	}
	if a.BirthYear <= 0 {
		return cmp.Compare(b.Birthday, a.Birthday)
	}
	return cmp.Compare(a.Birthday, b.Birthday)
}

// ByYoungest is the mirror of ByOldest.
func ByYoungest(a, b crew.Record) int {
	if c := cmp.Compare(a.CurrentAge, b.CurrentAge); c != 0 {
		return c
	}
	if c := cmp.Compare(b.BirthYear, a.BirthYear); c != 0 {
		return c
	}
	if a.BirthYear <= 0 {
		return cmp.Compare(a.Birthday, b.Birthday)
	}
	return cmp.Compare(b.Birthday, a.Birthday)
}
