package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
)

func TestCreateGetMutateRemove(t *testing.T) {
	l := New()
	require.NoError(t, l.Create(crew.Record{Name: "Jeb", CurrentAge: 30, DeathAge: 310, Alive: true}))
	require.ErrorIs(t, l.Create(crew.Record{Name: "Jeb"}), ErrExists)

	got, ok := l.Get("Jeb")
	require.True(t, ok)
	got.CurrentAge = 99
	again, _ := l.Get("Jeb")
	assert.Equal(t, 30, again.CurrentAge, "Get must hand out copies")

	ok = l.Mutate("Jeb", func(r *crew.Record) {
		r.CurrentAge++
		r.Name = "renamed"
	})
	require.True(t, ok)
	again, _ = l.Get("Jeb")
	assert.Equal(t, 31, again.CurrentAge)
	assert.Equal(t, "Jeb", again.Name)

	assert.False(t, l.Mutate("Val", func(*crew.Record) {}))
	assert.True(t, l.Remove("Jeb"))
	assert.False(t, l.Remove("Jeb"))
	assert.Equal(t, 0, l.Len())
}

func TestSelectDoesNotMutate(t *testing.T) {
	l := New()
	l.Replace([]crew.Record{
		{Name: "Bill", CurrentAge: 40, Alive: true},
		{Name: "Bob", CurrentAge: 50, Alive: false},
		{Name: "Jeb", CurrentAge: 60, Alive: true},
	})

	alive := l.Select(ByName, Alive())
	require.Len(t, alive, 2)
	alive[0].CurrentAge = 1

	bill, _ := l.Get("Bill")
	assert.Equal(t, 40, bill.CurrentAge)

	dead := l.Select(nil, Dead(), NameContains("BO"))
	require.Len(t, dead, 1)
	assert.Equal(t, "Bob", dead[0].Name)

	a, d := l.Counts()
	assert.Equal(t, 2, a)
	assert.Equal(t, 1, d)
}

func names(recs []crew.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func TestStockSortModes(t *testing.T) {
	l := New()
	l.Replace([]crew.Record{
		{Name: "A", CurrentAge: 30, BirthYear: 5, Birthday: 10},
		{Name: "B", CurrentAge: 30, BirthYear: 4, Birthday: 200},
		{Name: "C", CurrentAge: 30, BirthYear: 4, Birthday: 100},
		{Name: "D", CurrentAge: 45, BirthYear: -3, Birthday: 5},
		{Name: "E", CurrentAge: 45, BirthYear: -3, Birthday: 300},
	})

	assert.Equal(t, []string{"E", "D", "C", "B", "A"}, names(l.Select(SortOldestFirst.Comparator())))
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, names(l.Select(SortAZ.Comparator())))
	assert.Equal(t, []string{"E", "D", "C", "B", "A"}, names(l.Select(SortZA.Comparator())))
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, names(l.Select(SortYoungestFirst.Comparator())))
}

func TestSortModeCycle(t *testing.T) {
	m := SortOldestFirst
	seen := []string{m.Label()}
	for i := 0; i < 4; i++ {
		m = m.Next()
		seen = append(seen, m.Label())
	}
	assert.Equal(t, []string{"Oldest First", "Youngest First", "A to Z", "Z to A", "Oldest First"}, seen)
}
