package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/calendar"
	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
	"github.com/MRamiBalles/CrewAging/server/internal/savetree"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	in := State{
		Records: []crew.Record{
			{
				Name: "Jebediah Kerman", CurrentAge: 31, DeathAge: 372, Alive: true,
				Birthday: 426, YearAdded: 1, BirthYear: -30, Blessed: true,
				Death: crew.NoDeath(),
			},
			{
				Name: "Bob Kerman", CurrentAge: 57, DeathAge: 57, Alive: false,
				Birthday: 1, YearAdded: 12, BirthYear: 0,
				Death: crew.UnknownDeath(), UnknownBirth: true,
			},
			{
				Name: "Bill Kerman", CurrentAge: 330, DeathAge: 330, Alive: false,
				Birthday: 213, YearAdded: 3, BirthYear: -327, Immortal: false,
				Death: crew.DeathAt(calendar.YearSeconds*301.5 + 0.125),
			},
			{
				Name: "Val Kerman", CurrentAge: 900, DeathAge: 320, Alive: true,
				Birthday: 50, YearAdded: 7, BirthYear: -893, Immortal: true,
				Death: crew.NoDeath(),
			},
		},
		Ranges: crew.Ranges{StartAgeMin: 18, StartAgeMax: 25, DeathAgeMin: 200, DeathAgeMax: 260},
		Locked: true,
	}

	root := savetree.New("SCENARIO")
	Save(root, in)

	out, err := Load(root, 0, State{Ranges: crew.DefaultRanges()})
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSaveReplacesPreviousData(t *testing.T) {
	root := savetree.New("SCENARIO")
	Save(root, State{Records: []crew.Record{{Name: "A", Alive: true}, {Name: "B", Alive: true}}, Ranges: crew.DefaultRanges()})
	Save(root, State{Records: []crew.Record{{Name: "C", Alive: true}}, Ranges: crew.DefaultRanges()})

	assert.Len(t, root.GetNode(NodeAgeData).GetNodes(NodeCrew), 1)
	assert.Len(t, root.GetNodes(NodeAgeData), 1)

	v, _ := root.GetValue(keyStartAgeMin)
	assert.Equal(t, "22", v)
	n := 0
	for _, val := range root.Values {
		if val.Name == keyStartAgeMin {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestLoadDefaultsOptionalFields(t *testing.T) {
	root := savetree.New("SCENARIO")
	n := root.AddNode(NodeAgeData).AddNode(NodeCrew)
	n.AddValue("name", "Legacy")
	n.AddValue("currentAge", "40")
	n.AddValue("deathAge", "310")
	n.AddValue("isAlive", "True")

	now := calendar.YearSeconds*4 + 10
	out, err := Load(root, now, State{Ranges: crew.DefaultRanges()})
	require.NoError(t, err)
	require.Len(t, out.Records, 1)

	rec := out.Records[0]
	assert.Equal(t, 1, rec.Birthday)
	assert.Equal(t, 5, rec.YearAdded)
	assert.Equal(t, 0, rec.BirthYear)
	assert.False(t, rec.Blessed)
	assert.False(t, rec.Immortal)
	assert.False(t, rec.UnknownBirth)
	assert.Equal(t, crew.NoDeath(), rec.Death)
	assert.True(t, rec.Alive)

	assert.Equal(t, crew.DefaultRanges(), out.Ranges)
	assert.False(t, out.Locked)
}

func TestLoadSkipsMalformedEntries(t *testing.T) {
	root := savetree.New("SCENARIO")
	data := root.AddNode(NodeAgeData)

	good := data.AddNode(NodeCrew)
	good.AddValue("name", "Good")
	good.AddValue("currentAge", "30")
	good.AddValue("deathAge", "300")
	good.AddValue("isAlive", "true")

	badAge := data.AddNode(NodeCrew)
	badAge.AddValue("name", "BadAge")
	badAge.AddValue("currentAge", "thirty")
	badAge.AddValue("deathAge", "300")
	badAge.AddValue("isAlive", "true")

	missingAlive := data.AddNode(NodeCrew)
	missingAlive.AddValue("name", "NoAlive")
	missingAlive.AddValue("currentAge", "30")
	missingAlive.AddValue("deathAge", "300")

	noName := data.AddNode(NodeCrew)
	noName.AddValue("currentAge", "30")

	dup := data.AddNode(NodeCrew)
	dup.AddValue("name", "Good")
	dup.AddValue("currentAge", "31")
	dup.AddValue("deathAge", "301")
	dup.AddValue("isAlive", "true")

	root.AddValue(keyStartAgeMin, "x")
	root.AddValue(keyDeathAgeMin, "400")

	out, err := Load(root, 0, State{Ranges: crew.DefaultRanges()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BadAge")
	assert.Contains(t, err.Error(), "missing isAlive")
	assert.Contains(t, err.Error(), "missing name")
	assert.Contains(t, err.Error(), "duplicate")

	require.Len(t, out.Records, 1)
	assert.Equal(t, "Good", out.Records[0].Name)
	assert.Equal(t, 30, out.Records[0].CurrentAge)

	assert.Equal(t, crew.DefaultStartAgeMin, out.Ranges.StartAgeMin)
	assert.Equal(t, 400, out.Ranges.DeathAgeMin)
	assert.Equal(t, 400, out.Ranges.DeathAgeMax, "max is clamped up to min")
}

func TestLoadRangeChecksRecordFields(t *testing.T) {
	root := savetree.New("SCENARIO")
	data := root.AddNode(NodeAgeData)

	negative := data.AddNode(NodeCrew)
	negative.AddValue("name", "Negative")
	negative.AddValue("currentAge", "-7")
	negative.AddValue("deathAge", "300")
	negative.AddValue("isAlive", "true")

	for _, bd := range []string{"1000", "0", "-3"} {
		n := data.AddNode(NodeCrew)
		n.AddValue("name", "Birthday"+bd)
		n.AddValue("currentAge", "30")
		n.AddValue("deathAge", "300")
		n.AddValue("isAlive", "true")
		n.AddValue("birthday", bd)
	}

	edge := data.AddNode(NodeCrew)
	edge.AddValue("name", "LastDay")
	edge.AddValue("currentAge", "30")
	edge.AddValue("deathAge", "300")
	edge.AddValue("isAlive", "true")
	edge.AddValue("birthday", "426")

	out, err := Load(root, 0, State{Ranges: crew.DefaultRanges()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative currentAge")

	require.Len(t, out.Records, 4)
	for _, r := range out.Records[:3] {
		assert.Equal(t, 1, r.Birthday, "%s falls back to day 1", r.Name)
	}
	assert.Equal(t, "LastDay", out.Records[3].Name)
	assert.Equal(t, 426, out.Records[3].Birthday)
}

func TestLoadWithoutAgeData(t *testing.T) {
	out, err := Load(savetree.New("SCENARIO"), 0, State{Ranges: crew.DefaultRanges(), Locked: true})
	require.NoError(t, err)
	assert.Empty(t, out.Records)
	assert.True(t, out.Locked)
}
