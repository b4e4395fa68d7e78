// Package codec maps the aging ledger and its settings to and from a save tree.
//
// Layout under the scenario node:
//
//	AGE_DATA
//	  CREW { name currentAge deathAge isAlive birthday yearAdded birthYear
//	         blessed immortal deathUT unknownDeath unknownBirth }
//	startAgeMin startAgeMax deathAgeMin deathAgeMax settingsLocked
package codec

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/calendar"
	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
	"github.com/MRamiBalles/CrewAging/server/internal/savetree"
)

const (
	NodeAgeData = "AGE_DATA"
	NodeCrew    = "CREW"

	keyName         = "name"
	keyCurrentAge   = "currentAge"
	keyDeathAge     = "deathAge"
	keyIsAlive      = "isAlive"
	keyBirthday     = "birthday"
	keyYearAdded    = "yearAdded"
	keyBirthYear    = "birthYear"
	keyBlessed      = "blessed"
	keyImmortal     = "immortal"
	keyDeathUT      = "deathUT"
	keyUnknownDeath = "unknownDeath"
	keyUnknownBirth = "unknownBirth"

	keyStartAgeMin    = "startAgeMin"
	keyStartAgeMax    = "startAgeMax"
	keyDeathAgeMin    = "deathAgeMin"
	keyDeathAgeMax    = "deathAgeMax"
	keySettingsLocked = "settingsLocked"
)

// State is everything the codec persists.
type State struct {
	Records []crew.Record
	Ranges  crew.Ranges
	Locked  bool
}

// Save writes state into root, replacing any previous age data.
func Save(root *savetree.Node, st State) {
	data := root.EnsureNode(NodeAgeData)
	data.ClearData()
	data.ClearNodes()

	for _, r := range st.Records {
		n := data.AddNode(NodeCrew)
		deathUT, unknownDeath := r.Death.Flags()
		n.AddValue(keyName, r.Name)
		n.AddValue(keyCurrentAge, strconv.Itoa(r.CurrentAge))
		n.AddValue(keyDeathAge, strconv.Itoa(r.DeathAge))
		n.AddValue(keyIsAlive, strconv.FormatBool(r.Alive))
		n.AddValue(keyBirthday, strconv.Itoa(r.Birthday))
		n.AddValue(keyYearAdded, strconv.Itoa(r.YearAdded))
		n.AddValue(keyBirthYear, strconv.Itoa(r.BirthYear))
		n.AddValue(keyBlessed, strconv.FormatBool(r.Blessed))
		n.AddValue(keyImmortal, strconv.FormatBool(r.Immortal))
		n.AddValue(keyDeathUT, strconv.FormatFloat(deathUT, 'g', -1, 64))
		n.AddValue(keyUnknownDeath, strconv.FormatBool(unknownDeath))
		n.AddValue(keyUnknownBirth, strconv.FormatBool(r.UnknownBirth))
	}

	root.SetValue(keyStartAgeMin, strconv.Itoa(st.Ranges.StartAgeMin))
	root.SetValue(keyStartAgeMax, strconv.Itoa(st.Ranges.StartAgeMax))
	root.SetValue(keyDeathAgeMin, strconv.Itoa(st.Ranges.DeathAgeMin))
	root.SetValue(keyDeathAgeMax, strconv.Itoa(st.Ranges.DeathAgeMax))
	root.SetValue(keySettingsLocked, strconv.FormatBool(st.Locked))
}

// Load decodes root. Entries with a missing name or malformed mandatory field
// are skipped; their errors are joined into the returned error while the rest
// of the state is still returned. nowUT supplies the default yearAdded.
// Settings absent or unparseable keep the values in defaults.
func Load(root *savetree.Node, nowUT float64, defaults State) (State, error) {
	st := State{Ranges: defaults.Ranges, Locked: defaults.Locked}
	var errs []error

	if data := root.GetNode(NodeAgeData); data != nil {
		seen := make(map[string]bool)
		for i, n := range data.GetNodes(NodeCrew) {
			rec, err := decodeRecord(n, nowUT)
			if err != nil {
				errs = append(errs, fmt.Errorf("crew entry %d: %w", i, err))
				continue
			}
			if seen[rec.Name] {
				errs = append(errs, fmt.Errorf("crew entry %d: duplicate name %q", i, rec.Name))
				continue
			}
			seen[rec.Name] = true
			st.Records = append(st.Records, rec)
		}
	}

	optInt(root, keyStartAgeMin, &st.Ranges.StartAgeMin)
	optInt(root, keyStartAgeMax, &st.Ranges.StartAgeMax)
	optInt(root, keyDeathAgeMin, &st.Ranges.DeathAgeMin)
	optInt(root, keyDeathAgeMax, &st.Ranges.DeathAgeMax)
	optBool(root, keySettingsLocked, &st.Locked)
	st.Ranges = st.Ranges.Normalize()

	return st, errors.Join(errs...)
}

func decodeRecord(n *savetree.Node, nowUT float64) (crew.Record, error) {
	name, ok := n.GetValue(keyName)
	if !ok || name == "" {
		return crew.Record{}, errors.New("missing name")
	}

	rec := crew.Record{Name: name, Birthday: 1}
	var err error
	if rec.CurrentAge, err = reqInt(n, keyCurrentAge); err != nil {
		return crew.Record{}, fmt.Errorf("%s: %w", name, err)
	}
	if rec.CurrentAge < 0 {
		return crew.Record{}, fmt.Errorf("%s: negative %s %d", name, keyCurrentAge, rec.CurrentAge)
	}
	if rec.DeathAge, err = reqInt(n, keyDeathAge); err != nil {
		return crew.Record{}, fmt.Errorf("%s: %w", name, err)
	}
	if rec.Alive, err = reqBool(n, keyIsAlive); err != nil {
		return crew.Record{}, fmt.Errorf("%s: %w", name, err)
	}

	rec.YearAdded = calendar.CurrentYear(max(nowUT, 0))
	deathUT := crew.UnsetDeathUT
	var unknownDeath bool

	optInt(n, keyBirthday, &rec.Birthday)
	if rec.Birthday < 1 || rec.Birthday > calendar.DaysPerYear {
		rec.Birthday = 1
	}
	optInt(n, keyYearAdded, &rec.YearAdded)
	optInt(n, keyBirthYear, &rec.BirthYear)
	optBool(n, keyBlessed, &rec.Blessed)
	optBool(n, keyImmortal, &rec.Immortal)
	optFloat(n, keyDeathUT, &deathUT)
	optBool(n, keyUnknownDeath, &unknownDeath)
	optBool(n, keyUnknownBirth, &rec.UnknownBirth)
	rec.Death = crew.DeathFromFlags(deathUT, unknownDeath)

	return rec, nil
}

func reqInt(n *savetree.Node, key string) (int, error) {
	raw, ok := n.GetValue(key)
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func reqBool(n *savetree.Node, key string) (bool, error) {
	raw, ok := n.GetValue(key)
	if !ok {
		return false, fmt.Errorf("missing %s", key)
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

// opt* leave dst untouched when the value is absent or malformed.

func optInt(n *savetree.Node, key string, dst *int) {
	if raw, ok := n.GetValue(key); ok {
		if v, err := strconv.Atoi(raw); err == nil {
			*dst = v
		}
	}
}

func optBool(n *savetree.Node, key string, dst *bool) {
	if raw, ok := n.GetValue(key); ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			*dst = v
		}
	}
}

func optFloat(n *savetree.Node, key string, dst *float64) {
	if raw, ok := n.GetValue(key); ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			*dst = v
		}
	}
}
