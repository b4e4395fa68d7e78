package engine

import (
	"github.com/MRamiBalles/CrewAging/server/internal/domain/calendar"
	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
	"github.com/MRamiBalles/CrewAging/server/internal/events"
)

func (s *EngineSuite) TestApplyAgingRangeResamplesLiving() {
	s.track(crew.Record{Name: "Jeb", CurrentAge: 30, DeathAge: 310, Birthday: 1}, crew.StatusAvailable)
	s.track(crew.Record{Name: "Bob", CurrentAge: 30, DeathAge: 310, Birthday: 1, Blessed: true}, crew.StatusAvailable)
	s.Require().NoError(s.engine.ledger.Create(crew.Record{Name: "Gone", CurrentAge: 33, DeathAge: 33, Death: crew.UnknownDeath()}))
	s.sampler.draws = []int{7, 5} // Bob then Jeb, in name order

	rejected, err := s.engine.ApplyAgingRange(s.ctx, crew.RangeInput{
		DeathAgeMin: "100",
		DeathAgeMax: "lots",
		StartAgeMax: " 40 ",
	})
	s.Require().NoError(err)
	s.Equal([]string{"death_age_max"}, rejected)

	ranges := s.engine.Settings().Ranges
	s.Equal(crew.Ranges{StartAgeMin: 22, StartAgeMax: 40, DeathAgeMin: 100, DeathAgeMax: 330}, ranges)
	s.Equal(107+crew.BlessedBonus, s.record("Bob").DeathAge)
	s.Equal(105, s.record("Jeb").DeathAge)
	s.Equal(33, s.record("Gone").DeathAge)
	s.Len(s.log.GetByType(events.EventTypeRangesApplied), 1)
}

func (s *EngineSuite) TestApplyAgingRangeMaxClampedToMin() {
	_, err := s.engine.ApplyAgingRange(s.ctx, crew.RangeInput{StartAgeMin: "50", StartAgeMax: "30"})
	s.Require().NoError(err)

	r := s.engine.Settings().Ranges
	s.Equal(50, r.StartAgeMin)
	s.Equal(50, r.StartAgeMax)
}

func (s *EngineSuite) TestApplyAgingRangeCanKill() {
	s.track(crew.Record{Name: "Elder", CurrentAge: 200, DeathAge: 310, Birthday: 1}, crew.StatusAssigned)
	s.clock.Set(1000)

	_, err := s.engine.ApplyAgingRange(s.ctx, crew.RangeInput{DeathAgeMin: "50", DeathAgeMax: "60"})
	s.Require().NoError(err)

	rec := s.record("Elder")
	s.False(rec.Alive)
	ut, ok := rec.Death.UT()
	s.True(ok)
	s.Equal(1000.0, ut)
	m, _, _ := s.roster.Lookup(s.ctx, "Elder")
	s.Equal(crew.StatusDead, m.Status)
}

func (s *EngineSuite) TestLockedSettingsRejectEdits() {
	s.track(crew.Record{Name: "Jeb", CurrentAge: 30, DeathAge: 310, Birthday: 1}, crew.StatusAvailable)
	s.engine.LockSettings()
	s.engine.LockSettings()

	_, err := s.engine.ApplyAgingRange(s.ctx, crew.RangeInput{DeathAgeMin: "1"})
	s.ErrorIs(err, ErrSettingsLocked)
	s.ErrorIs(s.engine.SetAge(s.ctx, "Jeb", 50), ErrSettingsLocked)
	s.ErrorIs(s.engine.RollBackAge(s.ctx, "Jeb", 5), ErrSettingsLocked)
	s.ErrorIs(s.engine.SetBlessed(s.ctx, "Jeb", true), ErrSettingsLocked)
	s.ErrorIs(s.engine.SetImmortal(s.ctx, "Jeb", true), ErrSettingsLocked)

	s.Equal(crew.DefaultRanges(), s.engine.Settings().Ranges)
	s.Equal(30, s.record("Jeb").CurrentAge)
	s.Len(s.log.GetByType(events.EventTypeSettingsLocked), 1)
}

func (s *EngineSuite) TestSetAgeRebasesOnlyWhenLowering() {
	s.track(crew.Record{Name: "Jeb", CurrentAge: 30, DeathAge: 310, Birthday: 1, YearAdded: 2, BirthYear: -28}, crew.StatusAvailable)
	s.clock.Set(calendar.YearSeconds*5 + 1)

	s.Require().NoError(s.engine.SetAge(s.ctx, "Jeb", 40))
	rec := s.record("Jeb")
	s.Equal(2, rec.YearAdded)
	s.Equal(-38, rec.BirthYear)

	s.Require().NoError(s.engine.SetAge(s.ctx, "Jeb", 20))
	rec = s.record("Jeb")
	s.Equal(20, rec.CurrentAge)
	s.Equal(6, rec.YearAdded)
	s.Equal(-14, rec.BirthYear)

	s.Require().NoError(s.engine.SetAge(s.ctx, "Jeb", -3))
	s.Equal(0, s.record("Jeb").CurrentAge)
	s.Equal(6, s.record("Jeb").BirthYear)
}

func (s *EngineSuite) TestSetAgeAtThresholdKills() {
	s.track(crew.Record{Name: "Jeb", CurrentAge: 30, DeathAge: 310, Birthday: 1}, crew.StatusAvailable)
	s.clock.Set(777)

	s.Require().NoError(s.engine.SetAge(s.ctx, "Jeb", 310))

	rec := s.record("Jeb")
	s.False(rec.Alive)
	ut, _ := rec.Death.UT()
	s.Equal(777.0, ut)
	s.ErrorIs(s.engine.SetAge(s.ctx, "Jeb", 10), ErrNotAlive)
}

func (s *EngineSuite) TestSetAgeOnFrozenWaitsForThaw() {
	s.track(crew.Record{Name: "Frosty", CurrentAge: 30, DeathAge: 310, Birthday: 1}, crew.StatusAvailable)
	s.frozen.names["Frosty"] = true
	s.clock.Set(777)

	s.Require().NoError(s.engine.SetAge(s.ctx, "Frosty", 400))
	s.True(s.record("Frosty").Alive)

	delete(s.frozen.names, "Frosty")
	s.tickAt(800)
	s.tickAt(900)
	s.False(s.record("Frosty").Alive)
}

func (s *EngineSuite) TestRollBackAge() {
	s.track(crew.Record{Name: "Jeb", CurrentAge: 30, DeathAge: 310, Birthday: 1, YearAdded: 1, BirthYear: -29}, crew.StatusAvailable)
	s.clock.Set(calendar.YearSeconds*3 + 1)

	s.Require().NoError(s.engine.RollBackAge(s.ctx, "Jeb", 5))
	rec := s.record("Jeb")
	s.Equal(25, rec.CurrentAge)
	s.Equal(1, rec.YearAdded, "birth date does not move")
	s.Equal(-29, rec.BirthYear)

	s.ErrorIs(s.engine.RollBackAge(s.ctx, "Jeb", 0), ErrInvalidYears)
	s.Require().NoError(s.engine.RollBackAge(s.ctx, "Jeb", 100))
	s.Equal(0, s.record("Jeb").CurrentAge)
}

func (s *EngineSuite) TestSetBlessedTogglesBonusWithClamp() {
	s.track(crew.Record{Name: "Jeb", CurrentAge: 30, DeathAge: 310, Birthday: 1}, crew.StatusAvailable)
	s.track(crew.Record{Name: "Elder", CurrentAge: 300, DeathAge: 320, Birthday: 1, Blessed: true}, crew.StatusAvailable)

	s.Require().NoError(s.engine.SetBlessed(s.ctx, "Jeb", true))
	s.Equal(360, s.record("Jeb").DeathAge)
	s.Require().NoError(s.engine.SetBlessed(s.ctx, "Jeb", true))
	s.Equal(360, s.record("Jeb").DeathAge)
	s.Require().NoError(s.engine.SetBlessed(s.ctx, "Jeb", false))
	s.Equal(310, s.record("Jeb").DeathAge)

	s.Require().NoError(s.engine.SetBlessed(s.ctx, "Elder", false))
	rec := s.record("Elder")
	s.True(rec.Alive)
	s.Equal(301, rec.DeathAge)
}

func (s *EngineSuite) TestDroppingImmortalityKills() {
	s.track(crew.Record{Name: "Eternal", CurrentAge: 400, DeathAge: 300, Birthday: 1, Immortal: true}, crew.StatusAvailable)
	s.clock.Set(42)

	s.Require().NoError(s.engine.SetImmortal(s.ctx, "Eternal", false))

	rec := s.record("Eternal")
	s.False(rec.Immortal)
	s.False(rec.Alive)
	edits := s.log.GetByType(events.EventTypeRecordEdited)
	s.Require().Len(edits, 1)
	s.Equal(events.EditPayload{Field: "immortal", From: true, To: false}, edits[0].Payload)
}

func (s *EngineSuite) TestEditsOnUnknownCrew() {
	s.ErrorIs(s.engine.SetAge(s.ctx, "Nobody", 1), ErrUnknownCrew)
	s.ErrorIs(s.engine.SetBlessed(s.ctx, "Nobody", true), ErrUnknownCrew)
	s.ErrorIs(s.engine.SetImmortal(s.ctx, "Nobody", true), ErrUnknownCrew)
	s.ErrorIs(s.engine.RollBackAge(s.ctx, "Nobody", 1), ErrUnknownCrew)
}
