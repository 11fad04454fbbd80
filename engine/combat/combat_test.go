package combat

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/nathoo/wayfarer/engine"
	"github.com/nathoo/wayfarer/types"
)

// fixedRandom always returns the same draw.
type fixedRandom struct{ f float64 }

func (r fixedRandom) Float64() float64        { return r.f }
func (r fixedRandom) Range(min, max int) int { return min }
func (r fixedRandom) Chance(p float64) bool  { return r.f < p }

func hero() types.PlayerStats {
	return types.PlayerStats{
		Name: "Hero", HP: 100, MaxHP: 100, MP: 30, MaxMP: 30,
		Level: 1, Attack: 20, Defense: 5, Speed: 15,
		Equipment: map[types.EquipSlot]types.Item{},
	}
}

func slime() types.Entity {
	return types.Entity{
		Handle: 1, TemplateID: "slime", Name: "Slime", Kind: types.EntityMonster,
		Level: 2, HP: 40, MaxHP: 40, Attack: 8, Defense: 10, Speed: 10, Capturable: true,
	}
}

func start(t *testing.T, p types.PlayerStats, e types.Entity, rng engine.Random) *Scheduler {
	t.Helper()
	s, _, ok := Start(e, p, rng, DefaultConfig())
	if !ok {
		t.Fatal("encounter did not start")
	}
	return s
}

func TestStart_RefusesWhenDead(t *testing.T) {
	p := hero()
	p.HP = 0
	s, events, ok := Start(slime(), p, engine.NewRNG(1), DefaultConfig())
	if ok || s != nil {
		t.Fatal("started with a dead player")
	}
	if len(events) != 1 || events[0].Type != types.EventWarning {
		t.Errorf("events = %+v", events)
	}
}

func TestStart_InitialState(t *testing.T) {
	p := hero()
	p.Pets = []types.Pet{{ID: 5, Name: "Bat", HP: 12, MaxHP: 20, Speed: 5}}
	p.ActivePet = 5
	s := start(t, p, slime(), engine.NewRNG(1))

	st := s.State()
	if st.Phase != types.PhaseActive {
		t.Errorf("phase = %s", st.Phase)
	}
	if st.PlayerAP != 0 || st.EnemyAP != 0 || st.PetAP != 0 {
		t.Error("gauges should start empty")
	}
	if st.PlayerHP != 100 || st.EnemyHP != 40 || st.PetHP != 12 || st.PetName != "Bat" {
		t.Errorf("mirrors = %+v", st)
	}
}

func TestTick_APBoundsAndSingleTurn(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		p := hero()
		p.Speed = 30 + int(seed)
		p.Pets = []types.Pet{{ID: 9, Name: "Wolf", HP: 50, MaxHP: 50, Attack: 6, Defense: 3, Speed: 30}}
		p.ActivePet = 9
		e := slime()
		e.Speed = 30
		e.HP, e.MaxHP = 500, 500
		s := start(t, p, e, engine.NewRNG(seed))

		for i := 0; i < 2000 && s.Active(); i++ {
			s.Tick()
			st := s.State()
			for _, ap := range []float64{st.PlayerAP, st.PetAP, st.EnemyAP} {
				if ap < 0 || ap > MaxAP {
					t.Fatalf("seed %d: AP %v out of bounds", seed, ap)
				}
			}
			switch st.Turn {
			case types.ActorPlayer:
				if !s.Act(ActionDefend) {
					t.Fatal("player could not act on own turn")
				}
			case types.ActorPet:
				if s.Act(ActionAttack) {
					t.Fatal("player acted during the pet's turn")
				}
				s.PetAct(PetDefend)
			case types.ActorEnemy:
				t.Fatal("enemy turn should resolve inside the tick")
			}
		}
	}
}

func TestTick_TieBreakPlayerFirst(t *testing.T) {
	p := hero()
	p.Speed = 10
	p.Pets = []types.Pet{{ID: 2, Name: "Cat", HP: 10, MaxHP: 10, Speed: 10}}
	p.ActivePet = 2
	e := slime()
	e.Speed = 10
	s := start(t, p, e, engine.NewRNG(3))

	if got := s.AdvanceUntilTurn(1000); got != types.ActorPlayer {
		t.Fatalf("turn = %s, want player", got)
	}
	s.Act(ActionDefend)
	// Pet and enemy are still full; the pet goes next without another tick
	// of AP gain being needed.
	s.Tick()
	if s.Turn() != types.ActorPet {
		t.Fatalf("turn = %s, want pet", s.Turn())
	}
	s.PetAct(PetDefend)
	hpBefore := s.State().PlayerHP
	s.Tick()
	if s.Turn() != types.ActorNone {
		t.Fatalf("turn = %s, enemy should act inside the tick", s.Turn())
	}
	if s.State().EnemyAP != 0 {
		t.Error("enemy gauge not reset after acting")
	}
	if s.State().PlayerHP == hpBefore && s.State().PetHP == 10 {
		t.Error("enemy turn did nothing")
	}
}

func TestTick_HeldTurnFreezesGauges(t *testing.T) {
	s := start(t, hero(), slime(), engine.NewRNG(1))
	s.AdvanceUntilTurn(1000)
	before := s.State()
	for i := 0; i < 50; i++ {
		s.Tick()
	}
	after := s.State()
	if after.Tick != before.Tick || after.EnemyAP != before.EnemyAP {
		t.Error("gauges advanced while player held the turn")
	}
}

func TestActOutOfTurn_NoOp(t *testing.T) {
	s := start(t, hero(), slime(), engine.NewRNG(1))
	before := s.State()
	if s.Act(ActionAttack) || s.PetAct(PetAttack) {
		t.Fatal("acting out of turn should return false")
	}
	if s.State().EnemyHP != before.EnemyHP {
		t.Error("out-of-turn action changed state")
	}
}

func TestScenarioB_AttackAndSkillDamage(t *testing.T) {
	rng := engine.NewRNG(42)
	total := 0
	const n = 2000
	for i := 0; i < n; i++ {
		d := Damage(20, 10, false, 0.5, rng.Float64()*5)
		if d < 10 || d > 15 {
			t.Fatalf("attack damage %d outside 10..15", d)
		}
		total += d
	}
	avg := float64(total) / n
	skill := SkillDamage(20, 10, false, 0.5, 1.4)
	if float64(skill) <= avg {
		t.Errorf("skill %d should beat average attack %.2f", skill, avg)
	}
	if math.Abs(avg-12.5) > 1 {
		t.Errorf("average attack %.2f, want about 12.5", avg)
	}
}

func TestDamage_FloorAndDefend(t *testing.T) {
	if d := Damage(1, 50, false, 0.5, 0); d != 1 {
		t.Errorf("damage = %d, want floor of 1", d)
	}
	if d := SkillDamage(1, 50, true, 0.5, 1.4); d != 1 {
		t.Errorf("skill damage = %d, want floor of 1", d)
	}
	if d := Damage(20, 10, true, 0.5, 0); d != 5 {
		t.Errorf("defending damage = %d, want 5", d)
	}
}

func TestScenarioA_FasterPlayerActsFirst(t *testing.T) {
	playerFirst := 0
	const trials = 200
	for seed := int64(0); seed < trials; seed++ {
		p := hero()
		p.Speed = 15
		e := slime()
		e.Speed = 10
		s := start(t, p, e, engine.NewRNG(seed))
		hp := s.State().PlayerHP
		if s.AdvanceUntilTurn(1000) == types.ActorPlayer && s.State().PlayerHP == hp {
			playerFirst++
		}
	}
	if playerFirst <= trials/2 {
		t.Errorf("player acted first in %d/%d encounters", playerFirst, trials)
	}
}

func TestSkill_RequiresMP(t *testing.T) {
	p := hero()
	p.MP = 9
	s := start(t, p, slime(), engine.NewRNG(1))
	s.AdvanceUntilTurn(1000)
	if s.Act(ActionSkill) {
		t.Fatal("skill allowed without MP")
	}
	if s.Turn() != types.ActorPlayer {
		t.Error("rejected skill should keep the turn")
	}

	p.MP = 10
	s = start(t, p, slime(), engine.NewRNG(1))
	s.AdvanceUntilTurn(1000)
	if !s.Act(ActionSkill) {
		t.Fatal("skill rejected with enough MP")
	}
	st := s.State()
	if st.PlayerMP != 0 || st.EnemyHP != 40-18 {
		t.Errorf("mp %d enemy hp %d", st.PlayerMP, st.EnemyHP)
	}
}

func TestVictory_FinishOnce(t *testing.T) {
	e := slime()
	e.HP = 1
	s := start(t, hero(), e, engine.NewRNG(1))
	s.TakeEvents()
	s.AdvanceUntilTurn(1000)
	if !s.Act(ActionAttack) {
		t.Fatal("attack rejected")
	}
	st := s.State()
	if st.Phase != types.PhaseEnding || st.Outcome != types.OutcomeVictory {
		t.Fatalf("phase %s outcome %s", st.Phase, st.Outcome)
	}

	if s.finish(types.OutcomeDefeat) {
		t.Error("finish ran twice")
	}
	s.Tick()
	if s.Act(ActionAttack) {
		t.Error("acted after the encounter ended")
	}
	ended := 0
	for _, ev := range s.TakeEvents() {
		if ev.Type == types.EventCombatEnded {
			ended++
		}
	}
	if ended != 1 {
		t.Errorf("combat_ended emitted %d times", ended)
	}
	if s.State().Outcome != types.OutcomeVictory {
		t.Error("outcome overwritten")
	}

	s.Close()
	if s.State().Phase != types.PhaseClosed {
		t.Errorf("phase = %s after close", s.State().Phase)
	}
}

func TestDefeat(t *testing.T) {
	p := hero()
	p.HP = 1
	p.Speed = 1
	e := slime()
	e.Speed = 50
	s := start(t, p, e, fixedRandom{f: 0.9})
	s.AdvanceUntilTurn(1000)

	st := s.State()
	if st.Outcome != types.OutcomeDefeat || st.PlayerHP != 0 {
		t.Fatalf("outcome %s hp %d", st.Outcome, st.PlayerHP)
	}
	found := false
	for _, ev := range s.TakeEvents() {
		if ev.Type == types.EventPlayerDefeated {
			found = true
		}
	}
	if !found {
		t.Error("no terminal defeat event")
	}
}

func TestDefend_ReducesDamageUntilNextAction(t *testing.T) {
	p := hero()
	p.Defense = 10
	p.Speed = 50
	e := slime()
	e.Attack = 30
	e.Speed = 50
	// Float64 = 0 means no jitter and never targets the (absent) pet.
	s := start(t, p, e, fixedRandom{f: 0})
	s.AdvanceUntilTurn(100)
	s.Act(ActionDefend)
	s.AdvanceUntilTurn(100)

	// Enemy hit for 30 - 15 = 15 while defending.
	if hp := s.State().PlayerHP; hp != 85 {
		t.Fatalf("hp = %d, want 85", hp)
	}
	if !s.State().PlayerDefending {
		t.Error("defend should last until the player's next action")
	}
	s.Act(ActionAttack)
	if s.State().PlayerDefending {
		t.Error("defend should clear when the player acts")
	}
}

func TestEnemyTargetsPet(t *testing.T) {
	p := hero()
	p.Speed = 1
	p.Pets = []types.Pet{{ID: 3, Name: "Fox", HP: 5, MaxHP: 5, Defense: 0, Speed: 1}}
	p.ActivePet = 3
	e := slime()
	e.Speed = 50
	// 0.1 < PetTargetChance, so the pet is targeted.
	s := start(t, p, e, fixedRandom{f: 0.1})
	for i := 0; i < 10; i++ {
		s.Tick()
	}
	st := s.State()
	if st.PetHP != 0 {
		t.Fatalf("pet hp = %d, want knocked out", st.PetHP)
	}
	if st.PlayerHP != 100 {
		t.Error("player should not be hit while the pet is targeted")
	}
	// A knocked-out pet never gets a turn.
	for i := 0; i < 500 && s.Active(); i++ {
		s.Tick()
		if s.Turn() == types.ActorPet {
			t.Fatal("knocked-out pet took a turn")
		}
		if s.Turn() == types.ActorPlayer {
			s.Act(ActionDefend)
		}
	}
}

func TestScenarioE_CaptureAtLowHP(t *testing.T) {
	const trials = 2000
	successes := 0
	for seed := int64(0); seed < trials; seed++ {
		p := hero()
		p.Speed = 50
		e := slime()
		e.Speed = 1
		e.MaxHP = 100
		e.HP = 15
		e.Attack, e.Defense, e.Level = 11, 7, 4
		s := start(t, p, e, engine.NewRNG(seed))
		if s.AdvanceUntilTurn(100) != types.ActorPlayer {
			t.Fatal("player never got a turn")
		}
		if !s.Act(ActionContract) {
			t.Fatal("contract rejected")
		}
		for i := 0; i < DefaultConfig().CaptureDelayTicks-1; i++ {
			s.Tick()
		}
		if !s.Active() {
			t.Fatal("capture resolved before the delay elapsed")
		}
		s.Tick()

		if s.State().Outcome == types.OutcomeCaptured {
			successes++
			pet, ok := s.Captured()
			if !ok {
				t.Fatal("captured outcome without a pet")
			}
			if pet.MaxHP != 100 || pet.HP != 100 || pet.Attack != 11 || pet.Defense != 7 || pet.Speed != 1 || pet.Level != 4 {
				t.Fatalf("pet stats not copied from enemy: %+v", pet)
			}
		} else if !s.Active() {
			t.Fatalf("failed capture ended combat: %s", s.State().Outcome)
		}
	}
	rate := float64(successes) / trials
	if rate < 0.55 || rate > 0.65 {
		t.Errorf("capture rate %.3f, want about 0.60", rate)
	}
}

func TestCapture_LowChanceAtHighHP(t *testing.T) {
	cfg := DefaultConfig()
	if c := cfg.CaptureChance(50, 100); c != 0.15 {
		t.Errorf("chance = %v, want 0.15", c)
	}
	if c := cfg.CaptureChance(19, 100); c != 0.6 {
		t.Errorf("chance = %v, want 0.6", c)
	}
}

func TestCapture_RejectedForBoss(t *testing.T) {
	e := slime()
	e.Kind = types.EntityBoss
	s := start(t, hero(), e, engine.NewRNG(1))
	s.AdvanceUntilTurn(1000)
	if s.Act(ActionContract) {
		t.Error("bosses cannot be captured")
	}
	e = slime()
	e.Capturable = false
	s = start(t, hero(), e, engine.NewRNG(1))
	s.AdvanceUntilTurn(1000)
	if s.Act(ActionContract) {
		t.Error("non-capturable monster accepted contract")
	}
}

func TestEscape(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		p, e int
		want float64
	}{
		{10, 10, 0.5},
		{20, 10, 0.7},
		{100, 1, 0.9},
		{1, 100, 0.1},
	}
	for _, tt := range tests {
		if got := cfg.EscapeChance(tt.p, tt.e); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("EscapeChance(%d,%d) = %v, want %v", tt.p, tt.e, got, tt.want)
		}
	}

	s := start(t, hero(), slime(), fixedRandom{f: 0.01})
	s.AdvanceUntilTurn(1000)
	s.Act(ActionEscape)
	if s.State().Outcome != types.OutcomeEscaped {
		t.Errorf("outcome = %s", s.State().Outcome)
	}

	s = start(t, hero(), slime(), fixedRandom{f: 0.99})
	s.AdvanceUntilTurn(1000)
	s.Act(ActionEscape)
	if !s.Active() || s.Turn() != types.ActorNone {
		t.Error("failed escape should consume the turn and continue")
	}
}

func TestUseItem(t *testing.T) {
	p := hero()
	p.HP = 50
	s := start(t, p, slime(), engine.NewRNG(1))
	potion := types.Item{ID: "potion", Name: "Potion", Category: types.ItemConsumable,
		Effect: &types.ItemEffect{Kind: types.EffectHeal, Amount: 30}}

	if s.UseItem(potion) {
		t.Fatal("used item out of turn")
	}
	s.AdvanceUntilTurn(1000)
	hp := s.State().PlayerHP
	if !s.UseItem(potion) {
		t.Fatal("item rejected")
	}
	if got := s.State().PlayerHP; got != min(100, hp+30) {
		t.Errorf("hp = %d", got)
	}
	if s.Turn() != types.ActorNone {
		t.Error("using an item should consume the turn")
	}
}

// Every resolved action deals at least 1 damage, so an attacking player
// always ends the fight one way or the other.
func TestCombatAlwaysTerminates(t *testing.T) {
	rng := engine.NewRNG(99)
	for trial := 0; trial < 100; trial++ {
		p := hero()
		p.Attack = rng.Range(1, 30)
		p.Defense = rng.Range(1, 200)
		p.Speed = rng.Range(1, 40)
		p.HP, p.MaxHP = 200, 200
		e := slime()
		e.Attack = rng.Range(1, 30)
		e.Defense = rng.Range(1, 200)
		e.Speed = rng.Range(1, 40)
		e.HP, e.MaxHP = 200, 200

		s := start(t, p, e, engine.NewRNG(int64(trial)))
		ticks := 0
		for s.Active() {
			s.AdvanceUntilTurn(1000)
			if s.Turn() == types.ActorPlayer {
				s.Act(ActionAttack)
			}
			ticks++
			if ticks > 100000 {
				t.Fatalf("trial %d did not terminate: %+v", trial, s.State())
			}
		}
		o := s.State().Outcome
		if o != types.OutcomeVictory && o != types.OutcomeDefeat {
			t.Errorf("trial %d outcome %s", trial, o)
		}
	}
}

func TestLoop_StopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickPeriod = time.Millisecond
	e := slime()
	e.Speed = 1
	p := hero()
	p.Speed = 1
	s, _, _ := Start(e, p, engine.NewRNG(1), cfg)

	var mu sync.Mutex
	steps := 0
	done := make(chan struct{})
	go func() {
		s.Loop(context.Background(), func(step func()) {
			mu.Lock()
			defer mu.Unlock()
			step()
			steps++
		})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	if steps == 0 {
		t.Error("loop never ticked")
	}
}

func TestLoop_ExitsWhenEncounterEnds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickPeriod = time.Millisecond
	p := hero()
	p.HP = 1
	p.Speed = 1
	e := slime()
	e.Speed = 100
	s, _, _ := Start(e, p, fixedRandom{f: 0.5}, cfg)

	done := make(chan struct{})
	go func() {
		s.Loop(context.Background(), nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop kept running after defeat")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := DefaultConfig()
	bad.APScale = 0
	if bad.Validate() == nil {
		t.Error("zero AP scale accepted")
	}
	bad = DefaultConfig()
	bad.EscapeMin, bad.EscapeMax = 0.9, 0.1
	if bad.Validate() == nil {
		t.Error("inverted escape bounds accepted")
	}
}
