// Package combat runs real-time encounters between the player (and an
// optional pet) and a single enemy. Each actor fills an AP gauge in
// proportion to its speed; reaching 100 grants the turn. Enemy turns
// resolve inside the tick, player and pet turns wait for an action.
//
// A Scheduler is not goroutine-safe. Loop hands every tick to a caller
// supplied dispatch function so the host can serialize ticks with its own
// action handling.
package combat

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/wayfarer/engine"
	"github.com/nathoo/wayfarer/engine/player"
	"github.com/nathoo/wayfarer/logging"
	"github.com/nathoo/wayfarer/types"
)

// MaxAP is the gauge value that grants a turn.
const MaxAP = 100

// Scheduler owns one encounter.
type Scheduler struct {
	cfg   Config
	rng   engine.Random
	log   *logrus.Entry
	state types.CombatState

	enemy  types.Entity
	stats  types.PlayerStats
	pet    types.Pet
	hasPet bool

	ending   bool
	captured *types.Pet
	events   []types.Event

	closed atomic.Bool
	mu     sync.Mutex
	cancel context.CancelFunc
}

// Start opens an encounter against target. It refuses, returning a warning
// event, when the player has no hp left.
func Start(target types.Entity, stats types.PlayerStats, rng engine.Random, cfg Config) (*Scheduler, []types.Event, bool) {
	if player.IsDead(stats) {
		return nil, []types.Event{{
			Type: types.EventWarning,
			Text: "You are in no shape to fight.",
		}}, false
	}

	s := &Scheduler{
		cfg:   cfg,
		rng:   rng,
		log:   logging.For("combat").WithField("enemy", target.TemplateID),
		enemy: target,
		stats: player.Clone(stats),
	}
	if s.enemy.HP <= 0 {
		s.enemy.HP = s.enemy.MaxHP
	}
	s.state = types.CombatState{
		Phase:       types.PhaseActive,
		EnemyHandle: target.Handle,
		EnemyName:   target.Name,
		PlayerHP:    stats.HP,
		PlayerMaxHP: stats.MaxHP,
		PlayerMP:    stats.MP,
		EnemyHP:     s.enemy.HP,
		EnemyMaxHP:  s.enemy.MaxHP,
	}
	if pet, ok := player.ActivePet(stats); ok && pet.HP > 0 {
		s.pet = pet
		s.hasPet = true
		s.state.PetID = pet.ID
		s.state.PetName = pet.Name
		s.state.PetHP = pet.HP
		s.state.PetMaxHP = pet.MaxHP
	}

	s.logf("A %s appears!", target.Name)
	s.emit(types.Event{
		Type: types.EventCombatStarted,
		Text: fmt.Sprintf("Combat with %s begins.", target.Name),
		Data: map[string]any{"enemy": target.TemplateID, "handle": uint64(target.Handle)},
	})
	s.log.Debug("encounter started")
	return s, s.TakeEvents(), true
}

// State returns a copy of the encounter record.
func (s *Scheduler) State() types.CombatState {
	st := s.state
	st.Log = append([]string(nil), s.state.Log...)
	return st
}

// Enemy returns the enemy as it stands now.
func (s *Scheduler) Enemy() types.Entity {
	e := s.enemy
	e.HP = s.state.EnemyHP
	return e
}

// Captured returns the pet created by a successful capture. Its ID is
// zero; the caller allocates one.
func (s *Scheduler) Captured() (types.Pet, bool) {
	if s.captured == nil {
		return types.Pet{}, false
	}
	return *s.captured, true
}

// Pet returns the pet with its hp mirror applied.
func (s *Scheduler) Pet() (types.Pet, bool) {
	if !s.hasPet {
		return types.Pet{}, false
	}
	p := s.pet
	p.HP = s.state.PetHP
	return p, true
}

// Active reports whether the encounter is still being fought.
func (s *Scheduler) Active() bool {
	return s.state.Phase == types.PhaseActive && !s.ending
}

// Turn returns who holds the turn.
func (s *Scheduler) Turn() types.Actor {
	return s.state.Turn
}

// TakeEvents drains the events produced since the last call.
func (s *Scheduler) TakeEvents() []types.Event {
	ev := s.events
	s.events = nil
	return ev
}

func (s *Scheduler) emit(e types.Event) {
	s.events = append(s.events, e)
}

func (s *Scheduler) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	s.state.Log = append(s.state.Log, line)
	s.emit(types.Event{Type: types.EventNarrative, Text: line})
}

func (s *Scheduler) petAlive() bool {
	return s.hasPet && s.state.PetHP > 0
}

// Tick advances the encounter by one fixed step. It does nothing while a
// player or pet turn is held. During a pending capture only the tick
// counter moves until the capture resolves.
func (s *Scheduler) Tick() {
	if !s.Active() {
		return
	}
	if s.state.Turn == types.ActorPlayer || s.state.Turn == types.ActorPet {
		return
	}
	s.state.Tick++

	if s.state.CaptureAt != 0 {
		if s.state.Tick >= s.state.CaptureAt {
			s.resolveCapture()
		}
		return
	}

	s.state.PlayerAP = fill(s.state.PlayerAP, s.stats.Speed, s.cfg.APScale)
	if s.petAlive() {
		s.state.PetAP = fill(s.state.PetAP, s.pet.Speed, s.cfg.APScale)
	}
	s.state.EnemyAP = fill(s.state.EnemyAP, s.enemy.Speed, s.cfg.APScale)

	switch {
	case s.state.PlayerAP >= MaxAP:
		s.state.Turn = types.ActorPlayer
	case s.petAlive() && s.state.PetAP >= MaxAP:
		s.state.Turn = types.ActorPet
	case s.state.EnemyAP >= MaxAP:
		s.state.Turn = types.ActorEnemy
		s.enemyTurn()
	}
}

func fill(ap float64, speed int, scale float64) float64 {
	ap += float64(speed) * scale
	if ap > MaxAP {
		return MaxAP
	}
	if ap < 0 {
		return 0
	}
	return ap
}

// AdvanceUntilTurn ticks until the player or pet holds the turn, the
// encounter ends, or maxTicks ticks have run. It returns the turn holder.
func (s *Scheduler) AdvanceUntilTurn(maxTicks int) types.Actor {
	for i := 0; i < maxTicks && s.Active(); i++ {
		if s.state.Turn == types.ActorPlayer || s.state.Turn == types.ActorPet {
			break
		}
		s.Tick()
	}
	return s.state.Turn
}

// Loop ticks on a timer until ctx is cancelled, Stop is called, or the
// encounter ends. Each tick is passed to dispatch, which must run it on
// the goroutine that owns the session; a nil dispatch runs it inline.
func (s *Scheduler) Loop(ctx context.Context, dispatch func(step func())) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	ticker := time.NewTicker(s.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.closed.Load() {
				return
			}
			if dispatch == nil {
				s.Tick()
			} else {
				dispatch(s.Tick)
			}
		}
	}
}

// Stop cancels a running Loop. It is safe to call from any goroutine and
// more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Close marks the encounter closed and tears down the loop. The session
// calls it once the outcome has been applied.
func (s *Scheduler) Close() {
	if !s.ending {
		s.finish(types.OutcomeEscaped)
	}
	s.state.Phase = types.PhaseClosed
	s.closed.Store(true)
	s.Stop()
}

// finish ends the encounter. The ending flag makes it run at most once no
// matter which path (tick or action) gets there first.
func (s *Scheduler) finish(o types.Outcome) bool {
	if s.ending {
		return false
	}
	s.ending = true
	s.state.Phase = types.PhaseEnding
	s.state.Outcome = o
	s.state.Turn = types.ActorNone
	s.state.CaptureAt = 0
	s.closed.Store(true)
	s.Stop()

	s.emit(types.Event{
		Type: types.EventCombatEnded,
		Text: fmt.Sprintf("The fight with %s is over (%s).", s.enemy.Name, o),
		Data: map[string]any{"outcome": string(o), "enemy": s.enemy.TemplateID},
	})
	if o == types.OutcomeDefeat {
		s.emit(types.Event{Type: types.EventPlayerDefeated, Text: "You have fallen..."})
	}
	s.log.WithFields(logrus.Fields{"outcome": o, "tick": s.state.Tick, "round": s.state.Round}).Debug("encounter finished")
	return true
}

// Damage is the basic attack formula: max(1, round(atk - def + jitter)).
// A defending target's defense is raised by bonus first.
func Damage(atk, def int, defending bool, bonus, jitter float64) int {
	return atLeastOne(float64(atk) - effectiveDefense(def, defending, bonus) + jitter)
}

// SkillDamage is max(1, round(atk*mult - def)), with no jitter.
func SkillDamage(atk, def int, defending bool, bonus, mult float64) int {
	return atLeastOne(float64(atk)*mult - effectiveDefense(def, defending, bonus))
}

func effectiveDefense(def int, defending bool, bonus float64) float64 {
	d := float64(def)
	if defending {
		d *= 1 + bonus
	}
	return d
}

func atLeastOne(raw float64) int {
	d := int(math.Round(raw))
	if d < 1 {
		return 1
	}
	return d
}

// CaptureChance returns the capture success probability for an enemy at
// hp out of maxHP.
func (c Config) CaptureChance(hp, maxHP int) float64 {
	if maxHP > 0 && float64(hp)/float64(maxHP) < c.CaptureThreshold {
		return c.CaptureHighChance
	}
	return c.CaptureLowChance
}

// EscapeChance returns the escape probability for the given speeds.
func (c Config) EscapeChance(playerSpeed, enemySpeed int) float64 {
	p := c.EscapeBase + float64(playerSpeed-enemySpeed)*c.EscapePerSpeed
	return math.Max(c.EscapeMin, math.Min(c.EscapeMax, p))
}
