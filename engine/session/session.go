// Package session ties the simulation core together: one Session owns a
// player record, the spawned entities, the discovered world, the active
// quests, the RNG and at most one combat encounter, and exposes the entry
// points hosts call.
//
// A Session is not safe for concurrent use. Hosts serialize calls onto a
// single goroutine; the combat Loop helper dispatches its ticks the same
// way.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/wayfarer/engine"
	"github.com/nathoo/wayfarer/engine/combat"
	"github.com/nathoo/wayfarer/engine/player"
	"github.com/nathoo/wayfarer/engine/progression"
	"github.com/nathoo/wayfarer/engine/registry"
	"github.com/nathoo/wayfarer/engine/save"
	"github.com/nathoo/wayfarer/engine/world"
	"github.com/nathoo/wayfarer/logging"
	"github.com/nathoo/wayfarer/narrative"
	"github.com/nathoo/wayfarer/types"
)

var (
	ErrInCombat     = errors.New("not while fighting")
	ErrNotInCombat  = errors.New("you are not fighting anything")
	ErrNoExit       = errors.New("you can't go that way")
	ErrNotHostile   = errors.New("that is not something you can fight")
	ErrNotPickable  = errors.New("you can't carry that")
	ErrNotTalkative = errors.New("there is no answer")
	ErrDead         = errors.New("you have fallen; load a save to continue")
	ErrNotStarted   = errors.New("session not initialized")
)

// HostError wraps a failure from outside the simulation: the narrative
// service refusing credentials or a cancelled context.
type HostError struct {
	Op  string
	Err error
}

func (e *HostError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *HostError) Unwrap() error { return e.Err }

// Config collects the tunables of every subsystem a session drives.
type Config struct {
	Combat      combat.Config
	Progression progression.Config
	World       world.Config
	// LogLimit caps the narrative history; the oldest lines are dropped.
	LogLimit int
	// PetRevive is the share of max hp a knocked-out pet wakes with once
	// the encounter ends.
	PetRevive float64
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Combat:      combat.DefaultConfig(),
		Progression: progression.DefaultConfig(),
		World:       world.DefaultConfig(),
		LogLimit:    500,
		PetRevive:   0.5,
	}
}

// Validate checks every sub-config.
func (c Config) Validate() error {
	if err := c.Combat.Validate(); err != nil {
		return fmt.Errorf("combat: %w", err)
	}
	if err := c.Progression.Validate(); err != nil {
		return fmt.Errorf("progression: %w", err)
	}
	if c.World.Spacing <= 0 {
		return fmt.Errorf("world: spacing must be positive, got %v", c.World.Spacing)
	}
	if c.LogLimit < 1 {
		return fmt.Errorf("log limit must be at least 1, got %d", c.LogLimit)
	}
	if c.PetRevive <= 0 || c.PetRevive > 1 {
		return fmt.Errorf("pet revive must be in (0, 1], got %v", c.PetRevive)
	}
	return nil
}

// Publisher receives a view of the session after every state change.
type Publisher interface {
	Publish(View)
}

// View is the read-only picture handed to publishers.
type View struct {
	Session  string               `json:"session"`
	Stats    types.PlayerStats    `json:"stats"`
	Combat   *types.CombatState   `json:"combat,omitempty"`
	Quests   []types.Quest        `json:"quests"`
	Location types.LocationRecord `json:"location"`
	Here     []types.Entity       `json:"here"`
	Events   []types.Event        `json:"events,omitempty"`
}

// Session is one player's run.
type Session struct {
	id      string
	content *registry.Content
	svc     narrative.Service
	cfg     Config
	log     *logrus.Entry

	rng      *engine.RNG
	stats    types.PlayerStats
	quests   []types.Quest
	arena    *registry.Arena
	registry map[string]types.LocationRecord
	revision uint64
	history  []string

	fight  *combat.Scheduler
	graphs *world.Cache
	talks  map[types.Handle]int
	pub    Publisher
	ready  bool
}

// New creates a session. Nothing is generated until Initialize.
func New(content *registry.Content, rng *engine.RNG, svc narrative.Service, cfg Config) *Session {
	id := save.NewID()
	return &Session{
		id:       id,
		content:  content,
		svc:      svc,
		cfg:      cfg,
		log:      logging.For("session").WithField("session", id),
		rng:      rng,
		stats:    content.NewPlayer(),
		quests:   []types.Quest{},
		arena:    registry.NewArena(),
		registry: map[string]types.LocationRecord{},
		graphs:   world.NewCache(cfg.World),
		talks:    map[types.Handle]int{},
		history:  []string{},
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SetPublisher installs p. A nil publisher disables publishing.
func (s *Session) SetPublisher(p Publisher) { s.pub = p }

// Initialize asks the narrative service for the opening and places the
// player at the start location.
func (s *Session) Initialize(ctx context.Context) (types.Result, error) {
	ir, err := s.svc.Initialize(ctx)
	if err != nil {
		return types.Result{}, fmt.Errorf("initializing session: %w", err)
	}

	var events []types.Event
	events = append(events, narrate(ir.Narrative)...)
	evs, err := s.applyDelta(ir.Delta)
	if err != nil {
		s.log.WithError(err).Warn("opening delta rejected")
	}
	events = append(events, evs...)

	loc := ir.Location
	if loc.ID == "" {
		loc.ID = s.content.Game.Start
	}
	s.ready = true
	events = append(events, s.arrive(loc)...)
	s.log.WithField("location", loc.ID).Info("session initialized")
	return s.commit(events), nil
}

func narrate(text string) []types.Event {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []types.Event{{Type: types.EventNarrative, Text: text}}
}

func warn(text string) []types.Event {
	return []types.Event{{Type: types.EventWarning, Text: text}}
}

// commit records the event texts in the history, publishes a view and
// packages the result.
func (s *Session) commit(events []types.Event) types.Result {
	res := types.Result{Events: events}
	for _, e := range events {
		if e.Text == "" {
			continue
		}
		res.Output = append(res.Output, e.Text)
		s.history = append(s.history, e.Text)
	}
	if over := len(s.history) - s.cfg.LogLimit; over > 0 && s.cfg.LogLimit > 0 {
		s.history = append([]string(nil), s.history[over:]...)
	}
	if s.pub != nil {
		s.pub.Publish(s.view(events))
	}
	return res
}

func (s *Session) view(events []types.Event) View {
	v := View{
		Session:  s.id,
		Stats:    s.Stats(),
		Quests:   s.Quests(),
		Location: s.Location(),
		Here:     s.Here(),
		Events:   events,
	}
	if st, ok := s.Combat(); ok {
		v.Combat = &st
	}
	return v
}

// Stats returns a copy of the player record.
func (s *Session) Stats() types.PlayerStats {
	return player.Clone(s.stats)
}

// Quests returns a copy of the quest list.
func (s *Session) Quests() []types.Quest {
	return progression.CloneQuests(s.quests)
}

// Achievements returns a copy of the achievement list.
func (s *Session) Achievements() []types.Achievement {
	return append([]types.Achievement(nil), s.stats.Achievements...)
}

// Entities returns every spawned entity, ordered by handle.
func (s *Session) Entities() []types.Entity {
	return s.arena.All()
}

// Here returns the entities at the player's location.
func (s *Session) Here() []types.Entity {
	return s.arena.At(s.stats.LocationID)
}

// Location returns the record of the player's location.
func (s *Session) Location() types.LocationRecord {
	return registry.CloneLocation(s.registry[s.stats.LocationID])
}

// Registry returns a copy of the discovered locations.
func (s *Session) Registry() map[string]types.LocationRecord {
	out := make(map[string]types.LocationRecord, len(s.registry))
	for id, l := range s.registry {
		out[id] = registry.CloneLocation(l)
	}
	return out
}

// Graph returns the fog-of-war map around the player.
func (s *Session) Graph() world.Graph {
	cur := s.registry[s.stats.LocationID]
	return s.graphs.Graph(s.revision, s.stats.LocationID, s.registry, cur.Exits)
}

// Log returns the narrative history.
func (s *Session) Log() []string {
	return append([]string(nil), s.history...)
}

// Content returns the loaded content.
func (s *Session) Content() *registry.Content { return s.content }

func (s *Session) narrativeContext() narrative.Context {
	loc := s.Location()
	return narrative.Context{
		Stats:    s.Stats(),
		Quests:   s.Quests(),
		Location: &loc,
	}
}
