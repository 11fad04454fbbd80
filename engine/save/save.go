// Package save implements the versioned session snapshot: JSON encoding,
// structural validation, and upgrades from older versions.
package save

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nathoo/wayfarer/types"
)

// CurrentVersion is the snapshot version written by Save.
const CurrentVersion = 2

// ErrUnsupportedVersion is wrapped by every ImportError caused by a
// missing or unknown version.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// RNGState pins the random stream so a restored session rolls the same
// numbers it would have.
type RNGState struct {
	Seed     int64 `json:"seed"`
	Position int64 `json:"position"`
}

// Bundle is the JSON-serializable snapshot.
type Bundle struct {
	Version      int                             `json:"version" jsonschema:"required,minimum=1"`
	ID           string                          `json:"id,omitempty"`
	Game         string                          `json:"game,omitempty"`
	SavedAt      time.Time                       `json:"saved_at,omitempty"`
	Stats        types.PlayerStats               `json:"stats" jsonschema:"required"`
	Quests       []types.Quest                   `json:"quests"`
	Achievements []types.Achievement             `json:"achievements"`
	Registry     map[string]types.LocationRecord `json:"registry"`
	Entities     []types.Entity                  `json:"entities"`
	NextHandle   types.Handle                    `json:"next_handle"`
	Log          []string                        `json:"log"`
	RNG          RNGState                        `json:"rng"`
}

// ImportError reports a snapshot that cannot be read at all.
type ImportError struct {
	Version int
	Missing bool
	Err     error
}

func (e *ImportError) Error() string {
	switch {
	case e.Missing:
		return fmt.Sprintf("import snapshot: missing version: %v", e.Err)
	case e.Version != 0:
		return fmt.Sprintf("import snapshot: version %d: %v", e.Version, e.Err)
	}
	return fmt.Sprintf("import snapshot: %v", e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// ValidationError collects every structural problem found in a snapshot.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("snapshot validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// NewID returns a fresh snapshot identifier.
func NewID() string {
	return uuid.NewString()
}

// Save stamps b with the current version, an ID and a timestamp if they
// are missing, and serializes it.
func Save(b Bundle) ([]byte, error) {
	b.Version = CurrentVersion
	if b.ID == "" {
		b.ID = NewID()
	}
	if b.SavedAt.IsZero() {
		b.SavedAt = time.Now().UTC()
	}
	if b.Achievements == nil {
		b.Achievements = b.Stats.Achievements
	}
	b.Stats.Achievements = nil
	return json.MarshalIndent(b, "", "  ")
}

// Load parses a snapshot of any supported version, upgrades it to the
// current version, and validates it. Nothing is applied anywhere; the
// caller restores the returned bundle.
func Load(data []byte) (*Bundle, error) {
	var head struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &ImportError{Err: fmt.Errorf("malformed JSON: %w", err)}
	}
	if head.Version == nil {
		return nil, &ImportError{Missing: true, Err: ErrUnsupportedVersion}
	}

	var b Bundle
	switch *head.Version {
	case 1:
		var v1 bundleV1
		if err := json.Unmarshal(data, &v1); err != nil {
			return nil, &ImportError{Version: 1, Err: err}
		}
		b = v1.upgrade()
	case CurrentVersion:
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, &ImportError{Version: CurrentVersion, Err: err}
		}
	default:
		return nil, &ImportError{Version: *head.Version, Err: ErrUnsupportedVersion}
	}

	normalize(&b)
	if err := Validate(&b); err != nil {
		return nil, err
	}
	b.Stats.Achievements = append([]types.Achievement(nil), b.Achievements...)
	return &b, nil
}

// bundleV1 is the first snapshot layout. It predates achievements and
// titles, and used "player" for the stats record.
type bundleV1 struct {
	Version  int                             `json:"version"`
	Game     string                          `json:"game"`
	Player   types.PlayerStats               `json:"player"`
	Quests   []types.Quest                   `json:"quests"`
	Registry map[string]types.LocationRecord `json:"registry"`
	Entities []types.Entity                  `json:"entities"`
	Log      []string                        `json:"log"`
	Seed     int64                           `json:"seed"`
}

func (v bundleV1) upgrade() Bundle {
	stats := v.Player
	stats.Achievements = nil
	stats.UnlockedTitles = []string{}
	stats.ActiveTitle = ""
	return Bundle{
		Version:      CurrentVersion,
		Game:         v.Game,
		Stats:        stats,
		Quests:       v.Quests,
		Achievements: []types.Achievement{},
		Registry:     v.Registry,
		Entities:     v.Entities,
		Log:          v.Log,
		RNG:          RNGState{Seed: v.Seed},
	}
}

func normalize(b *Bundle) {
	if b.Quests == nil {
		b.Quests = []types.Quest{}
	}
	if b.Achievements == nil {
		b.Achievements = []types.Achievement{}
	}
	if b.Registry == nil {
		b.Registry = map[string]types.LocationRecord{}
	}
	if b.Entities == nil {
		b.Entities = []types.Entity{}
	}
	if b.Log == nil {
		b.Log = []string{}
	}
	if b.Stats.Inventory == nil {
		b.Stats.Inventory = []types.Item{}
	}
	if b.Stats.Equipment == nil {
		b.Stats.Equipment = map[types.EquipSlot]types.Item{}
	}
	if b.Stats.Pets == nil {
		b.Stats.Pets = []types.Pet{}
	}
	if b.Stats.UnlockedTitles == nil {
		b.Stats.UnlockedTitles = []string{}
	}
}

// Validate checks required fields and internal consistency.
func Validate(b *Bundle) error {
	ve := &ValidationError{}
	add := func(format string, args ...any) {
		ve.Errors = append(ve.Errors, fmt.Sprintf(format, args...))
	}

	s := b.Stats
	if s.MaxHP <= 0 {
		add("stats.max_hp must be positive")
	}
	if s.HP < 0 || s.HP > s.MaxHP {
		add("stats.hp %d outside [0, %d]", s.HP, s.MaxHP)
	}
	if s.MP < 0 || s.MP > s.MaxMP {
		add("stats.mp %d outside [0, %d]", s.MP, s.MaxMP)
	}
	if s.Level < 1 {
		add("stats.level must be >= 1")
	}
	if s.MaxExp <= 0 {
		add("stats.max_exp must be positive")
	}
	if s.LocationID == "" {
		add("stats.location_id is required")
	}
	seenItems := map[string]bool{}
	for i, it := range s.Inventory {
		if it.ID == "" {
			add("stats.inventory[%d] has no id", i)
		}
		if it.Quantity <= 0 {
			add("stats.inventory[%d] (%s) has quantity %d", i, it.ID, it.Quantity)
		}
		if seenItems[it.ID] {
			add("stats.inventory has duplicate record %q", it.ID)
		}
		seenItems[it.ID] = true
	}
	petIDs := map[types.Handle]bool{}
	for i, p := range s.Pets {
		if p.ID == 0 {
			add("stats.pets[%d] has no id", i)
		}
		petIDs[p.ID] = true
	}
	if s.ActivePet != 0 && !petIDs[s.ActivePet] {
		add("stats.active_pet %d is not in the roster", s.ActivePet)
	}
	if s.ActiveTitle != "" && !contains(s.UnlockedTitles, s.ActiveTitle) {
		add("stats.active_title %q is not unlocked", s.ActiveTitle)
	}

	questIDs := map[string]bool{}
	for i, q := range b.Quests {
		if q.ID == "" {
			add("quests[%d] has no id", i)
		}
		if questIDs[q.ID] {
			add("quests has duplicate %q", q.ID)
		}
		questIDs[q.ID] = true
		switch q.Status {
		case types.QuestActive, types.QuestCompletable, types.QuestTurnedIn:
		default:
			add("quests[%d] (%s) has unknown status %q", i, q.ID, q.Status)
		}
		for j, o := range q.Objectives {
			if !o.Kind.Valid() {
				add("quests[%d].objectives[%d] has unknown kind %q", i, j, o.Kind)
			}
			if o.Current < 0 || o.Current > o.Required {
				add("quests[%d].objectives[%d] count %d outside [0, %d]", i, j, o.Current, o.Required)
			}
		}
	}

	for i, a := range b.Achievements {
		if a.ID == "" {
			add("achievements[%d] has no id", i)
		}
	}

	for id, rec := range b.Registry {
		if rec.ID != id {
			add("registry[%q] holds record for %q", id, rec.ID)
		}
	}

	handles := map[types.Handle]bool{}
	for i, e := range b.Entities {
		if e.Handle == 0 {
			add("entities[%d] has no handle", i)
		}
		if handles[e.Handle] {
			add("entities has duplicate handle %d", e.Handle)
		}
		handles[e.Handle] = true
		if e.TemplateID == "" {
			add("entities[%d] has no template_id", i)
		}
		if !e.Kind.Valid() {
			add("entities[%d] has unknown kind %q", i, e.Kind)
		}
	}

	if b.RNG.Position < 0 {
		add("rng.position must be non-negative")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
