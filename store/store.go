// Package store persists session snapshots under named slots. Three
// backends share one contract: a directory of JSON files, Redis, and a
// local SQLite database.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/nathoo/wayfarer/engine/save"
)

var (
	// ErrNotFound is returned when a slot holds no snapshot.
	ErrNotFound = errors.New("snapshot not found")
	// ErrInvalidSlot is returned for slot names outside [A-Za-z0-9_-]{1,64}.
	ErrInvalidSlot = errors.New("invalid slot name")
)

// Backend names accepted by Config.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Entry describes a stored snapshot without loading it.
type Entry struct {
	Slot    string    `json:"slot"`
	ID      string    `json:"id"`
	Game    string    `json:"game"`
	SavedAt time.Time `json:"saved_at"`
}

// Store saves and loads snapshot bundles by slot.
type Store interface {
	// Put writes b to slot, replacing whatever was there.
	Put(ctx context.Context, slot string, b save.Bundle) (Entry, error)
	// Get reads and validates the snapshot in slot.
	Get(ctx context.Context, slot string) (*save.Bundle, error)
	// List returns every stored snapshot, newest first.
	List(ctx context.Context) ([]Entry, error)
	// Delete removes slot. Deleting an empty slot returns ErrNotFound.
	Delete(ctx context.Context, slot string) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend       string        `json:"backend"`
	Dir           string        `json:"dir"`
	SQLitePath    string        `json:"sqlite_path"`
	RedisAddr     string        `json:"redis_addr"`
	RedisPassword string        `json:"-"`
	RedisDB       int           `json:"redis_db"`
	TTL           time.Duration `json:"ttl"` // redis only; 0 keeps snapshots forever
}

// DefaultConfig stores snapshots as JSON files under ./saves.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendFile,
		Dir:        "saves",
		SQLitePath: "saves/wayfarer.db",
		RedisAddr:  "localhost:6379",
	}
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFile:
		if c.Dir == "" {
			return errors.New("store: dir is required for the file backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("store: redis address is required")
		}
		if c.TTL < 0 {
			return errors.New("store: ttl must not be negative")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("store: sqlite path is required")
		}
	default:
		return fmt.Errorf("store: unknown backend %q", c.Backend)
	}
	return nil
}

// Open returns the backend cfg selects.
func Open(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendRedis:
		r, err := NewRedis(&RedisConfig{
			Client: NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB),
			TTL:    cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case BackendSQLite:
		db, err := InitSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLite(db), nil
	}
	f, err := NewFile(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return f, nil
}

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func checkSlot(slot string) error {
	if !slotPattern.MatchString(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}

// encode stamps b with an ID and time if missing and serializes it.
func encode(slot string, b save.Bundle) (Entry, []byte, error) {
	if err := checkSlot(slot); err != nil {
		return Entry{}, nil, err
	}
	if b.ID == "" {
		b.ID = save.NewID()
	}
	if b.SavedAt.IsZero() {
		b.SavedAt = time.Now().UTC()
	}
	data, err := save.Save(b)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return Entry{Slot: slot, ID: b.ID, Game: b.Game, SavedAt: b.SavedAt}, data, nil
}

// entryOf reads the listing fields from serialized snapshot data.
func entryOf(slot string, data []byte) (Entry, error) {
	var head struct {
		ID      string    `json:"id"`
		Game    string    `json:"game"`
		SavedAt time.Time `json:"saved_at"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Entry{}, fmt.Errorf("reading slot %s: %w", slot, err)
	}
	return Entry{Slot: slot, ID: head.ID, Game: head.Game, SavedAt: head.SavedAt}, nil
}
