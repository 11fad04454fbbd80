package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/wayfarer/engine/save"
	"github.com/nathoo/wayfarer/types"
)

func sampleBundle(gold int) save.Bundle {
	return save.Bundle{
		Version: save.CurrentVersion,
		Game:    "Test Game",
		Stats: types.PlayerStats{
			Name: "Tess", HP: 40, MaxHP: 50, MP: 5, MaxMP: 10,
			Level: 2, Exp: 10, MaxExp: 115, Gold: gold,
			LocationID: "hall", LocationName: "Hall",
			Inventory: []types.Item{{ID: "potion", Name: "Potion", Quantity: 2}},
		},
		Achievements: []types.Achievement{{ID: "first_blood", Trigger: types.TriggerFirstVictory}},
		Registry: map[string]types.LocationRecord{
			"hall": {ID: "hall", Name: "Hall", Description: "A hall."},
		},
		Entities:   []types.Entity{{Handle: 3, TemplateID: "rat", Name: "Rat", Kind: types.EntityMonster, HP: 5, MaxHP: 5, Location: "hall"}},
		NextHandle: 4,
		Log:        []string{"You arrive."},
		RNG:        save.RNGState{Seed: 9, Position: 12},
	}
}

// exerciseStore runs the contract every backend must honor.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "slot1")
	require.ErrorIs(t, err, ErrNotFound)

	first, err := s.Put(ctx, "slot1", sampleBundle(10))
	require.NoError(t, err)
	assert.Equal(t, "slot1", first.Slot)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "Test Game", first.Game)
	assert.False(t, first.SavedAt.IsZero())

	got, err := s.Get(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 10, got.Stats.Gold)
	assert.Equal(t, "hall", got.Stats.LocationID)
	assert.Len(t, got.Entities, 1)
	assert.Equal(t, types.Handle(4), got.NextHandle)
	assert.Equal(t, int64(12), got.RNG.Position)
	assert.Len(t, got.Stats.Achievements, 1)

	// Overwrite keeps one entry per slot.
	b := sampleBundle(99)
	b.SavedAt = first.SavedAt.Add(time.Minute)
	_, err = s.Put(ctx, "slot1", b)
	require.NoError(t, err)
	got, err = s.Get(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, 99, got.Stats.Gold)

	older := sampleBundle(1)
	older.SavedAt = first.SavedAt.Add(-time.Hour)
	_, err = s.Put(ctx, "slot2", older)
	require.NoError(t, err)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "slot1", entries[0].Slot, "newest first")
	assert.Equal(t, "slot2", entries[1].Slot)

	_, err = s.Put(ctx, "../escape", sampleBundle(0))
	require.ErrorIs(t, err, ErrInvalidSlot)
	_, err = s.Get(ctx, "")
	require.ErrorIs(t, err, ErrInvalidSlot)

	require.NoError(t, s.Delete(ctx, "slot2"))
	require.ErrorIs(t, s.Delete(ctx, "slot2"), ErrNotFound)
	entries, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore(t *testing.T) {
	s, err := NewFile(filepath.Join(t.TempDir(), "saves"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	db, err := InitSQLite(filepath.Join(t.TempDir(), "db", "wayfarer.db"))
	require.NoError(t, err)
	s := NewSQLite(db)
	defer s.Close()
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to create miniredis")
	defer mr.Close()

	s, err := NewRedis(&RedisConfig{Client: NewRedisClient(mr.Addr(), "", 0)})
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestRedisStore_ExpiredSnapshotsLeaveTheIndex(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := NewRedis(&RedisConfig{Client: NewRedisClient(mr.Addr(), "", 0), TTL: time.Minute})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.Put(ctx, "temp", sampleBundle(5))
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, mr.Exists(snapshotKeyPrefix+"temp"))
	keys, _ := mr.HKeys(snapshotIndexKey)
	assert.Empty(t, keys)
}

func TestRedisConfigValidate(t *testing.T) {
	_, err := NewRedis(nil)
	assert.Error(t, err)
	_, err = NewRedis(&RedisConfig{})
	assert.Error(t, err)
}

func TestGetRejectsCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(dir)
	require.NoError(t, err)

	bad := sampleBundle(0)
	bad.Stats.HP = 500 // above max
	_, err = s.Put(context.Background(), "bad", bad)
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "bad")
	var ve *save.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"sqlite", func(c *Config) { c.Backend = BackendSQLite }, false},
		{"redis", func(c *Config) { c.Backend = BackendRedis }, false},
		{"unknown backend", func(c *Config) { c.Backend = "s3" }, true},
		{"file without dir", func(c *Config) { c.Dir = "" }, true},
		{"redis without addr", func(c *Config) { c.Backend = BackendRedis; c.RedisAddr = "" }, true},
		{"negative ttl", func(c *Config) { c.Backend = BackendRedis; c.TTL = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpenFileBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dir = filepath.Join(t.TempDir(), "s")
	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(*File)
	assert.True(t, ok)
}
