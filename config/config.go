// Package config assembles the runtime configuration for a wayfarer
// process from defaults and WAYFARER_* environment variables. Command-line
// flags are applied on top by cmd/wayfarer.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/wayfarer/engine/registry"
	"github.com/nathoo/wayfarer/engine/session"
	"github.com/nathoo/wayfarer/narrative"
	"github.com/nathoo/wayfarer/store"
)

// Narrative modes.
const (
	NarrativeOffline = "offline"
	NarrativeHTTP    = "http"
)

// UI front ends.
const (
	UITUI = "tui"
	UICLI = "cli"
)

// Environment variables read by FromEnv.
const (
	EnvGameDir       = "WAYFARER_GAME_DIR"
	EnvSeed          = "WAYFARER_SEED"
	EnvUI            = "WAYFARER_UI"
	EnvNarrativeMode = "WAYFARER_NARRATIVE"
	EnvNarrativeURL  = "WAYFARER_NARRATIVE_URL"
	EnvNarrativeWait = "WAYFARER_NARRATIVE_TIMEOUT"
	EnvStore         = "WAYFARER_STORE"
	EnvSaveDir       = "WAYFARER_SAVE_DIR"
	EnvSQLitePath    = "WAYFARER_SQLITE_PATH"
	EnvRedisAddr     = "WAYFARER_REDIS_ADDR"
	EnvRedisPassword = "WAYFARER_REDIS_PASSWORD"
	EnvRedisDB       = "WAYFARER_REDIS_DB"
	EnvRedisTTL      = "WAYFARER_REDIS_TTL"
	EnvSpectateAddr  = "WAYFARER_SPECTATE_ADDR"
	EnvTick          = "WAYFARER_TICK"
	EnvLevelCap      = "WAYFARER_LEVEL_CAP"
	EnvLogLimit      = "WAYFARER_LOG_LIMIT"
	EnvLogLevel      = "LOG_LEVEL"
	EnvLogFormat     = "LOG_FORMAT"
)

// Narrative selects the story backend.
type Narrative struct {
	Mode    string        `json:"mode"`
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"-"`
	Timeout time.Duration `json:"timeout"`
}

// Config is everything a play session needs besides the content itself.
type Config struct {
	GameDir   string `json:"game_dir"`
	Seed      int64  `json:"seed"` // 0 picks a seed from the clock
	UI        string `json:"ui"`
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	Narrative Narrative      `json:"narrative"`
	Session   session.Config `json:"session"`
	Store     store.Config   `json:"store"`

	// SpectateAddr enables the spectator server when non-empty.
	SpectateAddr string `json:"spectate_addr"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		GameDir:   "games/oakvale",
		UI:        UITUI,
		LogLevel:  "info",
		LogFormat: "text",
		Narrative: Narrative{
			Mode:    NarrativeOffline,
			Timeout: 60 * time.Second,
		},
		Session: session.DefaultConfig(),
		Store:   store.DefaultConfig(),
	}
}

// FromEnv starts from Default and overrides whatever the environment
// sets. Malformed numbers and durations are reported together.
func FromEnv() (Config, error) {
	c := Default()
	var errs []error

	setString(&c.GameDir, EnvGameDir)
	setString(&c.UI, EnvUI)
	setString(&c.LogLevel, EnvLogLevel)
	setString(&c.LogFormat, EnvLogFormat)
	setString(&c.Narrative.Mode, EnvNarrativeMode)
	setString(&c.Narrative.BaseURL, EnvNarrativeURL)
	setString(&c.Narrative.APIKey, narrative.APIKeyEnv)
	setString(&c.Store.Backend, EnvStore)
	setString(&c.Store.Dir, EnvSaveDir)
	setString(&c.Store.SQLitePath, EnvSQLitePath)
	setString(&c.Store.RedisAddr, EnvRedisAddr)
	setString(&c.Store.RedisPassword, EnvRedisPassword)
	setString(&c.SpectateAddr, EnvSpectateAddr)

	// A URL alone is enough to ask for the remote backend.
	if _, ok := os.LookupEnv(EnvNarrativeMode); !ok && c.Narrative.BaseURL != "" {
		c.Narrative.Mode = NarrativeHTTP
	}

	if v, ok := os.LookupEnv(EnvSeed); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvSeed, err))
		}
		c.Seed = seed
	}
	errs = appendInt(errs, &c.Store.RedisDB, EnvRedisDB)
	errs = appendInt(errs, &c.Session.Progression.LevelCap, EnvLevelCap)
	errs = appendInt(errs, &c.Session.LogLimit, EnvLogLimit)
	errs = appendDuration(errs, &c.Store.TTL, EnvRedisTTL)
	errs = appendDuration(errs, &c.Session.Combat.TickPeriod, EnvTick)
	errs = appendDuration(errs, &c.Narrative.Timeout, EnvNarrativeWait)

	if len(errs) > 0 {
		return c, errors.Join(errs...)
	}
	return c, nil
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	if c.GameDir == "" {
		errs = append(errs, errors.New("game dir is required"))
	}
	switch c.UI {
	case UITUI, UICLI:
	default:
		errs = append(errs, fmt.Errorf("unknown ui %q (want %s or %s)", c.UI, UITUI, UICLI))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if err := c.Narrative.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("narrative: %w", err))
	}
	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("session: %w", err))
	}
	if err := c.Store.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks the narrative section.
func (n Narrative) Validate() error {
	switch n.Mode {
	case NarrativeOffline:
		return nil
	case NarrativeHTTP:
		if n.BaseURL == "" {
			return fmt.Errorf("base url is required in %s mode", NarrativeHTTP)
		}
		u, err := url.Parse(n.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid base url %q", n.BaseURL)
		}
		if n.Timeout < 0 {
			return errors.New("timeout must not be negative")
		}
		return nil
	}
	return fmt.Errorf("unknown mode %q (want %s or %s)", n.Mode, NarrativeOffline, NarrativeHTTP)
}

// NarrativeService builds the story backend for content. In http mode the
// remote client is wrapped so the offline generator covers its failures.
func (c Config) NarrativeService(content *registry.Content) narrative.Service {
	offline := narrative.NewOffline(content)
	if c.Narrative.Mode != NarrativeHTTP {
		return offline
	}
	remote := narrative.NewHTTPClient(narrative.HTTPConfig{
		BaseURL: c.Narrative.BaseURL,
		APIKey:  c.Narrative.APIKey,
		Timeout: c.Narrative.Timeout,
	})
	return narrative.NewFallback(remote, offline)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func appendInt(errs []error, dst *int, key string) []error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", key, err))
	}
	*dst = n
	return errs
}

func appendDuration(errs []error, dst *time.Duration, key string) []error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", key, err))
	}
	*dst = d
	return errs
}
