package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nathoo/wayfarer/cli"
	"github.com/nathoo/wayfarer/config"
	"github.com/nathoo/wayfarer/engine"
	"github.com/nathoo/wayfarer/engine/session"
	"github.com/nathoo/wayfarer/loader"
	"github.com/nathoo/wayfarer/logging"
	"github.com/nathoo/wayfarer/spectate"
	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/tui"
)

var playFlags struct {
	seed         int64
	plain        bool
	paced        bool
	script       string
	trace        bool
	showMap      bool
	logFile      string
	narrativeURL string
	storeBackend string
	saveDir      string
	sqlitePath   string
	redisAddr    string
	spectateAddr string
	tick         time.Duration
}

var playCmd = &cobra.Command{
	Use:   "play [game_directory]",
	Short: "Play a game",
	Long: `Load a game directory of .lua files and play it, in the terminal UI
when stdout is a terminal and as plain text otherwise.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	bindPlayFlags(playCmd)
}

func bindPlayFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int64Var(&playFlags.seed, "seed", 0, "random seed (0 picks one from the clock)")
	f.BoolVar(&playFlags.plain, "plain", false, "use the line-oriented interface")
	f.BoolVar(&playFlags.paced, "paced", false, "line-oriented interface: play enemy turns out in real time")
	f.StringVar(&playFlags.script, "script", "", "read commands from a file (implies --plain)")
	f.BoolVar(&playFlags.trace, "trace", false, "print the events behind every result")
	f.BoolVar(&playFlags.showMap, "map", false, "open the terminal UI with the map panel shown")
	f.StringVar(&playFlags.logFile, "log-file", "", "write logs here while the terminal UI runs")
	f.StringVar(&playFlags.narrativeURL, "narrative-url", "", "remote narrative service base URL")
	f.StringVar(&playFlags.storeBackend, "store", "", "save backend (file, redis, sqlite)")
	f.StringVar(&playFlags.saveDir, "save-dir", "", "directory for the file backend")
	f.StringVar(&playFlags.sqlitePath, "sqlite-path", "", "database path for the sqlite backend")
	f.StringVar(&playFlags.redisAddr, "redis-addr", "", "address for the redis backend")
	f.StringVar(&playFlags.spectateAddr, "spectate", "", "serve the session to spectators on this address")
	f.DurationVar(&playFlags.tick, "tick", 0, "combat tick period")
}

// applyPlayFlags overrides cfg with the flags the user set.
func applyPlayFlags(cmd *cobra.Command, args []string, c *config.Config) {
	f := cmd.Flags()
	if len(args) > 0 {
		c.GameDir = args[0]
	}
	if f.Changed("seed") {
		c.Seed = playFlags.seed
	}
	if f.Changed("plain") || f.Changed("script") {
		if playFlags.plain || playFlags.script != "" {
			c.UI = config.UICLI
		}
	}
	if f.Changed("narrative-url") {
		c.Narrative.BaseURL = playFlags.narrativeURL
		c.Narrative.Mode = config.NarrativeHTTP
		if playFlags.narrativeURL == "" {
			c.Narrative.Mode = config.NarrativeOffline
		}
	}
	if f.Changed("store") {
		c.Store.Backend = playFlags.storeBackend
	}
	if f.Changed("save-dir") {
		c.Store.Dir = playFlags.saveDir
	}
	if f.Changed("sqlite-path") {
		c.Store.SQLitePath = playFlags.sqlitePath
	}
	if f.Changed("redis-addr") {
		c.Store.RedisAddr = playFlags.redisAddr
	}
	if f.Changed("spectate") {
		c.SpectateAddr = playFlags.spectateAddr
	}
	if f.Changed("tick") {
		c.Session.Combat.TickPeriod = playFlags.tick
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	applyPlayFlags(cmd, args, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.UI == config.UITUI && !isTerminal() {
		cfg.UI = config.UICLI
	}
	log := logging.For("play")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	content, err := loader.Load(cfg.GameDir)
	if err != nil {
		return fmt.Errorf("loading game: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sess := session.New(content, engine.NewRNG(seed), cfg.NarrativeService(content), cfg.Session)
	log.WithFields(logrus.Fields{
		"game":      content.Game.Title,
		"seed":      seed,
		"session":   sess.ID(),
		"narrative": cfg.Narrative.Mode,
		"store":     cfg.Store.Backend,
	}).Info("starting session")

	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening save store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.WithError(err).Warn("closing save store")
		}
	}()

	if cfg.SpectateAddr != "" {
		hub := spectate.NewHub(0)
		sess.SetPublisher(hub)
		srv := spectate.NewServer(hub, cfg.SpectateAddr)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.WithError(err).Error("spectator server stopped")
			}
		}()
	}

	if cfg.UI == config.UICLI {
		return runCLI(ctx, sess, st)
	}

	restore, err := quietLogs(playFlags.logFile)
	if err != nil {
		return err
	}
	defer restore()
	return tui.Run(ctx, sess, tui.Options{
		Store:      st,
		TickPeriod: cfg.Session.Combat.TickPeriod,
		Trace:      playFlags.trace,
		ShowMap:    playFlags.showMap,
	})
}

func runCLI(ctx context.Context, sess *session.Session, st store.Store) error {
	c := cli.New(sess, st)
	c.Trace = playFlags.trace
	c.Paced = playFlags.paced
	content := sess.Content()
	fmt.Fprintf(c.Out, "%s v%s by %s\n\n", content.Game.Title, content.Game.Version, content.Game.Author)

	if playFlags.script != "" {
		f, err := os.Open(playFlags.script)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c.In = f
		c.EchoInput = true
	}
	err := c.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// quietLogs points the logger at path, or discards logs when path is
// empty, so they don't draw over the terminal UI. The returned function
// restores stderr.
func quietLogs(path string) (func(), error) {
	var out io.Writer = io.Discard
	var file *os.File
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		out, file = f, f
	}
	logging.Log.SetOutput(out)
	return func() {
		logging.Log.SetOutput(os.Stderr)
		if file != nil {
			file.Close()
		}
	}, nil
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
