package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nathoo/wayfarer/engine/save"
	"github.com/nathoo/wayfarer/loader"
	"github.com/nathoo/wayfarer/spectate"
)

var checkCmd = &cobra.Command{
	Use:   "check [game_directory]",
	Short: "Load a game and report content problems",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.GameDir
		if len(args) > 0 {
			dir = args[0]
		}
		content, err := loader.Load(dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s v%s: %d locations, %d creatures, %d items, %d quests, %d achievements, %d titles\n",
			content.Game.Title, content.Game.Version,
			len(content.Locations), len(content.Entities), len(content.Items),
			len(content.Quests), len(content.Achievements), len(content.Titles))
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema [output_path]",
	Short: "Print or write the JSON schema of save files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			if err := save.WriteSchema(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", args[0])
			return nil
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(save.Schema())
	},
}

var spectateCmd = &cobra.Command{
	Use:   "spectate [address]",
	Short: "Watch a session served with play --spectate",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.SpectateAddr
		if len(args) > 0 {
			addr = args[0]
		}
		if addr == "" {
			return spectate.ErrNoServer
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		return spectate.Watch(ctx, addr, func(m spectate.Message) {
			fmt.Fprintln(out, spectate.Summary(m))
		})
	},
}
