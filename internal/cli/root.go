// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/MarceTxt/gwen-ai-chat/internal/config"
	"github.com/MarceTxt/gwen-ai-chat/internal/logging"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	logFile    string
}

// cliState is the state prepared before a command runs.
type cliState struct {
	flags     globalFlags
	cfg       *config.Config
	logCloser io.Closer
}

// loadConfig resolves the configuration and sets up logging.
func (r *cliState) loadConfig() error {
	var (
		cfg *config.Config
		err error
	)
	if r.flags.configPath != "" {
		cfg, err = config.LoadFromPath(r.flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if r.flags.logLevel != "" {
		cfg.Log.Level = r.flags.logLevel
	}
	if r.flags.logFile != "" {
		cfg.Log.File = r.flags.logFile
	}

	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		return errors.Wrap(err, "failed to set up logging")
	}
	r.cfg = cfg
	r.logCloser = closer

	log.Debug().Str("version", Version).Str("driver", cfg.Store.Driver).Msg("configuration loaded")
	return nil
}

func (r *cliState) close() {
	if r.logCloser != nil {
		r.logCloser.Close()
		r.logCloser = nil
	}
}

// NewRootCommand builds the gwen command tree.
func NewRootCommand() *cobra.Command {
	rt := &cliState{}

	cmd := &cobra.Command{
		Use:           "gwen",
		Short:         "Gwen, a terminal AI chat assistant",
		Long:          "Gwen keeps your AI conversations in a local or shared store and chats with Gemini or any OpenAI-compatible model.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipsConfig(cmd) {
				return nil
			}
			return rt.loadConfig()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), rt.cfg)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&rt.flags.configPath, "config", "", "config file (default ~/.gwen/config.toml)")
	flags.StringVar(&rt.flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&rt.flags.logFile, "log-file", "", "log file (default ~/.gwen/gwen.log)")

	cmd.AddCommand(
		NewTUICommand(rt),
		NewRegisterCommand(rt),
		NewConversationsCommand(rt),
		NewExportCommand(rt),
		NewConfigCommand(rt),
		NewVersionCommand(),
	)
	return cmd
}

// skipsConfig reports whether cmd runs without a valid configuration.
func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["config"] == "skip" {
			return true
		}
	}
	return false
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
