// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MarceTxt/gwen-ai-chat/internal/chat"
	"github.com/MarceTxt/gwen-ai-chat/internal/config"
	"github.com/MarceTxt/gwen-ai-chat/internal/llm"
	"github.com/MarceTxt/gwen-ai-chat/internal/model"
	"github.com/MarceTxt/gwen-ai-chat/internal/store"
	ui "github.com/MarceTxt/gwen-ai-chat/internal/ui/chat"
	"github.com/MarceTxt/gwen-ai-chat/internal/ui/styles"
)

// watchDebounce coalesces bursts of external database writes.
const watchDebounce = 250 * time.Millisecond

// NewTUICommand runs the terminal UI.
func NewTUICommand(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal chat UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), rt.cfg)
		},
	}
}

// runTUI starts the UI and, for SQLite, the external change watcher. Both
// stop when the UI exits.
func runTUI(ctx context.Context, cfg *config.Config) error {
	if err := cfg.RequireCredential(); err != nil {
		return err
	}

	completer, err := llm.New(ctx, cfg.Completion)
	if err != nil {
		return errors.Wrap(err, "failed to create completion client")
	}

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := chat.OptionsFromConfig(cfg.Chat)
	factory := func(u model.User) *chat.Manager {
		return chat.NewManager(a.store, completer, u, opts)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	m := ui.New(gctx, styles.NewTheme(), a.auth, factory, ui.Options{
		AssistantName: opts.AssistantName,
		Markdown:      cfg.UI.Markdown,
		GlamourStyle:  cfg.UI.GlamourStyle,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(gctx))

	g.Go(func() error {
		defer cancel()
		final, err := p.Run()
		if fm, ok := final.(ui.Model); ok {
			fm.Close()
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	if a.sqlite != nil && cfg.Store.Watch {
		w, err := store.NewWatcher(a.sqlite, a.sqlite.Path(), watchDebounce)
		if err != nil {
			log.Warn().Err(err).Msg("external change detection disabled")
		} else {
			g.Go(func() error {
				if err := w.Run(gctx); err != nil {
					log.Warn().Err(err).Msg("database watcher stopped")
				}
				return nil
			})
		}
	}

	log.Info().Str("provider", cfg.Completion.Provider).Str("model", cfg.Completion.Model).Msg("starting terminal UI")
	return g.Wait()
}
