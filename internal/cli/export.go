// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
	"github.com/MarceTxt/gwen-ai-chat/internal/store"
	"github.com/MarceTxt/gwen-ai-chat/internal/util"
)

// Export formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// NewExportCommand writes one conversation as Markdown or JSON.
func NewExportCommand(rt *cliState) *cobra.Command {
	var (
		account accountFlags
		format  string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "export <conversation-id>",
		Short: "Export a conversation as Markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format = strings.ToLower(format)
			if format != FormatMarkdown && format != FormatJSON {
				return errors.Errorf("unknown format %q (use markdown or json)", format)
			}

			password, err := readPassword(cmd.ErrOrStderr(), account.password)
			if err != nil {
				return err
			}

			a, err := openApp(ctx, rt.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.signIn(ctx, account.email, password)
			if err != nil {
				return err
			}
			conv, err := a.store.Get(ctx, user.ID, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return errors.Errorf("conversation %s not found", args[0])
			}
			if err != nil {
				return err
			}

			data, err := exportConversation(conv, format)
			if err != nil {
				return err
			}

			if output != "" {
				if err := util.AtomicWriteFile(output, data, 0600); err != nil {
					return errors.Wrapf(err, "failed to write %s", output)
				}
				log.Info().Str("conversation_id", conv.ID).Str("path", output).Msg("conversation exported")
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %q to %s\n", conv.Name, output)
				return nil
			}

			if format == FormatMarkdown && IsStdoutTTY() && ColorsEnabled() {
				data = []byte(renderMarkdown(string(data), GetTerminalWidth()))
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	account.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", FormatMarkdown, "export format: markdown or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func exportConversation(conv model.Conversation, format string) ([]byte, error) {
	if format == FormatJSON {
		data, err := conv.ExportJSON()
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode conversation")
		}
		return append(data, '\n'), nil
	}
	return []byte(conv.ExportMarkdown()), nil
}

// renderMarkdown renders markdown for terminal display, falling back to the
// raw text.
func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}
