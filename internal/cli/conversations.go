// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
	"github.com/MarceTxt/gwen-ai-chat/internal/ui/styles"
	"github.com/MarceTxt/gwen-ai-chat/internal/util"
)

// NewConversationsCommand groups conversation commands.
func NewConversationsCommand(rt *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Inspect stored conversations",
	}
	cmd.AddCommand(NewConversationsListCommand(rt))
	return cmd
}

// conversationRow is the JSON form of a list entry.
type conversationRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
	Messages  int       `json:"messages"`
}

// NewConversationsListCommand prints the user's conversations, newest first.
func NewConversationsListCommand(rt *cliState) *cobra.Command {
	var (
		account accountFlags
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your conversations, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
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
			convs, err := a.store.List(ctx, user.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				rows := make([]conversationRow, 0, len(convs))
				for _, c := range convs {
					rows = append(rows, conversationRow{ID: c.ID, Name: c.Name, UpdatedAt: c.UpdatedAt, Messages: c.MessageCount()})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			if len(convs) == 0 {
				fmt.Fprintln(out, "No conversations yet.")
				return nil
			}
			fmt.Fprintln(out, conversationTable(convs))
			return nil
		},
	}
	account.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func conversationTable(convs []model.Conversation) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Overlay)).
		Headers("ID", "NAME", "UPDATED", "MESSAGES")
	for _, c := range convs {
		t.Row(
			c.ID,
			util.TruncateWidth(util.SingleLine(c.Name), 40),
			c.UpdatedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(c.MessageCount()),
		)
	}
	return t.Render()
}
