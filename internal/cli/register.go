// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// accountFlags identify the user of a non-interactive command.
type accountFlags struct {
	email    string
	password string
}

func (f *accountFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "account email")
	cmd.Flags().StringVar(&f.password, "password", "", "account password (default: GWEN_PASSWORD or prompt)")
	_ = cmd.MarkFlagRequired("email")
}

// NewRegisterCommand creates an account from the command line.
func NewRegisterCommand(rt *cliState) *cobra.Command {
	var account accountFlags

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.ErrOrStderr(), account.password)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), rt.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.auth.Register(cmd.Context(), account.email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %s\n", user.Email)
			return nil
		},
	}
	account.register(cmd)
	return cmd
}
