// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package cli implements the gwen command tree with cobra.

	gwen                      run the terminal UI (same as "gwen tui")
	gwen register             create an account
	gwen conversations list   print your conversations, newest first
	gwen export <id>          write a conversation as Markdown or JSON
	gwen config init|show|path
	gwen version

Every command loads ~/.gwen/config.toml (or --config), applies GWEN_*
environment overrides and the --log-level/--log-file flags, then points the
global zerolog logger at the log file. Commands that need an account take
--email and read the password from --password, GWEN_PASSWORD or an
interactive prompt.
*/
package cli
