// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea front end for Gwen: the login screen
// and the chat screen (sidebar, conversation header, message pane, input).
//
// The view never mutates conversation state itself. Key presses call the
// chat core's Manager, usually from a tea.Cmd, and the Manager's change
// notifications come back as messages that refresh the rendered snapshot.
//
// Key bindings on the chat screen:
//
//	enter    send the message / open the conversation under the cursor
//	tab      switch focus between the sidebar and the input
//	ctrl+n   new conversation
//	ctrl+r   rename the active conversation
//	ctrl+d   delete the active conversation
//	ctrl+s   toggle multi-select, space toggles an entry, ctrl+a all
//	ctrl+x   delete the selected conversations
//	esc      dismiss an error, leave selection or rename
//	ctrl+l   sign out
//	ctrl+c   quit
package chat
