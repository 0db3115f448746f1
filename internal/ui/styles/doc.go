// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the Gwen terminal UI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple - Primary accent, assistant messages and the active conversation
  - Cyan - Brand color, user highlights and key hints
  - Emerald - Success states and selection marks
  - Amber - System messages and the typing indicator
  - Rose - Errors and destructive confirmations

Message bubbles use semantic tokens (UserBubbleFg, AssistantBubbleFg,
SystemBubbleFg) so the chat pane stays legible on both backgrounds.

# Theme System (theme.go)

The Theme struct detects the terminal's color profile with termenv and holds
every lipgloss style the components render with:

	theme := styles.NewTheme()
	header := theme.Header.Render("Untitled Conversation")

GlamourStyle picks the markdown renderer style matching the background.
*/
package styles
