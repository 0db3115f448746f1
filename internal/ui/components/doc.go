// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual building blocks of the Gwen TUI:
// the conversation header, the sidebar list, message bubbles with markdown
// rendering, the typing indicator, the login form and small overlays.
//
// Components render from plain values and never talk to the chat core
// directly; the chat view owns state and wiring.
package components
