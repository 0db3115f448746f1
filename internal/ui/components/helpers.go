// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"time"
)

// =============================================================================
// SHARED HELPER FUNCTIONS
// =============================================================================

// FormatCount renders a message count as "1 message" or "N messages".
func FormatCount(n int) string {
	if n == 1 {
		return "1 message"
	}
	return strconv.Itoa(n) + " messages"
}

// FormatDate renders t as a short local date. Dates in the current year
// omit the year.
func FormatDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	if t.Year() == now.Local().Year() {
		return t.Format("Jan 2")
	}
	return t.Format("Jan 2, 2006")
}

// FormatClock renders the time of day of a message.
func FormatClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("15:04")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
