// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlamourStyle(t *testing.T) {
	tests := []struct {
		name       string
		isDark     bool
		configured string
		want       string
	}{
		{"explicit wins", true, "notty", "notty"},
		{"auto on dark", true, GlamourAuto, GlamourDark},
		{"auto on light", false, GlamourAuto, GlamourLight},
		{"empty on dark", true, "", GlamourDark},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			theme := &Theme{IsDark: tt.isDark}
			assert.Equal(t, tt.want, theme.GlamourStyle(tt.configured))
		})
	}
}

func TestRenderIndicators(t *testing.T) {
	assert.True(t, strings.Contains(RenderError("boom"), "[X] boom"))
	assert.True(t, strings.Contains(RenderInfo("hello"), "[i] hello"))
}

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	assert.NotEmpty(t, theme.Header.Render("title"))
	assert.Contains(t, theme.SidebarItem.Render("Untitled"), "Untitled")
}
