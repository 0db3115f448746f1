// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MarceTxt/gwen-ai-chat/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup points the global logger at cfg.File. An empty file discards
// output. The returned closer releases the file.
func Setup(cfg config.LogConfig) (io.Closer, error) {
	level := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	if cfg.File == "" {
		log.Logger = zerolog.New(io.Discard)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open log file %s", cfg.File)
	}

	log.Logger = New(f, level)
	return f, nil
}

// New builds a console-formatted logger writing to w.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).
		With().
		Timestamp().
		Str("app", "gwen").
		Logger().
		Level(level)
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
