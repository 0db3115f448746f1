// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide zerolog logger.
//
// The terminal UI owns stdout, so log output goes to a file under the
// gwen configuration directory. The package also adapts zerolog to the
// watermill logger interface used by the conversation store's change feed.
//
// # Usage
//
//	closer, err := logging.Setup(cfg.Log)
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
package logging
