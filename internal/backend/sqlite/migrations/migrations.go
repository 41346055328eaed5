// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package migrations embeds the SQLite schema of the sqlite backend.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
