// Copyright (c) 2025 Steve Taranto staranto@gmail.com.
// SPDX-License-Identifier: Apache-2.0

// Package backend implements the cache stores (memory, local file system,
// SQLite and S3) and selects one from a Spec.
package backend
