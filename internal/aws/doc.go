// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package aws contains AWS config and client helpers used by the S3 cache
// backend.
package aws
