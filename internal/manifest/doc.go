// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: Apache-2.0

// Package manifest describes the fixed set of assets pre-populated into the
// offline cache at install time, and the version tag that names the bucket
// holding them.
package manifest
