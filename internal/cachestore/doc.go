// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: Apache-2.0

// Package cachestore defines the storage capability the offline asset cache
// is built on: named buckets of request-keyed response records. Concrete
// stores live under internal/backend.
package cachestore
