// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: Apache-2.0

// Package manager implements the offline asset cache: a versioned bucket
// pre-populated from a manifest at install, stale buckets evicted at
// activation, and cache-first request handling with write-through of
// successful same-origin GET responses.
//
// The lifecycle is
//
//	Uninstalled -> Installing -> Installed -> Activating -> Active
//
// Install and Activate return a *Task the host waits on before it considers
// the lifecycle event finished. Fetch only consults the cache once the
// manager is Active; before that requests go straight to the network.
package manager
