// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"fmt"
	"slices"

	"github.com/apex/log"

	"github.com/staranto/assetcache/internal/cachestore"
)

// Report describes the manager and its store at a point in time.
type Report struct {
	State   string   `json:"state" yaml:"state"`
	Bucket  string   `json:"bucket" yaml:"bucket"`
	Present bool     `json:"present" yaml:"present"`
	Records int      `json:"records" yaml:"records"`
	Stale   []string `json:"stale" yaml:"stale"`
	Missing []string `json:"missing" yaml:"missing"`
}

// Status inspects the store without changing anything.
func (m *Manager) Status(ctx context.Context) (*Report, error) {
	name := m.BucketName()
	rpt := &Report{
		State:   m.State().String(),
		Bucket:  name,
		Stale:   []string{},
		Missing: []string{},
	}

	names, err := m.store.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("status %s: %w", name, err)
	}
	for _, n := range names {
		if n == name {
			rpt.Present = true
			continue
		}
		rpt.Stale = append(rpt.Stale, n)
	}

	wanted, err := m.manifestKeys()
	if err != nil {
		return nil, fmt.Errorf("status %s: %w", name, err)
	}
	if !rpt.Present {
		rpt.Missing = wanted
		return rpt, nil
	}

	keys, err := m.bucketKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("status %s: %w", name, err)
	}
	rpt.Records = len(keys)
	for _, k := range wanted {
		if _, found := slices.BinarySearch(keys, k); !found {
			rpt.Missing = append(rpt.Missing, k)
		}
	}
	return rpt, nil
}

// Restore derives the lifecycle state from what the store already holds, so
// a fresh process can pick up where an earlier one left off. The current
// bucket holding every manifest entry means Installed, and Active when no
// stale bucket remains. Anything less is Uninstalled.
func (m *Manager) Restore(ctx context.Context) (State, error) {
	m.mu.Lock()
	if m.state.transitional() {
		st := m.state
		m.mu.Unlock()
		return st, fmt.Errorf("%w: restore while %s", ErrInvalidState, st)
	}
	m.mu.Unlock()

	rpt, err := m.Status(ctx)
	if err != nil {
		return Uninstalled, err
	}

	st := Uninstalled
	switch {
	case !rpt.Present || len(rpt.Missing) > 0:
	case len(rpt.Stale) == 0:
		st = Active
	default:
		st = Installed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.transitional() {
		return m.state, fmt.Errorf("%w: restore while %s", ErrInvalidState, m.state)
	}
	m.state = st

	log.WithFields(log.Fields{"bucket": rpt.Bucket, "state": st}).Debug("restored")
	return st, nil
}

// Clear deletes every bucket in the store, the current one included, and
// returns the manager to Uninstalled. It returns the names it deleted.
func (m *Manager) Clear(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	if m.state.transitional() {
		st := m.state
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: clear while %s", ErrInvalidState, st)
	}
	m.state = Uninstalled
	m.mu.Unlock()

	m.Flush()

	names, err := m.store.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("clear: %w", err)
	}

	deleted := make([]string, 0, len(names))
	for _, name := range names {
		ok, err := m.store.Delete(ctx, name)
		if err != nil {
			return deleted, fmt.Errorf("clear %s: %w", name, err)
		}
		if ok {
			deleted = append(deleted, name)
		}
	}

	log.WithField("buckets", len(deleted)).Info("cleared")
	return deleted, nil
}

func (m *Manager) manifestKeys() ([]string, error) {
	urls, err := m.manifest.Resolve(m.origin)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		keys = append(keys, cachestore.Key("GET", u))
	}
	return keys, nil
}

func (m *Manager) bucketKeys(ctx context.Context) ([]string, error) {
	bucket, err := m.store.Open(ctx, m.BucketName())
	if err != nil {
		return nil, err
	}
	keys, err := bucket.Keys(ctx)
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}
