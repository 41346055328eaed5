// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/staranto/assetcache/internal/cachestore"
)

// Store keeps buckets in process memory. It is lost on exit, which makes it
// the store of choice for tests and for a throwaway serve.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]*cachestore.Record
}

// New returns an empty Store.
func New() *Store {
	return &Store{buckets: make(map[string]map[string]*cachestore.Record)}
}

func (s *Store) Open(_ context.Context, name string) (cachestore.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[name]; !ok {
		s.buckets[name] = make(map[string]*cachestore.Record)
	}
	return &bucket{store: s, name: name}, nil
}

func (s *Store) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.buckets))
	for n := range s.buckets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.buckets[name]
	delete(s.buckets, name)
	return ok, nil
}

func (s *Store) Close() error { return nil }

type bucket struct {
	store *Store
	name  string
}

func (b *bucket) Name() string { return b.name }

// Put recreates the bucket if it was deleted after this handle was opened,
// the same way a re-open would.
func (b *bucket) Put(_ context.Context, rec *cachestore.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	records, ok := b.store.buckets[b.name]
	if !ok {
		records = make(map[string]*cachestore.Record)
		b.store.buckets[b.name] = records
	}
	records[rec.Key] = rec.Clone()
	return nil
}

func (b *bucket) Match(_ context.Context, key string) (*cachestore.Record, bool, error) {
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()
	rec, ok := b.store.buckets[b.name][key]
	if !ok {
		return nil, false, nil
	}
	return rec.Clone(), true, nil
}

func (b *bucket) Keys(_ context.Context) ([]string, error) {
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()
	records := b.store.buckets[b.name]
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
