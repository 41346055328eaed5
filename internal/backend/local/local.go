// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"

	"github.com/staranto/assetcache/internal/cachestore"
	"github.com/staranto/assetcache/internal/config"
)

const recordExt = ".json"

// Store keeps one directory per bucket beneath a base directory. Bucket
// directories are the path-escaped bucket name; each record is a JSON file
// named by the MD5 hex of its key.
type Store struct {
	base string
}

// Dir resolves the base cache directory.
// Precedence:
//  1. ASSETCACHE_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/assetcache
//
// Returns ("", false) if a base cannot be resolved.
func Dir() (string, bool) {
	if env, err := config.LoadEnv(); err == nil && env.CacheDir != "" {
		return env.CacheDir, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "assetcache"), true
	}
	return "", false
}

// EnsureBaseDir creates the base cache directory if a base path can be
// resolved. Returns the path, whether it is usable, and an error if creation
// failed.
func EnsureBaseDir() (string, bool, error) {
	base, ok := Dir()
	if !ok {
		return "", false, nil
	}
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return base, false, fmt.Errorf("failed to create cache base directory: %w", err)
	}
	return base, true, nil
}

// New returns a Store rooted at base. An empty base means Dir().
func New(base string) (*Store, error) {
	if base == "" {
		var ok bool
		if base, ok = Dir(); !ok {
			return nil, errors.New("no cache directory could be resolved; set ASSETCACHE_CACHE_DIR")
		}
	}
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Store{base: base}, nil
}

// Base returns the directory the store lives in.
func (s *Store) Base() string { return s.base }

func (s *Store) bucketDir(name string) string {
	return filepath.Join(s.base, cachestore.EscapeName(name))
}

func (s *Store) Open(_ context.Context, name string) (cachestore.Bucket, error) {
	if name == "" {
		return nil, errors.New("bucket name is required")
	}
	dir := s.bucketDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return &bucket{name: name, dir: dir}, nil
}

func (s *Store) Names(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name, err := url.PathUnescape(e.Name())
		if err != nil {
			log.WithError(err).Warnf("skipping unrecognized cache directory %s", e.Name())
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Delete(_ context.Context, name string) (bool, error) {
	dir := s.bucketDir(name)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat bucket %s: %w", name, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return true, fmt.Errorf("failed to delete bucket %s: %w", name, err)
	}
	log.Debugf("removed bucket directory %s", dir)
	return true, nil
}

func (s *Store) Close() error { return nil }

type bucket struct {
	name string
	dir  string
}

func (b *bucket) Name() string { return b.name }

// Put writes to a temp file and renames it into place so readers never see
// a partial record.
func (b *bucket) Put(_ context.Context, rec *cachestore.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}
	tmp, err := os.CreateTemp(b.dir, ".record-*")
	if err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path(rec.Key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

func (b *bucket) Match(_ context.Context, key string) (*cachestore.Record, bool, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var rec cachestore.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	if rec.Key != key {
		// Hash collision. Treat as a miss.
		return nil, false, nil
	}
	return &rec, true, nil
}

// Keys peeks at the key field of each record without decoding bodies.
func (b *bucket) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list bucket %s: %w", b.name, err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.dir, e.Name()))
		if err != nil {
			// Deleted underneath us.
			continue
		}
		if key := gjson.GetBytes(data, "key"); key.Exists() {
			keys = append(keys, key.String())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *bucket) path(key string) string {
	return filepath.Join(b.dir, encodeKey(key)+recordExt)
}

// encodeKey hashes k with MD5 and returns the hex string.
func encodeKey(k string) string {
	h := md5.New()
	_, _ = h.Write([]byte(k))
	return hex.EncodeToString(h.Sum(nil))
}
