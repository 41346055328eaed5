// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package storetest holds the behavior every cachestore.Store must share.
// Each backend runs it from its own tests.
package storetest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/assetcache/internal/cachestore"
)

// Factory returns a fresh, empty store. The store is closed by Run.
type Factory func(t *testing.T) cachestore.Store

// Record builds a 200 text/html record for path on a fixed origin.
func Record(path string, body string) *cachestore.Record {
	url := "https://campaign.example" + path
	return &cachestore.Record{
		Key:      "GET " + url,
		Method:   http.MethodGet,
		URL:      url,
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:     []byte(body),
		StoredAt: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Run exercises newStore against the cachestore contract.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(*testing.T, cachestore.Store)
	}{
		{"OpenCreatesBucket", testOpenCreatesBucket},
		{"OpenIsIdempotent", testOpenIsIdempotent},
		{"PutMatchRoundTrip", testPutMatchRoundTrip},
		{"MatchMiss", testMatchMiss},
		{"MatchReturnsCopy", testMatchReturnsCopy},
		{"LastWriteWins", testLastWriteWins},
		{"KeysSorted", testKeysSorted},
		{"BucketsIsolated", testBucketsIsolated},
		{"DeleteRemovesRecords", testDeleteRemovesRecords},
		{"DeleteMissing", testDeleteMissing},
		{"NamesSorted", testNamesSorted},
		{"PutRejectsInvalid", testPutRejectsInvalid},
		{"ConcurrentPuts", testConcurrentPuts},
		{"OddBucketNames", testOddBucketNames},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func testOpenCreatesBucket(t *testing.T, s cachestore.Store) {
	ctx := context.Background()

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	b, err := s.Open(ctx, "em-pwa-v1")
	require.NoError(t, err)
	assert.Equal(t, "em-pwa-v1", b.Name())

	names, err = s.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"em-pwa-v1"}, names)

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func testOpenIsIdempotent(t *testing.T, s cachestore.Store) {
	ctx := context.Background()

	b1, err := s.Open(ctx, "v1")
	require.NoError(t, err)
	require.NoError(t, b1.Put(ctx, Record("/", "one")))

	b2, err := s.Open(ctx, "v1")
	require.NoError(t, err)
	got, ok, err := b2.Match(ctx, Record("/", "").Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "one", string(got.Body))
}

func testPutMatchRoundTrip(t *testing.T, s cachestore.Store) {
	ctx := context.Background()
	b, err := s.Open(ctx, "v1")
	require.NoError(t, err)

	want := Record("/index.html", "<html>dashboard</html>")
	want.Header.Add("X-Multi", "a")
	want.Header.Add("X-Multi", "b")
	require.NoError(t, b.Put(ctx, want))

	got, ok, err := b.Match(ctx, want.Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Key, got.Key)
	assert.Equal(t, want.Method, got.Method)
	assert.Equal(t, want.URL, got.URL)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Header, got.Header)
	assert.Equal(t, want.Body, got.Body)
	assert.True(t, want.StoredAt.Equal(got.StoredAt), "stored at %v, got %v", want.StoredAt, got.StoredAt)
}

func testMatchMiss(t *testing.T, s cachestore.Store) {
	ctx := context.Background()
	b, err := s.Open(ctx, "v1")
	require.NoError(t, err)

	got, ok, err := b.Match(ctx, "GET https://campaign.example/missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func testMatchReturnsCopy(t *testing.T, s cachestore.Store) {
	ctx := context.Background()
	b, err := s.Open(ctx, "v1")
	require.NoError(t, err)

	rec := Record("/", "body")
	require.NoError(t, b.Put(ctx, rec))
	rec.Body[0] = 'X'

	got, _, err := b.Match(ctx, rec.Key)
	require.NoError(t, err)
	got.Header.Set("Content-Type", "mutated")

	again, _, err := b.Match(ctx, rec.Key)
	require.NoError(t, err)
	assert.Equal(t, "body", string(again.Body))
	assert.Equal(t, "text/html; charset=utf-8", again.Header.Get("Content-Type"))
}

func testLastWriteWins(t *testing.T, s cachestore.Store) {
	ctx := context.Background()
	b, err := s.Open(ctx, "v1")
	require.NoError(t, err)

	require.NoError(t, b.Put(ctx, Record("/", "first")))
	require.NoError(t, b.Put(ctx, Record("/", "second")))

	got, ok, err := b.Match(ctx, Record("/", "").Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", string(got.Body))

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func testKeysSorted(t *testing.T, s cachestore.Store) {
	ctx := context.Background()
	b, err := s.Open(ctx, "v1")
	require.NoError(t, err)

	for _, p := range []string{"/manifest.webmanifest", "/", "/index.html"} {
		require.NoError(t, b.Put(ctx, Record(p, p)))
	}

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"GET https://campaign.example/",
		"GET https://campaign.example/index.html",
		"GET https://campaign.example/manifest.webmanifest",
	}, keys)
}

func testBucketsIsolated(t *testing.T, s cachestore.Store) {
	ctx := context.Background()
	v1, err := s.Open(ctx, "v1")
	require.NoError(t, err)
	v2, err := s.Open(ctx, "v2")
	require.NoError(t, err)

	require.NoError(t, v1.Put(ctx, Record("/", "old")))

	_, ok, err := v2.Match(ctx, Record("/", "").Key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testDeleteRemovesRecords(t *testing.T, s cachestore.Store) {
	ctx := context.Background()
	b, err := s.Open(ctx, "v1")
	require.NoError(t, err)
	require.NoError(t, b.Put(ctx, Record("/", "old")))

	existed, err := s.Delete(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, existed)

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	// Re-opening yields an empty bucket.
	b, err = s.Open(ctx, "v1")
	require.NoError(t, err)
	_, ok, err := b.Match(ctx, Record("/", "").Key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testDeleteMissing(t *testing.T, s cachestore.Store) {
	existed, err := s.Delete(context.Background(), "never-opened")
	require.NoError(t, err)
	assert.False(t, existed)
}

func testNamesSorted(t *testing.T, s cachestore.Store) {
	ctx := context.Background()
	for _, n := range []string{"v3", "v1", "v2"} {
		_, err := s.Open(ctx, n)
		require.NoError(t, err)
	}

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2", "v3"}, names)
}

func testPutRejectsInvalid(t *testing.T, s cachestore.Store) {
	ctx := context.Background()
	b, err := s.Open(ctx, "v1")
	require.NoError(t, err)

	err = b.Put(ctx, &cachestore.Record{Status: 200})
	assert.ErrorIs(t, err, cachestore.ErrInvalidRecord)
}

func testConcurrentPuts(t *testing.T, s cachestore.Store) {
	ctx := context.Background()
	b, err := s.Open(ctx, "v1")
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, b.Put(ctx, Record("/", fmt.Sprintf("writer-%d", i))))
			assert.NoError(t, b.Put(ctx, Record(fmt.Sprintf("/w%d", i), "x")))
		}(i)
	}
	wg.Wait()

	got, ok, err := b.Match(ctx, Record("/", "").Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Regexp(t, `^writer-\d$`, string(got.Body))

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, writers+1)
}

func testOddBucketNames(t *testing.T, s cachestore.Store) {
	ctx := context.Background()
	names := []string{"app/v1", "app v2", "100%", ".hidden", "..", "."}
	for _, n := range names {
		b, err := s.Open(ctx, n)
		require.NoError(t, err)
		require.NoError(t, b.Put(ctx, Record("/", n)))
	}

	got, err := s.Names(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, names, got)

	existed, err := s.Delete(ctx, "app/v1")
	require.NoError(t, err)
	assert.True(t, existed)

	got, err = s.Names(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app v2", "100%", ".hidden", "..", "."}, got)

	existed, err = s.Delete(ctx, "..")
	require.NoError(t, err)
	assert.True(t, existed)

	got, err = s.Names(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app v2", "100%", ".hidden", "."}, got)
}
