// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/assetcache/internal/backend/local"
	"github.com/staranto/assetcache/internal/backend/memory"
	"github.com/staranto/assetcache/internal/backend/s3"
	"github.com/staranto/assetcache/internal/backend/sqlite"
)

func TestNewBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewBackend(ctx, Spec{Kind: KindMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	s, err = NewBackend(ctx, Spec{Kind: KindLocal, Path: filepath.Join(dir, "files")})
	require.NoError(t, err)
	assert.IsType(t, &local.Store{}, s)

	s, err = NewBackend(ctx, Spec{Kind: KindSQLite, Path: filepath.Join(dir, "cache.db")})
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, s)
	require.NoError(t, s.Close())
}

func TestNewBackend_Defaults(t *testing.T) {
	t.Setenv("ASSETCACHE_CACHE_DIR", t.TempDir())
	ctx := context.Background()

	s, err := NewBackend(ctx, Spec{})
	require.NoError(t, err)
	assert.IsType(t, &local.Store{}, s)

	s, err = NewBackend(ctx, Spec{Kind: KindSQLite})
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, s)
	require.NoError(t, s.Close())
}

func TestNewBackend_S3(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")
	t.Setenv("AWS_PROFILE", "")

	s, err := NewBackend(context.Background(), Spec{
		Kind:       KindS3,
		S3Bucket:   "campaign-assets",
		S3Endpoint: "http://127.0.0.1:9000",
		Region:     "us-east-1",
	})
	require.NoError(t, err)
	assert.IsType(t, &s3.Store{}, s)

	_, err = NewBackend(context.Background(), Spec{Kind: KindS3, Region: "us-east-1"})
	assert.Error(t, err)
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := NewBackend(context.Background(), Spec{Kind: "redis"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}
