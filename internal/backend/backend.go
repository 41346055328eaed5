// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/apex/log"

	awsx "github.com/staranto/assetcache/internal/aws"
	"github.com/staranto/assetcache/internal/backend/local"
	"github.com/staranto/assetcache/internal/backend/memory"
	"github.com/staranto/assetcache/internal/backend/s3"
	"github.com/staranto/assetcache/internal/backend/sqlite"
	"github.com/staranto/assetcache/internal/cachestore"
)

// Kinds of store understood by NewBackend.
const (
	KindMemory = "memory"
	KindLocal  = "file"
	KindSQLite = "sqlite"
	KindS3     = "s3"
)

// Kinds lists the valid values of Spec.Kind.
var Kinds = []string{KindMemory, KindLocal, KindSQLite, KindS3}

// ErrUnknownKind is returned for a Spec.Kind outside Kinds.
var ErrUnknownKind = errors.New("unknown store kind")

// Spec selects and configures a store.
type Spec struct {
	Kind string
	// Path is the base directory (file) or database file (sqlite). Empty
	// means a location under the cache directory.
	Path string

	S3Bucket   string
	S3Prefix   string
	S3Endpoint string
	Region     string
	Profile    string
}

// NewBackend opens the store described by spec.
func NewBackend(ctx context.Context, spec Spec) (cachestore.Store, error) {
	log.Debugf("NewBackend: spec: %+v", spec)

	switch spec.Kind {
	case KindMemory:
		return memory.New(), nil
	case KindLocal, "":
		return local.New(spec.Path)
	case KindSQLite:
		path := spec.Path
		if path == "" {
			base, _, err := local.EnsureBaseDir()
			if err != nil {
				return nil, err
			}
			if base == "" {
				return nil, errors.New("sqlite store needs --store-path")
			}
			path = filepath.Join(base, "assetcache.db")
		}
		return sqlite.Open(path)
	case KindS3:
		cfg, err := awsx.LoadAWSConfig(ctx,
			awsx.WithProfile(spec.Profile),
			awsx.WithRegion(spec.Region),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := awsx.NewS3(cfg, awsx.WithS3Endpoint(spec.S3Endpoint))
		return s3.New(client, spec.S3Bucket, spec.S3Prefix)
	}

	return nil, fmt.Errorf("%w %q, want one of %v", ErrUnknownKind, spec.Kind, Kinds)
}
