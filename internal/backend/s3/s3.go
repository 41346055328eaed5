// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/tidwall/gjson"

	"github.com/staranto/assetcache/internal/cachestore"
)

const (
	markerName = ".bucket"
	recordExt  = ".json"
	// deleteBatch is the S3 DeleteObjects limit.
	deleteBatch = 1000
)

// API is the subset of the S3 client the store uses.
type API interface {
	GetObject(ctx context.Context, params *s3v2.GetObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3v2.PutObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3v2.ListObjectsV2Input, optFns ...func(*s3v2.Options)) (*s3v2.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3v2.DeleteObjectsInput, optFns ...func(*s3v2.Options)) (*s3v2.DeleteObjectsOutput, error)
}

// Store maps cache buckets onto key prefixes of one S3 bucket:
//
//	<prefix>/<escaped name>/.bucket
//	<prefix>/<escaped name>/<md5 of key>.json
type Store struct {
	api    API
	bucket string
	root   string
}

// New returns a Store over the S3 bucket s3Bucket, rooted at prefix.
func New(api API, s3Bucket, prefix string) (*Store, error) {
	if api == nil {
		return nil, errors.New("s3 client is required")
	}
	if s3Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	return &Store{api: api, bucket: s3Bucket, root: strings.Trim(prefix, "/")}, nil
}

func (s *Store) rootPrefix() string {
	if s.root == "" {
		return ""
	}
	return s.root + "/"
}

func (s *Store) bucketPrefix(name string) string {
	return s.rootPrefix() + cachestore.EscapeName(name) + "/"
}

func (s *Store) Open(ctx context.Context, name string) (cachestore.Bucket, error) {
	if name == "" {
		return nil, errors.New("bucket name is required")
	}
	if err := s.putMarker(ctx, name); err != nil {
		return nil, err
	}
	return &bucket{store: s, name: name}, nil
}

func (s *Store) putMarker(ctx context.Context, name string) error {
	_, err := s.api.PutObject(ctx, &s3v2.PutObjectInput{
		Bucket: awsv2.String(s.bucket),
		Key:    awsv2.String(s.bucketPrefix(name) + markerName),
		Body:   bytes.NewReader([]byte(name)),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return nil
}

func (s *Store) Names(ctx context.Context) ([]string, error) {
	root := s.rootPrefix()
	p := s3v2.NewListObjectsV2Paginator(s.api, &s3v2.ListObjectsV2Input{
		Bucket:    awsv2.String(s.bucket),
		Prefix:    awsv2.String(root),
		Delimiter: awsv2.String("/"),
	})

	names := []string{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list buckets: %w", err)
		}
		for _, cp := range page.CommonPrefixes {
			escaped := strings.TrimSuffix(strings.TrimPrefix(awsv2.ToString(cp.Prefix), root), "/")
			name, err := url.PathUnescape(escaped)
			if err != nil {
				log.WithError(err).Warnf("skipping unrecognized prefix %s", awsv2.ToString(cp.Prefix))
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) listKeys(ctx context.Context, prefix string) ([]string, error) {
	p := s3v2.NewListObjectsV2Paginator(s.api, &s3v2.ListObjectsV2Input{
		Bucket: awsv2.String(s.bucket),
		Prefix: awsv2.String(prefix),
	})

	var keys []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, awsv2.ToString(obj.Key))
		}
	}
	return keys, nil
}

// Delete removes every object beneath the bucket prefix.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	keys, err := s.listKeys(ctx, s.bucketPrefix(name))
	if err != nil {
		return false, fmt.Errorf("failed to list bucket %s: %w", name, err)
	}
	if len(keys) == 0 {
		return false, nil
	}

	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: awsv2.String(k)})
		}

		out, err := s.api.DeleteObjects(ctx, &s3v2.DeleteObjectsInput{
			Bucket: awsv2.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: awsv2.Bool(true)},
		})
		if err != nil {
			return true, fmt.Errorf("failed to delete bucket %s: %w", name, err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return true, fmt.Errorf("failed to delete bucket %s: %d objects not deleted, first %s: %s",
				name, len(out.Errors), awsv2.ToString(e.Key), awsv2.ToString(e.Message))
		}
	}
	return true, nil
}

func (s *Store) Close() error { return nil }

type bucket struct {
	store *Store
	name  string
}

func (b *bucket) Name() string { return b.name }

func (b *bucket) objectKey(key string) string {
	return b.store.bucketPrefix(b.name) + encodeKey(key) + recordExt
}

// Put rewrites the marker alongside the record so that a bucket deleted
// under an open handle reappears, as a re-open would.
func (b *bucket) Put(ctx context.Context, rec *cachestore.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := b.store.putMarker(ctx, b.name); err != nil {
		return err
	}
	_, err = b.store.api.PutObject(ctx, &s3v2.PutObjectInput{
		Bucket:      awsv2.String(b.store.bucket),
		Key:         awsv2.String(b.objectKey(rec.Key)),
		Body:        bytes.NewReader(data),
		ContentType: awsv2.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

func (b *bucket) read(ctx context.Context, objectKey string) ([]byte, bool, error) {
	out, err := b.store.api.GetObject(ctx, &s3v2.GetObjectInput{
		Bucket: awsv2.String(b.store.bucket),
		Key:    awsv2.String(objectKey),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get S3 object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	return data, true, nil
}

func (b *bucket) Match(ctx context.Context, key string) (*cachestore.Record, bool, error) {
	data, ok, err := b.read(ctx, b.objectKey(key))
	if err != nil || !ok {
		return nil, false, err
	}

	var rec cachestore.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	if rec.Key != key {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (b *bucket) Keys(ctx context.Context) ([]string, error) {
	objects, err := b.store.listKeys(ctx, b.store.bucketPrefix(b.name))
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket %s: %w", b.name, err)
	}

	keys := []string{}
	for _, obj := range objects {
		if path.Ext(obj) != recordExt {
			continue
		}
		data, ok, err := b.read(ctx, obj)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if key := gjson.GetBytes(data, "key"); key.Exists() {
			keys = append(keys, key.String())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// encodeKey hashes k with MD5 and returns the hex string.
func encodeKey(k string) string {
	h := md5.New()
	_, _ = h.Write([]byte(k))
	return hex.EncodeToString(h.Sum(nil))
}
