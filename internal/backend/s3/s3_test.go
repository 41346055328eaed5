// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/assetcache/internal/cachestore"
	"github.com/staranto/assetcache/internal/cachestore/storetest"
)

// fakeS3 is an in-memory, single-bucket stand-in for the S3 API.
type fakeS3 struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleteErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3v2.GetObjectInput, _ ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[awsv2.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: awsv2.String("no such key")}
	}
	return &s3v2.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(append([]byte(nil), data...)))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3v2.PutObjectInput, _ ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[awsv2.ToString(in.Key)] = data
	return &s3v2.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3v2.ListObjectsV2Input, _ ...func(*s3v2.Options)) (*s3v2.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := awsv2.ToString(in.Prefix)
	delim := awsv2.ToString(in.Delimiter)

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3v2.ListObjectsV2Output{IsTruncated: awsv2.Bool(false)}
	seen := map[string]bool{}
	for _, k := range keys {
		rest := strings.TrimPrefix(k, prefix)
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				cp := prefix + rest[:i+len(delim)]
				if !seen[cp] {
					seen[cp] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: awsv2.String(cp)})
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{Key: awsv2.String(k)})
	}
	out.KeyCount = awsv2.Int32(int32(len(out.Contents) + len(out.CommonPrefixes)))
	return out, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3v2.DeleteObjectsInput, _ ...func(*s3v2.Options)) (*s3v2.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	for _, id := range in.Delete.Objects {
		delete(f.objects, awsv2.ToString(id.Key))
	}
	return &s3v2.DeleteObjectsOutput{}, nil
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) cachestore.Store {
		s, err := New(newFakeS3(), "campaign-assets", "offline/cache")
		require.NoError(t, err)
		return s
	})
}

func TestConformance_NoPrefix(t *testing.T) {
	storetest.Run(t, func(t *testing.T) cachestore.Store {
		s, err := New(newFakeS3(), "campaign-assets", "")
		require.NoError(t, err)
		return s
	})
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "b", "")
	assert.Error(t, err)
	_, err = New(newFakeS3(), "", "")
	assert.Error(t, err)
}

func TestLayout(t *testing.T) {
	api := newFakeS3()
	s, err := New(api, "campaign-assets", "/offline/")
	require.NoError(t, err)

	ctx := context.Background()
	b, err := s.Open(ctx, "em-pwa-v1")
	require.NoError(t, err)
	rec := storetest.Record("/index.html", "<html>")
	require.NoError(t, b.Put(ctx, rec))

	assert.Contains(t, api.objects, "offline/em-pwa-v1/.bucket")
	assert.Contains(t, api.objects, "offline/em-pwa-v1/"+encodeKey(rec.Key)+".json")
}

func TestNames_IgnoresSiblingPrefixes(t *testing.T) {
	api := newFakeS3()
	api.objects["other/thing.json"] = []byte("{}")

	s, err := New(api, "campaign-assets", "offline")
	require.NoError(t, err)
	_, err = s.Open(context.Background(), "v1")
	require.NoError(t, err)

	names, err := s.Names(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, names)
}

func TestDelete_Error(t *testing.T) {
	api := newFakeS3()
	s, err := New(api, "campaign-assets", "")
	require.NoError(t, err)
	_, err = s.Open(context.Background(), "v1")
	require.NoError(t, err)

	api.deleteErr = errors.New("access denied")
	existed, err := s.Delete(context.Background(), "v1")
	assert.True(t, existed)
	assert.ErrorContains(t, err, "access denied")
}
