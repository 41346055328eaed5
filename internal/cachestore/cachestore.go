// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cachestore

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidRecord is returned by Put for records without a key.
var ErrInvalidRecord = errors.New("invalid cache record")

// Store owns a set of named buckets. Implementations must be safe for
// concurrent use. Names returns bucket names in sorted order and Delete
// reports whether a bucket existed.
type Store interface {
	// Open returns the named bucket, creating it if absent.
	Open(ctx context.Context, name string) (Bucket, error)
	Names(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) (bool, error)
	Close() error
}

// Bucket is a handle on one named collection of records. Concurrent Puts of
// the same key are last-write-wins.
type Bucket interface {
	Name() string
	Put(ctx context.Context, rec *Record) error
	// Match returns a copy of the record stored under key.
	Match(ctx context.Context, key string) (*Record, bool, error)
	// Keys returns the stored keys in sorted order.
	Keys(ctx context.Context) ([]string, error)
}

// Record is a stored response, keyed by the identity of the request that
// produced it.
type Record struct {
	Key      string      `json:"key"`
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header,omitempty"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Header = r.Header.Clone()
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}

// Validate checks the fields every store relies on.
func (r *Record) Validate() error {
	if r == nil {
		return ErrInvalidRecord
	}
	if strings.TrimSpace(r.Key) == "" {
		return errors.Join(ErrInvalidRecord, errors.New("key is required"))
	}
	return nil
}

// Key returns the cache key for a request: the upper-cased method and the
// absolute URL without its fragment. The query string takes part verbatim.
func Key(method string, u *url.URL) string {
	if method == "" {
		method = http.MethodGet
	}
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return strings.ToUpper(method) + " " + c.String()
}

// EscapeName turns a bucket name into a single path segment. A leading dot
// is escaped too, so "." and ".." never name a parent or hidden entry.
// url.PathUnescape reverses it.
func EscapeName(name string) string {
	escaped := url.PathEscape(name)
	if strings.HasPrefix(escaped, ".") {
		escaped = "%2E" + escaped[1:]
	}
	return escaped
}

// RequestKey returns Key for req.
func RequestKey(req *http.Request) string {
	return Key(req.Method, req.URL)
}
