// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/staranto/assetcache/internal/cachestore"
	"github.com/staranto/assetcache/internal/manifest"
)

var (
	// ErrInvalidState is returned when a lifecycle call is made from a state
	// that does not allow it.
	ErrInvalidState = errors.New("invalid lifecycle state")

	// ErrNotOK is returned when a manifest entry answers with a non-2xx
	// status during install.
	ErrNotOK = errors.New("non-OK response")
)

// Options configures a Manager. Store, Manifest and Origin are required.
type Options struct {
	Store    cachestore.Store
	Manifest manifest.Manifest
	Origin   *url.URL
	Fetcher  Fetcher
	Now      func() time.Time
}

// Manager owns one versioned cache bucket and drives its lifecycle.
type Manager struct {
	store    cachestore.Store
	manifest manifest.Manifest
	origin   *url.URL
	fetcher  Fetcher
	now      func() time.Time

	mu    sync.Mutex
	state State

	pending sync.WaitGroup
}

// New validates opts and returns an Uninstalled manager.
func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("manager: store is required")
	}
	if opts.Origin == nil || opts.Origin.Scheme == "" || opts.Origin.Host == "" {
		return nil, errors.New("manager: origin must be an absolute URL")
	}
	if err := opts.Manifest.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		store:    opts.Store,
		manifest: opts.Manifest,
		origin:   opts.Origin,
		fetcher:  opts.Fetcher,
		now:      opts.Now,
		state:    Uninstalled,
	}
	if m.fetcher == nil {
		m.fetcher = NewHTTPFetcher()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// BucketName is the name of the bucket this manager owns, the manifest
// version.
func (m *Manager) BucketName() string {
	return m.manifest.Version
}

// Origin returns the origin requests are resolved against.
func (m *Manager) Origin() *url.URL {
	u := *m.origin
	return &u
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Install fetches every manifest entry and stores them in the current
// bucket. Fetches run concurrently and the first failure cancels the rest.
// Nothing is written until every entry is in hand.
func (m *Manager) Install(ctx context.Context) *Task {
	m.mu.Lock()
	if m.state != Uninstalled {
		st := m.state
		m.mu.Unlock()
		return failedTask(fmt.Errorf("%w: install from %s", ErrInvalidState, st))
	}
	m.state = Installing
	m.mu.Unlock()

	return startTask(func() error {
		err := m.install(ctx)

		m.mu.Lock()
		defer m.mu.Unlock()
		if err != nil {
			m.state = Uninstalled
			return err
		}
		m.state = Installed
		return nil
	})
}

func (m *Manager) install(ctx context.Context) error {
	name := m.BucketName()
	logger := log.WithField("bucket", name)

	urls, err := m.manifest.Resolve(m.origin)
	if err != nil {
		return fmt.Errorf("install %s: %w", name, err)
	}

	names, err := m.store.Names(ctx)
	if err != nil {
		return fmt.Errorf("install %s: listing buckets: %w", name, err)
	}
	existed := slices.Contains(names, name)

	records := make([]*cachestore.Record, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			rec, err := m.fetchAsset(gctx, u)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("install %s: %w", name, err)
	}

	bucket, err := m.store.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("install %s: %w", name, err)
	}
	for _, rec := range records {
		if err := bucket.Put(ctx, rec); err != nil {
			if !existed {
				m.discard(ctx, name)
			}
			return fmt.Errorf("install %s: storing %s: %w", name, rec.Key, err)
		}
	}

	logger.WithField("assets", len(records)).Info("installed")
	return nil
}

// fetchAsset retrieves one manifest entry into memory.
func (m *Manager) fetchAsset(ctx context.Context, u *url.URL) (*cachestore.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u, err)
	}

	resp, err := m.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s answered %d", ErrNotOK, u, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading body: %w", u, err)
	}

	log.WithField("url", u.String()).Debug("fetched manifest entry")
	return m.record(req, resp, body), nil
}

// discard removes a bucket created by a failed install.
func (m *Manager) discard(ctx context.Context, name string) {
	if _, err := m.store.Delete(context.WithoutCancel(ctx), name); err != nil {
		log.WithError(err).WithField("bucket", name).Warn("discarding partial install failed")
	}
}

// Activate deletes every bucket that is not the current one and puts the
// manager in control of requests. Delete failures are logged and skipped.
func (m *Manager) Activate(ctx context.Context) *Task {
	m.mu.Lock()
	if m.state != Installed && m.state != Active {
		st := m.state
		m.mu.Unlock()
		return failedTask(fmt.Errorf("%w: activate from %s", ErrInvalidState, st))
	}
	prev := m.state
	m.state = Activating
	m.mu.Unlock()

	return startTask(func() error {
		err := m.activate(ctx)

		m.mu.Lock()
		defer m.mu.Unlock()
		if err != nil {
			m.state = prev
			return err
		}
		m.state = Active
		return nil
	})
}

func (m *Manager) activate(ctx context.Context) error {
	current := m.BucketName()

	names, err := m.store.Names(ctx)
	if err != nil {
		return fmt.Errorf("activate %s: listing buckets: %w", current, err)
	}

	for _, name := range names {
		if name == current {
			continue
		}
		logger := log.WithField("bucket", name)
		if _, err := m.store.Delete(ctx, name); err != nil {
			logger.WithError(err).Warn("evicting stale bucket failed")
			continue
		}
		logger.Info("evicted stale bucket")
	}
	return nil
}

// Fetch answers req cache-first while the manager is Active. A miss goes to
// the network, and a 200 same-origin GET response is stored in the
// background. The live response is returned either way. While not Active,
// req goes straight to the network.
//
// A relative req.URL is resolved against the origin.
func (m *Manager) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	if !req.URL.IsAbs() {
		req = req.Clone(ctx)
		req.URL = m.origin.ResolveReference(req.URL)
		req.Host = ""
	}

	if m.State() != Active {
		return m.fetcher.Fetch(ctx, req)
	}

	key := cachestore.RequestKey(req)
	logger := log.WithFields(log.Fields{"bucket": m.BucketName(), "key": key})

	if rec, ok := m.lookup(ctx, key); ok {
		logger.Debug("cache hit")
		return response(req, rec), nil
	}
	logger.Debug("cache miss")

	resp, err := m.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}

	if !m.cacheable(req, resp) {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("fetch %s: reading body: %w", key, err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	m.storeBack(ctx, m.record(req, resp, bytes.Clone(body)))
	return resp, nil
}

// lookup treats a store error as a miss so the network still gets a chance.
func (m *Manager) lookup(ctx context.Context, key string) (*cachestore.Record, bool) {
	bucket, err := m.store.Open(ctx, m.BucketName())
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("cache lookup failed")
		return nil, false
	}
	rec, ok, err := bucket.Match(ctx, key)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("cache lookup failed")
		return nil, false
	}
	return rec, ok
}

func (m *Manager) cacheable(req *http.Request, resp *http.Response) bool {
	return req.Method == http.MethodGet &&
		resp.StatusCode == http.StatusOK &&
		Classify(m.origin, req, resp) == Basic
}

// storeBack writes rec on a goroutine detached from the request. Errors are
// logged and dropped. Nothing is written once the manager has left Active.
func (m *Manager) storeBack(ctx context.Context, rec *cachestore.Record) {
	ctx = context.WithoutCancel(ctx)
	name := m.BucketName()

	// Clear may have run while the response was on the wire. Checking and
	// counting under mu orders this Add before any Flush that follows a
	// state change.
	m.mu.Lock()
	if m.state != Active {
		st := m.state
		m.mu.Unlock()
		log.WithFields(log.Fields{"bucket": name, "key": rec.Key, "state": st}).Debug("store-back skipped")
		return
	}
	m.pending.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.pending.Done()

		logger := log.WithFields(log.Fields{"bucket": name, "key": rec.Key})
		bucket, err := m.store.Open(ctx, name)
		if err == nil {
			err = bucket.Put(ctx, rec)
		}
		if err != nil {
			logger.WithError(err).Warn("store-back failed")
			return
		}
		logger.Debug("stored")
	}()
}

// Flush blocks until every store-back started so far has settled.
func (m *Manager) Flush() {
	m.pending.Wait()
}

func (m *Manager) record(req *http.Request, resp *http.Response, body []byte) *cachestore.Record {
	return &cachestore.Record{
		Key:      cachestore.RequestKey(req),
		Method:   req.Method,
		URL:      req.URL.String(),
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: m.now().UTC(),
	}
}

// response rebuilds an *http.Response from a stored record.
func response(req *http.Request, rec *cachestore.Record) *http.Response {
	header := rec.Header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", rec.Status, http.StatusText(rec.Status)),
		StatusCode:    rec.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(rec.Body)),
		ContentLength: int64(len(rec.Body)),
		Request:       req,
	}
}
