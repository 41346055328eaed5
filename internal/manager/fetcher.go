// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
)

// Fetcher performs a live network request.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*http.Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

func (f FetcherFunc) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// HTTPFetcher is the default Fetcher. It never retries.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher on a pooled client that does not
// share state with http.DefaultClient.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: cleanhttp.DefaultPooledClient()}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req.WithContext(ctx))
}

// ResponseType says how much the cache may trust a response.
type ResponseType string

const (
	// Basic responses come from the configured origin.
	Basic ResponseType = "basic"
	// Opaque responses come from anywhere else.
	Opaque ResponseType = "opaque"
)

// Classify returns Basic when the final URL of resp (after redirects)
// shares scheme and host with origin.
func Classify(origin *url.URL, req *http.Request, resp *http.Response) ResponseType {
	final := req.URL
	if resp != nil && resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	if sameOrigin(origin, final) {
		return Basic
	}
	return Opaque
}

func sameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
