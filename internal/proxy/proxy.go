// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package proxy serves HTTP by forwarding every request through a cache
// manager onto the configured origin.
package proxy

import (
	"context"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/apex/log"
)

// Fetcher is the part of the manager the handler needs.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Hop-by-hop headers are meaningful for a single connection only.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Handler rewrites incoming requests onto Origin and answers them through
// Fetcher.
type Handler struct {
	Fetcher Fetcher
	Origin  *url.URL
}

// New returns a Handler.
func New(f Fetcher, origin *url.URL) *Handler {
	return &Handler{Fetcher: f, Origin: origin}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out := h.outbound(ctx, r)
	logger := log.WithFields(log.Fields{"method": out.Method, "url": out.URL.String()})

	resp, err := h.Fetcher.Fetch(ctx, out)
	if err != nil {
		logger.WithError(err).Warn("upstream failed")
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	dst := w.Header()
	for k, vv := range resp.Header {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	removeHopHeaders(dst)
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.WithError(err).Debug("copying body")
	}
	logger.WithField("status", resp.StatusCode).Debug("served")
}

// outbound clones r with its URL moved onto the origin.
func (h *Handler) outbound(ctx context.Context, r *http.Request) *http.Request {
	out := r.Clone(ctx)
	out.RequestURI = ""
	out.Host = ""

	u := *h.Origin
	u.Path = r.URL.Path
	u.RawPath = r.URL.RawPath
	u.RawQuery = r.URL.RawQuery
	u.Fragment = ""
	out.URL = &u

	if r.ContentLength == 0 {
		out.Body = http.NoBody
	}
	removeHopHeaders(out.Header)
	return out
}

// removeHopHeaders drops the fixed hop-by-hop set and any header named in
// Connection.
func removeHopHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = textproto.TrimString(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, k := range hopHeaders {
		h.Del(k)
	}
}
