// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package dashboard computes the aggregate voter counts shown on the
// campaign dashboard.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// VotersPath is the voter list endpoint on the origin.
	VotersPath = "/api/voters"

	// DefaultLimit is the page size the dashboard asks for.
	DefaultLimit = 10000

	male   = "पुरुष"
	female = "महिला"
)

// ErrBadPayload is returned when the voter list is not the expected JSON.
var ErrBadPayload = errors.New("unexpected voter payload")

// Fetcher performs a request, normally through the cache manager.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Metrics are the dashboard counters.
type Metrics struct {
	Total         int `json:"total" yaml:"total"`
	Male          int `json:"male" yaml:"male"`
	Female        int `json:"female" yaml:"female"`
	Unknown       int `json:"unknown" yaml:"unknown"`
	DonorsReached int `json:"donorsReached" yaml:"donorsReached"`
}

// Load fetches the voter list from origin and computes its metrics. A
// limit <= 0 means DefaultLimit.
func Load(ctx context.Context, f Fetcher, origin *url.URL, limit int) (Metrics, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	u := origin.JoinPath(VotersPath)
	u.RawQuery = url.Values{"limit": {strconv.Itoa(limit)}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Metrics{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return Metrics{}, fmt.Errorf("fetching voters: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Metrics{}, fmt.Errorf("fetching voters: %s answered %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Metrics{}, fmt.Errorf("reading voters: %w", err)
	}
	return Compute(body)
}

// Compute derives Metrics from a voter list payload of the form
// {"results":[{"Gender":"..."}, ...]}.
func Compute(payload []byte) (Metrics, error) {
	if !gjson.ValidBytes(payload) {
		return Metrics{}, ErrBadPayload
	}
	results := gjson.GetBytes(payload, "results")
	if !results.IsArray() {
		return Metrics{}, fmt.Errorf("%w: results is not a list", ErrBadPayload)
	}

	var m Metrics
	results.ForEach(func(_, voter gjson.Result) bool {
		m.Total++
		gender := voter.Get("Gender").String()
		if strings.Contains(gender, male) {
			m.Male++
		}
		if strings.Contains(gender, female) {
			m.Female++
		}
		return true
	})

	m.Unknown = m.Total - m.Male - m.Female
	if m.Total > 0 {
		pct := math.Floor(float64(m.Female)/float64(m.Total)*100 + 0.5)
		m.DonorsReached = min(100, int(pct))
	}
	return m, nil
}
