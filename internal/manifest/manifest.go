// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultVersion is the bucket version tag of the built-in manifest. Bump it
// whenever DefaultAssets changes.
const DefaultVersion = "em-pwa-v1"

// DefaultAssets is the built-in install manifest.
var DefaultAssets = []string{
	"/",
	"/index.html",
	"/manifest.webmanifest",
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid manifest")

// Manifest is the versioned, ordered list of assets guaranteed to be cached
// at install time. The version doubles as the name of the cache bucket.
type Manifest struct {
	Version string   `yaml:"version" json:"version"`
	Assets  []string `yaml:"assets" json:"assets"`
}

// Default returns a copy of the built-in manifest.
func Default() Manifest {
	return Manifest{
		Version: DefaultVersion,
		Assets:  append([]string(nil), DefaultAssets...),
	}
}

// Load reads and validates a YAML manifest.
func Load(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	m.Version = strings.TrimSpace(m.Version)

	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks that the manifest names a version and a non-empty list of
// unique absolute paths.
func (m Manifest) Validate() error {
	if m.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalid)
	}
	// The version names a bucket, and stores may map buckets onto paths.
	if m.Version == "." || m.Version == ".." {
		return fmt.Errorf("%w: version %q is reserved", ErrInvalid, m.Version)
	}
	if len(m.Assets) == 0 {
		return fmt.Errorf("%w: no assets", ErrInvalid)
	}

	seen := make(map[string]struct{}, len(m.Assets))
	for _, a := range m.Assets {
		if !strings.HasPrefix(a, "/") || strings.HasPrefix(a, "//") {
			return fmt.Errorf("%w: asset %q must be an absolute path", ErrInvalid, a)
		}
		if strings.Contains(a, "#") {
			return fmt.Errorf("%w: asset %q must not carry a fragment", ErrInvalid, a)
		}
		if _, dup := seen[a]; dup {
			return fmt.Errorf("%w: duplicate asset %q", ErrInvalid, a)
		}
		seen[a] = struct{}{}
	}
	return nil
}

// Resolve returns the absolute URL of every asset against origin, in
// manifest order. An asset that resolves off the origin is an error.
func (m Manifest) Resolve(origin *url.URL) ([]*url.URL, error) {
	if origin == nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("origin must be an absolute URL")
	}

	urls := make([]*url.URL, 0, len(m.Assets))
	for _, a := range m.Assets {
		ref, err := url.Parse(a)
		if err != nil {
			return nil, fmt.Errorf("%w: asset %q: %v", ErrInvalid, a, err)
		}
		u := origin.ResolveReference(ref)
		if !strings.EqualFold(u.Scheme, origin.Scheme) || !strings.EqualFold(u.Host, origin.Host) {
			return nil, fmt.Errorf("%w: asset %q resolves off the origin to %s", ErrInvalid, a, u)
		}
		urls = append(urls, u)
	}
	return urls, nil
}
