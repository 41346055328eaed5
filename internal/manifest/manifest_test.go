// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	m := Default()
	assert.Equal(t, "em-pwa-v1", m.Version)
	assert.Equal(t, []string{"/", "/index.html", "/manifest.webmanifest"}, m.Assets)
	assert.NoError(t, m.Validate())

	// Mutating the copy must not leak into the package default.
	m.Assets[0] = "/changed"
	assert.Equal(t, "/", DefaultAssets[0])
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		want    Manifest
		wantErr bool
	}{
		{
			name: "valid",
			file: "valid.yaml",
			want: Manifest{
				Version: "dashboard-v7",
				Assets:  []string{"/", "/index.html", "/assets/app.js?v=7"},
			},
		},
		{name: "duplicate", file: "duplicate.yaml", wantErr: true},
		{name: "no version", file: "noversion.yaml", wantErr: true},
		{name: "missing file", file: "nope.yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(filepath.Join("testdata", tt.file))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       Manifest
		wantErr bool
	}{
		{name: "ok", m: Manifest{Version: "v1", Assets: []string{"/a"}}},
		{name: "empty version", m: Manifest{Assets: []string{"/a"}}, wantErr: true},
		{name: "no assets", m: Manifest{Version: "v1"}, wantErr: true},
		{name: "relative", m: Manifest{Version: "v1", Assets: []string{"a.js"}}, wantErr: true},
		{name: "fragment", m: Manifest{Version: "v1", Assets: []string{"/a#top"}}, wantErr: true},
		{name: "protocol relative", m: Manifest{Version: "v1", Assets: []string{"//evil.example/x.js"}}, wantErr: true},
		{name: "dot version", m: Manifest{Version: ".", Assets: []string{"/a"}}, wantErr: true},
		{name: "dot dot version", m: Manifest{Version: "..", Assets: []string{"/a"}}, wantErr: true},
		{name: "leading dot version", m: Manifest{Version: ".v2", Assets: []string{"/a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	origin, err := url.Parse("https://campaign.example:8443/app/")
	require.NoError(t, err)

	m := Manifest{Version: "v1", Assets: []string{"/", "/index.html", "/x?y=1"}}
	urls, err := m.Resolve(origin)
	require.NoError(t, err)

	var got []string
	for _, u := range urls {
		got = append(got, u.String())
	}
	assert.Equal(t, []string{
		"https://campaign.example:8443/",
		"https://campaign.example:8443/index.html",
		"https://campaign.example:8443/x?y=1",
	}, got)

	_, err = m.Resolve(&url.URL{Path: "/relative"})
	assert.Error(t, err)

	// Resolve does not rely on Validate having run.
	off := Manifest{Version: "v1", Assets: []string{"/", "//evil.example/x.js"}}
	_, err = off.Resolve(origin)
	assert.ErrorIs(t, err, ErrInvalid)
}
