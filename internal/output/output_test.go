// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package output

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/staranto/assetcache/internal/attrs"
)

// withCommand runs fn inside a command that carries the output flags.
func withCommand(t *testing.T, args []string, fn func(cmd *cli.Command) error) {
	t.Helper()
	cmd := &cli.Command{
		Name: "test",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Value: "text"},
			&cli.StringFlag{Name: "filter"},
			&cli.StringFlag{Name: "sort"},
			&cli.BoolFlag{Name: "color"},
			&cli.BoolFlag{Name: "titles"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return fn(cmd)
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...)))
}

const records = `[
	{"key":"GET https://campaign.example/app.js","status":200,"size":20480},
	{"key":"GET https://campaign.example/","status":200,"size":512},
	{"key":"GET https://campaign.example/gone","status":404,"size":0}
]`

func recordAttrs(t *testing.T) attrs.AttrList {
	t.Helper()
	var al attrs.AttrList
	require.NoError(t, al.Set("key,!status,size::h"))
	return al
}

func TestSliceDiceSpit_JSON(t *testing.T) {
	var buf bytes.Buffer
	withCommand(t, []string{"--output", "json", "--filter", "status=200", "--sort", "-size"}, func(cmd *cli.Command) error {
		return SliceDiceSpit([]byte(records), recordAttrs(t), cmd, &buf)
	})

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []map[string]interface{}{
		{"key": "GET https://campaign.example/app.js", "size": "20 kB"},
		{"key": "GET https://campaign.example/", "size": "512 B"},
	}, got)
}

func TestSliceDiceSpit_YAML(t *testing.T) {
	var buf bytes.Buffer
	withCommand(t, []string{"--output", "yaml", "--sort", "key"}, func(cmd *cli.Command) error {
		return SliceDiceSpit([]byte(records), recordAttrs(t), cmd, &buf)
	})

	var got []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "GET https://campaign.example/", got[0]["key"])
	assert.Equal(t, "GET https://campaign.example/gone", got[2]["key"])
	assert.NotContains(t, got[0], "status")
}

func TestSliceDiceSpit_Text(t *testing.T) {
	var buf bytes.Buffer
	withCommand(t, []string{"--titles", "--sort", "key"}, func(cmd *cli.Command) error {
		return SliceDiceSpit([]byte(records), recordAttrs(t), cmd, &buf)
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "key")
	assert.Contains(t, lines[0], "size")
	assert.NotContains(t, lines[0], "status")
	assert.Contains(t, lines[1], "GET https://campaign.example/")
	assert.Contains(t, lines[1], "512 B")
	assert.Contains(t, lines[2], "/app.js")
	assert.Contains(t, lines[3], "/gone")
}

func TestSliceDiceSpit_Empty(t *testing.T) {
	var buf bytes.Buffer
	withCommand(t, nil, func(cmd *cli.Command) error {
		return SliceDiceSpit([]byte(`[]`), recordAttrs(t), cmd, &buf)
	})
	assert.Empty(t, buf.String())
}

func TestSliceDiceSpit_Invalid(t *testing.T) {
	withCommand(t, nil, func(cmd *cli.Command) error {
		assert.Error(t, SliceDiceSpit([]byte(`[{`), recordAttrs(t), cmd, nil))
		return nil
	})
}

func TestSpit(t *testing.T) {
	v := struct {
		State  string   `json:"state" yaml:"state"`
		Stale  []string `json:"stale" yaml:"stale"`
		Counts int      `json:"records" yaml:"records"`
	}{State: "active", Stale: []string{"em-pwa-v0"}, Counts: 3}

	var buf bytes.Buffer
	withCommand(t, nil, func(cmd *cli.Command) error {
		return Spit(v, cmd, &buf)
	})
	out := buf.String()
	assert.Contains(t, out, "state")
	assert.Contains(t, out, "active")
	assert.Contains(t, out, `["em-pwa-v0"]`)
	assert.Contains(t, out, "3")

	buf.Reset()
	withCommand(t, []string{"--output", "json"}, func(cmd *cli.Command) error {
		return Spit(v, cmd, &buf)
	})
	assert.JSONEq(t, `{"state":"active","stale":["em-pwa-v0"],"records":3}`, buf.String())

	buf.Reset()
	withCommand(t, []string{"--output", "yaml"}, func(cmd *cli.Command) error {
		return Spit(v, cmd, &buf)
	})
	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, map[string]interface{}{
		"state":   "active",
		"stale":   []interface{}{"em-pwa-v0"},
		"records": 3,
	}, got)
	assert.True(t, strings.HasPrefix(buf.String(), "state: active\n"))
}

func TestSortDataset(t *testing.T) {
	testData := []map[string]interface{}{
		{"name": "zebra", "count": 3.0, "bucket": "em-pwa-v1"},
		{"name": "alpha", "count": 1.0, "bucket": "Em-pwa-v0"},
		{"name": "Beta", "count": 2.0, "bucket": "em-pwa-v1"},
	}

	tests := []struct {
		name      string
		spec      string
		wantOrder []string
	}{
		{"ascending by name", "name", []string{"alpha", "Beta", "zebra"}},
		{"descending by name", "-name", []string{"zebra", "Beta", "alpha"}},
		{"ascending by count", "count", []string{"alpha", "Beta", "zebra"}},
		{"descending by count", "-count", []string{"zebra", "Beta", "alpha"}},
		{"case sensitive", "!name", []string{"Beta", "alpha", "zebra"}},
		{"multiple fields", "bucket,-count", []string{"alpha", "zebra", "Beta"}},
		{"empty spec", "", []string{"zebra", "alpha", "Beta"}},
		{"missing key keeps order", "nope", []string{"zebra", "alpha", "Beta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]map[string]interface{}, len(testData))
			copy(data, testData)
			SortDataset(data, tt.spec)
			for i, expectedName := range tt.wantOrder {
				assert.Equal(t, expectedName, data[i]["name"], "at index %d", i)
			}
		})
	}
}

func TestInterfaceToString(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		emptyVal string
		want     string
	}{
		{name: "string", value: "hello", want: "hello"},
		{name: "int", value: 42, want: "42"},
		{name: "float64", value: 200.0, want: "200"},
		{name: "float64 rounds", value: 42.7, want: "43"},
		{name: "bool true", value: true, want: "true"},
		{name: "bool false is zero value", value: false, want: ""},
		{name: "nil default", value: nil, want: ""},
		{name: "nil custom", value: nil, emptyVal: "-", want: "-"},
		{name: "slice", value: []string{"a", "b"}, want: `["a","b"]`},
		{name: "map", value: map[string]int{"x": 1}, want: `{"x":1}`},
		{name: "zero value with custom empty", value: 0, emptyVal: "N/A", want: "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			if tt.emptyVal != "" {
				got = InterfaceToString(tt.value, tt.emptyVal)
			} else {
				got = InterfaceToString(tt.value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetColors(t *testing.T) {
	header, even, odd := getColors("colors")
	assert.Equal(t, "#f6be00", header)
	assert.Equal(t, "#ffffff", even)
	assert.Equal(t, "#00c8f0", odd)
}
