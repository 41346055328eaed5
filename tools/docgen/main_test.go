// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func sampleCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "request a path or URL through the cache",
		UsageText: "assetcache fetch <path|url> [options]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "method", Aliases: []string{"X"}, Usage: "request method"},
			&cli.StringFlag{Name: "origin", Usage: "origin", Sources: cli.EnvVars("ASSETCACHE_ORIGIN")},
		},
	}
}

func TestBuildMarkdown(t *testing.T) {
	md := buildMarkdown(sampleCommand())
	assert.Contains(t, md, "assetcache-fetch - request a path or URL through the cache")
	assert.Contains(t, md, "`assetcache fetch <path|url> [options]`")
	assert.Contains(t, md, "**--method, -X**\n: request method")
	assert.Contains(t, md, "(env ASSETCACHE_ORIGIN)")
}

func TestBuildTLDR(t *testing.T) {
	tldr := buildTLDR(sampleCommand())
	assert.Contains(t, tldr, "# assetcache-fetch\n")
	assert.Contains(t, tldr, "> Request a path or URL through the cache.\n")
	assert.Contains(t, tldr, "`assetcache fetch {{path|url}} [options]`")
	assert.Contains(t, tldr, "`assetcache fetch --help`")
}

func TestWriteFileIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.1")
	require.NoError(t, writeFileIfChanged(path, []byte("one\n"), true))

	info, err := os.Stat(path)
	require.NoError(t, err)

	// Whitespace-only differences are not a change.
	require.NoError(t, writeFileIfChanged(path, []byte("one"), true))
	again, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())

	require.NoError(t, writeFileIfChanged(path, []byte("two"), true))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}
