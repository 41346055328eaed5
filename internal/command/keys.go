// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/backend"
	"github.com/staranto/assetcache/internal/meta"
)

type keyRow struct {
	Key         string    `json:"key"`
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	Status      int       `json:"status"`
	Size        int       `json:"size"`
	ContentType string    `json:"content_type"`
	StoredAt    time.Time `json:"stored_at"`
}

// KeysCommandAction lists the records of a bucket, the current one by
// default.
func KeysCommandAction(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		mf, err := LoadManifest(cmd)
		if err != nil {
			return err
		}
		name = mf.Version
	}

	store, err := backend.NewBackend(ctx, StoreSpec(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	// Open creates buckets, so look before opening.
	names, err := store.Names(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(names, name) {
		return fmt.Errorf("bucket %q not found", name)
	}

	b, err := store.Open(ctx, name)
	if err != nil {
		return err
	}
	keys, err := b.Keys(ctx)
	if err != nil {
		return err
	}

	rows := make([]keyRow, 0, len(keys))
	for _, k := range keys {
		rec, ok, err := b.Match(ctx, k)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rows = append(rows, keyRow{
			Key:         rec.Key,
			Method:      rec.Method,
			URL:         rec.URL,
			Status:      rec.Status,
			Size:        len(rec.Body),
			ContentType: rec.Header.Get("Content-Type"),
			StoredAt:    rec.StoredAt,
		})
	}

	al, err := BuildAttrs(cmd, "!key", "method", "url", "status", "size::h", "stored_at:age:a")
	if err != nil {
		return err
	}
	return EmitRows(rows, al, cmd)
}

// KeysCommandBuilder constructs the cli.Command for "keys".
func KeysCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "keys",
		Usage:     "list the records in a bucket",
		UsageText: `assetcache keys [bucket] [options]`,
		Flags: []cli.Flag{
			NameSpacedValueChainFlagFromConfigFile("keys", meta.Config.Source, &cli.StringFlag{
				Name:    "manifest",
				Aliases: []string{"m"},
				Usage:   "manifest naming the current bucket",
				Sources: cli.NewValueSourceChain(cli.EnvVar("ASSETCACHE_MANIFEST")),
			}),
		},
		Action: KeysCommandAction,
		Meta:   meta,
		Store:  true,
	}).Build()
}
