// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/backend"
	"github.com/staranto/assetcache/internal/meta"
)

type bucketRow struct {
	Name    string `json:"name"`
	Current bool   `json:"current"`
	Records int    `json:"records"`
}

// BucketsCommandAction lists every bucket in the store.
func BucketsCommandAction(ctx context.Context, cmd *cli.Command) error {
	mf, err := LoadManifest(cmd)
	if err != nil {
		return err
	}

	store, err := backend.NewBackend(ctx, StoreSpec(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	names, err := store.Names(ctx)
	if err != nil {
		return err
	}

	rows := make([]bucketRow, 0, len(names))
	for _, name := range names {
		b, err := store.Open(ctx, name)
		if err != nil {
			return err
		}
		keys, err := b.Keys(ctx)
		if err != nil {
			return err
		}
		rows = append(rows, bucketRow{Name: name, Current: name == mf.Version, Records: len(keys)})
	}
	log.Debugf("buckets: %d", len(rows))

	al, err := BuildAttrs(cmd, "name", "current", "records")
	if err != nil {
		return err
	}
	return EmitRows(rows, al, cmd)
}

// BucketsCommandBuilder constructs the cli.Command for "buckets".
func BucketsCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "buckets",
		Usage:     "list cache buckets",
		UsageText: `assetcache buckets [options]`,
		Flags: []cli.Flag{
			NameSpacedValueChainFlagFromConfigFile("buckets", meta.Config.Source, &cli.StringFlag{
				Name:    "manifest",
				Aliases: []string{"m"},
				Usage:   "manifest naming the current bucket",
				Sources: cli.NewValueSourceChain(cli.EnvVar("ASSETCACHE_MANIFEST")),
			}),
		},
		Action: BucketsCommandAction,
		Meta:   meta,
		Store:  true,
	}).Build()
}
