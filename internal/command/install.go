// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/manager"
	"github.com/staranto/assetcache/internal/meta"
)

// InstallCommandAction fetches every manifest asset into the current bucket.
// A bucket that is already complete is left alone unless --force is given.
func InstallCommandAction(ctx context.Context, cmd *cli.Command) error {
	s, err := OpenSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if !cmd.Bool("force") {
		st, err := s.Manager.Restore(ctx)
		if err != nil {
			return err
		}
		if st != manager.Uninstalled {
			log.Infof("%s is already %s", s.Manager.BucketName(), st)
			return emitStatus(ctx, cmd, s)
		}
	}

	if err := s.Manager.Install(ctx).Wait(ctx); err != nil {
		return err
	}
	return emitStatus(ctx, cmd, s)
}

// InstallCommandBuilder constructs the cli.Command for "install".
func InstallCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "install",
		Usage:     "fetch the manifest into the current bucket",
		UsageText: `assetcache install [options]`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "refetch every asset even if the bucket is complete",
			},
		},
		Action:  InstallCommandAction,
		Meta:    meta,
		Manager: true,
	}).Build()
}
