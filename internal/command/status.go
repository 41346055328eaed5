// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/meta"
)

// StatusCommandAction reports the lifecycle state derived from the store.
func StatusCommandAction(ctx context.Context, cmd *cli.Command) error {
	s, err := OpenSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.Manager.Restore(ctx); err != nil {
		return err
	}
	return emitStatus(ctx, cmd, s)
}

// StatusCommandBuilder constructs the cli.Command for "status".
func StatusCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "status",
		Usage:     "show the cache state, stale buckets and missing assets",
		UsageText: `assetcache status [options]`,
		Action:    StatusCommandAction,
		Meta:      meta,
		Manager:   true,
	}).Build()
}
