// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/manager"
	"github.com/staranto/assetcache/internal/meta"
)

// ActivateCommandAction evicts every bucket but the current one.
func ActivateCommandAction(ctx context.Context, cmd *cli.Command) error {
	s, err := OpenSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.Manager.Restore(ctx)
	if err != nil {
		return err
	}
	if st == manager.Uninstalled {
		return fmt.Errorf("%s is not installed, run install first: %w", s.Manager.BucketName(), manager.ErrInvalidState)
	}

	if err := s.Manager.Activate(ctx).Wait(ctx); err != nil {
		return err
	}
	return emitStatus(ctx, cmd, s)
}

// ActivateCommandBuilder constructs the cli.Command for "activate".
func ActivateCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "activate",
		Usage:     "evict stale buckets and take control of requests",
		UsageText: `assetcache activate [options]`,
		Action:    ActivateCommandAction,
		Meta:      meta,
		Manager:   true,
	}).Build()
}
