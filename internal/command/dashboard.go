// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/dashboard"
	"github.com/staranto/assetcache/internal/meta"
	"github.com/staranto/assetcache/internal/output"
)

// DashboardCommandAction prints the voter metrics. The voter list goes
// through the manager, so an active cache can answer it offline.
func DashboardCommandAction(ctx context.Context, cmd *cli.Command) error {
	s, err := OpenSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.Manager.Restore(ctx); err != nil {
		return err
	}

	m, err := dashboard.Load(ctx, s.Manager, s.Origin, cmd.Int("limit"))
	if err != nil {
		return err
	}
	return output.Spit(m, cmd, Writer(cmd))
}

// DashboardCommandBuilder constructs the cli.Command for "dashboard".
func DashboardCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "dashboard",
		Usage:     "show voter metrics",
		UsageText: `assetcache dashboard [options]`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "number of voters to request",
				Value: dashboard.DefaultLimit,
				Validator: func(value int) error {
					if value < 1 {
						return errors.New("must be at least 1")
					}
					return nil
				},
			},
		},
		Action:  DashboardCommandAction,
		Meta:    meta,
		Manager: true,
	}).Build()
}
