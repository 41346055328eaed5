// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/config"
	"github.com/staranto/assetcache/internal/meta"
)

// InitApp builds the root command. The arg following the binary is the
// subcommand and also the namespace used for config lookups.
func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	sd, _ := os.Getwd()

	// arg[1] could be -h/--help, so ignore it if it looks like a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, err := config.Load(ns)
	if err != nil {
		log.WithError(err).Debug("no config file")
	}
	meta := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		StartingDir: sd,
	}

	app := &cli.Command{
		Name:  "assetcache",
		Usage: "offline asset cache manager",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "assetcache version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		ActivateCommandBuilder(meta),
		BucketsCommandBuilder(meta),
		ClearCommandBuilder(meta),
		DashboardCommandBuilder(meta),
		FetchCommandBuilder(meta),
		InstallCommandBuilder(meta),
		KeysCommandBuilder(meta),
		ServeCommandBuilder(meta),
		StatusCommandBuilder(meta),
		CompletionCommandBuilder(meta),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
