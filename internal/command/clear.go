// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/meta"
)

// ClearCommandAction deletes every bucket, the current one included.
func ClearCommandAction(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return errors.New("clear deletes every bucket, pass --yes to confirm")
	}

	s, err := OpenSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	deleted, err := s.Manager.Clear(ctx)
	if err != nil {
		return err
	}

	type row struct {
		Name string `json:"name"`
	}
	rows := make([]row, 0, len(deleted))
	for _, name := range deleted {
		rows = append(rows, row{Name: name})
	}

	al, err := BuildAttrs(cmd, "name")
	if err != nil {
		return err
	}
	return EmitRows(rows, al, cmd)
}

// ClearCommandBuilder constructs the cli.Command for "clear".
func ClearCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "clear",
		Usage:     "delete every bucket, including the current one",
		UsageText: `assetcache clear --yes [options]`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "confirm deletion",
				Validator: func(value bool) error {
					return FlagValidators(value, MustBeTrueValidator)
				},
			},
		},
		Action:  ClearCommandAction,
		Meta:    meta,
		Manager: true,
	}).Build()
}
