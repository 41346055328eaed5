// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/meta"
)

// FetchCommandAction requests one path or URL through the manager and
// writes the body to stdout. An active cache answers without the network.
func FetchCommandAction(ctx context.Context, cmd *cli.Command) error {
	target := cmd.Args().First()
	if target == "" {
		return errors.New("fetch needs a path or URL")
	}

	s, err := OpenSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.Manager.Restore(ctx); err != nil {
		return err
	}

	method := strings.ToUpper(cmd.String("method"))
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return err
	}
	for _, h := range cmd.StringSlice("header") {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("--header %q: want Name: value", h)
		}
		req.Header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	resp, err := s.Manager.Fetch(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	w := Writer(cmd)
	if cmd.Bool("include") {
		writeHead(w, resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	return nil
}

// writeHead prints the status line and headers, sorted, then a blank line.
func writeHead(w io.Writer, resp *http.Response) {
	fmt.Fprintf(w, "%s %s\n", resp.Proto, resp.Status)
	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range resp.Header[k] {
			fmt.Fprintf(w, "%s: %s\n", k, v)
		}
	}
	fmt.Fprintln(w)
}

// FetchCommandBuilder constructs the cli.Command for "fetch".
func FetchCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "fetch",
		Usage:     "request a path or URL through the cache",
		UsageText: `assetcache fetch <path|url> [options]`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "method",
				Aliases: []string{"X"},
				Usage:   "request method",
				Value:   http.MethodGet,
			},
			&cli.StringSliceFlag{
				Name:    "header",
				Aliases: []string{"H"},
				Usage:   "request header, Name: value (repeatable)",
			},
			&cli.BoolFlag{
				Name:    "include",
				Aliases: []string{"i"},
				Usage:   "print the status line and headers before the body",
			},
		},
		Action:  FetchCommandAction,
		Meta:    meta,
		Manager: true,
	}).Build()
}
