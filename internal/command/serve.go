// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/manager"
	"github.com/staranto/assetcache/internal/meta"
	"github.com/staranto/assetcache/internal/proxy"
)

// ServeCommandAction brings the cache to Active, installing first when the
// store does not hold the current version, and then serves the origin
// through it until interrupted.
func ServeCommandAction(ctx context.Context, cmd *cli.Command) error {
	s, err := OpenSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := bringUp(ctx, s.Manager); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cmd.String("listen"))
	if err != nil {
		return fmt.Errorf("--listen: %w", err)
	}

	srv := &http.Server{
		Handler:           proxy.New(s.Manager, s.Origin),
		ReadHeaderTimeout: 10 * time.Second, //nolint:mnd
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"listen": ln.Addr().String(),
		"origin": s.Origin.String(),
		"bucket": s.Manager.BucketName(),
	}).Info("serving")
	return serve(ctx, srv, ln, cmd.Duration("drain"))
}

// bringUp runs whatever part of the lifecycle the store has not seen yet.
func bringUp(ctx context.Context, m *manager.Manager) error {
	st, err := m.Restore(ctx)
	if err != nil {
		return err
	}
	if st == manager.Uninstalled {
		if err := m.Install(ctx).Wait(ctx); err != nil {
			return err
		}
	}
	return m.Activate(ctx).Wait(ctx)
}

// serve runs srv on ln until ctx is done, then gives in-flight requests up
// to drain to finish.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, drain time.Duration) error {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drain)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeCommandBuilder constructs the cli.Command for "serve".
func ServeCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "serve",
		Usage:     "serve the origin through the cache",
		UsageText: `assetcache serve [options]`,
		Flags: []cli.Flag{
			NameSpacedValueChainFlagFromConfigFile("serve", meta.Config.Source, &cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "address to listen on",
				Sources: cli.NewValueSourceChain(cli.EnvVar("ASSETCACHE_LISTEN")),
				Value:   ":8080",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator)
				},
			}),
			&cli.DurationFlag{
				Name:  "drain",
				Usage: "how long to wait for in-flight requests on shutdown",
				Value: 10 * time.Second, //nolint:mnd
			},
		},
		Action:  ServeCommandAction,
		Meta:    meta,
		Manager: true,
	}).Build()
}
