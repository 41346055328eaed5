// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/attrs"
	"github.com/staranto/assetcache/internal/backend"
	"github.com/staranto/assetcache/internal/cachestore"
	"github.com/staranto/assetcache/internal/manager"
	"github.com/staranto/assetcache/internal/manifest"
	"github.com/staranto/assetcache/internal/meta"
	"github.com/staranto/assetcache/internal/output"
)

// CommandBuilder constructs a cli.Command using a consistent pattern: it
// wires metadata, the output flags, the store flags when asked, and the
// validators.
type CommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta

	// Manager adds the origin, manifest and store flags. Store adds the
	// store flags alone.
	Manager bool
	Store   bool
}

// Build returns a configured cli.Command from the builder.
func (b *CommandBuilder) Build() *cli.Command {
	flags := append([]cli.Flag{}, b.Flags...)
	switch {
	case b.Manager:
		flags = append(flags, NewManagerFlags(b.Name, b.Meta.Config.Source)...)
	case b.Store:
		flags = append(flags, NewStoreFlags(b.Name, b.Meta.Config.Source)...)
	}
	flags = append(flags, NewGlobalFlags(b.Name, b.Meta.Config.Source)...)

	return &cli.Command{
		Name:      b.Name,
		Usage:     b.Usage,
		UsageText: b.UsageText,
		Metadata: map[string]any{
			"meta": b.Meta,
		},
		Flags: flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: b.Action,
	}
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// BuildAttrs constructs an AttrList with defaults and optional extras from
// --attrs, then applies the global transform spec.
func BuildAttrs(cmd *cli.Command, defaults ...string) (attrs.AttrList, error) {
	var al attrs.AttrList
	for _, d := range defaults {
		if err := al.Set(d); err != nil {
			return nil, err
		}
	}
	if extras := cmd.String("attrs"); extras != "" {
		if err := al.Set(extras); err != nil {
			return nil, fmt.Errorf("--attrs: %w", err)
		}
	}
	al.SetGlobalTransformSpec()
	return al, nil
}

// Writer is where command output goes.
func Writer(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}

// EmitRows marshals rows and passes them to the common list output.
func EmitRows(rows any, al attrs.AttrList, cmd *cli.Command) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}
	return output.SliceDiceSpit(raw, al, cmd, Writer(cmd))
}

// StoreSpec reads the store flags.
func StoreSpec(cmd *cli.Command) backend.Spec {
	return backend.Spec{
		Kind:       cmd.String("store"),
		Path:       cmd.String("store-path"),
		S3Bucket:   cmd.String("s3-bucket"),
		S3Prefix:   cmd.String("s3-prefix"),
		S3Endpoint: cmd.String("s3-endpoint"),
		Region:     cmd.String("region"),
		Profile:    cmd.String("profile"),
	}
}

// LoadManifest reads --manifest, or returns the built-in manifest.
func LoadManifest(cmd *cli.Command) (manifest.Manifest, error) {
	path := cmd.String("manifest")
	if path == "" {
		return manifest.Default(), nil
	}
	return manifest.Load(path)
}

// Session is what a manager-backed command works with.
type Session struct {
	Store    cachestore.Store
	Manager  *manager.Manager
	Manifest manifest.Manifest
	Origin   *url.URL
}

// OpenSession opens the store and builds an Uninstalled manager over it.
// Callers Restore when they want the state already in the store.
func OpenSession(ctx context.Context, cmd *cli.Command) (*Session, error) {
	raw := cmd.String("origin")
	if raw == "" {
		return nil, errors.New("--origin is required")
	}
	origin, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("--origin: %w", err)
	}

	mf, err := LoadManifest(cmd)
	if err != nil {
		return nil, err
	}

	store, err := backend.NewBackend(ctx, StoreSpec(cmd))
	if err != nil {
		return nil, err
	}

	mgr, err := manager.New(manager.Options{
		Store:    store,
		Manifest: mf,
		Origin:   origin,
		Fetcher:  fetcher,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	log.Debugf("session: bucket=%s origin=%s store=%s", mgr.BucketName(), origin, cmd.String("store"))

	return &Session{Store: store, Manager: mgr, Manifest: mf, Origin: origin}, nil
}

// fetcher is the network used by sessions. Nil means the manager default.
var fetcher manager.Fetcher

// Close waits for background store-backs and closes the store.
func (s *Session) Close() error {
	s.Manager.Flush()
	return s.Store.Close()
}

// emitStatus prints the manager's status report.
func emitStatus(ctx context.Context, cmd *cli.Command, s *Session) error {
	rpt, err := s.Manager.Status(ctx)
	if err != nil {
		return err
	}
	return output.Spit(rpt, cmd, Writer(cmd))
}
