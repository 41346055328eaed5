// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/staranto/assetcache/internal/backend"
)

// isTerminal reports whether stdout is a terminal. Color defaults on there.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// NewGlobalFlags returns the output flags shared by every command. ns is the
// command name and config namespace, cfgPath the config file.
func NewGlobalFlags(ns, cfgPath string) (flags []cli.Flag) {
	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "attrs",
			Aliases: []string{"a"},
			Usage:   "comma-separated list of attributes to include in results",
		},
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"color", altsrc.StringSourcer(cfgPath)),
				yaml.YAML("color", altsrc.StringSourcer(cfgPath)),
			),
			Value: isTerminal(),
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format (text, json, yaml)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("ASSETCACHE_OUTPUT"),
				yaml.YAML(ns+"."+"output", altsrc.StringSourcer(cfgPath)),
				yaml.YAML("output", altsrc.StringSourcer(cfgPath)),
			),
			Value: "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"sort", altsrc.StringSourcer(cfgPath)),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"titles", altsrc.StringSourcer(cfgPath)),
				yaml.YAML("titles", altsrc.StringSourcer(cfgPath)),
			),
			Value: false,
		},
	}

	return
}

// NewStoreFlags returns the flags that locate the store. Each one can also
// come from the environment or from the config file, namespaced first.
func NewStoreFlags(ns, cfgPath string) []cli.Flag {
	flags := []*cli.StringFlag{
		{
			Name:    "store",
			Usage:   "cache store kind (memory, file, sqlite, s3)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ASSETCACHE_STORE")),
			Value:   backend.KindLocal,
			Validator: func(value string) error {
				return FlagValidators(value, StoreValidator)
			},
		},
		{
			Name:    "store-path",
			Usage:   "file store directory or sqlite database file",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ASSETCACHE_STORE_PATH")),
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		{
			Name:    "s3-bucket",
			Usage:   "S3 bucket holding the s3 store",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ASSETCACHE_S3_BUCKET")),
		},
		{
			Name:    "s3-prefix",
			Usage:   "key prefix of the s3 store",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ASSETCACHE_S3_PREFIX")),
			Value:   "assetcache",
		},
		{
			Name:  "s3-endpoint",
			Usage: "S3 endpoint override, for S3-compatible services",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("ASSETCACHE_S3_ENDPOINT"),
				cli.EnvVar("AWS_ENDPOINT_URL_S3"),
			),
		},
		{
			Name:  "region",
			Usage: "AWS region of the s3 store",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("AWS_REGION"),
				cli.EnvVar("AWS_DEFAULT_REGION"),
			),
		},
		{
			Name:    "profile",
			Usage:   "AWS shared config profile",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AWS_PROFILE")),
		},
	}

	out := make([]cli.Flag, 0, len(flags))
	for _, f := range flags {
		out = append(out, NameSpacedValueChainFlagFromConfigFile(ns, cfgPath, f))
	}
	return out
}

// NewManagerFlags returns NewStoreFlags plus the origin and manifest.
func NewManagerFlags(ns, cfgPath string) []cli.Flag {
	origin := &cli.StringFlag{
		Name:    "origin",
		Usage:   "origin the cached assets are fetched from",
		Sources: cli.NewValueSourceChain(cli.EnvVar("ASSETCACHE_ORIGIN")),
		Validator: func(value string) error {
			return FlagValidators(value, JammedFlagValidator, OriginValidator)
		},
	}
	manifest := &cli.StringFlag{
		Name:    "manifest",
		Aliases: []string{"m"},
		Usage:   "YAML manifest of assets to install (default: built-in app shell)",
		Sources: cli.NewValueSourceChain(cli.EnvVar("ASSETCACHE_MANIFEST")),
		Validator: func(value string) error {
			return FlagValidators(value, JammedFlagValidator)
		},
	}

	return append([]cli.Flag{
		NameSpacedValueChainFlagFromConfigFile(ns, cfgPath, origin),
		NameSpacedValueChainFlagFromConfigFile(ns, cfgPath, manifest),
	}, NewStoreFlags(ns, cfgPath)...)
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}
