// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/assetcache/internal/backend/local"
	"github.com/staranto/assetcache/internal/command"
	"github.com/staranto/assetcache/internal/config"
	mylog "github.com/staranto/assetcache/internal/log"
	"github.com/staranto/assetcache/internal/meta"
)

var ctx = context.Background()

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(meta.Version)
			return 0
		}
	}

	if !strings.HasPrefix(args[1], "-") {
		if _, err := config.Load(args[1]); err != nil {
			log.WithError(err).Debug("no config file")
		}
		args = mangleArguments(args)
	}

	// Best-effort: pre-create the cache directory the file store defaults to.
	if _, ok, err := local.EnsureBaseDir(); err != nil && ok {
		fmt.Fprintln(os.Stderr, err)
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}

// mangleArguments expands an arg set from the config file into args. An
// arg of the form @name is replaced by the list at <command>.name. With no
// @name present, <command>.defaults is inserted right after the command.
func mangleArguments(args []string) []string {
	preamble := make([]string, 2)
	copy(preamble, args[:2])

	// Help is help, whatever else was typed.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return append(preamble, "--help")
		}
	}

	idx := 2
	set := "defaults"
	rest := append([]string{}, args[2:]...)
	for i, a := range rest {
		if strings.HasPrefix(a, "@") && len(a) > 1 {
			set = a[1:]
			idx += i
			rest = append(rest[:i], rest[i+1:]...)
			break
		}
	}

	setArgs, err := config.GetStringSlice(args[1] + "." + set)
	if err != nil && set != "defaults" {
		log.WithError(err).Warnf("arg set @%s not found", set)
	}

	var expanded []string
	for _, arg := range setArgs {
		expanded = append(expanded, strings.Fields(arg)...)
	}

	out := append(preamble, rest[:idx-2]...)
	out = append(out, expanded...)
	out = append(out, rest[idx-2:]...)

	log.Debugf("set=%s, args=%v", set, out)
	return out
}
