// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/command"
)

// docgen walks the registered commands and generates:
//   - docs/man/share/man1/assetcache-<cmd>.1 via md2man
//   - docs/tldr/assetcache-<cmd>.md from the usage line and flags

func main() {
	var (
		repoRoot           string
		writeOnlyIfChanged bool
	)

	flag.StringVar(&repoRoot, "root", ".", "repo root (default current dir)")
	flag.BoolVar(&writeOnlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	manOutDir := filepath.Join(repoRoot, "docs", "man", "share", "man1")
	tldrOutDir := filepath.Join(repoRoot, "docs", "tldr")

	if err := os.MkdirAll(manOutDir, 0o755); err != nil {
		fatalf("creating man output dir: %v", err)
	}
	if err := os.MkdirAll(tldrOutDir, 0o755); err != nil {
		fatalf("creating tldr output dir: %v", err)
	}

	app, err := command.InitApp(context.Background(), []string{"assetcache"})
	if err != nil {
		fatalf("building commands: %v", err)
	}

	var processed int
	for _, cmd := range app.Commands {
		md := buildMarkdown(cmd)

		manPath := filepath.Join(manOutDir, fmt.Sprintf("assetcache-%s.1", cmd.Name))
		if err := writeFileIfChanged(manPath, md2man.Render([]byte(md)), writeOnlyIfChanged); err != nil {
			fatalf("writing man page for %s: %v", cmd.Name, err)
		}

		tldrPath := filepath.Join(tldrOutDir, fmt.Sprintf("assetcache-%s.md", cmd.Name))
		if err := writeFileIfChanged(tldrPath, []byte(buildTLDR(cmd)), writeOnlyIfChanged); err != nil {
			fatalf("writing TLDR for %s: %v", cmd.Name, err)
		}

		processed++
	}

	if processed == 0 {
		fatalf("no commands registered")
	}
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}

func writeFileIfChanged(path string, new []byte, onlyIfChanged bool) error {
	if !onlyIfChanged {
		return os.WriteFile(path, new, 0o644)
	}
	old, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return os.WriteFile(path, new, 0o644)
		}
		return err
	}
	if bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(new)) {
		return nil
	}
	return os.WriteFile(path, new, 0o644)
}

// flagUsage returns the dashed names and usage text of a flag.
func flagUsage(f cli.Flag) (names, usage string) {
	var dashed []string
	for _, n := range f.Names() {
		if len(n) == 1 {
			dashed = append(dashed, "-"+n)
		} else {
			dashed = append(dashed, "--"+n)
		}
	}
	if d, ok := f.(cli.DocGenerationFlag); ok {
		usage = d.GetUsage()
		if env := d.GetEnvVars(); len(env) > 0 {
			usage += " (env " + strings.Join(env, ", ") + ")"
		}
	}
	return strings.Join(dashed, ", "), usage
}

// buildMarkdown renders a man-page style markdown document for cmd.
func buildMarkdown(cmd *cli.Command) string {
	var b strings.Builder
	fmt.Fprintf(&b, "assetcache-%s 1 \"\" \"\" \"assetcache manual\"\n", cmd.Name)
	b.WriteString("==================================================\n\n")

	b.WriteString("# NAME\n\n")
	fmt.Fprintf(&b, "assetcache-%s - %s\n\n", cmd.Name, cmd.Usage)

	b.WriteString("# SYNOPSIS\n\n")
	usage := cmd.UsageText
	if usage == "" {
		usage = "assetcache " + cmd.Name
	}
	fmt.Fprintf(&b, "`%s`\n\n", usage)

	if len(cmd.Flags) > 0 {
		b.WriteString("# OPTIONS\n\n")
		for _, f := range cmd.Flags {
			names, text := flagUsage(f)
			fmt.Fprintf(&b, "**%s**\n: %s\n\n", names, text)
		}
	}
	return b.String()
}

// buildTLDR renders a tldr page with one help example and one example per
// flag that has no short alias.
func buildTLDR(cmd *cli.Command) string {
	var b strings.Builder
	b.WriteString("# assetcache-" + cmd.Name + "\n\n")
	if cmd.Usage != "" {
		b.WriteString("> " + strings.ToUpper(cmd.Usage[:1]) + cmd.Usage[1:] + ".\n")
	} else {
		b.WriteString("> assetcache " + cmd.Name + "\n")
	}
	b.WriteString("> More information: https://github.com/staranto/assetcache.\n\n")

	b.WriteString("- Run the command:\n\n")
	b.WriteString("`" + sanitizeCommand(cmd.UsageText) + "`\n\n")

	b.WriteString("- Show help for the command:\n\n")
	b.WriteString("`assetcache " + cmd.Name + " --help`\n")
	return b.String()
}

func sanitizeCommand(s string) string {
	// Replace angle-bracket placeholders with {{...}}.
	s = strings.NewReplacer("<", "{{", ">", "}}").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
