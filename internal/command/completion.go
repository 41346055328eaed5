// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/meta"
	"github.com/staranto/assetcache/internal/output"
)

const bashCompletionHead = `# bash completion for assetcache
_assetcache()
{
    local cur prev cmd opts
    COMPREPLY=()
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "%s --help --version" -- "$cur") )
        return 0
    fi

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "%s" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    case "$cmd" in
`

const bashCompletionTail = `    esac

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _assetcache assetcache
`

const zshCompletionHead = `#compdef assetcache

_assetcache() {
  local -a cmds
  cmds=(
%s  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'assetcache commands' cmds
    return
  fi

  case $words[2] in
`

const zshCompletionTail = `  esac
}

if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _assetcache assetcache
`

// CompletionCommandAction prints a completion script built from the
// commands and flags registered on the root command.
func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := cmd.Args().First()
	if shell == "" {
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			shell = "zsh"
		case strings.HasSuffix(sh, "bash"):
			shell = "bash"
		}
	}

	w := Writer(cmd)
	switch shell {
	case "bash":
		writeBashCompletion(w, cmd.Root())
	case "zsh":
		writeZshCompletion(w, cmd.Root())
	default:
		return fmt.Errorf("usage: %s", cmd.UsageText)
	}
	return nil
}

// flagWords returns every name of every flag, dashed.
func flagWords(c *cli.Command) []string {
	var words []string
	for _, f := range c.Flags {
		for _, n := range f.Names() {
			if len(n) == 1 {
				words = append(words, "-"+n)
			} else {
				words = append(words, "--"+n)
			}
		}
	}
	return words
}

func writeBashCompletion(w io.Writer, root *cli.Command) {
	names := make([]string, 0, len(root.Commands))
	for _, c := range root.Commands {
		names = append(names, c.Name)
	}
	fmt.Fprintf(w, bashCompletionHead, strings.Join(names, " "), strings.Join(output.Formats, " "))
	for _, c := range root.Commands {
		opts := strings.Join(flagWords(c), " ")
		if c.Name == "completion" {
			opts = "bash zsh"
		}
		fmt.Fprintf(w, "        %s)\n            opts=%q\n            ;;\n", c.Name, opts)
	}
	fmt.Fprint(w, bashCompletionTail)
}

func writeZshCompletion(w io.Writer, root *cli.Command) {
	var cmds strings.Builder
	for _, c := range root.Commands {
		fmt.Fprintf(&cmds, "    '%s:%s'\n", c.Name, strings.ReplaceAll(c.Usage, "'", ""))
	}
	fmt.Fprintf(w, zshCompletionHead, cmds.String())
	for _, c := range root.Commands {
		fmt.Fprintf(w, "    %s)\n", c.Name)
		if c.Name == "completion" {
			fmt.Fprint(w, "      _arguments '1: :((bash zsh))'\n      ;;\n")
			continue
		}
		fmt.Fprint(w, "      _arguments -C \\\n")
		for _, f := range c.Flags {
			names := f.Names()
			usage := ""
			if d, ok := f.(cli.DocGenerationFlag); ok {
				usage = strings.NewReplacer("'", "", "[", "(", "]", ")").Replace(d.GetUsage())
			}
			for _, n := range names {
				dash := "--"
				if len(n) == 1 {
					dash = "-"
				}
				fmt.Fprintf(w, "        '%s%s[%s]' \\\n", dash, n, usage)
			}
		}
		fmt.Fprint(w, "        '*::arg:_default'\n      ;;\n")
	}
	fmt.Fprint(w, zshCompletionTail)
}

// CompletionCommandBuilder constructs the cli.Command for "completion".
func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "assetcache completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
