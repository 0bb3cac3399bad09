package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JanSimek/fallout2-modding/internal/config"
	"github.com/JanSimek/fallout2-modding/internal/errors"
	"github.com/JanSimek/fallout2-modding/internal/index"
)

var (
	resolveIndex  string
	resolveKind   string
	resolveFormat string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "Print the source permalink of an indexed name",
	Long: `Look a name up in a generated index and print the commit-pinned link to its
definition, the way the documentation site renders it.

Examples:
  docindex resolve self_obj
  docindex resolve party_member_count --format json
  docindex resolve PID_TYPE --kind defines`,
	Args: exactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveIndex, "index", "", "Index file (default from config)")
	resolveCmd.Flags().StringVar(&resolveKind, "kind", string(index.Functions), "Index kind (functions, defines)")
	resolveCmd.Flags().StringVar(&resolveFormat, "format", "human", "Output format (human, json, yaml)")
	rootCmd.AddCommand(resolveCmd)
}

// ResolveResponseCLI is one resolved name.
type ResolveResponseCLI struct {
	index.Target `yaml:",inline"`
	Permalink    string `json:"permalink" yaml:"permalink"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(resolveFormat)
	if err != nil {
		return err
	}

	kind := index.Kind(resolveKind)
	if kind != index.Functions && kind != index.Defines {
		return errors.New(errors.InvalidInvocation, fmt.Sprintf("unknown index kind %q", resolveKind), nil, nil)
	}

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	path := resolveIndex
	if path == "" {
		path = ws.cfg.Artifacts.Functions
		if kind == index.Defines {
			path = ws.cfg.Artifacts.Defines
		}
	}

	art, err := index.Load(config.ResolvePath(ws.dir, path), kind)
	if err != nil {
		return err
	}

	target, ok := index.NewResolver(art).Resolve(args[0])
	if !ok {
		return errors.New(errors.SymbolNotFound, fmt.Sprintf("no entry named '%s' in %s", args[0], path), nil, nil)
	}

	repo := art.Meta.Repo
	if repo == "" {
		repo = ws.cfg.Source.Repository
	}
	resp := &ResolveResponseCLI{Target: target, Permalink: index.Permalink(ws.cfg.Source.Host, repo, target)}

	return printReport(cmd, resp, format, func() string {
		return formatResolveHuman(resp)
	})
}
