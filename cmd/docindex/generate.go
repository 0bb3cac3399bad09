package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JanSimek/fallout2-modding/internal/config"
	"github.com/JanSimek/fallout2-modding/internal/errors"
	"github.com/JanSimek/fallout2-modding/internal/gate"
	"github.com/JanSimek/fallout2-modding/internal/generate"
	"github.com/JanSimek/fallout2-modding/internal/index"
	"github.com/JanSimek/fallout2-modding/internal/logging"
	"github.com/JanSimek/fallout2-modding/internal/output"
)

// generateFlags are the flags shared by the functions and defines commands.
type generateFlags struct {
	repoPath    string
	yes         bool
	dryRun      bool
	validate    bool
	output      string
	tables      string
	noTimestamp bool
	format      string
	showPatch   bool
	offline     bool
}

func newGenerateCmd(kind index.Kind, short, long string) *cobra.Command {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: short,
		Long:  long,
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, kind, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.repoPath, "repo-path", "", "Index an existing checkout instead of the managed snapshot (never fetched)")
	f.BoolVarP(&flags.yes, "yes", "y", false, "Write without asking for confirmation")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Show the diff but never write")
	f.BoolVar(&flags.validate, "validate", false, "Check the existing artifact for duplicate locations and exit")
	f.StringVar(&flags.output, "output", "", "Artifact path (default from config)")
	f.StringVar(&flags.tables, "tables", "", "Override and dispatch tables file (TOML)")
	f.BoolVar(&flags.noTimestamp, "no-timestamp", false, "Write null instead of the generation time")
	f.StringVar(&flags.format, "format", "human", "Output format (human, json, yaml)")
	f.BoolVar(&flags.showPatch, "show-patch", false, "Print a unified diff of the artifact before the write decision")
	f.BoolVar(&flags.offline, "offline", false, "Do not clone or update the snapshot")
	cmd.MarkFlagsMutuallyExclusive("yes", "dry-run")

	return cmd
}

var functionsCmd = newGenerateCmd(index.Functions,
	"Generate the function index",
	`Scan the snapshot for opcode handlers, engine functions and metarule branches,
resolve each opcode to its script-facing name and update the function index.

Examples:
  docindex functions --dry-run
  docindex functions --yes --no-timestamp
  docindex functions --repo-path ../fallout2-ce --show-patch --dry-run
  docindex functions --validate`)

var definesCmd = newGenerateCmd(index.Defines,
	"Generate the define index",
	`Scan the snapshot for #define constants and function-like macros and update
the define index.

Examples:
  docindex defines --dry-run
  docindex defines --yes --format json`)

func init() {
	rootCmd.AddCommand(functionsCmd)
	rootCmd.AddCommand(definesCmd)
}

func runGenerate(cmd *cobra.Command, kind index.Kind, flags *generateFlags) error {
	format, err := parseFormat(flags.format)
	if err != nil {
		return err
	}

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	if flags.validate {
		return runValidate(cmd, ws, kind, flags.output, format)
	}

	tbl, err := ws.tables(flags.tables)
	if err != nil {
		return err
	}

	ledger := ws.openLedger()
	if ledger != nil {
		defer ledger.Close()
	}

	mode := gate.Interactive
	switch {
	case flags.dryRun:
		mode = gate.Preview
	case flags.yes:
		mode = gate.AutoConfirm
	}

	ctx, cancel := newContext()
	defer cancel()

	styles := ws.styles()
	maxListed := ws.cfg.Display.MaxListed
	shown := false
	var beforeGate func(*generate.Report)
	if format == output.FormatHuman {
		beforeGate = func(r *generate.Report) {
			fmt.Fprint(cmd.OutOrStdout(), formatDiffHuman(r, styles, maxListed))
			shown = true
		}
	}

	report, err := generate.Run(ctx, generate.Options{
		Kind:        kind,
		WorkDir:     ws.dir,
		Config:      ws.cfg,
		Tables:      tbl,
		RepoPath:    flags.repoPath,
		Offline:     flags.offline,
		OutputPath:  flags.output,
		Mode:        mode,
		Confirmer:   gate.NewPromptConfirmer(os.Stdin, os.Stderr),
		NoTimestamp: flags.noTimestamp,
		ShowPatch:   flags.showPatch,
		BeforeGate:  beforeGate,
		Ledger:      ledger,
		Logger:      ws.logger,
	})
	if err != nil {
		if report != nil && errors.Is(err, errors.DuplicateConflict) {
			ws.logger.Error("Index not written", logging.Fields{"kind": string(kind), "output": report.Output})
		}
		return err
	}

	return printReport(cmd, report, format, func() string {
		if shown {
			return formatOutcomeHuman(report, styles)
		}
		return formatDiffHuman(report, styles, maxListed) + formatOutcomeHuman(report, styles)
	})
}

func runValidate(cmd *cobra.Command, ws *workspace, kind index.Kind, outputPath string, format output.Format) error {
	path := outputPath
	if path == "" {
		path = ws.cfg.Artifacts.Functions
		if kind == index.Defines {
			path = ws.cfg.Artifacts.Defines
		}
	}
	path = config.ResolvePath(ws.dir, path)

	conflicts, err := generate.ValidateExisting(path, kind)
	if err != nil && !errors.Is(err, errors.DuplicateConflict) {
		return fmt.Errorf("validating %s: %w", path, err)
	}

	resp := &ValidateResponseCLI{Path: path, Conflicts: conflicts}
	if perr := printReport(cmd, resp, format, func() string {
		return formatValidateHuman(resp, ws.styles())
	}); perr != nil {
		return perr
	}
	return err
}
