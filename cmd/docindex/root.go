package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/JanSimek/fallout2-modding/internal/config"
	"github.com/JanSimek/fallout2-modding/internal/errors"
	"github.com/JanSimek/fallout2-modding/internal/logging"
	"github.com/JanSimek/fallout2-modding/internal/output"
	"github.com/JanSimek/fallout2-modding/internal/storage"
	"github.com/JanSimek/fallout2-modding/internal/tables"
	"github.com/JanSimek/fallout2-modding/internal/version"
)

var (
	configFlag    string
	logLevelFlag  string
	logFormatFlag string
	noColorFlag   bool

	// commandStarted is set once argument parsing succeeded.
	commandStarted bool
)

var rootCmd = &cobra.Command{
	Use:   "docindex",
	Short: "docindex - commit-pinned symbol indexes for fallout2-ce",
	Long: `docindex scans a checkout of the fallout2-ce engine sources and produces the
function and define indexes used by the documentation site to deep-link script
opcodes, metarules and preprocessor constants into the source at a fixed commit.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commandStarted = true
	},
}

func init() {
	rootCmd.SetVersionTemplate("docindex version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Config file (default: .docindex/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error or silent (default from config)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human or json (default from config)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
}

// workspace is the per-invocation state shared by commands.
type workspace struct {
	dir    string
	cfg    *config.Config
	logger *logging.Logger
}

// loadWorkspace reads and validates the configuration and builds the logger.
// Logs go to stderr so stdout carries only the report.
func loadWorkspace() (*workspace, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	cfg, err := config.LoadConfig(dir, configFlag)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "cannot load configuration", err, nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.New(errors.ConfigInvalid, err.Error(), err, nil)
	}

	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	format := cfg.Logging.Format
	if logFormatFlag != "" {
		format = logFormatFlag
	}

	logger := logging.NewLogger(logging.Config{
		Format: logging.ParseFormat(format),
		Level:  logging.ParseLevel(level),
		Output: os.Stderr,
	})

	return &workspace{dir: dir, cfg: cfg, logger: logger}, nil
}

// tables loads the override and dispatch tables named by path or the config.
func (w *workspace) tables(path string) (*tables.Tables, error) {
	if path == "" {
		path = w.cfg.Tables.Path
	}
	return tables.Load(config.ResolvePath(w.dir, path))
}

// openLedger opens the run ledger. A disabled or unusable ledger returns nil.
func (w *workspace) openLedger() *storage.Ledger {
	if !w.cfg.Ledger.Enabled {
		return nil
	}
	ledger, err := storage.OpenLedger(config.ResolvePath(w.dir, w.cfg.Ledger.Path), w.logger)
	if err != nil {
		w.logger.Warn("Run ledger unavailable", logging.Fields{"error": err.Error()})
		return nil
	}
	return ledger
}

// styles returns the report styles for stdout.
func (w *workspace) styles() output.Styles {
	color := w.cfg.Display.Color && !noColorFlag && os.Getenv("NO_COLOR") == "" &&
		isatty.IsTerminal(os.Stdout.Fd())
	return output.NewStyles(color)
}

// newContext creates a context cancelled by SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// parseFormat maps a --format value to an output format.
func parseFormat(s string) (output.Format, error) {
	f, err := output.ParseFormat(s)
	if err != nil {
		return "", errors.New(errors.InvalidInvocation, err.Error(), nil, nil)
	}
	return f, nil
}

// exactArgs is cobra.ExactArgs reporting INVALID_INVOCATION.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return errors.New(errors.InvalidInvocation, err.Error(), nil, nil)
		}
		return nil
	}
}

// printReport writes a human rendering or an encoded value to stdout.
func printReport(cmd *cobra.Command, v interface{}, format output.Format, human func() string) error {
	if format == output.FormatHuman {
		fmt.Fprint(cmd.OutOrStdout(), human())
		return nil
	}
	out, err := output.Encode(v, format)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
