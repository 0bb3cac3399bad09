package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JanSimek/fallout2-modding/internal/config"
	"github.com/JanSimek/fallout2-modding/internal/errors"
	"github.com/JanSimek/fallout2-modding/internal/storage"
)

var explainFormat string

var explainCmd = &cobra.Command{
	Use:   "explain <name>",
	Short: "Show how a canonical name was derived",
	Long: `Report which source decided the most recently recorded alias for a name:
an override table entry, a comment, a registration call, the name transform or
the fixed dispatch table.

Examples:
  docindex explain self_obj
  docindex explain party_member_count --format yaml`,
	Args: exactArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVar(&explainFormat, "format", "human", "Output format (human, json, yaml)")
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(explainFormat)
	if err != nil {
		return err
	}

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	ledger, err := openLedgerStrict(ws)
	if err != nil {
		return err
	}
	defer ledger.Close()

	origin, err := ledger.LatestOrigin(args[0])
	if err != nil {
		return err
	}
	if origin == nil {
		return errors.New(errors.SymbolNotFound, fmt.Sprintf("no recorded alias named '%s'", args[0]), nil, nil)
	}

	return printReport(cmd, origin, format, func() string {
		return formatExplainHuman(origin, ws.styles())
	})
}

// openLedgerStrict opens the ledger for the read-only commands, where a
// missing ledger is an error rather than a warning.
func openLedgerStrict(ws *workspace) (*storage.Ledger, error) {
	if !ws.cfg.Ledger.Enabled {
		return nil, errors.New(errors.ConfigInvalid, "run ledger is disabled", nil, nil)
	}
	ledger, err := storage.OpenLedger(config.ResolvePath(ws.dir, ws.cfg.Ledger.Path), ws.logger)
	if err != nil {
		return nil, fmt.Errorf("opening run ledger: %w", err)
	}
	return ledger, nil
}
