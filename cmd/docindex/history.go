package main

import (
	"github.com/spf13/cobra"

	"github.com/JanSimek/fallout2-modding/internal/errors"
	"github.com/JanSimek/fallout2-modding/internal/storage"
)

var (
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded generation runs",
	Long: `Show the most recent runs from the run ledger with their revision, outcome and
diff counts.

Examples:
  docindex history
  docindex history --limit 5 --format json`,
	Args: exactArgs(0),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs (0 for all)")
	historyCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (human, json, yaml)")
	rootCmd.AddCommand(historyCmd)
}

// HistoryResponseCLI lists ledger runs, newest first.
type HistoryResponseCLI struct {
	Runs []storage.Run `json:"runs" yaml:"runs"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(historyFormat)
	if err != nil {
		return err
	}
	if historyLimit < 0 {
		return errors.New(errors.InvalidInvocation, "--limit must not be negative", nil, nil)
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

	runs, err := ledger.Runs(historyLimit)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []storage.Run{}
	}

	resp := &HistoryResponseCLI{Runs: runs}
	return printReport(cmd, resp, format, func() string {
		return formatHistoryHuman(resp, ws.styles())
	})
}
