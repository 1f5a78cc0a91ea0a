package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"campaign.ai/internal/persistence/indexdb"
	persistlog "campaign.ai/internal/persistence/log"
	"campaign.ai/internal/sim/world"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Read turn reports and operator decisions back from disk",
	Long: `Reports decodes the zstd JSONL turn log (default), the decision log
(--decisions), or queries the sqlite index (--db).

Examples:
  campaign reports --data ./data --from 3 --to 8
  campaign reports --data ./data --decisions
  campaign reports --db data/index.sqlite --agent Ney --status breaks`,
	RunE: runReports,
}

func init() {
	reportsCmd.Flags().String("data", "data", "runtime data directory")
	reportsCmd.Flags().Int("from", 0, "first turn")
	reportsCmd.Flags().Int("to", 0, "last turn (0 = no bound)")
	reportsCmd.Flags().Bool("decisions", false, "read the operator decision log")
	reportsCmd.Flags().String("db", "", "query this sqlite index instead of the logs")
	reportsCmd.Flags().String("agent", "", "index query: agent name")
	reportsCmd.Flags().String("status", "", "index query: report status")
}

func runReports(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data")
	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")
	decisions, _ := cmd.Flags().GetBool("decisions")
	dbPath, _ := cmd.Flags().GetString("db")
	agent, _ := cmd.Flags().GetString("agent")
	status, _ := cmd.Flags().GetString("status")

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)

	if dbPath != "" {
		idx, err := indexdb.OpenSQLite(dbPath)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		rows, err := idx.QueryReports(cmd.Context(), indexdb.ReportFilter{Agent: agent, Status: status, From: from, To: to})
		if err != nil {
			return err
		}
		for _, r := range rows {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		if agent != "" {
			n, err := idx.OpenInterrupts(cmd.Context(), agent)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "# %s: %d unanswered interrupts\n", agent, n)
		}
		return nil
	}

	if decisions {
		return persistlog.ReadDecisions(dataDir, func(d world.DecisionEntry) error {
			if d.Turn < from || (to > 0 && d.Turn > to) {
				return nil
			}
			return enc.Encode(d)
		})
	}
	return printTurns(out, dataDir, from, to)
}

func printTurns(out io.Writer, dataDir string, from, to int) error {
	return persistlog.ReadTurns(dataDir, from, to, func(e world.TurnLogEntry) error {
		fmt.Fprintf(out, "== turn %d (%s) digest %s\n", e.Turn, e.ScenarioID, e.Digest)
		for _, b := range e.Battles {
			fmt.Fprintf(out, "   battle at %s: %v\n", b.Location, b.Participants)
		}
		for _, rep := range e.Reports {
			fmt.Fprintf(out, "   %-12s %-10s %-14s %s\n", rep.Agent, rep.OrderKind, rep.Status, rep.Message)
		}
		return nil
	})
}
