package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"campaign.ai/internal/persistence/snapshot"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [snapshot]",
	Short: "Summarize a snapshot file",
	Long: `Inspect prints the header, forces and standing orders held in a snapshot.
Without an argument the newest snapshot under --data is used.

Examples:
  campaign inspect data/snapshots/10.snap.zst
  campaign inspect --data ./data --header-only`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().String("data", "data", "runtime data directory")
	inspectCmd.Flags().Bool("header-only", false, "read only the header line")
	inspectCmd.Flags().Bool("json", false, "dump the whole snapshot as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data")
	headerOnly, _ := cmd.Flags().GetBool("header-only")
	asJSON, _ := cmd.Flags().GetBool("json")

	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		path = latestSnapshot(dataDir)
	}
	if path == "" {
		return fmt.Errorf("no snapshot found under %s", dataDir)
	}
	out := cmd.OutOrStdout()

	if headerOnly {
		h, err := snapshot.ReadHeader(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: version %d scenario %s turn %d\n", path, h.Version, h.ScenarioID, h.Turn)
		return nil
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return printSnapshot(out, path, snap)
}

func printSnapshot(out io.Writer, path string, snap snapshot.SnapshotV1) error {
	fmt.Fprintf(out, "%s\n", path)
	fmt.Fprintf(out, "scenario %s  turn %d  regions %d  agents %d  battles %d  next order %d\n\n",
		snap.Header.ScenarioID, snap.Header.Turn, len(snap.Regions), len(snap.Agents), len(snap.Battles), snap.Counters.NextOrder)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tSIDE\tDISPOSITION\tSTR\tLOCATION\tORDER\tTARGET\tPATH\tINTERRUPT")
	for _, a := range snap.Agents {
		kind, target, path, intr := "-", "-", "-", "-"
		if o := a.Order; o != nil {
			kind = o.Kind
			target = o.Target
			if len(o.RemainingPath) > 0 {
				path = strings.Join(o.RemainingPath, ">")
			}
		}
		if in := a.Interrupt; in != nil {
			intr = fmt.Sprintf("%s %v", in.Kind, in.ValidChoices)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			a.Name, a.Side, a.Disposition, a.Strength, a.Location, kind, target, path, intr)
	}
	return tw.Flush()
}
