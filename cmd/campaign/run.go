package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	persistlog "campaign.ai/internal/persistence/log"
	"campaign.ai/internal/persistence/snapshot"
	"campaign.ai/internal/sim/orders"
	"campaign.ai/internal/sim/world"
	runtimepkg "campaign.ai/internal/sim/world/feature/orders/runtime"
)

const headlessOperator = "headless"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play a scenario headless for a number of turns",
	Long: `Run steps every side's standing orders turn by turn without an operator.
Interrupts are answered by the --choice policy: "first" takes the first valid
choice, any other value is used whenever the interrupt allows it.

Examples:
  campaign run --scenario configs/scenario.yaml --turns 12
  campaign run --turns 5 --choice hold --json`,
	RunE: runHeadless,
}

func init() {
	runCmd.Flags().String("tuning", "configs/tuning.yaml", "tuning.yaml path")
	runCmd.Flags().String("scenario", "configs/scenario.yaml", "scenario.yaml path")
	runCmd.Flags().String("snapshot", "", "resume from this snapshot file")
	runCmd.Flags().String("data", "", "write turn/decision logs and snapshots here")
	runCmd.Flags().IntP("turns", "n", 10, "turns to play")
	runCmd.Flags().String("choice", "first", "interrupt answer policy")
	runCmd.Flags().Bool("json", false, "print reports as JSON lines")
}

func runHeadless(cmd *cobra.Command, args []string) error {
	tuningPath, _ := cmd.Flags().GetString("tuning")
	scenarioPath, _ := cmd.Flags().GetString("scenario")
	snapPath, _ := cmd.Flags().GetString("snapshot")
	dataDir, _ := cmd.Flags().GetString("data")
	turns, _ := cmd.Flags().GetInt("turns")
	choice, _ := cmd.Flags().GetString("choice")
	asJSON, _ := cmd.Flags().GetBool("json")

	policy, err := parseChoicePolicy(choice)
	if err != nil {
		return err
	}
	tune, err := loadTuning(tuningPath)
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}

	cfg := world.Config{Tuning: tune, Log: logrus.NewEntry(logger)}
	var snapCh chan snapshot.SnapshotV1
	if dataDir != "" {
		turnLog := persistlog.NewTurnLogger(dataDir, tune.LogSegmentTurns)
		decisionLog := persistlog.NewDecisionLogger(dataDir, tune.LogSegmentTurns)
		defer turnLog.Close()
		defer decisionLog.Close()
		snapCh = make(chan snapshot.SnapshotV1, 1)
		cfg.TurnLogger = turnLog
		cfg.DecisionLogger = decisionLog
		cfg.SnapshotSink = snapCh
	}

	w, err := openWorld(cfg, scenarioPath, snapPath)
	if err != nil {
		return err
	}

	r := &headlessRunner{
		w:      w,
		policy: policy,
		out:    cmd.OutOrStdout(),
		json:   asJSON,
		afterTurn: func() {
			select {
			case snap := <-snapCh:
				path := snapshotPath(dataDir, snap.Header.Turn)
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.WithError(err).Warn("snapshot write")
				}
			default:
			}
		},
	}
	sum, err := r.run(turns)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"turns":     sum.Turns,
		"reports":   sum.Reports,
		"answered":  sum.Answered,
		"completed": sum.Completed,
		"breaks":    sum.Breaks,
		"digest":    w.StateDigest(),
	}).Info("headless run finished")
	return nil
}

// choicePolicy picks the answer for an interrupt report.
type choicePolicy func(rep orders.Report) orders.Choice

func parseChoicePolicy(s string) (choicePolicy, error) {
	first := func(rep orders.Report) orders.Choice {
		if len(rep.ValidChoices) == 0 {
			return orders.ChoiceCancel
		}
		return rep.ValidChoices[0]
	}
	if s == "" || s == "first" {
		return first, nil
	}
	want := orders.Choice(s)
	if !want.Valid() {
		return nil, fmt.Errorf("unknown choice %q", s)
	}
	return func(rep orders.Report) orders.Choice {
		for _, c := range rep.ValidChoices {
			if c == want {
				return c
			}
		}
		return first(rep)
	}, nil
}

type runSummary struct {
	Turns     int
	Reports   int
	Answered  int
	Completed int
	Breaks    int
}

type headlessRunner struct {
	w         *world.World
	policy    choicePolicy
	out       io.Writer
	json      bool
	afterTurn func()
}

func (r *headlessRunner) run(turns int) (runSummary, error) {
	var sum runSummary
	for i := 0; i < turns; i++ {
		for _, side := range sides(r.w) {
			if err := r.stepSide(side, &sum); err != nil {
				return sum, err
			}
		}
		res := r.w.Apply(world.Command{Kind: world.CmdEndTurn, Operator: headlessOperator})
		if res.Err != nil {
			return sum, res.Err
		}
		sum.Turns++
		if r.afterTurn != nil {
			r.afterTurn()
		}
	}
	return sum, nil
}

// stepSide alternates orchestrator passes and answers until the side has no
// agent waiting on a decision. Each answer clears one interrupt, so the
// number of passes is bounded by the agent count.
func (r *headlessRunner) stepSide(side string, sum *runSummary) error {
	maxPasses := len(r.w.SortedAgents()) + 1
	for pass := 0; pass < maxPasses; pass++ {
		res := r.w.Apply(world.Command{Kind: world.CmdStep, Side: side, Operator: headlessOperator})
		if err := r.emit(res.Reports, sum); err != nil {
			return err
		}
		rep, ok := awaitingInput(res.Reports)
		if !ok {
			return nil
		}
		choice := r.policy(rep)
		ans := r.w.Apply(world.Command{
			Kind:          world.CmdRespond,
			Operator:      headlessOperator,
			Side:          side,
			Agent:         rep.Agent,
			InterruptKind: rep.InterruptKind,
			Choice:        choice,
		})
		if errors.Is(ans.Err, runtimepkg.ErrStaleInterrupt) {
			// The order changed under the interrupt; it is already cleared.
			continue
		}
		if ans.Err != nil {
			return fmt.Errorf("answer %s %s with %s: %w", rep.Agent, rep.InterruptKind, choice, ans.Err)
		}
		sum.Answered++
		if err := r.emit(ans.Reports, sum); err != nil {
			return err
		}
	}
	return nil
}

func (r *headlessRunner) emit(reps []orders.Report, sum *runSummary) error {
	for _, rep := range reps {
		sum.Reports++
		switch rep.Status {
		case orders.StatusCompleted:
			sum.Completed++
		case orders.StatusBreaks:
			sum.Breaks++
		}
		if r.out == nil {
			continue
		}
		if r.json {
			if err := json.NewEncoder(r.out).Encode(rep); err != nil {
				return err
			}
			continue
		}
		line := fmt.Sprintf("turn %d %-12s %-10s %-14s %s", rep.Turn, rep.Agent, rep.OrderKind, rep.Status, rep.Message)
		if rep.RequiresInput {
			line += fmt.Sprintf(" [%s: %v]", rep.InterruptKind, rep.ValidChoices)
		}
		if _, err := fmt.Fprintln(r.out, line); err != nil {
			return err
		}
	}
	return nil
}

func awaitingInput(reps []orders.Report) (orders.Report, bool) {
	for _, rep := range reps {
		if rep.RequiresInput && rep.InterruptKind != "" {
			return rep, true
		}
	}
	return orders.Report{}, false
}

func sides(w *world.World) []string {
	seen := map[string]bool{}
	var out []string
	for _, a := range w.SortedAgents() {
		if !seen[a.Side] {
			seen[a.Side] = true
			out = append(out, a.Side)
		}
	}
	sort.Strings(out)
	return out
}
