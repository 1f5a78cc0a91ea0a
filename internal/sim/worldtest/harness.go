package worldtest

import (
	"testing"

	"campaign.ai/internal/persistence/snapshot"
	"campaign.ai/internal/sim/orders"
	world "campaign.ai/internal/sim/world"
	runtimepkg "campaign.ai/internal/sim/world/feature/orders/runtime"
)

// Harness drives a world through the same commands the operator endpoint
// sends, on the test goroutine:
// - Issue/Respond/Cancel/Step/EndTurn wrap world.Apply
// - Script replays a fixed command stream per turn
// - Snapshot/Resume round-trip through the snapshot format
//
// It only uses exported APIs so tests can live outside the world package.
type Harness struct {
	T *testing.T
	W *world.World

	cfg world.Config
}

func NewHarness(t *testing.T, cfg world.Config, scen world.Scenario) *Harness {
	t.Helper()

	w, err := world.New(cfg, scen)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return &Harness{T: t, W: w, cfg: cfg}
}

// NewHarnessWithWorld wraps an already-constructed world, e.g. one resumed
// from a snapshot.
func NewHarnessWithWorld(t *testing.T, cfg world.Config, w *world.World) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	return &Harness{T: t, W: w, cfg: cfg}
}

func LoadScenario(t *testing.T, path string) world.Scenario {
	t.Helper()
	s, err := world.LoadScenario(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	return s
}

// Do applies cmd and fails the test on a rejected command.
func (h *Harness) Do(cmd world.Command) world.CommandResult {
	h.T.Helper()
	res := h.W.Apply(cmd)
	if res.Err != nil {
		h.T.Fatalf("%s %s: %v", cmd.Kind, cmd.Agent, res.Err)
	}
	return res
}

func (h *Harness) Issue(agent string, req runtimepkg.IssueRequest) orders.Report {
	h.T.Helper()
	return h.Do(world.Command{Kind: world.CmdIssue, Agent: agent, Issue: req}).Reports[0]
}

func (h *Harness) Respond(agent string, kind orders.InterruptKind, choice orders.Choice) orders.Report {
	h.T.Helper()
	return h.Do(world.Command{Kind: world.CmdRespond, Agent: agent, InterruptKind: kind, Choice: choice}).Reports[0]
}

func (h *Harness) Step(side string) []orders.Report {
	h.T.Helper()
	return h.Do(world.Command{Kind: world.CmdStep, Side: side}).Reports
}

func (h *Harness) EndTurn() int {
	h.T.Helper()
	return h.Do(world.Command{Kind: world.CmdEndTurn}).Turn
}

// Script plays one turn for every side in order, answering each interrupt
// with answer until the side has nothing waiting. It returns the state digest
// after the turn closes.
func (h *Harness) Script(sides []string, answer func(orders.Report) orders.Choice) string {
	h.T.Helper()
	for _, side := range sides {
		for pass := 0; pass <= len(h.W.SortedAgents()); pass++ {
			var waiting *orders.Report
			for _, rep := range h.Step(side) {
				if rep.RequiresInput {
					rep := rep
					waiting = &rep
					break
				}
			}
			if waiting == nil {
				break
			}
			h.Respond(waiting.Agent, waiting.InterruptKind, answer(*waiting))
		}
	}
	h.EndTurn()
	return h.W.StateDigest()
}

// Snapshot exports the current state and its digest.
func (h *Harness) Snapshot() (string, snapshot.SnapshotV1) {
	return h.W.StateDigest(), h.W.ExportSnapshot()
}

// Resume writes snap to disk, reads it back and builds a new harness on it.
func (h *Harness) Resume(snap snapshot.SnapshotV1) *Harness {
	h.T.Helper()
	path := h.T.TempDir() + "/resume.snap.zst"
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		h.T.Fatalf("write snapshot: %v", err)
	}
	back, err := snapshot.ReadSnapshot(path)
	if err != nil {
		h.T.Fatalf("read snapshot: %v", err)
	}
	w, err := world.NewFromSnapshot(h.cfg, back)
	if err != nil {
		h.T.Fatalf("NewFromSnapshot: %v", err)
	}
	return NewHarnessWithWorld(h.T, h.cfg, w)
}

// FirstChoice answers every interrupt with its first offered choice.
func FirstChoice(rep orders.Report) orders.Choice {
	if len(rep.ValidChoices) == 0 {
		return orders.ChoiceCancel
	}
	return rep.ValidChoices[0]
}
