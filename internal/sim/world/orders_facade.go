package world

import (
	"github.com/sirupsen/logrus"

	"campaign.ai/internal/sim/orders"
	runtimepkg "campaign.ai/internal/sim/world/feature/orders/runtime"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

type ordersWorldEnv struct {
	w *World
}

func (e ordersWorldEnv) CurrentTurn() int                        { return e.w.CurrentTurn() }
func (e ordersWorldEnv) SortedAgents() []*modelpkg.Agent         { return e.w.SortedAgents() }
func (e ordersWorldEnv) AgentByName(name string) *modelpkg.Agent { return e.w.AgentByName(name) }
func (e ordersWorldEnv) RegionExists(region string) bool         { return e.w.RegionExists(region) }
func (e ordersWorldEnv) AdjacentRegions(region string) []string  { return e.w.AdjacentRegions(region) }
func (e ordersWorldEnv) ShortestPath(from, to string, avoid map[string]bool) ([]string, bool) {
	return e.w.ShortestPath(from, to, avoid)
}
func (e ordersWorldEnv) AgentsIn(region string) []*modelpkg.Agent { return e.w.AgentsIn(region) }
func (e ordersWorldEnv) HostileAgentsOf(side string) []*modelpkg.Agent {
	return e.w.HostileAgentsOf(side)
}
func (e ordersWorldEnv) BattlesRecordedThisTurn() []modelpkg.Battle {
	return e.w.BattlesRecordedThisTurn()
}
func (e ordersWorldEnv) Execute(a *modelpkg.Agent, act modelpkg.Action) modelpkg.ActionResult {
	return e.w.Execute(a, act)
}
func (e ordersWorldEnv) NewOrderID() string { return e.w.newOrderID() }

// IssueOrder gives agentName a new standing order; the first step is taken
// immediately.
func (w *World) IssueOrder(agentName string, req runtimepkg.IssueRequest) (orders.Report, error) {
	rep, err := runtimepkg.IssueOrder(ordersWorldEnv{w: w}, w.tune, agentName, req)
	if err != nil {
		return rep, err
	}
	w.recordReports(rep)
	return rep, nil
}

// RespondInterrupt applies an operator decision to a pending interrupt.
func (w *World) RespondInterrupt(agentName string, kind orders.InterruptKind, choice orders.Choice) (orders.Report, error) {
	rep, err := runtimepkg.Respond(ordersWorldEnv{w: w}, w.tune, agentName, kind, choice)
	if err != nil {
		return rep, err
	}
	w.recordReports(rep)
	return rep, nil
}

func (w *World) CancelOrder(agentName string) (orders.Report, error) {
	rep, err := runtimepkg.CancelOrder(ordersWorldEnv{w: w}, w.tune, agentName)
	if err != nil {
		return rep, err
	}
	w.recordReports(rep)
	return rep, nil
}

// StepOrders runs one orchestrator pass for side (every side when empty).
// It may be called again after the operator answers an interrupt; orders that
// already advanced this turn are skipped.
func (w *World) StepOrders(side string) []orders.Report {
	reps := runtimepkg.RunOrdersSystem(ordersWorldEnv{w: w}, w.tune, runtimepkg.SystemInput{Side: side})
	w.recordReports(reps...)
	return reps
}

// PendingInterrupts lists agents waiting on an operator decision, by name.
func (w *World) PendingInterrupts() []orders.Report {
	var out []orders.Report
	for _, a := range w.SortedAgents() {
		if a.Interrupt == nil || a.Order == nil {
			continue
		}
		rep := orders.Report{
			Turn:      w.turn,
			Agent:     a.Name,
			OrderID:   a.Order.OrderID,
			OrderKind: a.Order.Kind,
			Status:    orders.StatusAwaitingInput,
			Message:   "awaiting operator decision",
		}
		rep.WithInterrupt(a.Interrupt)
		out = append(out, rep)
	}
	return out
}

func (w *World) recordReports(reps ...orders.Report) {
	for _, r := range reps {
		w.turnReports = append(w.turnReports, r)
		fields := logrus.Fields{"turn": r.Turn, "agent": r.Agent, "order": r.OrderID, "status": r.Status}
		switch r.Status {
		case orders.StatusBreaks, orders.StatusPaused, orders.StatusAwaitingInput:
			if r.InterruptKind != "" {
				fields["interrupt"] = r.InterruptKind
			}
			w.log.WithFields(fields).Info(r.Message)
		default:
			w.log.WithFields(fields).Debug(r.Message)
		}
	}
}

// TurnReports returns the reports produced since the turn began.
func (w *World) TurnReports() []orders.Report {
	return append([]orders.Report(nil), w.turnReports...)
}
