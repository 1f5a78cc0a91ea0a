package runtime

import (
	"fmt"
	"sort"

	"campaign.ai/internal/sim/orders"
	"campaign.ai/internal/sim/tuning"
	"campaign.ai/internal/sim/world/feature/orders/conditions"
	"campaign.ai/internal/sim/world/feature/orders/interrupts"
	"campaign.ai/internal/sim/world/feature/orders/policy"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

// RunOrdersSystem advances every standing order of the acting side by one
// turn's worth, agents in name order. It stops after the first report that
// needs operator input; the remaining agents are picked up by the next call.
// Agents that already advanced this turn are skipped without a report.
func RunOrdersSystem(env Env, tune tuning.Tuning, in SystemInput) []orders.Report {
	if env == nil {
		return nil
	}
	turn := env.CurrentTurn()

	agents := append([]*modelpkg.Agent(nil), env.SortedAgents()...)
	sort.SliceStable(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })

	var out []orders.Report
	for _, a := range agents {
		if a.Order == nil || (in.Side != "" && a.Side != in.Side) {
			continue
		}
		o := a.Order

		if o.IssuedTurn == turn {
			// One status line per turn; a pending decision is repeated until answered.
			if a.Interrupt == nil && o.StatusReportedTurn == turn {
				continue
			}
			o.StatusReportedTurn = turn
			rep := activeReport(env, a)
			out = append(out, rep)
			if rep.RequiresInput {
				break
			}
			continue
		}
		if a.Interrupt != nil {
			out = append(out, awaitingReport(turn, a))
			break
		}
		if o.LastAdvancedTurn == turn {
			continue
		}

		rep := advanceOrder(env, tune, a)
		out = append(out, rep)
		if rep.RequiresInput {
			break
		}
	}
	return out
}

func activeReport(env Env, a *modelpkg.Agent) orders.Report {
	o := a.Order
	rep := orders.Report{
		Turn:              env.CurrentTurn(),
		Agent:             a.Name,
		OrderID:           o.OrderID,
		OrderKind:         o.Kind,
		Status:            orders.StatusContinues,
		Message:           "order active",
		Destination:       o.Destination(),
		DistanceRemaining: len(o.RemainingPath),
	}
	if a.Interrupt != nil {
		rep.Status = orders.StatusAwaitingInput
		rep.Message = fmt.Sprintf("awaiting decision: %s", a.Interrupt.Kind)
		rep.WithInterrupt(a.Interrupt)
	}
	return rep
}

func awaitingReport(turn int, a *modelpkg.Agent) orders.Report {
	o := a.Order
	rep := orders.Report{
		Turn:              turn,
		Agent:             a.Name,
		OrderID:           o.OrderID,
		OrderKind:         o.Kind,
		Status:            orders.StatusAwaitingInput,
		Message:           fmt.Sprintf("awaiting decision: %s", a.Interrupt.Kind),
		Destination:       o.Destination(),
		DistanceRemaining: len(o.RemainingPath),
	}
	rep.WithInterrupt(a.Interrupt)
	return rep
}

// advanceOrder runs one agent's order for this turn: condition, then cannon
// fire, then the handler for its kind.
func advanceOrder(env Env, tune tuning.Tuning, a *modelpkg.Agent) orders.Report {
	r := newRun(env, tune, a)
	r.o.LastAdvancedTurn = r.turn

	ok, reason, err := conditions.Evaluate(env, r.o, a)
	if err != nil {
		r.breakOrder("condition failed: %v", err)
		return r.finish()
	}
	if ok {
		r.complete("%s", reason)
		return r.finish()
	}

	if d, found := interrupts.DetectCannonFire(env, a, tune.CannonFireRadius); found {
		a.IgnoreBattlesUntil = r.turn
		if d.Response == policy.CannonFireInvestigate {
			r.investigate(d.Battle.Location)
			return r.finish()
		}
		p := interrupts.CannonFireInterrupt(r.o, d, r.turn)
		r.pause(p, "cannon fire at %s", d.Battle.Location)
		return r.finish()
	}

	r.dispatch()
	return r.finish()
}

func (r *run) dispatch() {
	switch r.o.Kind {
	case orders.KindAdvanceTo:
		r.advanceTo()
	case orders.KindPursue:
		r.pursue()
	case orders.KindHold:
		r.hold()
	case orders.KindSupport:
		r.support()
	default:
		r.breakOrder("unknown order kind %q", r.o.Kind)
	}
}

// investigate abandons the order and marches on a battle: one hop toward it,
// or an attack when the next region (or this one) holds hostiles.
func (r *run) investigate(location string) {
	r.breakOrder("abandoned order to investigate cannon fire at %s", location)
	r.o = nil
	r.dest = location

	if r.a.Location == location {
		if hostiles := r.hostilesIn(location); len(hostiles) > 0 {
			out := r.attack(hostiles[0])
			r.rep.Message += fmt.Sprintf("; attacked %s: %s", hostiles[0].Name, describeOutcome(out))
		}
		return
	}
	path, ok := r.env.ShortestPath(r.a.Location, location, nil)
	if !ok || len(path) == 0 {
		r.rep.Message += "; no route"
		return
	}
	hop := path[0]
	if hostiles := r.hostilesIn(hop); len(hostiles) > 0 {
		out := r.attack(hostiles[0])
		r.rep.Message += fmt.Sprintf("; attacked %s: %s", hostiles[0].Name, describeOutcome(out))
		return
	}
	out := r.env.Execute(r.a, modelpkg.Action{Kind: modelpkg.ActionMove, Target: hop, Standing: true})
	if out.OK {
		r.rep.AddAction(string(modelpkg.ActionMove), hop)
		r.rep.RegionsMoved++
		r.rep.Message += fmt.Sprintf("; moved to %s", hop)
	}
}
