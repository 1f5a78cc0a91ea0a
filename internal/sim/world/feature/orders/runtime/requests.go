package runtime

import (
	"fmt"
	"sort"

	"campaign.ai/internal/sim/orders"
	"campaign.ai/internal/sim/tuning"
	"campaign.ai/internal/sim/world/feature/orders/conditions"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

// IssueRequest is a validated order as produced by the command layer.
type IssueRequest struct {
	Kind            orders.Kind
	Target          string
	TargetKind      orders.TargetKind
	AttackOnArrival bool
	Condition       *orders.Condition
}

// IssueOrder replaces the agent's order with a new one and takes its first
// step immediately. The orchestrator pass of the same turn only reports on it.
// An unreachable target yields a "breaks" report rather than an error.
func IssueOrder(env Env, tune tuning.Tuning, agentName string, req IssueRequest) (orders.Report, error) {
	if env == nil {
		return orders.Report{}, ErrUnknownAgent
	}
	a := env.AgentByName(agentName)
	if !a.Alive() {
		return orders.Report{}, fmt.Errorf("%w: %s", ErrUnknownAgent, agentName)
	}
	if !req.Kind.Valid() {
		return orders.Report{}, fmt.Errorf("%w: kind %q", ErrInvalidOrder, req.Kind)
	}
	if c := req.Condition; c != nil && c.Expr != "" {
		if err := conditions.Compile(c.Expr); err != nil {
			return orders.Report{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
		}
	}

	turn := env.CurrentTurn()
	o := &orders.Order{
		Kind:             req.Kind,
		Target:           req.Target,
		TargetKind:       req.TargetKind,
		IssuedTurn:       turn,
		StartedTurn:      turn,
		LastAdvancedTurn: turn,
		AttackOnArrival:  req.AttackOnArrival,
	}
	if req.Condition != nil && !req.Condition.Empty() {
		cp := *req.Condition
		o.Condition = &cp
	}
	if o.TargetKind == "" {
		o.TargetKind = orders.TargetGeneric
		if req.Target != "" {
			o.TargetKind = orders.TargetRegion
			if env.AgentByName(req.Target) != nil {
				o.TargetKind = orders.TargetAgent
			}
		}
	}
	if err := resolveTarget(env, a, o); err != nil {
		return orders.Report{}, err
	}
	o.OrderID = env.NewOrderID()

	a.ClearOrder()
	a.Order = o

	r := newRun(env, tune, a)
	r.dispatch()
	return r.finish(), nil
}

// resolveTarget checks the target against the order kind and pins down
// generic targets and snapshot locations.
func resolveTarget(env Env, a *modelpkg.Agent, o *orders.Order) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidOrder, fmt.Sprintf(format, args...))
	}

	switch o.TargetKind {
	case orders.TargetRegion:
		if !env.RegionExists(o.Target) {
			return invalid("unknown region %q", o.Target)
		}
		if o.Kind != orders.KindAdvanceTo && o.Kind != orders.KindHold {
			return invalid("%s needs an agent target", o.Kind)
		}
		return nil

	case orders.TargetAgent:
		t := env.AgentByName(o.Target)
		if !t.Alive() {
			return invalid("unknown agent %q", o.Target)
		}
		if t == a {
			return invalid("%s cannot target itself", a.Name)
		}
		hostile := a.HostileTo(t)
		switch o.Kind {
		case orders.KindAdvanceTo:
			if hostile {
				return invalid("advance target %s is hostile, use pursue", t.Name)
			}
			o.SnapshotLocation = t.Location
		case orders.KindPursue:
			if !hostile {
				return invalid("pursue target %s is not hostile", t.Name)
			}
		case orders.KindSupport:
			if hostile {
				return invalid("support target %s is hostile", t.Name)
			}
		case orders.KindHold:
			return invalid("hold needs a region")
		}
		return nil

	case orders.TargetGeneric:
		switch o.Kind {
		case orders.KindHold:
			o.Target = a.Location
			o.TargetKind = orders.TargetRegion
		case orders.KindPursue:
			t := nearest(env, a, func(other *modelpkg.Agent) bool { return a.HostileTo(other) })
			if t == nil {
				return invalid("no hostile to pursue")
			}
			o.Target = t.Name
			o.TargetKind = orders.TargetAgent
		case orders.KindSupport:
			t := nearest(env, a, func(other *modelpkg.Agent) bool { return other != a && !a.HostileTo(other) })
			if t == nil {
				return invalid("no ally to support")
			}
			o.Target = t.Name
			o.TargetKind = orders.TargetAgent
		default:
			return invalid("%s needs a target", o.Kind)
		}
		return nil
	}
	return invalid("target kind %q", o.TargetKind)
}

// nearest picks the live agent matching keep with the fewest hops from a,
// ties broken by name. Unreachable agents are ignored.
func nearest(env Env, a *modelpkg.Agent, keep func(*modelpkg.Agent) bool) *modelpkg.Agent {
	type cand struct {
		agent *modelpkg.Agent
		dist  int
	}
	var cands []cand
	for _, other := range env.SortedAgents() {
		if !other.Alive() || !keep(other) {
			continue
		}
		if other.Location == a.Location {
			cands = append(cands, cand{other, 0})
			continue
		}
		path, ok := env.ShortestPath(a.Location, other.Location, nil)
		if !ok {
			continue
		}
		cands = append(cands, cand{other, len(path)})
	}
	if len(cands) == 0 {
		return nil
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].agent.Name < cands[j].agent.Name
	})
	return cands[0].agent
}

// CancelOrder clears the agent's order and any pending interrupt in one
// step. Cancelling is free while the pending interrupt was raised on the
// order's first step.
func CancelOrder(env Env, tune tuning.Tuning, agentName string) (orders.Report, error) {
	if env == nil {
		return orders.Report{}, ErrUnknownAgent
	}
	a := env.AgentByName(agentName)
	if a == nil {
		return orders.Report{}, fmt.Errorf("%w: %s", ErrUnknownAgent, agentName)
	}
	if a.Order == nil {
		return orders.Report{}, fmt.Errorf("%w: %s", ErrNoOrder, agentName)
	}
	r := newRun(env, tune, a)
	penalty := cancelPenalty(tune, a.Interrupt)
	a.Reputation -= penalty
	r.rep.ReputationDelta = -penalty
	r.breakOrder("order cancelled")
	return r.finish(), nil
}
