package runtime

import (
	"fmt"
	"sort"

	"campaign.ai/internal/sim/orders"
	"campaign.ai/internal/sim/tuning"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

// run carries one agent through one engine call.
type run struct {
	env  Env
	tune tuning.Tuning
	turn int

	a *modelpkg.Agent
	o *orders.Order

	// Hops still allowed during this call.
	movesLeft int
	// Region the order steers toward this call, for the report.
	dest string

	rep orders.Report
}

func newRun(env Env, tune tuning.Tuning, a *modelpkg.Agent) *run {
	turn := env.CurrentTurn()
	r := &run{
		env:       env,
		tune:      tune,
		turn:      turn,
		a:         a,
		o:         a.Order,
		movesLeft: MovementBudget(tune, a),
	}
	r.rep = orders.Report{Turn: turn, Agent: a.Name}
	if r.o != nil {
		r.rep.OrderID = r.o.OrderID
		r.rep.OrderKind = r.o.Kind
	}
	return r
}

// MovementBudget is the number of hops a may take per turn.
func MovementBudget(tune tuning.Tuning, a *modelpkg.Agent) int {
	if a != nil && a.Mounted {
		return tune.MountedMovement
	}
	return tune.FootMovement
}

func (r *run) alive() bool {
	return r.o != nil && r.a.Order == r.o
}

func (r *run) continues(format string, args ...any) {
	r.rep.Status = orders.StatusContinues
	r.rep.Message = fmt.Sprintf(format, args...)
}

func (r *run) complete(format string, args ...any) {
	r.rep.Status = orders.StatusCompleted
	r.rep.Message = fmt.Sprintf(format, args...)
	r.a.ClearOrder()
}

func (r *run) breakOrder(format string, args ...any) {
	r.rep.Status = orders.StatusBreaks
	r.rep.Message = fmt.Sprintf(format, args...)
	r.a.ClearOrder()
}

func (r *run) pause(p *orders.PendingInterrupt, format string, args ...any) {
	r.a.Interrupt = p
	r.rep.Status = orders.StatusPaused
	r.rep.Message = fmt.Sprintf(format, args...)
	r.rep.WithInterrupt(p)
}

// newInterrupt builds an interrupt bound to the current order.
func (r *run) newInterrupt(kind orders.InterruptKind) *orders.PendingInterrupt {
	p := &orders.PendingInterrupt{
		Kind:         kind,
		Location:     r.a.Location,
		RaisedTurn:   r.turn,
		ValidChoices: orders.ChoicesFor(kind),
	}
	if r.o != nil {
		p.OrderID = r.o.OrderID
		p.IsFirstStep = r.turn == r.o.IssuedTurn
	}
	return p
}

// finish fills the progress fields of the report.
func (r *run) finish() orders.Report {
	if r.rep.Status == "" {
		r.rep.Status = orders.StatusContinues
	}
	if r.alive() {
		r.rep.Destination = r.dest
		r.rep.DistanceRemaining = len(r.o.RemainingPath)
	}
	return r.rep
}

func (r *run) hostilesIn(region string) []*modelpkg.Agent {
	var out []*modelpkg.Agent
	for _, other := range r.env.AgentsIn(region) {
		if other.Alive() && r.a.HostileTo(other) {
			out = append(out, other)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength > out[j].Strength
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *run) hostileStrength(region string) int {
	total := 0
	for _, h := range r.hostilesIn(region) {
		total += h.Strength
	}
	return total
}

// hostileRegions is every region currently held by a live hostile.
func (r *run) hostileRegions() map[string]bool {
	out := map[string]bool{}
	for _, h := range r.env.HostileAgentsOf(r.a.Side) {
		if h.Alive() {
			out[h.Location] = true
		}
	}
	return out
}

// ensurePath keeps the current path when it still leads from the agent's
// region to dest, and recomputes it otherwise.
func (r *run) ensurePath(dest string) bool {
	r.dest = dest
	if r.pathValid(dest) {
		return true
	}
	path, ok := r.env.ShortestPath(r.a.Location, dest, nil)
	if !ok {
		return false
	}
	r.o.RemainingPath = path
	return true
}

func (r *run) pathValid(dest string) bool {
	p := r.o.RemainingPath
	if len(p) == 0 || p[len(p)-1] != dest {
		return false
	}
	for _, n := range r.env.AdjacentRegions(r.a.Location) {
		if n == p[0] {
			return true
		}
	}
	return false
}

type walkResult struct {
	moved int
	// First hop of this call is hostile-held; nothing moved.
	blocked bool
	// A later hop is hostile-held; partial progress stands.
	stoppedEarly bool
	// Region walking stopped in front of, when blocked or stopped early.
	stopAt string
	failed string
}

// walk advances along the order's path one hop at a time while budget
// remains, refusing to enter hostile-held regions.
func (r *run) walk() walkResult {
	var res walkResult
	for r.movesLeft > 0 {
		hop, ok := r.o.NextHop()
		if !ok {
			break
		}
		if len(r.hostilesIn(hop)) > 0 {
			if res.moved == 0 && r.rep.RegionsMoved == 0 {
				res.blocked = true
			} else {
				res.stoppedEarly = true
			}
			res.stopAt = hop
			break
		}
		out := r.env.Execute(r.a, modelpkg.Action{Kind: modelpkg.ActionMove, Target: hop, Standing: true})
		if !out.OK {
			res.failed = out.Message
			break
		}
		r.rep.AddAction(string(modelpkg.ActionMove), hop)
		r.o.PopHop()
		r.movesLeft--
		res.moved++
		r.rep.RegionsMoved++
	}
	return res
}

// attack engages target and records the fight on the order.
func (r *run) attack(target *modelpkg.Agent) modelpkg.ActionResult {
	from := r.a.Location
	out := r.env.Execute(r.a, modelpkg.Action{Kind: modelpkg.ActionAttack, Target: target.Name, Standing: true})
	r.rep.AddAction(string(modelpkg.ActionAttack), target.Name)
	if !out.OK {
		return out
	}
	r.rep.Combat = true
	if out.Outcome != nil && r.o != nil {
		r.o.RecordCombat(target.Name, r.turn, out.Outcome.Result)
	}
	if out.Advanced && r.a.Location != from {
		r.rep.AddAction(string(modelpkg.ActionMove), r.a.Location)
		r.rep.RegionsMoved++
		if r.movesLeft > 0 {
			r.movesLeft--
		}
		if hop, ok := r.o.NextHop(); ok && hop == r.a.Location {
			r.o.PopHop()
		}
	}
	return out
}

func describeOutcome(out modelpkg.ActionResult) string {
	if out.Outcome == nil {
		if out.Message != "" {
			return out.Message
		}
		return "no result"
	}
	switch {
	case out.DefenderDestroyed:
		return "enemy destroyed"
	case out.Advanced:
		return fmt.Sprintf("%s, position taken", out.Outcome.Result)
	default:
		return string(out.Outcome.Result)
	}
}
