package runtime

import (
	"campaign.ai/internal/sim/orders"
	"campaign.ai/internal/sim/world/feature/orders/policy"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

// support joins a friendly agent at its live location and stays with it
// until it is secure.
func (r *run) support() {
	ally := r.env.AgentByName(r.o.Target)
	if !ally.Alive() {
		r.breakOrder("%s lost", r.o.Target)
		return
	}
	dest := ally.Location
	r.dest = dest

	if r.a.Location != dest {
		if policy.For(r.a.Disposition).AllyRelocating == policy.AllyRelocatingAsk &&
			!r.o.FollowConfirmed && inMotion(ally) {
			p := r.newInterrupt(orders.InterruptAllyRelocating)
			p.Ally = ally.Name
			p.Location = dest
			r.pause(p, "%s is on the move", ally.Name)
			return
		}
		if !r.ensurePath(dest) {
			r.breakOrder("no route to %s", ally.Name)
			return
		}
		res := r.walk()
		if res.blocked {
			r.resolveBlocked(res.stopAt)
			if !r.alive() || r.a.Interrupt != nil || r.a.Location != dest {
				return
			}
		}
		if r.a.Location != dest {
			switch {
			case res.stoppedEarly:
				r.continues("moving to support %s, halted before hostile-held %s", ally.Name, res.stopAt)
			case res.failed != "":
				r.continues("halted: %s", res.failed)
			default:
				r.continues("moving to support %s", ally.Name)
			}
			return
		}
	}
	r.o.RemainingPath = nil

	if c := r.o.Condition; c != nil && c.UntilDecisive &&
		ally.LastCombatResult.Decisive() && ally.LastCombatTurn >= r.o.StartedTurn {
		r.complete("%s's fight concluded", ally.Name)
		return
	}
	if !r.threatened(ally) {
		r.complete("%s secure", ally.Name)
		return
	}
	r.continues("supporting %s", ally.Name)
}

// inMotion reports whether the ally's own order will still move it.
func inMotion(ally *modelpkg.Agent) bool {
	o := ally.Order
	if o == nil {
		return false
	}
	switch o.Kind {
	case orders.KindPursue, orders.KindSupport:
		return true
	default:
		return ally.Location != o.Destination()
	}
}

// threatened reports hostile presence in or next to the ally's region.
func (r *run) threatened(ally *modelpkg.Agent) bool {
	if len(r.hostilesIn(ally.Location)) > 0 {
		return true
	}
	for _, n := range r.env.AdjacentRegions(ally.Location) {
		if len(r.hostilesIn(n)) > 0 {
			return true
		}
	}
	return false
}
