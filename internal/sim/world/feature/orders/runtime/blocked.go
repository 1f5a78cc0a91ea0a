package runtime

import (
	"campaign.ai/internal/sim/orders"
	"campaign.ai/internal/sim/world/feature/orders/policy"
)

// resolveBlocked decides what happens when the first hop of this call is
// held by hostiles. It leaves the report in its final state.
func (r *run) resolveBlocked(hop string) {
	blockers := r.hostilesIn(hop)
	if len(blockers) == 0 {
		r.continues("path to %s clear", hop)
		return
	}
	lead := blockers[0]

	switch policy.For(r.a.Disposition).BlockedPath {
	case policy.BlockedPathReroute:
		r.reroute(hop)
		return
	case policy.BlockedPathAttackIfFavourable:
		ratio := strengthRatio(r.a.Strength, r.hostileStrength(hop))
		if ratio > r.tune.AggressiveAttackRatio {
			out := r.attack(lead)
			if !r.a.Alive() {
				r.breakOrder("destroyed attacking %s at %s", lead.Name, hop)
				return
			}
			r.continues("attacked %s blocking %s: %s", lead.Name, hop, describeOutcome(out))
			return
		}
		p := r.newInterrupt(orders.InterruptBlockedPathBadOdds)
		p.Opponent = lead.Name
		p.Location = hop
		r.pause(p, "%s blocks %s at poor odds", lead.Name, hop)
		return
	default:
		p := r.newInterrupt(orders.InterruptBlockedPath)
		p.Opponent = lead.Name
		p.Location = hop
		r.pause(p, "%s blocks the road at %s", lead.Name, hop)
	}
}

// reroute swaps the path for one that avoids every hostile-held region and
// keeps walking on it. Used without asking anyone.
func (r *run) reroute(blockedAt string) {
	if !r.goAround() {
		r.breakOrder("no route to %s avoiding the enemy", r.dest)
		return
	}
	res := r.walk()
	switch {
	case res.blocked || res.stoppedEarly:
		r.continues("halted before hostile-held %s", res.stopAt)
	case res.failed != "":
		r.continues("halted: %s", res.failed)
	default:
		r.continues("rerouted around %s", blockedAt)
	}
}

// goAround recomputes the path to r.dest avoiding every region a hostile
// currently holds, not just the one that blocked.
func (r *run) goAround() bool {
	path, ok := r.env.ShortestPath(r.a.Location, r.dest, r.hostileRegions())
	if !ok {
		return false
	}
	r.o.RemainingPath = path
	return true
}

func strengthRatio(own, enemy int) float64 {
	if enemy <= 0 {
		return float64(own) + 1
	}
	return float64(own) / float64(enemy)
}
