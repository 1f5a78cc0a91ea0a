package runtime

import (
	"campaign.ai/internal/sim/world/feature/orders/policy"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

// hold marches to the hold region, then keeps it according to disposition.
func (r *run) hold() {
	dest := r.o.Target
	r.dest = dest
	if r.a.Location != dest {
		r.a.Holding = false
		r.a.DefenseBonus = 0
		if !r.ensurePath(dest) {
			r.breakOrder("no route to %s", dest)
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
				r.continues("marching to hold %s, halted before hostile-held %s", dest, res.stopAt)
			case res.failed != "":
				r.continues("halted: %s", res.failed)
			default:
				r.continues("marching to hold %s", dest)
			}
			return
		}
	}
	r.o.RemainingPath = nil

	switch policy.For(r.a.Disposition).HoldStance {
	case policy.HoldImmovable:
		r.a.Holding = true
		r.a.DefenseBonus = r.tune.HoldDefenseBonus
		r.continues("holding %s", dest)
	case policy.HoldFortify:
		if !r.a.Fortified {
			out := r.env.Execute(r.a, modelpkg.Action{Kind: modelpkg.ActionFortify, Standing: true})
			if out.OK {
				r.rep.AddAction(string(modelpkg.ActionFortify), "")
			}
		}
		r.continues("holding %s, fortified", dest)
	default:
		if r.rep.RegionsMoved > 0 {
			r.continues("holding %s", dest)
			return
		}
		r.sortie()
	}
}

// sortie strikes the adjacent hostile it outmatches most, if the odds
// are at least even, then returns to the hold region in the same turn.
func (r *run) sortie() {
	home := r.a.Location
	var (
		best      *modelpkg.Agent
		bestRatio float64
	)
	for _, region := range r.env.AdjacentRegions(home) {
		for _, h := range r.hostilesIn(region) {
			ratio := strengthRatio(r.a.Strength, h.Strength+h.DefenseBonus)
			if ratio < r.tune.SortieMinRatio {
				continue
			}
			if best == nil || ratio > bestRatio {
				best = h
				bestRatio = ratio
			}
		}
	}
	if best == nil {
		r.continues("holding %s", home)
		return
	}

	out := r.attack(best)
	if !r.a.Alive() {
		r.breakOrder("destroyed in a sortie against %s", best.Name)
		return
	}
	if r.a.Location != home {
		back := r.env.Execute(r.a, modelpkg.Action{Kind: modelpkg.ActionMove, Target: home, Standing: true})
		if back.OK {
			r.rep.AddAction(string(modelpkg.ActionMove), home)
		}
	}
	// A sortie never counts as progress.
	r.rep.RegionsMoved = 0
	r.continues("sortie against %s: %s, holding %s", best.Name, describeOutcome(out), home)
}
