package runtime

import "campaign.ai/internal/sim/orders"

// advanceTo marches toward a fixed region, or toward where a friendly agent
// stood when the order was issued. It never follows a moving friend.
func (r *run) advanceTo() {
	dest := r.o.Destination()
	if dest == "" {
		r.breakOrder("no destination")
		return
	}
	r.dest = dest
	if r.a.Location == dest {
		r.arrive()
		return
	}
	if !r.ensurePath(dest) {
		r.breakOrder("no route to %s", dest)
		return
	}

	if hop, _ := r.o.NextHop(); hop == dest && r.o.AttackOnArrival && r.movesLeft > 0 {
		if hostiles := r.hostilesIn(dest); len(hostiles) > 0 {
			r.assault(hostiles[0].Name)
			return
		}
	}

	res := r.walk()
	switch {
	case res.blocked:
		r.resolveBlocked(res.stopAt)
		if r.alive() && r.a.Interrupt == nil && r.a.Location == dest {
			r.arrive()
		}
		return
	case r.a.Location == dest:
		r.arrive()
		return
	case res.stopAt == dest && r.o.AttackOnArrival && r.movesLeft > 0:
		r.assault(r.hostilesIn(dest)[0].Name)
		return
	case res.stoppedEarly:
		r.continues("moved %d, halted before hostile-held %s", res.moved, res.stopAt)
	case res.failed != "":
		r.continues("halted: %s", res.failed)
	default:
		r.continues("advancing on %s", dest)
	}
}

// assault attacks the defenders of the destination from the adjacent region.
func (r *run) assault(defender string) {
	target := r.env.AgentByName(defender)
	if target == nil {
		r.continues("advancing on %s", r.dest)
		return
	}
	out := r.attack(target)
	if !r.a.Alive() {
		r.breakOrder("destroyed assaulting %s", r.dest)
		return
	}
	if r.a.Location == r.dest {
		r.complete("took %s from %s", r.dest, defender)
		return
	}
	r.continues("assaulted %s at %s: %s", defender, r.dest, describeOutcome(out))
}

func (r *run) arrive() {
	dest := r.dest
	if r.o.AttackOnArrival {
		if hostiles := r.hostilesIn(dest); len(hostiles) > 0 {
			out := r.attack(hostiles[0])
			if !r.a.Alive() {
				r.breakOrder("destroyed attacking at %s", dest)
				return
			}
			r.complete("arrived at %s and attacked %s: %s", dest, hostiles[0].Name, describeOutcome(out))
			return
		}
	}
	if r.o.TargetKind != orders.TargetAgent {
		r.complete("arrived at %s", dest)
		return
	}
	friend := r.env.AgentByName(r.o.Target)
	if friend != nil && friend.Location == dest {
		r.complete("arrived at %s, %s is here", dest, r.o.Target)
		return
	}
	r.complete("arrived at %s, %s has moved on", dest, r.o.Target)
}
