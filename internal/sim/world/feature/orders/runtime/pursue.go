package runtime

import (
	"campaign.ai/internal/sim/orders"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

// pursue chases a hostile agent, re-resolving its location every turn.
func (r *run) pursue() {
	target := r.env.AgentByName(r.o.Target)
	if !target.Alive() {
		r.complete("%s destroyed", r.o.Target)
		return
	}
	dest := target.Location
	r.dest = dest
	if r.a.Location == dest {
		r.engage(target)
		return
	}
	if !r.ensurePath(dest) {
		r.breakOrder("lost contact with %s: no route to %s", target.Name, dest)
		return
	}
	if hop, _ := r.o.NextHop(); hop == dest && r.movesLeft > 0 {
		r.engage(target)
		return
	}

	res := r.walk()
	switch {
	case res.stopAt == dest && r.movesLeft > 0:
		r.engage(target)
	case res.blocked:
		r.resolveBlocked(res.stopAt)
	case res.stoppedEarly:
		r.continues("closing on %s, halted before hostile-held %s", target.Name, res.stopAt)
	case res.failed != "":
		r.continues("halted: %s", res.failed)
	default:
		r.continues("pursuing %s toward %s", target.Name, dest)
	}
}

// engage attacks the pursued target unless the last turn's fight against it
// was inconclusive, in which case the operator decides.
func (r *run) engage(target *modelpkg.Agent) {
	if r.o.FoughtInconclusively(target.Name, r.turn) {
		p := r.newInterrupt(orders.InterruptRepeatedCombat)
		p.Opponent = target.Name
		p.Location = target.Location
		r.pause(p, "fought %s to a %s last turn", target.Name, r.o.LastCombatResult)
		return
	}
	out := r.attack(target)
	if !r.a.Alive() {
		r.breakOrder("destroyed engaging %s", target.Name)
		return
	}
	if out.DefenderDestroyed || !target.Alive() {
		r.complete("%s destroyed", target.Name)
		return
	}
	r.continues("engaged %s: %s", target.Name, describeOutcome(out))
}
