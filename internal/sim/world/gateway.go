package world

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"campaign.ai/internal/protocol"
	"campaign.ai/internal/sim/combat"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

// Execute performs one atomic action for a. Standing-order actions are not
// charged against the agent's per-turn action and skip the action economy
// entirely; anything else is limited to one action per agent per turn.
func (w *World) Execute(a *modelpkg.Agent, act modelpkg.Action) modelpkg.ActionResult {
	if !a.Alive() || w.agents[a.Name] != a {
		return fail(protocol.ErrNotFound, "agent not in play")
	}
	if !act.Standing {
		if a.ActionsThisTurn >= 1 {
			return fail(protocol.ErrRateLimit, "action already taken this turn")
		}
	}

	var res modelpkg.ActionResult
	switch act.Kind {
	case modelpkg.ActionMove:
		res = w.applyMove(a, act.Target)
	case modelpkg.ActionAttack:
		res = w.applyAttack(a, act.Target)
	case modelpkg.ActionFortify:
		res = w.applyFortify(a)
	default:
		return fail(protocol.ErrBadRequest, fmt.Sprintf("unknown action %q", act.Kind))
	}
	if res.OK && !act.Standing {
		a.ActionsThisTurn++
	}
	return res
}

func fail(code, msg string) modelpkg.ActionResult {
	return modelpkg.ActionResult{Code: code, Message: msg}
}

func (w *World) applyMove(a *modelpkg.Agent, to string) modelpkg.ActionResult {
	if !w.RegionExists(to) {
		return fail(protocol.ErrInvalidTarget, fmt.Sprintf("unknown region %q", to))
	}
	if !w.adjacent(a.Location, to) {
		return fail(protocol.ErrInvalidTarget, fmt.Sprintf("%s is not adjacent to %s", to, a.Location))
	}
	if a.Holding {
		return fail(protocol.ErrConflict, fmt.Sprintf("%s is holding %s", a.Name, a.Location))
	}
	if w.hostileIn(a, to) {
		return fail(protocol.ErrBlocked, fmt.Sprintf("%s is held by the enemy", to))
	}
	from := a.Location
	a.Location = to
	a.Fortified = false
	return modelpkg.ActionResult{
		OK:     true,
		Events: []string{fmt.Sprintf("%s moved %s -> %s", a.Name, from, to)},
	}
}

func (w *World) applyFortify(a *modelpkg.Agent) modelpkg.ActionResult {
	if a.Fortified {
		return modelpkg.ActionResult{OK: true, Message: "already fortified"}
	}
	a.Fortified = true
	return modelpkg.ActionResult{
		OK:     true,
		Events: []string{fmt.Sprintf("%s fortified %s", a.Name, a.Location)},
	}
}

// applyAttack resolves a fight against a hostile in the attacker's region or
// a neighbouring one. Losses, battle ledger, combat memory and removal of
// destroyed agents all happen here. A winner that attacked across a border
// takes the region once no hostile is left in it.
func (w *World) applyAttack(a *modelpkg.Agent, targetName string) modelpkg.ActionResult {
	d := w.agents[targetName]
	if !d.Alive() {
		return fail(protocol.ErrNotFound, fmt.Sprintf("no such target %q", targetName))
	}
	if !a.HostileTo(d) {
		return fail(protocol.ErrInvalidTarget, fmt.Sprintf("%s is not hostile", d.Name))
	}
	if d.Location != a.Location && !w.adjacent(a.Location, d.Location) {
		return fail(protocol.ErrInvalidTarget, fmt.Sprintf("%s is out of reach", d.Name))
	}

	bonus := d.DefenseBonus
	if d.Fortified {
		bonus += w.tune.FortifyDefenseBonus
	}
	out := w.resolver.Resolve(
		combat.Side{Name: a.Name, Strength: a.Strength},
		combat.Side{Name: d.Name, Strength: d.Strength, DefenseBonus: bonus},
	)
	a.Strength = max(0, a.Strength-out.AttackerLosses)
	d.Strength = max(0, d.Strength-out.DefenderLosses)

	where := d.Location
	w.battles = append(w.battles, modelpkg.Battle{
		Location:     where,
		Participants: []string{a.Name, d.Name},
		Result:       out.Result,
	})
	a.LastCombatOpponent, a.LastCombatTurn, a.LastCombatResult = d.Name, w.turn, out.Result
	d.LastCombatOpponent, d.LastCombatTurn, d.LastCombatResult = a.Name, w.turn, out.Result.Invert()

	res := modelpkg.ActionResult{
		OK:      true,
		Outcome: &out,
		Events: []string{fmt.Sprintf("%s attacked %s at %s: %s (-%d/-%d)",
			a.Name, d.Name, where, out.Result, out.AttackerLosses, out.DefenderLosses)},
	}
	if !d.Alive() {
		w.removeAgent(d, "destroyed by "+a.Name)
		res.DefenderDestroyed = true
		res.Events = append(res.Events, d.Name+" destroyed")
	}
	if !a.Alive() {
		w.removeAgent(a, "destroyed attacking "+d.Name)
		res.Events = append(res.Events, a.Name+" destroyed")
		return res
	}
	if out.Result == combat.ResultWin && !a.Holding && a.Location != where && !w.hostileIn(a, where) {
		a.Location = where
		a.Fortified = false
		res.Advanced = true
		res.Events = append(res.Events, fmt.Sprintf("%s took %s", a.Name, where))
	}

	w.log.WithFields(logrus.Fields{
		"turn":     w.turn,
		"attacker": a.Name,
		"defender": d.Name,
		"region":   where,
		"result":   out.Result,
	}).Debug("battle resolved")
	return res
}

func (w *World) removeAgent(a *modelpkg.Agent, reason string) {
	delete(w.agents, a.Name)
	a.ClearOrder()
	w.log.WithFields(logrus.Fields{"turn": w.turn, "agent": a.Name}).Info(reason)
}
