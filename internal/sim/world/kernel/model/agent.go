package model

import (
	"campaign.ai/internal/sim/combat"
	"campaign.ai/internal/sim/orders"
)

type Agent struct {
	Name        string
	Side        string
	Disposition orders.Disposition
	Mounted     bool

	Strength   int
	Location   string
	Reputation int

	// At most one of each; the engine replaces, never stacks.
	Order     *orders.Order
	Interrupt *orders.PendingInterrupt

	// Hold state. Written by the hold handler, cleared whenever the order ends.
	Holding      bool
	DefenseBonus int

	// Set by the fortify action, cleared by any move.
	Fortified bool

	// Battles are not reported to this agent while turn <= IgnoreBattlesUntil.
	IgnoreBattlesUntil int

	// Last engagement this agent took part in, written by the action gateway.
	LastCombatOpponent string
	LastCombatTurn     int
	LastCombatResult   combat.Result

	// Actions charged against the normal per-turn economy.
	ActionsThisTurn int
}

func (a *Agent) HostileTo(other *Agent) bool {
	if a == nil || other == nil {
		return false
	}
	return a.Side != other.Side
}

func (a *Agent) Alive() bool {
	return a != nil && a.Strength > 0
}

// ClearOrder drops the order, its interrupt and every flag whose lifetime is
// bound to the order.
func (a *Agent) ClearOrder() {
	a.Order = nil
	a.Interrupt = nil
	a.Holding = false
	a.DefenseBonus = 0
}

func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Order = a.Order.Clone()
	cp.Interrupt = a.Interrupt.Clone()
	return &cp
}
