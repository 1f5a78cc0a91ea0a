package runtime

import (
	"fmt"

	"campaign.ai/internal/sim/orders"
	"campaign.ai/internal/sim/tuning"
)

// Respond applies an operator decision to the agent's pending interrupt.
// Rejected choices leave the agent untouched. A valid choice clears the
// interrupt before its effect runs.
func Respond(env Env, tune tuning.Tuning, agentName string, kind orders.InterruptKind, choice orders.Choice) (orders.Report, error) {
	if env == nil {
		return orders.Report{}, ErrUnknownAgent
	}
	a := env.AgentByName(agentName)
	if a == nil {
		return orders.Report{}, fmt.Errorf("%w: %s", ErrUnknownAgent, agentName)
	}
	p := a.Interrupt
	if p == nil {
		return orders.Report{}, fmt.Errorf("%w: %s", ErrNoInterrupt, agentName)
	}
	// A dangling interrupt is dropped whatever the answer was.
	if a.Order == nil || a.Order.OrderID != p.OrderID {
		a.Interrupt = nil
		return orders.Report{}, fmt.Errorf("%w: %s", ErrStaleInterrupt, agentName)
	}
	if p.Kind != kind {
		return orders.Report{}, fmt.Errorf("%w: pending %s, got %s", ErrInterruptMismatch, p.Kind, kind)
	}
	if !p.Allows(choice) {
		return orders.Report{}, fmt.Errorf("%w: %q for %s", ErrInvalidChoice, choice, kind)
	}

	a.Interrupt = nil
	r := newRun(env, tune, a)

	switch choice {
	case orders.ChoiceInvestigate:
		r.investigate(p.Location)
	case orders.ChoiceContinue:
		a.Reputation -= tune.ContinuePenalty
		r.rep.ReputationDelta = -tune.ContinuePenalty
		a.IgnoreBattlesUntil = r.turn
		r.o.LastAdvancedTurn = r.turn
		r.movesLeft = 1
		r.dispatch()
	case orders.ChoiceHold, orders.ChoiceCancel:
		penalty := cancelPenalty(tune, p)
		a.Reputation -= penalty
		r.rep.ReputationDelta = -penalty
		r.breakOrder("order %s on operator decision", cancelVerb(choice))
	case orders.ChoiceAttack, orders.ChoiceAttackAnyway:
		r.o.LastAdvancedTurn = r.turn
		r.attackOpponent(p)
	case orders.ChoiceGoAround:
		r.o.LastAdvancedTurn = r.turn
		r.dest = r.o.Destination()
		if r.o.Kind == orders.KindPursue || r.o.Kind == orders.KindSupport {
			if t := env.AgentByName(r.o.Target); t.Alive() {
				r.dest = t.Location
			}
		}
		if r.dest == "" {
			r.dest = p.Location
		}
		r.reroute(p.Location)
	case orders.ChoiceFollow:
		r.o.FollowConfirmed = true
		r.o.LastAdvancedTurn = r.turn
		r.dispatch()
	default:
		return orders.Report{}, fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}
	return r.finish(), nil
}

// attackOpponent engages the interrupt's opponent and keeps the order.
func (r *run) attackOpponent(p *orders.PendingInterrupt) {
	target := r.env.AgentByName(p.Opponent)
	if !target.Alive() {
		r.continues("%s is gone", p.Opponent)
		return
	}
	out := r.attack(target)
	if !r.a.Alive() {
		r.breakOrder("destroyed attacking %s", target.Name)
		return
	}
	if !out.OK {
		r.continues("attack on %s failed: %s", target.Name, out.Message)
		return
	}
	if r.o.Kind == orders.KindPursue && (out.DefenderDestroyed || !target.Alive()) {
		r.complete("%s destroyed", target.Name)
		return
	}
	r.continues("attacked %s: %s", target.Name, describeOutcome(out))
}

// cancelPenalty is free when the interrupt came on the order's first step.
func cancelPenalty(tune tuning.Tuning, p *orders.PendingInterrupt) int {
	if p != nil && p.IsFirstStep {
		return 0
	}
	return tune.CancelPenalty
}

func cancelVerb(c orders.Choice) string {
	if c == orders.ChoiceHold {
		return "halted"
	}
	return "cancelled"
}
