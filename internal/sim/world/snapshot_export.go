package world

import (
	"campaign.ai/internal/persistence/snapshot"
	"campaign.ai/internal/sim/orders"
)

// ExportSnapshot copies the whole campaign state into plain snapshot records.
// The result shares no memory with the world and can leave the loop goroutine.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:    snapshot.Version,
			ScenarioID: w.scenarioID,
			Turn:       w.turn,
		},
		Counters: snapshot.CountersV1{NextOrder: w.nextOrderNum.Load()},
	}
	for _, name := range w.regionNames {
		snap.Regions = append(snap.Regions, snapshot.RegionV1{
			Name:     name,
			Adjacent: append([]string(nil), w.regions[name]...),
		})
	}
	for _, a := range w.SortedAgents() {
		snap.Agents = append(snap.Agents, snapshot.AgentV1{
			Name:               a.Name,
			Side:               a.Side,
			Disposition:        string(a.Disposition),
			Mounted:            a.Mounted,
			Strength:           a.Strength,
			Location:           a.Location,
			Reputation:         a.Reputation,
			Holding:            a.Holding,
			DefenseBonus:       a.DefenseBonus,
			Fortified:          a.Fortified,
			IgnoreBattlesUntil: a.IgnoreBattlesUntil,
			LastCombatOpponent: a.LastCombatOpponent,
			LastCombatTurn:     a.LastCombatTurn,
			LastCombatResult:   string(a.LastCombatResult),
			ActionsThisTurn:    a.ActionsThisTurn,
			Order:              exportOrder(a.Order),
			Interrupt:          exportInterrupt(a.Interrupt),
		})
	}
	for _, b := range w.battles {
		snap.Battles = append(snap.Battles, snapshot.BattleV1{
			Location:     b.Location,
			Participants: append([]string(nil), b.Participants...),
			Result:       string(b.Result),
		})
	}
	return snap
}

func exportOrder(o *orders.Order) *snapshot.OrderV1 {
	if o == nil {
		return nil
	}
	out := &snapshot.OrderV1{
		OrderID:            o.OrderID,
		Kind:               string(o.Kind),
		Target:             o.Target,
		TargetKind:         string(o.TargetKind),
		RemainingPath:      append([]string(nil), o.RemainingPath...),
		IssuedTurn:         o.IssuedTurn,
		StartedTurn:        o.StartedTurn,
		LastAdvancedTurn:   o.LastAdvancedTurn,
		StatusReportedTurn: o.StatusReportedTurn,
		SnapshotLocation:   o.SnapshotLocation,
		AttackOnArrival:    o.AttackOnArrival,
		FollowConfirmed:    o.FollowConfirmed,
		LastCombatOpponent: o.LastCombatOpponent,
		LastCombatTurn:     o.LastCombatTurn,
		LastCombatResult:   string(o.LastCombatResult),
	}
	if c := o.Condition; c != nil {
		out.Condition = &snapshot.ConditionV1{
			MaxTurns:       c.MaxTurns,
			UntilArrives:   c.UntilArrives,
			UntilDestroyed: c.UntilDestroyed,
			UntilRelieved:  c.UntilRelieved,
			UntilDecisive:  c.UntilDecisive,
			Expr:           c.Expr,
		}
	}
	return out
}

func exportInterrupt(p *orders.PendingInterrupt) *snapshot.InterruptV1 {
	if p == nil {
		return nil
	}
	out := &snapshot.InterruptV1{
		Kind:        string(p.Kind),
		OrderID:     p.OrderID,
		Opponent:    p.Opponent,
		Location:    p.Location,
		Ally:        p.Ally,
		IsFirstStep: p.IsFirstStep,
		RaisedTurn:  p.RaisedTurn,
	}
	for _, c := range p.ValidChoices {
		out.ValidChoices = append(out.ValidChoices, string(c))
	}
	return out
}
