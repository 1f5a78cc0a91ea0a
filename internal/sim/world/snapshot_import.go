package world

import (
	"fmt"

	"campaign.ai/internal/persistence/snapshot"
	"campaign.ai/internal/sim/combat"
	"campaign.ai/internal/sim/orders"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

// NewFromSnapshot rebuilds a world from an exported snapshot. The resumed
// world continues the same order-id sequence.
func NewFromSnapshot(cfg Config, snap snapshot.SnapshotV1) (*World, error) {
	if snap.Header.Version != snapshot.Version {
		return nil, fmt.Errorf("unsupported snapshot version: %d", snap.Header.Version)
	}
	if snap.Header.ScenarioID == "" {
		return nil, fmt.Errorf("snapshot has no scenario id")
	}
	cfg.applyDefaults()

	w := &World{
		cfg:            cfg,
		tune:           cfg.Tuning,
		log:            cfg.Log,
		scenarioID:     snap.Header.ScenarioID,
		turn:           snap.Header.Turn,
		agents:         map[string]*modelpkg.Agent{},
		resolver:       cfg.Resolver,
		inbox:          make(chan Command, cfg.InboxSize),
		stop:           make(chan struct{}),
		turnLogger:     cfg.TurnLogger,
		decisionLogger: cfg.DecisionLogger,
		snapshotSink:   cfg.SnapshotSink,
	}
	adj := make(map[string][]string, len(snap.Regions))
	for _, r := range snap.Regions {
		adj[r.Name] = r.Adjacent
	}
	w.setRegions(adj)

	for _, av := range snap.Agents {
		if _, dup := w.agents[av.Name]; dup {
			return nil, fmt.Errorf("snapshot: duplicate agent %q", av.Name)
		}
		if !w.RegionExists(av.Location) {
			return nil, fmt.Errorf("snapshot: agent %s in unknown region %q", av.Name, av.Location)
		}
		w.agents[av.Name] = &modelpkg.Agent{
			Name:               av.Name,
			Side:               av.Side,
			Disposition:        orders.Disposition(av.Disposition),
			Mounted:            av.Mounted,
			Strength:           av.Strength,
			Location:           av.Location,
			Reputation:         av.Reputation,
			Order:              importOrder(av.Order),
			Interrupt:          importInterrupt(av.Interrupt),
			Holding:            av.Holding,
			DefenseBonus:       av.DefenseBonus,
			Fortified:          av.Fortified,
			IgnoreBattlesUntil: av.IgnoreBattlesUntil,
			LastCombatOpponent: av.LastCombatOpponent,
			LastCombatTurn:     av.LastCombatTurn,
			LastCombatResult:   combat.Result(av.LastCombatResult),
			ActionsThisTurn:    av.ActionsThisTurn,
		}
	}
	for _, b := range snap.Battles {
		w.battles = append(w.battles, modelpkg.Battle{
			Location:     b.Location,
			Participants: append([]string(nil), b.Participants...),
			Result:       combat.Result(b.Result),
		})
	}
	w.nextOrderNum.Store(snap.Counters.NextOrder)
	return w, nil
}

func importOrder(ov *snapshot.OrderV1) *orders.Order {
	if ov == nil {
		return nil
	}
	o := &orders.Order{
		OrderID:            ov.OrderID,
		Kind:               orders.Kind(ov.Kind),
		Target:             ov.Target,
		TargetKind:         orders.TargetKind(ov.TargetKind),
		RemainingPath:      append([]string(nil), ov.RemainingPath...),
		IssuedTurn:         ov.IssuedTurn,
		StartedTurn:        ov.StartedTurn,
		LastAdvancedTurn:   ov.LastAdvancedTurn,
		StatusReportedTurn: ov.StatusReportedTurn,
		SnapshotLocation:   ov.SnapshotLocation,
		AttackOnArrival:    ov.AttackOnArrival,
		FollowConfirmed:    ov.FollowConfirmed,
		LastCombatOpponent: ov.LastCombatOpponent,
		LastCombatTurn:     ov.LastCombatTurn,
		LastCombatResult:   combat.Result(ov.LastCombatResult),
	}
	if c := ov.Condition; c != nil {
		o.Condition = &orders.Condition{
			MaxTurns:       c.MaxTurns,
			UntilArrives:   c.UntilArrives,
			UntilDestroyed: c.UntilDestroyed,
			UntilRelieved:  c.UntilRelieved,
			UntilDecisive:  c.UntilDecisive,
			Expr:           c.Expr,
		}
	}
	return o
}

func importInterrupt(iv *snapshot.InterruptV1) *orders.PendingInterrupt {
	if iv == nil {
		return nil
	}
	p := &orders.PendingInterrupt{
		Kind:        orders.InterruptKind(iv.Kind),
		OrderID:     iv.OrderID,
		Opponent:    iv.Opponent,
		Location:    iv.Location,
		Ally:        iv.Ally,
		IsFirstStep: iv.IsFirstStep,
		RaisedTurn:  iv.RaisedTurn,
	}
	for _, c := range iv.ValidChoices {
		p.ValidChoices = append(p.ValidChoices, orders.Choice(c))
	}
	return p
}
