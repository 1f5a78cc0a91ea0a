package interrupts

import (
	"campaign.ai/internal/sim/orders"
	"campaign.ai/internal/sim/world/feature/orders/policy"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
	"campaign.ai/internal/sim/world/logic/pathing"
)

type Env interface {
	CurrentTurn() int
	AdjacentRegions(region string) []string
	BattlesRecordedThisTurn() []modelpkg.Battle
}

type Detection struct {
	Battle   modelpkg.Battle
	Distance int
	Response policy.CannonFire
}

type graph struct{ env Env }

func (g graph) Neighbors(region string) []string { return g.env.AdjacentRegions(region) }

// DetectCannonFire looks for the nearest battle of this turn within radius
// hops of a that a is not part of and has not already acknowledged. Agents
// whose disposition ignores cannon fire never get a detection.
func DetectCannonFire(env Env, a *modelpkg.Agent, radius int) (Detection, bool) {
	if env == nil || a == nil {
		return Detection{}, false
	}
	resp := policy.For(a.Disposition).CannonFire
	if resp == policy.CannonFireIgnore {
		return Detection{}, false
	}
	turn := env.CurrentTurn()
	if turn <= a.IgnoreBattlesUntil {
		return Detection{}, false
	}
	battles := env.BattlesRecordedThisTurn()
	if len(battles) == 0 {
		return Detection{}, false
	}

	near := pathing.WithinHops(graph{env: env}, a.Location, radius)
	best := -1
	bestDist := 0
	for i, b := range battles {
		if b.Involves(a.Name) {
			continue
		}
		d, ok := near[b.Location]
		if !ok {
			continue
		}
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best < 0 {
		return Detection{}, false
	}
	return Detection{Battle: battles[best], Distance: bestDist, Response: resp}, true
}

// CannonFireInterrupt builds the interrupt asking whether to march on d.
func CannonFireInterrupt(o *orders.Order, d Detection, turn int) *orders.PendingInterrupt {
	p := &orders.PendingInterrupt{
		Kind:         orders.InterruptCannonFire,
		Location:     d.Battle.Location,
		RaisedTurn:   turn,
		ValidChoices: orders.ChoicesFor(orders.InterruptCannonFire),
	}
	if len(d.Battle.Participants) > 0 {
		p.Opponent = d.Battle.Participants[0]
	}
	if o != nil {
		p.OrderID = o.OrderID
		p.IsFirstStep = turn == o.IssuedTurn
	}
	return p
}
