package world

import (
	"sort"

	modelpkg "campaign.ai/internal/sim/world/kernel/model"
	"campaign.ai/internal/sim/world/logic/pathing"
)

func (w *World) CurrentTurn() int { return w.turn }

// SortedAgents returns live agents ordered by name.
func (w *World) SortedAgents() []*modelpkg.Agent {
	out := make([]*modelpkg.Agent, 0, len(w.agents))
	for _, a := range w.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (w *World) AgentByName(name string) *modelpkg.Agent {
	if name == "" {
		return nil
	}
	return w.agents[name]
}

func (w *World) RegionExists(region string) bool {
	_, ok := w.regions[region]
	return ok
}

func (w *World) AdjacentRegions(region string) []string { return w.regions[region] }

// Neighbors lets the world serve as a pathing.Graph.
func (w *World) Neighbors(region string) []string { return w.regions[region] }

func (w *World) ShortestPath(from, to string, avoid map[string]bool) ([]string, bool) {
	if !w.RegionExists(from) || !w.RegionExists(to) {
		return nil, false
	}
	return pathing.ShortestPath(w, from, to, avoid)
}

func (w *World) AgentsIn(region string) []*modelpkg.Agent {
	var out []*modelpkg.Agent
	for _, a := range w.SortedAgents() {
		if a.Location == region {
			out = append(out, a)
		}
	}
	return out
}

func (w *World) HostileAgentsOf(side string) []*modelpkg.Agent {
	var out []*modelpkg.Agent
	for _, a := range w.SortedAgents() {
		if a.Side != side && a.Alive() {
			out = append(out, a)
		}
	}
	return out
}

func (w *World) BattlesRecordedThisTurn() []modelpkg.Battle { return w.battles }

func (w *World) adjacent(a, b string) bool {
	for _, n := range w.regions[a] {
		if n == b {
			return true
		}
	}
	return false
}

func (w *World) hostileIn(a *modelpkg.Agent, region string) bool {
	for _, other := range w.agents {
		if other.Location == region && other.Alive() && a.HostileTo(other) {
			return true
		}
	}
	return false
}
