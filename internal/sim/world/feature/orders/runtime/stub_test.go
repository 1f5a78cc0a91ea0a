package runtime

import (
	"fmt"
	"sort"
	"testing"

	"campaign.ai/internal/sim/combat"
	"campaign.ai/internal/sim/orders"
	"campaign.ai/internal/sim/tuning"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
	"campaign.ai/internal/sim/world/logic/pathing"
)

// stubWorld is a minimal in-memory world: undirected region graph, agents by
// name, and a gateway that settles fights with the ratio resolver.
type stubWorld struct {
	turn    int
	adj     map[string][]string
	agents  map[string]*modelpkg.Agent
	battles []modelpkg.Battle
	nextID  int
	tune    tuning.Tuning
}

func newStub(edges ...string) *stubWorld {
	s := &stubWorld{
		turn:   2,
		adj:    map[string][]string{},
		agents: map[string]*modelpkg.Agent{},
		tune:   tuning.Defaults(),
	}
	for _, e := range edges {
		var a, b string
		if _, err := fmt.Sscanf(e, "%s %s", &a, &b); err != nil {
			panic(err)
		}
		s.adj[a] = append(s.adj[a], b)
		s.adj[b] = append(s.adj[b], a)
	}
	for k := range s.adj {
		sort.Strings(s.adj[k])
	}
	return s
}

func (s *stubWorld) add(a *modelpkg.Agent) *modelpkg.Agent {
	if a.Side == "" {
		a.Side = "blue"
	}
	if a.Disposition == "" {
		a.Disposition = orders.Balanced
	}
	s.agents[a.Name] = a
	return a
}

func (s *stubWorld) CurrentTurn() int { return s.turn }

func (s *stubWorld) SortedAgents() []*modelpkg.Agent {
	out := make([]*modelpkg.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *stubWorld) AgentByName(name string) *modelpkg.Agent { return s.agents[name] }

func (s *stubWorld) RegionExists(region string) bool {
	_, ok := s.adj[region]
	return ok
}

func (s *stubWorld) AdjacentRegions(region string) []string { return s.adj[region] }

func (s *stubWorld) Neighbors(region string) []string { return s.adj[region] }

func (s *stubWorld) ShortestPath(from, to string, avoid map[string]bool) ([]string, bool) {
	return pathing.ShortestPath(s, from, to, avoid)
}

func (s *stubWorld) AgentsIn(region string) []*modelpkg.Agent {
	var out []*modelpkg.Agent
	for _, a := range s.SortedAgents() {
		if a.Location == region {
			out = append(out, a)
		}
	}
	return out
}

func (s *stubWorld) HostileAgentsOf(side string) []*modelpkg.Agent {
	var out []*modelpkg.Agent
	for _, a := range s.SortedAgents() {
		if a.Side != side {
			out = append(out, a)
		}
	}
	return out
}

func (s *stubWorld) BattlesRecordedThisTurn() []modelpkg.Battle { return s.battles }

func (s *stubWorld) NewOrderID() string {
	s.nextID++
	return fmt.Sprintf("O%d", s.nextID)
}

func (s *stubWorld) adjacent(a, b string) bool {
	for _, n := range s.adj[a] {
		if n == b {
			return true
		}
	}
	return false
}

func (s *stubWorld) hostileIn(a *modelpkg.Agent, region string) bool {
	for _, other := range s.AgentsIn(region) {
		if other.Alive() && a.HostileTo(other) {
			return true
		}
	}
	return false
}

func (s *stubWorld) Execute(a *modelpkg.Agent, act modelpkg.Action) modelpkg.ActionResult {
	switch act.Kind {
	case modelpkg.ActionMove:
		if !s.adjacent(a.Location, act.Target) {
			return modelpkg.ActionResult{Code: "E_NOT_ADJACENT", Message: "not adjacent"}
		}
		if s.hostileIn(a, act.Target) {
			return modelpkg.ActionResult{Code: "E_OCCUPIED", Message: "occupied"}
		}
		a.Location = act.Target
		a.Fortified = false
		return modelpkg.ActionResult{OK: true}
	case modelpkg.ActionFortify:
		a.Fortified = true
		return modelpkg.ActionResult{OK: true}
	case modelpkg.ActionAttack:
		d := s.agents[act.Target]
		if !d.Alive() {
			return modelpkg.ActionResult{Code: "E_NOT_FOUND", Message: "no such target"}
		}
		if d.Location != a.Location && !s.adjacent(a.Location, d.Location) {
			return modelpkg.ActionResult{Code: "E_OUT_OF_RANGE", Message: "out of range"}
		}
		bonus := d.DefenseBonus
		if d.Fortified {
			bonus += s.tune.FortifyDefenseBonus
		}
		out := combat.RatioResolver{DecisiveRatio: s.tune.DecisiveRatio}.Resolve(
			combat.Side{Name: a.Name, Strength: a.Strength},
			combat.Side{Name: d.Name, Strength: d.Strength, DefenseBonus: bonus},
		)
		a.Strength = max(0, a.Strength-out.AttackerLosses)
		d.Strength = max(0, d.Strength-out.DefenderLosses)
		where := d.Location
		s.battles = append(s.battles, modelpkg.Battle{Location: where, Participants: []string{a.Name, d.Name}, Result: out.Result})
		a.LastCombatOpponent, a.LastCombatTurn, a.LastCombatResult = d.Name, s.turn, out.Result
		d.LastCombatOpponent, d.LastCombatTurn, d.LastCombatResult = a.Name, s.turn, out.Result.Invert()

		res := modelpkg.ActionResult{OK: true, Outcome: &out}
		if !d.Alive() {
			delete(s.agents, d.Name)
			res.DefenderDestroyed = true
		}
		if !a.Alive() {
			delete(s.agents, a.Name)
		}
		if a.Alive() && out.Result == combat.ResultWin && a.Location != where && !s.hostileIn(a, where) {
			a.Location = where
			a.Fortified = false
			res.Advanced = true
		}
		return res
	}
	return modelpkg.ActionResult{Code: "E_BAD_REQUEST", Message: "unknown action"}
}

// standing gives a an order already in flight since an earlier turn.
func (s *stubWorld) standing(a *modelpkg.Agent, o *orders.Order) *orders.Order {
	if o.OrderID == "" {
		o.OrderID = s.NewOrderID()
	}
	if o.IssuedTurn == 0 {
		o.IssuedTurn = s.turn - 1
		o.StartedTurn = s.turn - 1
		o.LastAdvancedTurn = s.turn - 1
	}
	if o.TargetKind == "" {
		o.TargetKind = orders.TargetRegion
	}
	a.Order = o
	return o
}

func (s *stubWorld) run(side string) []orders.Report {
	return RunOrdersSystem(s, s.tune, SystemInput{Side: side})
}

func reportFor(t *testing.T, reps []orders.Report, agent string) orders.Report {
	t.Helper()
	for _, r := range reps {
		if r.Agent == agent {
			return r
		}
	}
	t.Fatalf("no report for %s in %#v", agent, reps)
	return orders.Report{}
}

// assertNoTrespass fails when an agent shares a region with a hostile and
// its report shows no fighting.
func assertNoTrespass(t *testing.T, s *stubWorld, reps []orders.Report) {
	t.Helper()
	for _, r := range reps {
		a := s.agents[r.Agent]
		if a == nil || !s.hostileIn(a, a.Location) {
			continue
		}
		if !r.Combat {
			t.Fatalf("%s sits with a hostile at %s without combat: %#v", a.Name, a.Location, r)
		}
	}
}

func hasAction(r orders.Report, action string) bool {
	for _, a := range r.Actions {
		if a == action {
			return true
		}
	}
	return false
}
