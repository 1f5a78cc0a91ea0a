package world

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"campaign.ai/internal/sim/orders"
	runtimepkg "campaign.ai/internal/sim/world/feature/orders/runtime"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

// Scenario is the starting map, forces and standing orders of a campaign.
type Scenario struct {
	ID   string `yaml:"id"`
	Turn int    `yaml:"turn"`

	Regions []RegionDef `yaml:"regions"`
	Agents  []AgentDef  `yaml:"agents"`
	Orders  []OrderDef  `yaml:"orders"`
}

// RegionDef lists a region and its neighbours. Adjacency is made symmetric
// on load, so each edge only needs to be written once.
type RegionDef struct {
	Name     string   `yaml:"name"`
	Adjacent []string `yaml:"adjacent"`
}

type AgentDef struct {
	Name        string `yaml:"name"`
	Side        string `yaml:"side"`
	Disposition string `yaml:"disposition"`
	Mounted     bool   `yaml:"mounted"`
	Strength    int    `yaml:"strength"`
	Location    string `yaml:"location"`
	Reputation  int    `yaml:"reputation"`
}

type OrderDef struct {
	Agent           string        `yaml:"agent"`
	Kind            string        `yaml:"kind"`
	Target          string        `yaml:"target"`
	TargetKind      string        `yaml:"target_kind"`
	AttackOnArrival bool          `yaml:"attack_on_arrival"`
	Condition       *ConditionDef `yaml:"condition"`
}

type ConditionDef struct {
	MaxTurns       int    `yaml:"max_turns"`
	UntilArrives   string `yaml:"until_arrives"`
	UntilDestroyed string `yaml:"until_destroyed"`
	UntilRelieved  bool   `yaml:"until_relieved"`
	UntilDecisive  bool   `yaml:"until_decisive"`
	Expr           string `yaml:"expr"`
}

func LoadScenario(path string) (Scenario, error) {
	var s Scenario
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

func (s Scenario) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("missing id")
	}
	if len(s.Regions) == 0 {
		return fmt.Errorf("no regions")
	}
	adj := s.adjacency()
	for _, r := range s.Regions {
		if r.Name == "" {
			return fmt.Errorf("region with empty name")
		}
	}
	seen := map[string]bool{}
	for _, a := range s.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent with empty name")
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate agent %q", a.Name)
		}
		seen[a.Name] = true
		if a.Side == "" {
			return fmt.Errorf("agent %s: missing side", a.Name)
		}
		if _, ok := adj[a.Location]; !ok {
			return fmt.Errorf("agent %s: unknown location %q", a.Name, a.Location)
		}
		if a.Strength <= 0 {
			return fmt.Errorf("agent %s: strength must be positive", a.Name)
		}
		if _, err := ParseDisposition(a.Disposition); err != nil {
			return fmt.Errorf("agent %s: %w", a.Name, err)
		}
	}
	for _, o := range s.Orders {
		if !seen[o.Agent] {
			return fmt.Errorf("order for unknown agent %q", o.Agent)
		}
		if !orders.Kind(strings.ToUpper(o.Kind)).Valid() {
			return fmt.Errorf("order for %s: unknown kind %q", o.Agent, o.Kind)
		}
	}
	return nil
}

func (s Scenario) adjacency() map[string][]string {
	set := map[string]map[string]bool{}
	touch := func(r string) {
		if set[r] == nil {
			set[r] = map[string]bool{}
		}
	}
	for _, r := range s.Regions {
		touch(r.Name)
		for _, n := range r.Adjacent {
			if n == "" || n == r.Name {
				continue
			}
			touch(n)
			set[r.Name][n] = true
			set[n][r.Name] = true
		}
	}
	out := make(map[string][]string, len(set))
	for r, ns := range set {
		list := make([]string, 0, len(ns))
		for n := range ns {
			list = append(list, n)
		}
		out[r] = list
	}
	return out
}

// ParseDisposition accepts the disposition names case-insensitively. An
// empty value means BALANCED.
func ParseDisposition(s string) (orders.Disposition, error) {
	d := orders.Disposition(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case "":
		return orders.Balanced, nil
	case orders.Aggressive, orders.Cautious, orders.Literal, orders.Balanced:
		return d, nil
	}
	return "", fmt.Errorf("unknown disposition %q", s)
}

func (d AgentDef) agent() *modelpkg.Agent {
	disp, _ := ParseDisposition(d.Disposition)
	return &modelpkg.Agent{
		Name:        d.Name,
		Side:        d.Side,
		Disposition: disp,
		Mounted:     d.Mounted,
		Strength:    d.Strength,
		Location:    d.Location,
		Reputation:  d.Reputation,
	}
}

func (o OrderDef) request() runtimepkg.IssueRequest {
	req := runtimepkg.IssueRequest{
		Kind:            orders.Kind(strings.ToUpper(o.Kind)),
		Target:          o.Target,
		TargetKind:      orders.TargetKind(strings.ToUpper(o.TargetKind)),
		AttackOnArrival: o.AttackOnArrival,
	}
	if c := o.Condition; c != nil {
		req.Condition = &orders.Condition{
			MaxTurns:       c.MaxTurns,
			UntilArrives:   c.UntilArrives,
			UntilDestroyed: c.UntilDestroyed,
			UntilRelieved:  c.UntilRelieved,
			UntilDecisive:  c.UntilDecisive,
			Expr:           c.Expr,
		}
	}
	return req
}
