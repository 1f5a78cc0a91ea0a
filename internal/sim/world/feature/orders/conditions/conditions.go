package conditions

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"campaign.ai/internal/sim/orders"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

type Env interface {
	CurrentTurn() int
	AgentByName(name string) *modelpkg.Agent
	AgentsIn(region string) []*modelpkg.Agent
}

// Evaluate reports whether o's condition holds for its agent a. Sub-conditions
// are checked in a fixed order and the first that holds wins. A broken
// scripted expression is returned as an error.
func Evaluate(env Env, o *orders.Order, a *modelpkg.Agent) (bool, string, error) {
	if o == nil || a == nil || o.Condition.Empty() {
		return false, "", nil
	}
	c := o.Condition
	turn := env.CurrentTurn()

	if c.MaxTurns > 0 {
		if elapsed := turn - o.StartedTurn; elapsed >= c.MaxTurns {
			return true, fmt.Sprintf("%d turns elapsed", elapsed), nil
		}
	}
	if c.UntilArrives != "" {
		if other := env.AgentByName(c.UntilArrives); other != nil && other.Location == a.Location {
			return true, fmt.Sprintf("%s arrived at %s", other.Name, a.Location), nil
		}
	}
	if c.UntilDestroyed != "" {
		if other := env.AgentByName(c.UntilDestroyed); !other.Alive() {
			return true, fmt.Sprintf("%s destroyed", c.UntilDestroyed), nil
		}
	}
	if c.UntilRelieved {
		for _, other := range env.AgentsIn(a.Location) {
			if other.Name != a.Name && other.Side == a.Side && other.Alive() {
				return true, fmt.Sprintf("relieved by %s", other.Name), nil
			}
		}
	}
	// SUPPORT reads the fight-concluded flag against its ally, on arrival.
	if c.UntilDecisive && o.Kind != orders.KindSupport {
		if a.LastCombatResult.Decisive() && a.LastCombatTurn >= o.StartedTurn {
			return true, fmt.Sprintf("fight against %s concluded", a.LastCombatOpponent), nil
		}
	}
	if c.Expr != "" {
		ok, err := runExpr(c.Expr, exprEnv{
			Turn:       turn,
			Elapsed:    turn - o.StartedTurn,
			Strength:   a.Strength,
			Location:   a.Location,
			Reputation: a.Reputation,
			Holding:    a.Holding,
			Fortified:  a.Fortified,
		})
		if err != nil {
			return false, "", err
		}
		if ok {
			return true, fmt.Sprintf("condition %q met", c.Expr), nil
		}
	}
	return false, "", nil
}

type exprEnv struct {
	Turn       int    `expr:"turn"`
	Elapsed    int    `expr:"elapsed"`
	Strength   int    `expr:"strength"`
	Location   string `expr:"location"`
	Reputation int    `expr:"reputation"`
	Holding    bool   `expr:"holding"`
	Fortified  bool   `expr:"fortified"`
}

var (
	progMu sync.Mutex
	progs  = map[string]*vm.Program{}
)

// Compile checks src against the condition environment without running it.
func Compile(src string) error {
	_, err := program(src)
	return err
}

func program(src string) (*vm.Program, error) {
	progMu.Lock()
	defer progMu.Unlock()
	if p, ok := progs[src]; ok {
		return p, nil
	}
	p, err := expr.Compile(src, expr.Env(exprEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("condition expr: %w", err)
	}
	progs[src] = p
	return p, nil
}

func runExpr(src string, env exprEnv) (bool, error) {
	p, err := program(src)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(p, env)
	if err != nil {
		return false, fmt.Errorf("condition expr: %w", err)
	}
	ok, _ := out.(bool)
	return ok, nil
}
