package orders

import "campaign.ai/internal/sim/combat"

type Kind string

const (
	KindAdvanceTo Kind = "ADVANCE_TO"
	KindPursue    Kind = "PURSUE"
	KindHold      Kind = "HOLD"
	KindSupport   Kind = "SUPPORT"
)

func (k Kind) Valid() bool {
	switch k {
	case KindAdvanceTo, KindPursue, KindHold, KindSupport:
		return true
	}
	return false
}

type TargetKind string

const (
	TargetRegion  TargetKind = "REGION"
	TargetAgent   TargetKind = "AGENT"
	TargetGeneric TargetKind = "GENERIC"
)

type Disposition string

const (
	Aggressive Disposition = "AGGRESSIVE"
	Cautious   Disposition = "CAUTIOUS"
	Literal    Disposition = "LITERAL"
	Balanced   Disposition = "BALANCED"
)

// Order is the standing directive held by one agent.
type Order struct {
	OrderID    string
	Kind       Kind
	Target     string
	TargetKind TargetKind

	// Next hop first; never contains the agent's current region.
	RemainingPath []string

	IssuedTurn  int
	StartedTurn int
	// Turn the order last moved its agent (issue or orchestrator pass).
	LastAdvancedTurn int
	// Turn the orchestrator last emitted the issued-turn status report.
	StatusReportedTurn int

	Condition *Condition

	// ADVANCE_TO toward a friendly agent: its region when the order was issued.
	SnapshotLocation string
	AttackOnArrival  bool

	// SUPPORT: operator already agreed to follow a relocating ally.
	FollowConfirmed bool

	LastCombatOpponent string
	LastCombatTurn     int
	LastCombatResult   combat.Result
}

// Condition terminates an order once any of its set fields holds.
type Condition struct {
	MaxTurns       int
	UntilArrives   string
	UntilDestroyed string
	UntilRelieved  bool
	UntilDecisive  bool
	// Optional expr-lang boolean expression.
	Expr string
}

func (c *Condition) Empty() bool {
	if c == nil {
		return true
	}
	return c.MaxTurns <= 0 && c.UntilArrives == "" && c.UntilDestroyed == "" &&
		!c.UntilRelieved && !c.UntilDecisive && c.Expr == ""
}

// Destination is the region the order currently steers toward, when it is
// fixed at issue time. PURSUE and SUPPORT resolve theirs every turn.
func (o *Order) Destination() string {
	if o == nil {
		return ""
	}
	switch o.Kind {
	case KindAdvanceTo:
		if o.TargetKind == TargetAgent {
			return o.SnapshotLocation
		}
		return o.Target
	case KindHold:
		return o.Target
	}
	return ""
}

func (o *Order) NextHop() (string, bool) {
	if o == nil || len(o.RemainingPath) == 0 {
		return "", false
	}
	return o.RemainingPath[0], true
}

func (o *Order) PopHop() {
	if o == nil || len(o.RemainingPath) == 0 {
		return
	}
	o.RemainingPath = o.RemainingPath[1:]
	if len(o.RemainingPath) == 0 {
		o.RemainingPath = nil
	}
}

func (o *Order) RecordCombat(opponent string, turn int, result combat.Result) {
	o.LastCombatOpponent = opponent
	o.LastCombatTurn = turn
	o.LastCombatResult = result
}

// FoughtInconclusively reports whether the previous turn's engagement was
// against opponent and left the fight unsettled.
func (o *Order) FoughtInconclusively(opponent string, turn int) bool {
	if o == nil || o.LastCombatOpponent == "" {
		return false
	}
	return o.LastCombatOpponent == opponent &&
		o.LastCombatTurn == turn-1 &&
		!o.LastCombatResult.Decisive()
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	if o.RemainingPath != nil {
		cp.RemainingPath = append([]string(nil), o.RemainingPath...)
	}
	if o.Condition != nil {
		c := *o.Condition
		cp.Condition = &c
	}
	return &cp
}
