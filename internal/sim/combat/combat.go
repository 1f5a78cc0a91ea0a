package combat

type Result string

const (
	ResultNone      Result = ""
	ResultWin       Result = "WIN"
	ResultLose      Result = "LOSE"
	ResultStalemate Result = "STALEMATE"
)

// Decisive reports whether the engagement settled the fight either way.
func (r Result) Decisive() bool {
	return r == ResultWin || r == ResultLose
}

// Invert returns the result from the defender's side.
func (r Result) Invert() Result {
	switch r {
	case ResultWin:
		return ResultLose
	case ResultLose:
		return ResultWin
	default:
		return r
	}
}

type Side struct {
	Name     string
	Strength int
	// Flat bonus added to Strength when this side defends.
	DefenseBonus int
}

type Outcome struct {
	Result         Result
	AttackerLosses int
	DefenderLosses int
}

// Resolver decides a single engagement. Callers apply the losses.
type Resolver interface {
	Resolve(attacker, defender Side) Outcome
}

// RatioResolver settles fights on the attacker/defender strength ratio alone,
// so replays and tests are deterministic.
type RatioResolver struct {
	// Ratio at or above which the attacker wins outright (and at or below
	// whose inverse it loses). Values <= 1 fall back to 1.5.
	DecisiveRatio float64
}

func (r RatioResolver) Resolve(attacker, defender Side) Outcome {
	decisive := r.DecisiveRatio
	if decisive <= 1 {
		decisive = 1.5
	}
	att := attacker.Strength
	def := defender.Strength + defender.DefenseBonus
	if att <= 0 {
		return Outcome{Result: ResultLose}
	}
	if def <= 0 {
		return Outcome{Result: ResultWin, DefenderLosses: defender.Strength}
	}

	ratio := float64(att) / float64(def)
	switch {
	case ratio >= decisive:
		return Outcome{
			Result:         ResultWin,
			AttackerLosses: atLeastOne(attacker.Strength / 10),
			DefenderLosses: atLeastOne((defender.Strength + 1) / 2),
		}
	case ratio <= 1/decisive:
		return Outcome{
			Result:         ResultLose,
			AttackerLosses: atLeastOne((attacker.Strength*3 + 9) / 10),
			DefenderLosses: defender.Strength / 10,
		}
	default:
		return Outcome{
			Result:         ResultStalemate,
			AttackerLosses: atLeastOne(attacker.Strength / 10),
			DefenderLosses: atLeastOne(defender.Strength / 10),
		}
	}
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
