package orders

type InterruptKind string

const (
	InterruptCannonFire         InterruptKind = "cannon-fire"
	InterruptBlockedPath        InterruptKind = "blocked-path"
	InterruptBlockedPathBadOdds InterruptKind = "blocked-path-bad-odds"
	InterruptAllyRelocating     InterruptKind = "ally-relocating"
	InterruptRepeatedCombat     InterruptKind = "repeated-combat"
)

type Choice string

const (
	ChoiceInvestigate  Choice = "investigate"
	ChoiceContinue     Choice = "continue"
	ChoiceAttack       Choice = "attack"
	ChoiceAttackAnyway Choice = "attack-anyway"
	ChoiceGoAround     Choice = "go-around"
	ChoiceHold         Choice = "hold"
	ChoiceCancel       Choice = "cancel"
	ChoiceFollow       Choice = "follow"
)

var choicesByKind = map[InterruptKind][]Choice{
	InterruptCannonFire:         {ChoiceInvestigate, ChoiceContinue},
	InterruptBlockedPath:        {ChoiceAttack, ChoiceGoAround, ChoiceHold, ChoiceCancel},
	InterruptBlockedPathBadOdds: {ChoiceAttackAnyway, ChoiceGoAround, ChoiceHold, ChoiceCancel},
	InterruptAllyRelocating:     {ChoiceFollow, ChoiceHold, ChoiceCancel},
	InterruptRepeatedCombat:     {ChoiceAttack, ChoiceHold, ChoiceCancel},
}

// Valid reports whether some interrupt kind offers c.
func (c Choice) Valid() bool {
	for _, cs := range choicesByKind {
		for _, v := range cs {
			if v == c {
				return true
			}
		}
	}
	return false
}

// ChoicesFor returns a fresh copy of the choices offered for kind.
func ChoicesFor(kind InterruptKind) []Choice {
	return append([]Choice(nil), choicesByKind[kind]...)
}

// PendingInterrupt freezes an agent's order until an operator decides.
type PendingInterrupt struct {
	Kind    InterruptKind
	OrderID string

	Opponent string
	Location string
	Ally     string
	// Raised by the issuing action itself, before the order ever ran.
	IsFirstStep bool
	RaisedTurn  int

	ValidChoices []Choice
}

func (p *PendingInterrupt) Allows(c Choice) bool {
	if p == nil {
		return false
	}
	for _, v := range p.ValidChoices {
		if v == c {
			return true
		}
	}
	return false
}

func (p *PendingInterrupt) Clone() *PendingInterrupt {
	if p == nil {
		return nil
	}
	cp := *p
	cp.ValidChoices = append([]Choice(nil), p.ValidChoices...)
	return &cp
}
