package model

import "campaign.ai/internal/sim/combat"

type ActionKind string

const (
	ActionMove    ActionKind = "move"
	ActionAttack  ActionKind = "attack"
	ActionFortify ActionKind = "fortify"
)

type Action struct {
	Kind ActionKind
	// Region for move, agent name for attack, empty for fortify.
	Target string
	// Standing-order execution: not charged against the agent's per-turn
	// action budget and exempt from obedience checks.
	Standing bool
}

type ActionResult struct {
	OK      bool
	Code    string
	Message string
	Events  []string

	// Set for attacks that were resolved.
	Outcome *combat.Outcome
	// Attacker entered the defender's region after winning.
	Advanced bool
	// Defender strength reached zero and it left the world.
	DefenderDestroyed bool
}

// Battle is one engagement recorded during the current turn.
type Battle struct {
	Location     string        `json:"location"`
	Participants []string      `json:"participants"`
	Result       combat.Result `json:"result,omitempty"`
}

func (b Battle) Involves(name string) bool {
	for _, p := range b.Participants {
		if p == name {
			return true
		}
	}
	return false
}
