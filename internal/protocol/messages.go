package protocol

import "campaign.ai/internal/sim/orders"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Operator        string `json:"operator"`
	// Side the operator commands. Empty lets the operator answer for every side.
	Side string `json:"side,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	ScenarioID      string `json:"scenario_id"`
	Turn            int    `json:"turn"`
	Side            string `json:"side,omitempty"`
}

// ISSUE (client -> server): give an agent a new standing order.
type IssueMsg struct {
	Type            string       `json:"type"`
	Ref             string       `json:"ref,omitempty"`
	Agent           string       `json:"agent"`
	Kind            string       `json:"kind"`
	Target          string       `json:"target,omitempty"`
	TargetKind      string       `json:"target_kind,omitempty"`
	AttackOnArrival bool         `json:"attack_on_arrival,omitempty"`
	Condition       *ConditionIn `json:"condition,omitempty"`
}

type ConditionIn struct {
	MaxTurns       int    `json:"max_turns,omitempty"`
	UntilArrives   string `json:"until_arrives,omitempty"`
	UntilDestroyed string `json:"until_destroyed,omitempty"`
	UntilRelieved  bool   `json:"until_relieved,omitempty"`
	UntilDecisive  bool   `json:"until_decisive,omitempty"`
	Expr           string `json:"expr,omitempty"`
}

func (c *ConditionIn) Condition() *orders.Condition {
	if c == nil {
		return nil
	}
	return &orders.Condition{
		MaxTurns:       c.MaxTurns,
		UntilArrives:   c.UntilArrives,
		UntilDestroyed: c.UntilDestroyed,
		UntilRelieved:  c.UntilRelieved,
		UntilDecisive:  c.UntilDecisive,
		Expr:           c.Expr,
	}
}

// RESPOND (client -> server): answer a pending interrupt.
type RespondMsg struct {
	Type          string `json:"type"`
	Ref           string `json:"ref,omitempty"`
	Agent         string `json:"agent"`
	InterruptKind string `json:"interrupt_kind"`
	Choice        string `json:"choice"`
}

// CANCEL, STEP and END_TURN share one shape; Agent is only used by CANCEL.
type CommandMsg struct {
	Type  string `json:"type"`
	Ref   string `json:"ref,omitempty"`
	Agent string `json:"agent,omitempty"`
}

// RESULT (server -> client): outcome of one client command.
type ResultMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Ref             string          `json:"ref,omitempty"`
	For             string          `json:"for"`
	OK              bool            `json:"ok"`
	Code            string          `json:"code,omitempty"`
	Message         string          `json:"message,omitempty"`
	Turn            int             `json:"turn"`
	Reports         []orders.Report `json:"reports,omitempty"`
}

// REPORTS (server -> client): broadcast after every orchestrator pass.
type ReportsMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Turn            int             `json:"turn"`
	Reports         []orders.Report `json:"reports"`
}
