package runtime

import (
	"errors"

	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

var (
	ErrUnknownAgent      = errors.New("unknown agent")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrNoOrder           = errors.New("agent has no order")
	ErrNoInterrupt       = errors.New("agent has no pending interrupt")
	ErrInterruptMismatch = errors.New("interrupt kind does not match")
	ErrInvalidChoice     = errors.New("choice not offered by interrupt")
	ErrStaleInterrupt    = errors.New("interrupt no longer matches the agent's order")
	ErrForeignAgent      = errors.New("agent belongs to another side")
)

// Query is the read side of the world the engine needs.
type Query interface {
	CurrentTurn() int
	SortedAgents() []*modelpkg.Agent
	AgentByName(name string) *modelpkg.Agent
	RegionExists(region string) bool
	AdjacentRegions(region string) []string
	// Hops from `from` to `to`, excluding `from`, never entering avoid
	// (except `to`).
	ShortestPath(from, to string, avoid map[string]bool) ([]string, bool)
	AgentsIn(region string) []*modelpkg.Agent
	HostileAgentsOf(side string) []*modelpkg.Agent
	BattlesRecordedThisTurn() []modelpkg.Battle
}

// Gateway performs single legal actions. The engine never moves agents or
// applies casualties itself.
type Gateway interface {
	Execute(a *modelpkg.Agent, act modelpkg.Action) modelpkg.ActionResult
}

type Env interface {
	Query
	Gateway
	NewOrderID() string
}

type SystemInput struct {
	// Acting side. Empty processes every side.
	Side string
}
