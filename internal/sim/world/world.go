package world

import (
	"fmt"
	"io"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"campaign.ai/internal/persistence/snapshot"
	"campaign.ai/internal/sim/combat"
	"campaign.ai/internal/sim/orders"
	"campaign.ai/internal/sim/tuning"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

// World is a single-threaded authoritative campaign map.
// All state must be accessed only from the world loop goroutine, or from
// tests that own the World outright.
type World struct {
	cfg  Config
	tune tuning.Tuning
	log  *logrus.Entry

	scenarioID string
	turn       int

	// Adjacency lists are kept sorted so path search is deterministic.
	regions     map[string][]string
	regionNames []string

	agents map[string]*modelpkg.Agent

	// Engagements fought during the current turn, in the order they happened.
	battles []modelpkg.Battle

	resolver combat.Resolver

	nextOrderNum atomic.Uint64

	// Every report produced since the turn began; flushed by EndTurn.
	turnReports []orders.Report

	inbox chan Command
	stop  chan struct{}

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	turnLogger     TurnLogger
	decisionLogger DecisionLogger
	snapshotSink   chan<- snapshot.SnapshotV1
}

type TurnLogger interface {
	WriteTurn(entry TurnLogEntry) error
}

type DecisionLogger interface {
	WriteDecision(entry DecisionEntry) error
}

type TurnLogEntry struct {
	ScenarioID string            `json:"scenario_id"`
	Turn       int               `json:"turn"`
	Reports    []orders.Report   `json:"reports,omitempty"`
	Battles    []modelpkg.Battle `json:"battles,omitempty"`
	Digest     string            `json:"digest"`
}

// DecisionEntry records one operator command and what it produced.
type DecisionEntry struct {
	Turn          int                  `json:"turn"`
	Operator      string               `json:"operator,omitempty"`
	Command       CommandKind          `json:"command"`
	Agent         string               `json:"agent,omitempty"`
	OrderID       string               `json:"order_id,omitempty"`
	InterruptKind orders.InterruptKind `json:"interrupt_kind,omitempty"`
	Choice        orders.Choice        `json:"choice,omitempty"`
	Accepted      bool                 `json:"accepted"`
	Code          string               `json:"code,omitempty"`
	Message       string               `json:"message,omitempty"`
	Reports       []orders.Report      `json:"reports,omitempty"`
}

// orderNamespace seeds deterministic order ids: the same scenario replayed
// with the same commands yields the same ids.
var orderNamespace = uuid.MustParse("6f1c7f1e-3c0b-4f57-9d8e-0b7a1d2c5e41")

func New(cfg Config, scen Scenario) (*World, error) {
	cfg.applyDefaults()
	if err := scen.Validate(); err != nil {
		return nil, err
	}

	w := &World{
		cfg:            cfg,
		tune:           cfg.Tuning,
		log:            cfg.Log,
		scenarioID:     scen.ID,
		turn:           scen.Turn,
		regions:        map[string][]string{},
		agents:         map[string]*modelpkg.Agent{},
		resolver:       cfg.Resolver,
		inbox:          make(chan Command, cfg.InboxSize),
		stop:           make(chan struct{}),
		turnLogger:     cfg.TurnLogger,
		decisionLogger: cfg.DecisionLogger,
		snapshotSink:   cfg.SnapshotSink,
	}
	if w.turn <= 0 {
		w.turn = 1
	}
	w.setRegions(scen.adjacency())
	for _, def := range scen.Agents {
		w.agents[def.Name] = def.agent()
	}

	for _, od := range scen.Orders {
		rep, err := w.IssueOrder(od.Agent, od.request())
		if err != nil {
			return nil, fmt.Errorf("scenario order for %s: %w", od.Agent, err)
		}
		w.log.WithFields(logrus.Fields{"agent": rep.Agent, "order": rep.OrderID, "status": rep.Status}).
			Debug("initial order issued")
	}
	return w, nil
}

func (w *World) setRegions(adj map[string][]string) {
	w.regions = make(map[string][]string, len(adj))
	w.regionNames = w.regionNames[:0]
	for name, ns := range adj {
		cp := append([]string(nil), ns...)
		sort.Strings(cp)
		w.regions[name] = cp
		w.regionNames = append(w.regionNames, name)
	}
	sort.Strings(w.regionNames)
}

func (w *World) ScenarioID() string {
	if w == nil {
		return ""
	}
	return w.scenarioID
}

func (w *World) Tuning() tuning.Tuning { return w.tune }

func (w *World) Regions() []string { return append([]string(nil), w.regionNames...) }

func (w *World) newOrderID() string {
	n := w.nextOrderNum.Add(1)
	return uuid.NewSHA1(orderNamespace, []byte(fmt.Sprintf("%s/%d", w.scenarioID, n))).String()
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
