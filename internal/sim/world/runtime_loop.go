package world

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"campaign.ai/internal/protocol"
	"campaign.ai/internal/sim/orders"
	runtimepkg "campaign.ai/internal/sim/world/feature/orders/runtime"
)

type CommandKind string

const (
	CmdIssue    CommandKind = "ISSUE"
	CmdRespond  CommandKind = "RESPOND"
	CmdCancel   CommandKind = "CANCEL"
	CmdStep     CommandKind = "STEP"
	CmdEndTurn  CommandKind = "END_TURN"
	CmdSnapshot CommandKind = "SNAPSHOT"
	// Read-only: current turn and every pending interrupt.
	CmdPending  CommandKind = "PENDING"
)

// Command is one operator request for the world loop. Resp, if set, receives
// exactly one result; a full channel drops it rather than stalling the loop.
type Command struct {
	Kind     CommandKind
	Operator string

	Agent string
	Issue runtimepkg.IssueRequest

	InterruptKind orders.InterruptKind
	Choice        orders.Choice

	// Side the operator commands. STEP runs only this side's orders, and
	// ISSUE/RESPOND/CANCEL are refused for agents of other sides. Empty means
	// every side.
	Side string

	Resp chan CommandResult
}

type CommandResult struct {
	Turn    int
	Reports []orders.Report
	Err     error
}

var (
	ErrSnapshotUnavailable = errors.New("snapshot sink not configured")
	ErrSnapshotBusy        = errors.New("snapshot sink backpressure")
)

func (w *World) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case cmd := <-w.inbox:
			res := w.Apply(cmd)
			if cmd.Resp != nil {
				select {
				case cmd.Resp <- res:
				default:
					// Caller gave up; don't block the loop.
				}
			}
		}
	}
}

func (w *World) Inbox() chan<- Command { return w.inbox }

func (w *World) Stop() { close(w.stop) }

// Submit hands cmd to the world loop and waits for its result.
// It is safe to call from other goroutines (e.g. websocket sessions).
func (w *World) Submit(ctx context.Context, cmd Command) (CommandResult, error) {
	resp := make(chan CommandResult, 1)
	cmd.Resp = resp

	select {
	case w.inbox <- cmd:
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}

	select {
	case r := <-resp:
		return r, nil
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
}

// Apply executes one command on the calling goroutine. Run uses it; tests and
// the headless runner call it directly.
func (w *World) Apply(cmd Command) CommandResult {
	res := CommandResult{Turn: w.turn}
	if err := w.checkSide(cmd); err != nil {
		res.Err = err
		w.logDecision(cmd, res)
		return res
	}
	switch cmd.Kind {
	case CmdIssue:
		rep, err := w.IssueOrder(cmd.Agent, cmd.Issue)
		res.Err = err
		if err == nil {
			res.Reports = []orders.Report{rep}
		}
	case CmdRespond:
		rep, err := w.RespondInterrupt(cmd.Agent, cmd.InterruptKind, cmd.Choice)
		res.Err = err
		if err == nil {
			res.Reports = []orders.Report{rep}
		}
	case CmdCancel:
		rep, err := w.CancelOrder(cmd.Agent)
		res.Err = err
		if err == nil {
			res.Reports = []orders.Report{rep}
		}
	case CmdStep:
		res.Reports = w.StepOrders(cmd.Side)
	case CmdEndTurn:
		res.Reports = w.TurnReports()
		res.Turn = w.EndTurn()
	case CmdSnapshot:
		res.Err = w.requestSnapshot()
	case CmdPending:
		res.Reports = w.PendingInterrupts()
	default:
		res.Err = fmt.Errorf("%w: unknown command %q", runtimepkg.ErrInvalidOrder, cmd.Kind)
	}

	if cmd.Kind != CmdSnapshot && cmd.Kind != CmdPending {
		w.logDecision(cmd, res)
	}
	return res
}

func (w *World) checkSide(cmd Command) error {
	if cmd.Side == "" {
		return nil
	}
	switch cmd.Kind {
	case CmdIssue, CmdRespond, CmdCancel:
	default:
		return nil
	}
	if a := w.AgentByName(cmd.Agent); a != nil && a.Side != cmd.Side {
		return fmt.Errorf("%w: %s", runtimepkg.ErrForeignAgent, cmd.Agent)
	}
	return nil
}

func (w *World) logDecision(cmd Command, res CommandResult) {
	entry := DecisionEntry{
		Turn:          w.turn,
		Operator:      cmd.Operator,
		Command:       cmd.Kind,
		Agent:         cmd.Agent,
		InterruptKind: cmd.InterruptKind,
		Choice:        cmd.Choice,
		Accepted:      res.Err == nil,
		Code:          protocol.CodeFor(res.Err),
		Reports:       res.Reports,
	}
	if cmd.Kind == CmdEndTurn {
		// Reports already went out with the turn log.
		entry.Turn = res.Turn - 1
		entry.Reports = nil
	}
	if res.Err != nil {
		entry.Message = res.Err.Error()
	}
	if cmd.Kind != CmdEndTurn && len(res.Reports) == 1 {
		entry.OrderID = res.Reports[0].OrderID
	}
	if res.Err != nil {
		w.log.WithFields(logrus.Fields{"command": cmd.Kind, "agent": cmd.Agent, "code": entry.Code}).
			WithError(res.Err).Info("command rejected")
	}
	if w.decisionLogger == nil {
		return
	}
	if err := w.decisionLogger.WriteDecision(entry); err != nil {
		w.log.WithError(err).Warn("decision log write failed")
	}
}

func (w *World) requestSnapshot() error {
	if w.snapshotSink == nil {
		return ErrSnapshotUnavailable
	}
	select {
	case w.snapshotSink <- w.ExportSnapshot():
		return nil
	default:
		return ErrSnapshotBusy
	}
}
