package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"campaign.ai/internal/protocol"
	"campaign.ai/internal/sim/orders"
	"campaign.ai/internal/sim/world"
	runtimepkg "campaign.ai/internal/sim/world/feature/orders/runtime"
)

// Commander is the part of the world the operator endpoint drives.
type Commander interface {
	Submit(ctx context.Context, cmd world.Command) (world.CommandResult, error)
}

type Options struct {
	ScenarioID string
	// Inbound messages per second per connection, and burst.
	RateLimit float64
	Burst     int
	// Upper bound on waiting for the world loop per command.
	CommandTimeout time.Duration
}

type Server struct {
	world Commander
	log   *logrus.Entry
	opts  Options

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]chan []byte
}

func NewServer(w Commander, log *logrus.Entry, opts Options) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}
	if opts.Burst <= 0 {
		opts.Burst = 40
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 10 * time.Second
	}
	return &Server{
		world: w,
		log:   log.WithField("component", "ws"),
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: map[string]chan []byte{},
	}
}

type session struct {
	id       string
	operator string
	side     string
	out      chan []byte
	limiter  *rate.Limiter
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(r.Context(), conn)
		if sess == nil {
			return
		}
		log := s.log.WithFields(logrus.Fields{"session": sess.id, "operator": sess.operator})
		log.Info("operator connected")
		defer func() {
			s.unregister(sess.id)
			log.Info("operator disconnected")
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-sess.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			s.handleMessage(ctx, sess, msg)
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, sess *session, msg []byte) {
	if !sess.limiter.Allow() {
		base, _ := protocol.DecodeBase(msg)
		s.send(sess, s.result(base, protocol.ErrRateLimit, "slow down", world.CommandResult{}))
		return
	}
	base, err := protocol.ValidateInbound(msg)
	if err != nil {
		s.send(sess, s.result(base, protocol.ErrProtoBadRequest, err.Error(), world.CommandResult{}))
		return
	}

	cmd, err := decodeCommand(base.Type, msg)
	if err != nil {
		s.send(sess, s.result(base, protocol.ErrBadRequest, err.Error(), world.CommandResult{}))
		return
	}
	cmd.Operator = sess.operator
	cmd.Side = sess.side

	cctx, cancel := context.WithTimeout(ctx, s.opts.CommandTimeout)
	defer cancel()
	res, err := s.world.Submit(cctx, cmd)
	if err != nil {
		s.send(sess, s.result(base, protocol.ErrWorldBusy, err.Error(), world.CommandResult{}))
		return
	}
	if res.Err != nil {
		s.send(sess, s.result(base, protocol.CodeFor(res.Err), res.Err.Error(), res))
		return
	}
	s.send(sess, s.result(base, "", "", res))

	if cmd.Kind == world.CmdStep || cmd.Kind == world.CmdEndTurn {
		s.broadcast(protocol.ReportsMsg{
			Type:            protocol.TypeReports,
			ProtocolVersion: protocol.Version,
			Turn:            res.Turn,
			Reports:         nonNil(res.Reports),
		})
	}
}

func decodeCommand(typ string, msg []byte) (world.Command, error) {
	switch typ {
	case protocol.TypeIssue:
		var m protocol.IssueMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return world.Command{}, err
		}
		return world.Command{
			Kind:  world.CmdIssue,
			Agent: m.Agent,
			Issue: runtimepkg.IssueRequest{
				Kind:            orders.Kind(m.Kind),
				Target:          m.Target,
				TargetKind:      orders.TargetKind(m.TargetKind),
				AttackOnArrival: m.AttackOnArrival,
				Condition:       m.Condition.Condition(),
			},
		}, nil
	case protocol.TypeRespond:
		var m protocol.RespondMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return world.Command{}, err
		}
		return world.Command{
			Kind:          world.CmdRespond,
			Agent:         m.Agent,
			InterruptKind: orders.InterruptKind(m.InterruptKind),
			Choice:        orders.Choice(m.Choice),
		}, nil
	case protocol.TypeCancel, protocol.TypeStep, protocol.TypeEndTurn:
		var m protocol.CommandMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return world.Command{}, err
		}
		kind := map[string]world.CommandKind{
			protocol.TypeCancel:  world.CmdCancel,
			protocol.TypeStep:    world.CmdStep,
			protocol.TypeEndTurn: world.CmdEndTurn,
		}[typ]
		return world.Command{Kind: kind, Agent: m.Agent}, nil
	}
	return world.Command{}, errors.New("unexpected message type " + typ)
}

func (s *Server) result(base protocol.BaseMessage, code, message string, res world.CommandResult) protocol.ResultMsg {
	return protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		Ref:             base.Ref,
		For:             base.Type,
		OK:              code == "",
		Code:            code,
		Message:         message,
		Turn:            res.Turn,
		Reports:         res.Reports,
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.ValidateInbound(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.CommandTimeout)
	defer cancel()
	pending, err := s.world.Submit(cctx, world.Command{Kind: world.CmdPending})
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, protocol.ErrWorldBusy), time.Now().Add(time.Second))
		return nil
	}

	sess := &session{
		id:       uuid.NewString(),
		operator: strings.TrimSpace(hello.Operator),
		side:     strings.TrimSpace(hello.Side),
		out:      make(chan []byte, 64),
		limiter:  rate.NewLimiter(rate.Limit(s.opts.RateLimit), s.opts.Burst),
	}

	// Welcome and outstanding decisions go out before the session can receive
	// broadcasts.
	if err := writeJSON(conn, protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		ScenarioID:      s.opts.ScenarioID,
		Turn:            pending.Turn,
		Side:            sess.side,
	}); err != nil {
		return nil
	}
	if err := writeJSON(conn, protocol.ReportsMsg{
		Type:            protocol.TypeReports,
		ProtocolVersion: protocol.Version,
		Turn:            pending.Turn,
		Reports:         nonNil(pending.Reports),
	}); err != nil {
		return nil
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess.out
	s.mu.Unlock()
	return sess
}

func (s *Server) unregister(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Server) send(sess *session, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).Warn("encode outbound message")
		return
	}
	select {
	case sess.out <- b:
	default:
		s.log.WithField("session", sess.id).Warn("outbound queue full; message dropped")
	}
}

func (s *Server) broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).Warn("encode broadcast")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, out := range s.sessions {
		select {
		case out <- b:
		default:
			s.log.WithField("session", id).Warn("outbound queue full; broadcast dropped")
		}
	}
}

func nonNil(reps []orders.Report) []orders.Report {
	if reps == nil {
		return []orders.Report{}
	}
	return reps
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
