package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"campaign.ai/internal/sim/orders"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

// StateDigest hashes everything that affects future turns. Two worlds with the
// same digest play out identically under the same commands.
func (w *World) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	h.Write([]byte(w.scenarioID))
	digestWriteI64(h, &tmp, int64(w.turn))
	digestWriteU64(h, &tmp, w.nextOrderNum.Load())

	for _, name := range w.regionNames {
		h.Write([]byte(name))
		for _, n := range w.regions[name] {
			h.Write([]byte(n))
		}
		h.Write([]byte{0})
	}

	for _, a := range w.SortedAgents() {
		h.Write([]byte(a.Name))
		h.Write([]byte(a.Side))
		h.Write([]byte(a.Disposition))
		h.Write([]byte(a.Location))
		h.Write([]byte{boolByte(a.Mounted), boolByte(a.Holding), boolByte(a.Fortified)})
		digestWriteI64(h, &tmp, int64(a.Strength))
		digestWriteI64(h, &tmp, int64(a.Reputation))
		digestWriteI64(h, &tmp, int64(a.DefenseBonus))
		digestWriteI64(h, &tmp, int64(a.IgnoreBattlesUntil))
		digestOrder(h, &tmp, a.Order)
		digestInterrupt(h, &tmp, a.Interrupt)
	}

	for _, b := range w.battles {
		h.Write([]byte(b.Location))
		for _, p := range b.Participants {
			h.Write([]byte(p))
		}
		h.Write([]byte(b.Result))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestOrder(h hashWriter, tmp *[8]byte, o *orders.Order) {
	if o == nil {
		h.Write([]byte{0})
		return
	}
	h.Write([]byte{1})
	h.Write([]byte(o.OrderID))
	h.Write([]byte(o.Kind))
	h.Write([]byte(o.Target))
	h.Write([]byte(o.TargetKind))
	digestWriteU64(h, tmp, uint64(len(o.RemainingPath)))
	for _, hop := range o.RemainingPath {
		h.Write([]byte(hop))
	}
	digestWriteI64(h, tmp, int64(o.IssuedTurn))
	digestWriteI64(h, tmp, int64(o.StartedTurn))
	digestWriteI64(h, tmp, int64(o.LastAdvancedTurn))
	digestWriteI64(h, tmp, int64(o.StatusReportedTurn))
	h.Write([]byte(o.SnapshotLocation))
	h.Write([]byte{boolByte(o.AttackOnArrival), boolByte(o.FollowConfirmed)})
	h.Write([]byte(o.LastCombatOpponent))
	digestWriteI64(h, tmp, int64(o.LastCombatTurn))
	if c := o.Condition; c != nil {
		digestWriteI64(h, tmp, int64(c.MaxTurns))
		h.Write([]byte(c.UntilArrives))
		h.Write([]byte(c.UntilDestroyed))
		h.Write([]byte{boolByte(c.UntilRelieved), boolByte(c.UntilDecisive)})
		h.Write([]byte(c.Expr))
	}
}

func digestInterrupt(h hashWriter, tmp *[8]byte, p *orders.PendingInterrupt) {
	if p == nil {
		h.Write([]byte{0})
		return
	}
	h.Write([]byte{1})
	h.Write([]byte(p.Kind))
	h.Write([]byte(p.OrderID))
	h.Write([]byte(p.Opponent))
	h.Write([]byte(p.Location))
	h.Write([]byte(p.Ally))
	h.Write([]byte{boolByte(p.IsFirstStep)})
	digestWriteI64(h, tmp, int64(p.RaisedTurn))
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
