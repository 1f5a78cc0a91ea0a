package world

import "github.com/sirupsen/logrus"

// EndTurn closes the current turn and returns the new one. The turn log gets
// every report and battle of the closing turn; per-turn state is then reset.
func (w *World) EndTurn() int {
	closing := w.turn
	entry := TurnLogEntry{
		ScenarioID: w.scenarioID,
		Turn:       closing,
		Reports:    w.turnReports,
		Battles:    w.battles,
		Digest:     w.StateDigest(),
	}
	if w.turnLogger != nil {
		if err := w.turnLogger.WriteTurn(entry); err != nil {
			w.log.WithError(err).Warn("turn log write failed")
		}
	}

	w.turn++
	w.battles = nil
	w.turnReports = nil
	for _, a := range w.agents {
		a.ActionsThisTurn = 0
	}

	w.log.WithFields(logrus.Fields{
		"turn":    w.turn,
		"agents":  len(w.agents),
		"reports": len(entry.Reports),
		"battles": len(entry.Battles),
	}).Debug("turn ended")

	if every := w.tune.SnapshotEveryTurns; every > 0 && closing%every == 0 && w.snapshotSink != nil {
		select {
		case w.snapshotSink <- w.ExportSnapshot():
		default:
			w.log.WithField("turn", w.turn).Warn("snapshot dropped: sink backpressure")
		}
	}
	return w.turn
}
