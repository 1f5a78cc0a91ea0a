package world

import (
	"github.com/sirupsen/logrus"

	"campaign.ai/internal/persistence/snapshot"
	"campaign.ai/internal/sim/combat"
	"campaign.ai/internal/sim/tuning"
)

type Config struct {
	Tuning   tuning.Tuning
	Resolver combat.Resolver
	Log      *logrus.Entry

	// Buffered command channel size for Run.
	InboxSize int

	TurnLogger     TurnLogger
	DecisionLogger DecisionLogger
	// Snapshots are handed off here every Tuning.SnapshotEveryTurns turns and
	// dropped when the sink is backed up.
	SnapshotSink chan<- snapshot.SnapshotV1
}

func (c *Config) applyDefaults() {
	if c.Tuning == (tuning.Tuning{}) {
		c.Tuning = tuning.Defaults()
	}
	c.Tuning.Normalize()
	if c.Resolver == nil {
		c.Resolver = combat.RatioResolver{DecisiveRatio: c.Tuning.DecisiveRatio}
	}
	if c.Log == nil {
		c.Log = discardLogger()
	}
	c.Log = c.Log.WithField("component", "world")
	if c.InboxSize <= 0 {
		c.InboxSize = 256
	}
}
