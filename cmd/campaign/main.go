package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"campaign.ai/internal/persistence/snapshot"
	"campaign.ai/internal/sim/tuning"
	"campaign.ai/internal/sim/world"
)

var (
	Version = "dev"

	verbose bool
	logger  *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "campaign",
	Short:   "Standing-order campaign engine",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(reportsCmd)
}

func newLogger(debug bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// loadTuning falls back to defaults when path does not exist.
func loadTuning(path string) (tuning.Tuning, error) {
	if path == "" {
		return tuning.Defaults(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.WithField("path", path).Warn("tuning file not found, using defaults")
		return tuning.Defaults(), nil
	}
	return tuning.Load(path)
}

// openWorld resumes from snapPath when set, otherwise starts scenarioPath.
func openWorld(cfg world.Config, scenarioPath, snapPath string) (*world.World, error) {
	if snapPath != "" {
		snap, err := snapshot.ReadSnapshot(snapPath)
		if err != nil {
			return nil, fmt.Errorf("read snapshot %s: %w", snapPath, err)
		}
		w, err := world.NewFromSnapshot(cfg, snap)
		if err != nil {
			return nil, fmt.Errorf("resume %s: %w", snapPath, err)
		}
		logger.WithFields(logrus.Fields{"snapshot": snapPath, "turn": snap.Header.Turn}).Info("resumed from snapshot")
		return w, nil
	}
	scen, err := world.LoadScenario(scenarioPath)
	if err != nil {
		return nil, err
	}
	return world.New(cfg, scen)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}

// latestSnapshot returns the highest-turn snapshot under dataDir/snapshots,
// or "" when there is none.
func latestSnapshot(dataDir string) string {
	dir := filepath.Join(dataDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	bestTurn := -1
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		turn, err := strconv.Atoi(strings.TrimSuffix(name, ".snap.zst"))
		if err != nil {
			continue
		}
		if turn > bestTurn {
			bestTurn = turn
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func snapshotPath(dataDir string, turn int) string {
	return filepath.Join(dataDir, "snapshots", fmt.Sprintf("%d.snap.zst", turn))
}

// Fan-out sinks: a failing sink is logged by the world and never blocks the
// others.
type multiTurnLogger []world.TurnLogger

func (m multiTurnLogger) WriteTurn(entry world.TurnLogEntry) error {
	var first error
	for _, l := range m {
		if err := l.WriteTurn(entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type multiDecisionLogger []world.DecisionLogger

func (m multiDecisionLogger) WriteDecision(entry world.DecisionEntry) error {
	var first error
	for _, l := range m {
		if err := l.WriteDecision(entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}
