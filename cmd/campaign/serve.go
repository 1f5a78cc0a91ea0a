package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"campaign.ai/internal/persistence/indexdb"
	persistlog "campaign.ai/internal/persistence/log"
	"campaign.ai/internal/persistence/snapshot"
	"campaign.ai/internal/sim/world"
	"campaign.ai/internal/transport/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the world loop behind the operator websocket endpoint",
	Long: `Serve loads a scenario (or resumes a snapshot), runs the world command
loop and exposes the operator protocol on /v1/ws.

Examples:
  campaign serve --scenario configs/scenario.yaml
  campaign serve --data ./data --load-latest-snapshot`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "http listen address")
	serveCmd.Flags().String("data", "data", "runtime data directory")
	serveCmd.Flags().String("tuning", "configs/tuning.yaml", "tuning.yaml path")
	serveCmd.Flags().String("scenario", "configs/scenario.yaml", "scenario.yaml path")
	serveCmd.Flags().String("snapshot", "", "resume from this snapshot file")
	serveCmd.Flags().Bool("load-latest-snapshot", false, "resume from the newest snapshot under --data")
	serveCmd.Flags().Bool("disable-db", false, "disable the sqlite index")
	serveCmd.Flags().Float64("rate-limit", 20, "inbound messages per second per connection")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	dataDir, _ := cmd.Flags().GetString("data")
	tuningPath, _ := cmd.Flags().GetString("tuning")
	scenarioPath, _ := cmd.Flags().GetString("scenario")
	snapPath, _ := cmd.Flags().GetString("snapshot")
	loadLatest, _ := cmd.Flags().GetBool("load-latest-snapshot")
	disableDB, _ := cmd.Flags().GetBool("disable-db")
	rateLimit, _ := cmd.Flags().GetFloat64("rate-limit")

	tune, err := loadTuning(tuningPath)
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
	if snapPath == "" && loadLatest {
		snapPath = latestSnapshot(dataDir)
	}

	var idx *indexdb.SQLiteIndex
	if !disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(dataDir, "index.sqlite"))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		digest, err := idx.UpsertTuning(tune)
		if err != nil {
			logger.WithError(err).Warn("index tuning")
		} else {
			logger.WithField("digest", digest).Debug("tuning recorded")
		}
	}

	turnLog := persistlog.NewTurnLogger(dataDir, tune.LogSegmentTurns)
	decisionLog := persistlog.NewDecisionLogger(dataDir, tune.LogSegmentTurns)
	defer turnLog.Close()
	defer decisionLog.Close()

	turnSinks := multiTurnLogger{turnLog}
	decisionSinks := multiDecisionLogger{decisionLog}
	if idx != nil {
		turnSinks = append(turnSinks, idx)
		decisionSinks = append(decisionSinks, idx)
	}

	snapCh := make(chan snapshot.SnapshotV1, 2)
	w, err := openWorld(world.Config{
		Tuning:         tune,
		Log:            logrus.NewEntry(logger),
		TurnLogger:     turnSinks,
		DecisionLogger: decisionSinks,
		SnapshotSink:   snapCh,
	}, scenarioPath, snapPath)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := w.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("world stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		writeSnapshots(gctx, dataDir, snapCh, idx)
		return nil
	})

	wsSrv := ws.NewServer(w, logrus.NewEntry(logger), ws.Options{
		ScenarioID: w.ScenarioID(),
		RateLimit:  rateLimit,
	})
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", wsSrv.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(w, idx))
	mux.HandleFunc("/admin/v1/snapshot", snapshotHandler(w))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.WithFields(logrus.Fields{"addr": addr, "scenario": w.ScenarioID()}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func writeSnapshots(ctx context.Context, dataDir string, ch <-chan snapshot.SnapshotV1, idx *indexdb.SQLiteIndex) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			path := snapshotPath(dataDir, snap.Header.Turn)
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				logger.WithError(err).WithField("turn", snap.Header.Turn).Warn("snapshot write")
				continue
			}
			logger.WithFields(logrus.Fields{"turn": snap.Header.Turn, "path": path}).Info("snapshot written")
			idx.RecordSnapshot(path, snap)
		}
	}
}

func metricsHandler(w *world.World, idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		res, err := w.Submit(ctx, world.Command{Kind: world.CmdPending})
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		scen := w.ScenarioID()

		fmt.Fprintf(rw, "# HELP campaign_turn Current campaign turn.\n")
		fmt.Fprintf(rw, "# TYPE campaign_turn gauge\n")
		fmt.Fprintf(rw, "campaign_turn{scenario=%q} %d\n", scen, res.Turn)

		fmt.Fprintf(rw, "# HELP campaign_pending_interrupts Orders frozen awaiting an operator decision.\n")
		fmt.Fprintf(rw, "# TYPE campaign_pending_interrupts gauge\n")
		fmt.Fprintf(rw, "campaign_pending_interrupts{scenario=%q} %d\n", scen, len(res.Reports))

		st := idx.Stats()
		fmt.Fprintf(rw, "# HELP campaign_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(rw, "# TYPE campaign_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "campaign_index_queue_depth{scenario=%q} %d\n", scen, st.QueueDepth)
		fmt.Fprintf(rw, "# HELP campaign_index_dropped_total Index writes dropped under backpressure.\n")
		fmt.Fprintf(rw, "# TYPE campaign_index_dropped_total counter\n")
		fmt.Fprintf(rw, "campaign_index_dropped_total{scenario=%q,kind=%q} %d\n", scen, "turn", st.DropTurnTotal)
		fmt.Fprintf(rw, "campaign_index_dropped_total{scenario=%q,kind=%q} %d\n", scen, "decision", st.DropDecisionTotal)
		fmt.Fprintf(rw, "campaign_index_dropped_total{scenario=%q,kind=%q} %d\n", scen, "snapshot", st.DropSnapshotTotal)
	}
}

// snapshotHandler forces a snapshot. Loopback callers only.
func snapshotHandler(w *world.World) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		res, err := w.Submit(ctx, world.Command{Kind: world.CmdSnapshot, Operator: "admin"})
		if err == nil {
			err = res.Err
		}
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "turn": res.Turn})
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
