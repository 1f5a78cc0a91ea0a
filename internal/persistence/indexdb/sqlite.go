package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"campaign.ai/internal/persistence/snapshot"
	"campaign.ai/internal/sim/orders"
	"campaign.ai/internal/sim/tuning"
	"campaign.ai/internal/sim/world"
)

// SQLiteIndex is a queryable read model of the campaign logs. Writes are
// queued to one goroutine and dropped when it falls behind; the JSONL logs
// remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTurn     atomic.Uint64
	dropDecision atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqTurn reqKind = iota + 1
	reqDecision
	reqSnapshot
)

type req struct {
	kind reqKind

	turn     world.TurnLogEntry
	decision world.DecisionEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Turn       int
	ScenarioID string
	Path       string
	Agents     int
	Orders     int
	Interrupts int
	Battles    int
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropTurnTotal     uint64
	DropDecisionTotal uint64
	DropSnapshotTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tuning (
			digest TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			turn INTEGER PRIMARY KEY,
			scenario_id TEXT NOT NULL,
			digest TEXT NOT NULL,
			reports INTEGER NOT NULL,
			battles INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS reports (
			turn INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			agent TEXT NOT NULL,
			order_id TEXT NOT NULL,
			order_kind TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT NOT NULL,
			regions_moved INTEGER NOT NULL,
			interrupt_kind TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (turn, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_agent_turn ON reports(agent, turn);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_order ON reports(order_id);`,
		`CREATE TABLE IF NOT EXISTS interrupts (
			turn INTEGER NOT NULL,
			agent TEXT NOT NULL,
			order_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			location TEXT,
			opponent TEXT,
			ally TEXT,
			is_first_step INTEGER NOT NULL,
			PRIMARY KEY (turn, agent, order_id, kind)
		);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			turn INTEGER NOT NULL,
			operator TEXT,
			command TEXT NOT NULL,
			agent TEXT,
			order_id TEXT,
			interrupt_kind TEXT,
			choice TEXT,
			accepted INTEGER NOT NULL,
			code TEXT,
			message TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_agent_turn ON decisions(agent, turn);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			turn INTEGER PRIMARY KEY,
			scenario_id TEXT NOT NULL,
			path TEXT NOT NULL,
			agents INTEGER NOT NULL,
			orders INTEGER NOT NULL,
			interrupts INTEGER NOT NULL,
			battles INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTurnTotal:     s.dropTurn.Load(),
		DropDecisionTotal: s.dropDecision.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) WriteTurn(entry world.TurnLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTurn, turn: entry}:
	default:
		s.dropTurn.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteDecision(entry world.DecisionEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqDecision, decision: entry}:
	default:
		s.dropDecision.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Turn:       snap.Header.Turn,
		ScenarioID: snap.Header.ScenarioID,
		Path:       path,
		Agents:     len(snap.Agents),
		Battles:    len(snap.Battles),
	}
	for _, a := range snap.Agents {
		if a.Order != nil {
			r.Orders++
		}
		if a.Interrupt != nil {
			r.Interrupts++
		}
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertTuning stores the tuning values actually applied, keyed by digest.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) (string, error) {
	if s == nil {
		return "", nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	digest := hex.EncodeToString(sum[:])
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return "", err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('tuning_digest',?)`, digest); err != nil {
		return "", err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO tuning(digest,json,updated_at) VALUES(?,?,?)`, digest, string(b), now); err != nil {
		return "", err
	}
	return digest, tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertTurn, _ := s.db.Prepare(`INSERT OR REPLACE INTO turns(turn,scenario_id,digest,reports,battles,raw_json) VALUES(?,?,?,?,?,?)`)
	insertReport, _ := s.db.Prepare(`INSERT OR REPLACE INTO reports(turn,seq,agent,order_id,order_kind,status,message,regions_moved,interrupt_kind,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertInterrupt, _ := s.db.Prepare(`INSERT OR REPLACE INTO interrupts(turn,agent,order_id,kind,location,opponent,ally,is_first_step) VALUES(?,?,?,?,?,?,?,?)`)
	insertDecision, _ := s.db.Prepare(`INSERT INTO decisions(turn,operator,command,agent,order_id,interrupt_kind,choice,accepted,code,message,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(turn,scenario_id,path,agents,orders,interrupts,battles) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTurn, insertReport, insertInterrupt, insertDecision, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTurn:
			t := r.turn
			raw, _ := json.Marshal(t)
			if insertTurn != nil {
				if _, err := tx.Stmt(insertTurn).Exec(t.Turn, t.ScenarioID, t.Digest, len(t.Reports), len(t.Battles), string(raw)); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			if err := s.writeReports(tx, insertReport, insertInterrupt, t.Turn, t.Reports); err != nil {
				rollback()
				continue
			}
			opCount += len(t.Reports)

		case reqDecision:
			d := r.decision
			raw, _ := json.Marshal(d)
			if insertDecision != nil {
				if _, err := tx.Stmt(insertDecision).Exec(
					d.Turn,
					d.Operator,
					string(d.Command),
					d.Agent,
					d.OrderID,
					string(d.InterruptKind),
					string(d.Choice),
					boolInt(d.Accepted),
					d.Code,
					d.Message,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(sn.Turn, sn.ScenarioID, sn.Path, sn.Agents, sn.Orders, sn.Interrupts, sn.Battles); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}

func (s *SQLiteIndex) writeReports(tx *sql.Tx, insertReport, insertInterrupt *sql.Stmt, turn int, reps []orders.Report) error {
	if insertReport == nil {
		return nil
	}
	for i, rep := range reps {
		raw, _ := json.Marshal(rep)
		if _, err := tx.Stmt(insertReport).Exec(
			turn, i, rep.Agent, rep.OrderID, string(rep.OrderKind), string(rep.Status),
			rep.Message, rep.RegionsMoved, string(rep.InterruptKind), string(raw),
		); err != nil {
			return err
		}
		// Awaiting-input reports repeat an interrupt already recorded.
		if insertInterrupt == nil || !rep.RequiresInput || rep.Status == orders.StatusAwaitingInput {
			continue
		}
		if _, err := tx.Stmt(insertInterrupt).Exec(
			turn, rep.Agent, rep.OrderID, string(rep.InterruptKind),
			rep.Location, rep.Opponent, rep.Ally, boolInt(rep.IsFirstStep),
		); err != nil {
			return err
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
