package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version    int    `json:"version"`
	ScenarioID string `json:"scenario_id"`
	Turn       int    `json:"turn"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Regions []RegionV1 `json:"regions"`
	Agents  []AgentV1  `json:"agents"`
	Battles []BattleV1 `json:"battles,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type RegionV1 struct {
	Name     string   `json:"name"`
	Adjacent []string `json:"adjacent"`
}

type AgentV1 struct {
	Name        string `json:"name"`
	Side        string `json:"side"`
	Disposition string `json:"disposition"`
	Mounted     bool   `json:"mounted,omitempty"`

	Strength   int    `json:"strength"`
	Location   string `json:"location"`
	Reputation int    `json:"reputation"`

	Holding      bool `json:"holding,omitempty"`
	DefenseBonus int  `json:"defense_bonus,omitempty"`
	Fortified    bool `json:"fortified,omitempty"`

	IgnoreBattlesUntil int `json:"ignore_battles_until,omitempty"`

	LastCombatOpponent string `json:"last_combat_opponent,omitempty"`
	LastCombatTurn     int    `json:"last_combat_turn,omitempty"`
	LastCombatResult   string `json:"last_combat_result,omitempty"`

	ActionsThisTurn int `json:"actions_this_turn,omitempty"`

	Order     *OrderV1     `json:"order,omitempty"`
	Interrupt *InterruptV1 `json:"interrupt,omitempty"`
}

type OrderV1 struct {
	OrderID    string `json:"order_id"`
	Kind       string `json:"kind"`
	Target     string `json:"target"`
	TargetKind string `json:"target_kind"`

	RemainingPath []string `json:"remaining_path,omitempty"`

	IssuedTurn       int `json:"issued_turn"`
	StartedTurn      int `json:"started_turn"`
	LastAdvancedTurn int `json:"last_advanced_turn"`

	StatusReportedTurn int `json:"status_reported_turn,omitempty"`

	Condition *ConditionV1 `json:"condition,omitempty"`

	SnapshotLocation string `json:"snapshot_location,omitempty"`
	AttackOnArrival  bool   `json:"attack_on_arrival,omitempty"`
	FollowConfirmed  bool   `json:"follow_confirmed,omitempty"`

	LastCombatOpponent string `json:"last_combat_opponent,omitempty"`
	LastCombatTurn     int    `json:"last_combat_turn,omitempty"`
	LastCombatResult   string `json:"last_combat_result,omitempty"`
}

type ConditionV1 struct {
	MaxTurns       int    `json:"max_turns,omitempty"`
	UntilArrives   string `json:"until_arrives,omitempty"`
	UntilDestroyed string `json:"until_destroyed,omitempty"`
	UntilRelieved  bool   `json:"until_relieved,omitempty"`
	UntilDecisive  bool   `json:"until_decisive,omitempty"`
	Expr           string `json:"expr,omitempty"`
}

type InterruptV1 struct {
	Kind         string   `json:"kind"`
	OrderID      string   `json:"order_id"`
	Opponent     string   `json:"opponent,omitempty"`
	Location     string   `json:"location,omitempty"`
	Ally         string   `json:"ally,omitempty"`
	IsFirstStep  bool     `json:"is_first_step,omitempty"`
	RaisedTurn   int      `json:"raised_turn"`
	ValidChoices []string `json:"valid_choices"`
}

type BattleV1 struct {
	Location     string   `json:"location"`
	Participants []string `json:"participants"`
	Result       string   `json:"result,omitempty"`
}

type CountersV1 struct {
	NextOrder uint64 `json:"next_order"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is repeated inside the gob body.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line, without touching the body.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
