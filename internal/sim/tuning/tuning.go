package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	FootMovement    int `yaml:"foot_movement" json:"foot_movement"`
	MountedMovement int `yaml:"mounted_movement" json:"mounted_movement"`

	// Hop radius scanned for battles that interrupt standing orders.
	CannonFireRadius int `yaml:"cannon_fire_radius" json:"cannon_fire_radius"`

	// Strength ratio above which an aggressive commander attacks a blocker unasked.
	AggressiveAttackRatio float64 `yaml:"aggressive_attack_ratio" json:"aggressive_attack_ratio"`
	// Minimum ratio for a sortie out of a hold position (1.0 = even odds).
	SortieMinRatio float64 `yaml:"sortie_min_ratio" json:"sortie_min_ratio"`
	// Ratio at which the default combat resolver calls a fight decisive.
	DecisiveRatio float64 `yaml:"decisive_ratio" json:"decisive_ratio"`

	HoldDefenseBonus    int `yaml:"hold_defense_bonus" json:"hold_defense_bonus"`
	FortifyDefenseBonus int `yaml:"fortify_defense_bonus" json:"fortify_defense_bonus"`

	ContinuePenalty int `yaml:"continue_penalty" json:"continue_penalty"`
	CancelPenalty   int `yaml:"cancel_penalty" json:"cancel_penalty"`

	SnapshotEveryTurns int `yaml:"snapshot_every_turns" json:"snapshot_every_turns"`
	LogSegmentTurns    int `yaml:"log_segment_turns" json:"log_segment_turns"`
}

func Defaults() Tuning {
	return Tuning{
		FootMovement:          1,
		MountedMovement:       2,
		CannonFireRadius:      2,
		AggressiveAttackRatio: 1.5,
		SortieMinRatio:        1.0,
		DecisiveRatio:         1.5,
		HoldDefenseBonus:      2,
		FortifyDefenseBonus:   1,
		ContinuePenalty:       1,
		CancelPenalty:         2,
		SnapshotEveryTurns:    10,
		LogSegmentTurns:       100,
	}
}

// Normalize fills zero or invalid values from Defaults.
func (t *Tuning) Normalize() {
	d := Defaults()
	if t.FootMovement <= 0 {
		t.FootMovement = d.FootMovement
	}
	if t.MountedMovement <= 0 {
		t.MountedMovement = d.MountedMovement
	}
	if t.CannonFireRadius <= 0 {
		t.CannonFireRadius = d.CannonFireRadius
	}
	if t.AggressiveAttackRatio <= 0 {
		t.AggressiveAttackRatio = d.AggressiveAttackRatio
	}
	if t.SortieMinRatio <= 0 {
		t.SortieMinRatio = d.SortieMinRatio
	}
	if t.DecisiveRatio <= 1 {
		t.DecisiveRatio = d.DecisiveRatio
	}
	if t.HoldDefenseBonus < 0 {
		t.HoldDefenseBonus = 0
	}
	if t.FortifyDefenseBonus < 0 {
		t.FortifyDefenseBonus = 0
	}
	if t.ContinuePenalty < 0 {
		t.ContinuePenalty = 0
	}
	if t.CancelPenalty <= 0 {
		t.CancelPenalty = d.CancelPenalty
	}
	if t.SnapshotEveryTurns < 0 {
		t.SnapshotEveryTurns = 0
	}
	if t.LogSegmentTurns <= 0 {
		t.LogSegmentTurns = d.LogSegmentTurns
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	return t, nil
}
