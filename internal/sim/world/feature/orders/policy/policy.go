package policy

import "campaign.ai/internal/sim/orders"

// CannonFire is what a commander does about a nearby battle it is not in.
type CannonFire int

const (
	CannonFireAsk CannonFire = iota
	CannonFireIgnore
	CannonFireInvestigate
)

// BlockedPath is what a commander does when the first hop of its move is
// occupied by a hostile.
type BlockedPath int

const (
	BlockedPathAsk BlockedPath = iota
	BlockedPathReroute
	BlockedPathAttackIfFavourable
)

// HoldStance is how a commander behaves once it stands on its hold region.
type HoldStance int

const (
	HoldSortie HoldStance = iota
	HoldImmovable
	HoldFortify
)

// AllyRelocating is what a supporting commander does when its ally is on
// the move before the two have joined.
type AllyRelocating int

const (
	AllyRelocatingRepath AllyRelocating = iota
	AllyRelocatingAsk
)

// Policy holds one disposition's answer at every decision point.
type Policy struct {
	CannonFire     CannonFire
	BlockedPath    BlockedPath
	HoldStance     HoldStance
	AllyRelocating AllyRelocating
}

var fallback = Policy{
	CannonFire:     CannonFireAsk,
	BlockedPath:    BlockedPathAsk,
	HoldStance:     HoldSortie,
	AllyRelocating: AllyRelocatingRepath,
}

var table = map[orders.Disposition]Policy{
	orders.Literal: {
		CannonFire:     CannonFireIgnore,
		BlockedPath:    BlockedPathReroute,
		HoldStance:     HoldImmovable,
		AllyRelocating: AllyRelocatingRepath,
	},
	orders.Aggressive: {
		CannonFire:     CannonFireInvestigate,
		BlockedPath:    BlockedPathAttackIfFavourable,
		HoldStance:     HoldSortie,
		AllyRelocating: AllyRelocatingRepath,
	},
	orders.Cautious: {
		CannonFire:     CannonFireAsk,
		BlockedPath:    BlockedPathAsk,
		HoldStance:     HoldFortify,
		AllyRelocating: AllyRelocatingAsk,
	},
}

// For returns the policy of d. Unclassified dispositions get the fallback.
func For(d orders.Disposition) Policy {
	if p, ok := table[d]; ok {
		return p
	}
	return fallback
}
