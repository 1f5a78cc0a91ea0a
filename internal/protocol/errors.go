package protocol

import (
	"errors"

	runtimepkg "campaign.ai/internal/sim/world/feature/orders/runtime"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Session/routing.
	ErrWorldBusy   = "E_WORLD_BUSY"
	ErrWorldDenied = "E_WORLD_DENIED"

	// Rule/action layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrNotFound      = "E_NOT_FOUND"
	ErrNoOrder       = "E_NO_ORDER"
	ErrNoInterrupt   = "E_NO_INTERRUPT"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrInvalidChoice = "E_INVALID_CHOICE"
	ErrRateLimit     = "E_RATE_LIMIT"
	ErrConflict      = "E_CONFLICT"
	ErrBlocked       = "E_BLOCKED"
	ErrStale         = "E_STALE"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrWorldBusy:       {},
	ErrWorldDenied:     {},
	ErrBadRequest:      {},
	ErrNotFound:        {},
	ErrNoOrder:         {},
	ErrNoInterrupt:     {},
	ErrInvalidTarget:   {},
	ErrInvalidChoice:   {},
	ErrRateLimit:       {},
	ErrConflict:        {},
	ErrBlocked:         {},
	ErrStale:           {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeFor maps an engine error onto a wire code. Nil maps to "".
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, runtimepkg.ErrUnknownAgent):
		return ErrNotFound
	case errors.Is(err, runtimepkg.ErrInvalidOrder):
		return ErrInvalidTarget
	case errors.Is(err, runtimepkg.ErrNoOrder):
		return ErrNoOrder
	case errors.Is(err, runtimepkg.ErrNoInterrupt):
		return ErrNoInterrupt
	case errors.Is(err, runtimepkg.ErrInterruptMismatch):
		return ErrConflict
	case errors.Is(err, runtimepkg.ErrInvalidChoice):
		return ErrInvalidChoice
	case errors.Is(err, runtimepkg.ErrStaleInterrupt):
		return ErrStale
	case errors.Is(err, runtimepkg.ErrForeignAgent):
		return ErrWorldDenied
	}
	return ErrInternal
}
