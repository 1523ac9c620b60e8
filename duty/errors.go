// Package duty implements the DutyEngine (spec §4.1-§4.8): the per-slot
// orchestrator that drives attached validators through proposal,
// attestation, aggregation, and sync-committee duties, gated by the
// slashing protector and gossip validator.
package duty

import "github.com/pkg/errors"

// Engine-internal error kinds (spec §7). Propose returns
// ErrHeadAheadOfSlot, ErrSlashingProtectionTripped and ErrSignerFailure;
// the attest/aggregate/sync-committee paths return nothing and log
// instead, and no path returns ErrNotSynced, ErrDoppelganger,
// ErrHeadBehindSlot or ErrPoolMiss. The slot driver itself never
// surfaces an error, only logs it.
var (
	ErrNotSynced                 = errors.New("not synced")
	ErrDoppelganger              = errors.New("doppelganger protection active")
	ErrHeadBehindSlot            = errors.New("head behind requested slot")
	ErrHeadAheadOfSlot           = errors.New("head already advanced past requested slot")
	ErrSlashingProtectionTripped = errors.New("slashing protection tripped")
	ErrSignerFailure             = errors.New("signer failure")
	ErrPoolMiss                  = errors.New("pool miss")
)

// GossipRejectedError wraps a gossip-validation rejection reason for
// external submissions (spec §7's GossipRejected(reason), returned to
// the caller verbatim rather than logged-and-dropped).
type GossipRejectedError struct {
	Reason string
}

func (e *GossipRejectedError) Error() string { return "gossip rejected: " + e.Reason }
