// Package slashing implements the append-only slashing-protection store
// (spec §3 "SlashingRecord", §4.9). Shape follows the teacher's
// validator/db/kv package: a single bbolt database, one bucket per
// concern, with reads and writes serialized by bbolt's own transaction
// semantics rather than an engine-side mutex.
package slashing

import (
	"context"

	types "github.com/prysmaticlabs/eth2-types"

	"github.com/attestval/duties/core"
)

// ConflictKind distinguishes why a register_* call refused a write, so
// callers and metrics can tell double proposals, double votes and
// surround votes apart.
type ConflictKind int

const (
	ConflictNone ConflictKind = iota
	ConflictDoubleProposal
	ConflictDoubleVote
	ConflictSurroundingVote
	ConflictSurroundedVote
)

func (k ConflictKind) String() string {
	switch k {
	case ConflictDoubleProposal:
		return "double_proposal"
	case ConflictDoubleVote:
		return "double_vote"
	case ConflictSurroundingVote:
		return "surrounding_vote"
	case ConflictSurroundedVote:
		return "surrounded_vote"
	default:
		return "none"
	}
}

// Conflict reports why a register_* call was refused, including enough of
// the pre-existing record for logging (spec §4.2 step 7's
// "existing_proposal_summary").
type Conflict struct {
	Kind ConflictKind

	// Populated for ConflictDoubleProposal.
	ExistingBlockSigningRoot core.Root

	// Populated for attestation conflicts.
	ExistingSourceEpoch types.Epoch
	ExistingTargetEpoch types.Epoch
	ExistingSigningRoot core.Root
}

// Protector is the slashing-protection gate: "may this validator sign
// block B at slot S?" and "may this validator attest source→target?"
// (spec §1, §3, §4.9). Every Ok write must be durable before the caller
// is permitted to proceed to a signer (spec §4.9 "Durability").
type Protector interface {
	// RegisterBlock records a proposal for (idx, slot) at signing_root.
	// Returns (true, zero) on success. Returns (false, conflict) if a
	// prior record exists for (idx, slot) with a different signing root;
	// replaying the identical signing root is idempotent and succeeds.
	RegisterBlock(ctx context.Context, idx types.ValidatorIndex, pubkey [48]byte, slot types.Slot, signingRoot core.Root) (bool, Conflict, error)

	// RegisterAttestation records a vote (source_epoch -> target_epoch)
	// for idx at signing_root, rejecting double and surround votes per
	// spec §3's SlashingRecord invariants.
	RegisterAttestation(ctx context.Context, idx types.ValidatorIndex, pubkey [48]byte, sourceEpoch, targetEpoch types.Epoch, signingRoot core.Root) (bool, Conflict, error)

	Close() error
}
