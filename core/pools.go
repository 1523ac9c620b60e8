package core

import (
	"context"

	types "github.com/prysmaticlabs/eth2-types"
)

// AttestationPool is the mempool of attestations/aggregates this engine
// draws from for block assembly and aggregate production (spec §1, §6).
type AttestationPool interface {
	GetAttestationsForBlock(ctx context.Context, state StateHandle) ([]Attestation, error)
	GetAggregatedAttestation(ctx context.Context, slot types.Slot, committeeIndex types.CommitteeIndex) (*Attestation, bool, error)
}

// ExitPool supplies voluntary exits for block assembly.
type ExitPool interface {
	GetBeaconBlockExits(ctx context.Context, state StateHandle) ([]VoluntaryExit, error)
}

// SyncCommitteeMsgPool aggregates SyncCommitteeMessages into the sync
// aggregate carried by blocks and into per-subcommittee contributions
// (spec §4.2 step 5, §4.5).
type SyncCommitteeMsgPool interface {
	ProduceSyncAggregate(ctx context.Context, blockRoot Root) (*SyncAggregate, error)
	// ProduceContribution returns (false, zero) if the pool has nothing
	// for (slot, subcommittee) — spec §4.5 step 3, the PoolMiss case.
	ProduceContribution(ctx context.Context, slot types.Slot, blockRoot Root, subcommitteeIndex uint64) (bool, SyncCommitteeContribution, error)
}
