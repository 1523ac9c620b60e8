// Package core defines the engine's data model (spec §3) and the
// interfaces of its external collaborators (spec §6): ChainView, the
// attestation/exit/sync-committee pools, the gossip validator, and the
// network broadcaster. These collaborators are implemented elsewhere (the
// fork-choice/chain DAG, the mempools, gossipsub) — this package only
// states the contract the duty engine drives them through.
package core

import (
	types "github.com/prysmaticlabs/eth2-types"
	"github.com/prysmaticlabs/go-bitfield"
)

// ValidatorKey is a 48-byte compressed BLS public key, totally ordered by
// its byte representation.
type ValidatorKey [48]byte

// Less gives ValidatorKey a total order over its byte representation.
func (k ValidatorKey) Less(other ValidatorKey) bool {
	for i := range k {
		if k[i] != other[i] {
			return k[i] < other[i]
		}
	}
	return false
}

// Root is a 32-byte Merkle/SSZ root.
type Root [32]byte

// Checkpoint pairs an epoch with the root of its boundary block.
type Checkpoint struct {
	Epoch types.Epoch
	Root  Root
}

// AttestationData is the unsigned content a validator votes for.
type AttestationData struct {
	Slot            types.Slot
	Index           types.CommitteeIndex
	BeaconBlockRoot Root
	Source          Checkpoint
	Target          Checkpoint
}

// Attestation is a single validator's (or aggregated) vote.
type Attestation struct {
	AggregationBits bitfield.Bitlist
	Data            AttestationData
	Signature       [96]byte
}

// AggregateAndProof wraps an aggregated attestation with the aggregator's
// selection proof (spec §4.4).
type AggregateAndProof struct {
	AggregatorIndex types.ValidatorIndex
	Aggregate       Attestation
	SelectionProof  [96]byte
}

// SignedAggregateAndProof is the broadcast-ready form.
type SignedAggregateAndProof struct {
	Message   AggregateAndProof
	Signature [96]byte
}

// Fork identifies the active fork version and its epoch of activation.
type Fork struct {
	PreviousVersion [4]byte
	CurrentVersion  [4]byte
	Epoch           types.Epoch
}

// ValidatorInfo is the subset of chain state the engine needs about a
// single validator: its index and current public key binding.
type ValidatorInfo struct {
	Index  types.ValidatorIndex
	PubKey ValidatorKey
}

// EpochRef is the view of chain state scoped to one epoch that the engine
// consults repeatedly: committees, proposer schedule, validator keys, and
// sync-committee membership (spec §3 "EpochRef").
type EpochRef struct {
	Epoch                 types.Epoch
	Fork                  Fork
	GenesisValidatorsRoot Root
	// JustifiedCheckpoint is the source checkpoint attestations built
	// against this epoch vote for (spec §3 "source = justified
	// checkpoint").
	JustifiedCheckpoint Checkpoint
	// Committees[slotOffset][committeeIndex] = validator indices, where
	// slotOffset = slot - StartSlot(Epoch).
	Committees [][][]types.ValidatorIndex
	// ProposerAtSlot maps a slot offset within the epoch to its proposer.
	ProposerAtSlot []types.ValidatorIndex
	Validators     map[types.ValidatorIndex]ValidatorInfo
	// CurrentSyncCommittee / NextSyncCommittee list member validator
	// indices in subcommittee order (length SyncCommitteeSize).
	CurrentSyncCommittee []types.ValidatorIndex
	NextSyncCommittee    []types.ValidatorIndex
}
