package core

import types "github.com/prysmaticlabs/eth2-types"

// ForkVersion tags which fork a block/body belongs to. Modeled as a tagged
// sum per spec §9 ("forked block/state variant ... do not use open
// inheritance") rather than an inheritance hierarchy of block types.
type ForkVersion int

const (
	ForkUnknown ForkVersion = iota
	ForkPhase0
	ForkAltair
	ForkBellatrix
)

// Eth1Data is the validator's vote on the eth1 deposit chain head.
type Eth1Data struct {
	DepositRoot  Root
	DepositCount uint64
	BlockHash    Root
}

// SyncAggregate is nil on Phase0 block bodies; Altair+ bodies carry one
// built from the sync-message pool's produce_sync_aggregate (spec §4.2
// step 5, §6).
type SyncAggregate struct {
	SyncCommitteeBits      []byte // raw little-endian bitvector, SyncCommitteeSize bits wide
	SyncCommitteeSignature [96]byte
}

// VoluntaryExit is a validator-signed request to exit, surfaced via the
// exit pool (external collaborator, spec §6).
type VoluntaryExit struct {
	Epoch          types.Epoch
	ValidatorIndex types.ValidatorIndex
}

// BeaconBlockBody carries the fork-specific payload. Only the fields this
// engine assembles/reads are modeled; execution-payload and deposit
// handling are owned by collaborators referenced only by interface.
type BeaconBlockBody struct {
	RandaoReveal      [96]byte
	Eth1Data          Eth1Data
	Graffiti          [32]byte
	Attestations      []Attestation
	VoluntaryExits    []VoluntaryExit
	SyncAggregate     *SyncAggregate // nil for Phase0
}

// BeaconBlock is the fork-tagged union described in spec §9: a single
// skeleton (slot, proposer, parent/state root, body) with a Fork tag
// dispatched on at signing/broadcast time rather than via a block-type
// class hierarchy.
type BeaconBlock struct {
	Fork          ForkVersion
	Slot          types.Slot
	ProposerIndex types.ValidatorIndex
	ParentRoot    Root
	StateRoot     Root
	Body          BeaconBlockBody
}

// SignedBeaconBlock is the broadcast-ready, signed form.
type SignedBeaconBlock struct {
	Block     BeaconBlock
	Signature [96]byte
}
