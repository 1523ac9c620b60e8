package core

import (
	types "github.com/prysmaticlabs/eth2-types"
	"github.com/prysmaticlabs/go-bitfield"
)

// SyncCommitteeMessage is one validator's per-slot sync-committee vote on
// the head block (spec §4.5, Altair+ only).
type SyncCommitteeMessage struct {
	Slot           types.Slot
	BeaconBlockRoot Root
	ValidatorIndex types.ValidatorIndex
	Signature      [96]byte
}

// SyncCommitteeContribution aggregates SyncCommitteeMessages from one
// subcommittee for one slot.
type SyncCommitteeContribution struct {
	Slot              types.Slot
	BeaconBlockRoot   Root
	SubcommitteeIndex uint64
	AggregationBits   bitfield.Bitvector128
	Signature         [96]byte
}

// ContributionAndProof wraps a contribution with the aggregator's
// subcommittee-specific selection proof (spec §4.5 step 3).
type ContributionAndProof struct {
	AggregatorIndex types.ValidatorIndex
	Contribution    SyncCommitteeContribution
	SelectionProof  [96]byte
}

// SignedContributionAndProof is the broadcast-ready form.
type SignedContributionAndProof struct {
	Message   ContributionAndProof
	Signature [96]byte
}
