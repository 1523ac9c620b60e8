package core

import (
	"context"

	types "github.com/prysmaticlabs/eth2-types"
)

// HeadRef is an opaque reference to a point in the chain DAG: the block the
// engine should build against. The concrete chain DAG/fork-choice
// implementation is out of scope (spec §1) — the engine only needs to ask
// it questions and hand it back out again.
type HeadRef interface {
	Slot() types.Slot
	Root() Root
	// AtSlot rewinds or replays this head's view to the given slot,
	// per spec §4.3 step 2 ("attestation_head = head.at_slot(slot)").
	AtSlot(ctx context.Context, slot types.Slot) (HeadRef, error)
}

// ChainView is the fork-choice/chain-DAG collaborator (spec §1, §6). It is
// implemented by the beacon node's chain package; this engine never
// mutates it except through BlockProcessor.StoreBlock.
type ChainView interface {
	Head(ctx context.Context) (HeadRef, error)
	GetProposer(ctx context.Context, head HeadRef, slot types.Slot) (types.ValidatorIndex, bool, error)
	GetEpochRef(ctx context.Context, head HeadRef, epoch types.Epoch, preferCached bool) (*EpochRef, error)
	ForkAtEpoch(epoch types.Epoch) Fork
	GenesisValidatorsRoot() Root
	// SyncCommitteeParticipants returns the sync committee active for the
	// given slot, in subcommittee order.
	SyncCommitteeParticipants(ctx context.Context, slot types.Slot) ([]types.ValidatorIndex, error)
	// WithUpdatedState clones head's state, lets fn advance/read it, and
	// discards the clone at scope end (spec §4.2 step 5, §5 "resource
	// policy": state clones are heap-allocated and released at scope end).
	WithUpdatedState(ctx context.Context, head HeadRef, targetSlot types.Slot, fn func(StateHandle) error) error
}

// StateHandle is the narrow view of a cloned, advanced beacon state that
// block assembly needs; the state-transition function itself is an
// external collaborator.
type StateHandle interface {
	Slot() types.Slot
	NumValidators() int
	// StateRoot is the advanced state's hash-tree-root, computed by the
	// state-transition collaborator — this engine only reads it back out
	// to populate the block skeleton's state_root field.
	StateRoot() Root
}

// BlockProcessor is the chain DAG's block-acceptance entry point, invoked
// after broadcast per spec §4.2 step 9 ("hand to BlockProcessor.store_block").
type BlockProcessor interface {
	StoreBlock(ctx context.Context, block *SignedBeaconBlock) (accepted bool, err error)
}

// ErrEth1DepositsUnavailable is returned by an eth1 data provider when pending
// deposits cannot be resolved (spec §4.2 step 5, §7).
var ErrEth1DepositsUnavailable = errKind("eth1 deposits unavailable")

type errKind string

func (e errKind) Error() string { return string(e) }

// Eth1DataProvider supplies the eth1 vote for block assembly.
type Eth1DataProvider interface {
	Eth1DataForBlock(ctx context.Context, head HeadRef, slot types.Slot) (Eth1Data, error)
}
