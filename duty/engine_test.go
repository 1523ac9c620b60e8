package duty

import (
	"context"
	"sync"
	"testing"
	"time"

	types "github.com/prysmaticlabs/eth2-types"
	"github.com/stretchr/testify/require"

	"github.com/attestval/duties/clock"
	"github.com/attestval/duties/core"
	"github.com/attestval/duties/slashing"
	"github.com/attestval/duties/validatorkey"
)

// fakeSigner always returns a fixed, distinguishable signature so tests
// can assert on handle identity without a real BLS backend.
type fakeSigner struct {
	pubkey core.ValidatorKey
	sig    [96]byte
}

func (f *fakeSigner) PublicKey() core.ValidatorKey { return f.pubkey }
func (f *fakeSigner) Sign(ctx context.Context, req validatorkey.SignRequest) ([96]byte, error) {
	return f.sig, nil
}
func (f *fakeSigner) Close() error { return nil }

// fakeHead is a minimal core.HeadRef: AtSlot just returns a copy pinned to
// the requested slot, never actually rewinding any state.
type fakeHead struct {
	slot types.Slot
	root core.Root
}

func (h fakeHead) Slot() types.Slot { return h.slot }
func (h fakeHead) Root() core.Root  { return h.root }
func (h fakeHead) AtSlot(ctx context.Context, slot types.Slot) (core.HeadRef, error) {
	return fakeHead{slot: slot, root: h.root}, nil
}

// fakeState is the narrow StateHandle block assembly reads back.
type fakeState struct {
	slot types.Slot
	root core.Root
}

func (s fakeState) Slot() types.Slot    { return s.slot }
func (s fakeState) NumValidators() int  { return 1 }
func (s fakeState) StateRoot() core.Root { return s.root }

// fakeChain is a single-epoch, single-committee ChainView stub. One
// validator is both the slot's proposer and its sole committee member.
type fakeChain struct {
	head          core.HeadRef
	proposerIndex types.ValidatorIndex
	epochRef      *core.EpochRef
}

func (c *fakeChain) Head(ctx context.Context) (core.HeadRef, error) { return c.head, nil }
func (c *fakeChain) GetProposer(ctx context.Context, head core.HeadRef, slot types.Slot) (types.ValidatorIndex, bool, error) {
	return c.proposerIndex, true, nil
}
func (c *fakeChain) GetEpochRef(ctx context.Context, head core.HeadRef, epoch types.Epoch, preferCached bool) (*core.EpochRef, error) {
	return c.epochRef, nil
}
func (c *fakeChain) ForkAtEpoch(epoch types.Epoch) core.Fork {
	return core.Fork{PreviousVersion: [4]byte{1, 2, 3, 4}, CurrentVersion: [4]byte{1, 2, 3, 4}, Epoch: 0}
}
func (c *fakeChain) GenesisValidatorsRoot() core.Root { return core.Root{} }
func (c *fakeChain) SyncCommitteeParticipants(ctx context.Context, slot types.Slot) ([]types.ValidatorIndex, error) {
	return nil, nil
}
func (c *fakeChain) WithUpdatedState(ctx context.Context, head core.HeadRef, targetSlot types.Slot, fn func(core.StateHandle) error) error {
	return fn(fakeState{slot: targetSlot, root: core.Root{9}})
}

type fakeGossip struct{}

func (fakeGossip) ValidateBlock(ctx context.Context, b *core.SignedBeaconBlock) core.ValidationResult {
	return core.ValidationAccept
}
func (fakeGossip) ValidateAttestation(ctx context.Context, a *core.Attestation, subnet uint64) core.ValidationResult {
	return core.ValidationAccept
}
func (fakeGossip) ValidateAggregate(ctx context.Context, a *core.SignedAggregateAndProof) core.ValidationResult {
	return core.ValidationAccept
}
func (fakeGossip) ValidateSyncMessage(ctx context.Context, m *core.SyncCommitteeMessage, subnet uint64) core.ValidationResult {
	return core.ValidationAccept
}
func (fakeGossip) ValidateContribution(ctx context.Context, c *core.SignedContributionAndProof) core.ValidationResult {
	return core.ValidationAccept
}
func (fakeGossip) ValidateVoluntaryExit(ctx context.Context, e *core.VoluntaryExit) core.ValidationResult {
	return core.ValidationAccept
}
func (fakeGossip) ValidateAttesterSlashing(ctx context.Context, raw []byte) core.ValidationResult {
	return core.ValidationAccept
}
func (fakeGossip) ValidateProposerSlashing(ctx context.Context, raw []byte) core.ValidationResult {
	return core.ValidationAccept
}

// fakeNetwork records every broadcast call under a mutex for assertion.
type fakeNetwork struct {
	mu                 sync.Mutex
	blocksBroadcast    []*core.SignedBeaconBlock
	attsBroadcast      []*core.Attestation
	aggregatesBroadcast []*core.SignedAggregateAndProof
}

func (n *fakeNetwork) BroadcastAttestation(ctx context.Context, subnet uint64, att *core.Attestation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attsBroadcast = append(n.attsBroadcast, att)
	return nil
}
func (n *fakeNetwork) BroadcastAggregate(ctx context.Context, agg *core.SignedAggregateAndProof) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.aggregatesBroadcast = append(n.aggregatesBroadcast, agg)
	return nil
}
func (n *fakeNetwork) BroadcastSyncMessage(ctx context.Context, subnet uint64, msg *core.SyncCommitteeMessage) error {
	return nil
}
func (n *fakeNetwork) BroadcastContribution(ctx context.Context, c *core.SignedContributionAndProof) error {
	return nil
}
func (n *fakeNetwork) BroadcastVoluntaryExit(ctx context.Context, e *core.VoluntaryExit) error {
	return nil
}
func (n *fakeNetwork) BroadcastAttesterSlashing(ctx context.Context, raw []byte) error { return nil }
func (n *fakeNetwork) BroadcastProposerSlashing(ctx context.Context, raw []byte) error { return nil }
func (n *fakeNetwork) BroadcastBlock(ctx context.Context, block *core.SignedBeaconBlock) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.blocksBroadcast = append(n.blocksBroadcast, block)
	return nil
}

func (n *fakeNetwork) blockCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.blocksBroadcast)
}
func (n *fakeNetwork) attCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.attsBroadcast)
}

type fakeBlockProc struct{}

func (fakeBlockProc) StoreBlock(ctx context.Context, block *core.SignedBeaconBlock) (bool, error) {
	return true, nil
}

type fakeEth1 struct{}

func (fakeEth1) Eth1DataForBlock(ctx context.Context, head core.HeadRef, slot types.Slot) (core.Eth1Data, error) {
	return core.Eth1Data{}, nil
}

// fakeProtector is an in-memory stand-in for slashing.Protector; tests
// set rejectBlock or rejectAtt to make every block or attestation
// registration return a Conflict.
type fakeProtector struct {
	mu          sync.Mutex
	blockCalls  int
	attCalls    int
	rejectBlock bool
	rejectAtt   bool
}

func (p *fakeProtector) RegisterBlock(ctx context.Context, idx types.ValidatorIndex, pubkey [48]byte, slot types.Slot, signingRoot core.Root) (bool, slashing.Conflict, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blockCalls++
	if p.rejectBlock {
		return false, slashing.Conflict{Kind: slashing.ConflictDoubleProposal}, nil
	}
	return true, slashing.Conflict{}, nil
}

func (p *fakeProtector) RegisterAttestation(ctx context.Context, idx types.ValidatorIndex, pubkey [48]byte, sourceEpoch, targetEpoch types.Epoch, signingRoot core.Root) (bool, slashing.Conflict, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attCalls++
	if p.rejectAtt {
		return false, slashing.Conflict{Kind: slashing.ConflictDoubleVote}, nil
	}
	return true, slashing.Conflict{}, nil
}

func (p *fakeProtector) Close() error { return nil }

// testEngine builds an Engine wired with a single attached validator who
// is both slot 1's sole proposer and its sole committee member, and a
// genesis far enough in the past that every clock deadline has already
// elapsed (so OnSlot never actually blocks on a real sleep).
func testEngine(t *testing.T) (*Engine, *fakeNetwork, *fakeProtector, *validatorkey.Handle) {
	t.Helper()

	pubkey := core.ValidatorKey{42}
	signer := &fakeSigner{pubkey: pubkey, sig: [96]byte{1, 2, 3}}
	registry := validatorkey.NewRegistry()
	idx := types.ValidatorIndex(0)
	handle := registry.AddLocal(signer, &idx)

	epochRef := &core.EpochRef{
		Epoch:                 0,
		Fork:                  core.Fork{PreviousVersion: [4]byte{1, 2, 3, 4}, CurrentVersion: [4]byte{1, 2, 3, 4}},
		GenesisValidatorsRoot: core.Root{},
		JustifiedCheckpoint:   core.Checkpoint{Epoch: 0, Root: core.Root{7}},
		Committees: [][][]types.ValidatorIndex{
			{{0}}, // slot 0
			{{0}}, // slot 1
		},
		Validators: map[types.ValidatorIndex]core.ValidatorInfo{
			0: {Index: 0, PubKey: pubkey},
		},
	}

	head := fakeHead{slot: 0, root: core.Root{1}}
	chain := &fakeChain{head: head, proposerIndex: 0, epochRef: epochRef}
	network := &fakeNetwork{}
	protector := &fakeProtector{}

	genesis := time.Now().Add(-1000 * time.Hour)

	engine := New(&Engine{
		Clock:     clock.New(genesis),
		Chain:     chain,
		Gossip:    fakeGossip{},
		Network:   network,
		BlockProc: fakeBlockProc{},
		Eth1:      fakeEth1{},
		Protector: protector,
		Registry:  registry,
		Cfg:       Config{SyncHorizonSlots: 1000},
	}, head, 0)

	return engine, network, protector, handle
}

func TestOnSlot_NoAttachedValidators_NoOp(t *testing.T) {
	engine, network, _, _ := testEngine(t)
	engine.Registry = validatorkey.NewRegistry()

	engine.OnSlot(context.Background(), 1)

	require.Equal(t, 0, network.blockCount())
	require.Equal(t, 0, network.attCount())
}

func TestOnSlot_NotSynced_Skips(t *testing.T) {
	engine, network, _, _ := testEngine(t)
	engine.Cfg.SyncHorizonSlots = 0

	engine.OnSlot(context.Background(), 5)

	require.Equal(t, 0, network.blockCount())
}

func TestOnSlot_DoppelgangerGate_Skips(t *testing.T) {
	engine, network, _, _ := testEngine(t)
	engine.Cfg.DoppelgangerDetection = true
	engine.Cfg.DoppelgangerStartEpoch = 100

	engine.OnSlot(context.Background(), 1)

	require.Equal(t, 0, network.blockCount())
}

func TestOnSlot_ProposesAndAttests(t *testing.T) {
	engine, network, protector, _ := testEngine(t)

	engine.OnSlot(context.Background(), 1)

	require.Equal(t, 1, network.blockCount())
	require.Equal(t, 1, network.attCount())
	require.Equal(t, 1, protector.blockCalls)
	require.Equal(t, 1, protector.attCalls)
}

func TestPropose_SlashingProtectionTripped(t *testing.T) {
	engine, network, protector, _ := testEngine(t)
	protector.rejectBlock = true

	head := fakeHead{slot: 0, root: core.Root{1}}
	_, err := engine.Propose(context.Background(), head, 1)

	require.ErrorIs(t, err, ErrSlashingProtectionTripped)
	require.Equal(t, 0, network.blockCount())
}

func TestPropose_HeadAlreadyAtOrPastSlot(t *testing.T) {
	engine, network, _, _ := testEngine(t)

	head := fakeHead{slot: 5, root: core.Root{1}}
	_, err := engine.Propose(context.Background(), head, 5)

	require.ErrorIs(t, err, ErrHeadAheadOfSlot)
	require.Equal(t, 0, network.blockCount())
}

func TestAttest_SlashingConflictSkipsBroadcast(t *testing.T) {
	engine, network, protector, _ := testEngine(t)
	protector.rejectAtt = true

	head := fakeHead{slot: 0, root: core.Root{1}}
	engine.Attest(context.Background(), head, 1)

	require.Equal(t, 1, protector.attCalls)
	require.Equal(t, 0, network.attCount())
}

func TestComputeSubnetForAttestation(t *testing.T) {
	cases := []struct {
		committeesPerSlot uint64
		slot              types.Slot
		committeeIndex    uint64
		want              uint64
	}{
		{committeesPerSlot: 4, slot: 0, committeeIndex: 0, want: 0},
		{committeesPerSlot: 4, slot: 0, committeeIndex: 3, want: 3},
		{committeesPerSlot: 4, slot: 1, committeeIndex: 2, want: 6},
	}
	for _, tc := range cases {
		got := ComputeSubnetForAttestation(tc.committeesPerSlot, tc.slot, tc.committeeIndex)
		require.Equal(t, tc.want, got)
	}
}

func TestIsAggregator_Deterministic(t *testing.T) {
	sig := [96]byte{5, 6, 7}
	a := isAggregator(128, sig)
	b := isAggregator(128, sig)
	require.Equal(t, a, b)
}
