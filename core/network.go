package core

import "context"

// Network is the gossip-broadcast collaborator (spec §1, §6). Topic names
// mirror the "named topics" the spec's data-flow diagram refers to.
type Network interface {
	BroadcastAttestation(ctx context.Context, subnet uint64, att *Attestation) error
	BroadcastAggregate(ctx context.Context, agg *SignedAggregateAndProof) error
	BroadcastSyncMessage(ctx context.Context, subnet uint64, msg *SyncCommitteeMessage) error
	BroadcastContribution(ctx context.Context, c *SignedContributionAndProof) error
	BroadcastVoluntaryExit(ctx context.Context, exit *VoluntaryExit) error
	BroadcastAttesterSlashing(ctx context.Context, raw []byte) error
	BroadcastProposerSlashing(ctx context.Context, raw []byte) error
	BroadcastBlock(ctx context.Context, block *SignedBeaconBlock) error
}
