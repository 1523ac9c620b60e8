package core

import "context"

// ValidationResult distinguishes the three gossip-validation outcomes
// (spec §6). For self-produced messages, Accept and Ignore are both
// broadcast-eligible; only Reject blocks the send.
type ValidationResult int

const (
	ValidationAccept ValidationResult = iota
	ValidationIgnore
	ValidationReject
)

// BroadcastEligible reports whether r permits broadcasting a self-produced
// message, per spec §6 ("for self-produced messages Accept and Ignore are
// both broadcast-eligible").
func (r ValidationResult) BroadcastEligible() bool {
	return r == ValidationAccept || r == ValidationIgnore
}

// GossipValidator re-validates every self-produced message before
// broadcast (spec §1, §6) — even messages this engine itself just built,
// since gossip validation embeds rules (e.g. subnet correctness) the
// engine does not duplicate.
type GossipValidator interface {
	ValidateBlock(ctx context.Context, block *SignedBeaconBlock) ValidationResult
	ValidateAttestation(ctx context.Context, att *Attestation, subnet uint64) ValidationResult
	ValidateAggregate(ctx context.Context, agg *SignedAggregateAndProof) ValidationResult
	ValidateSyncMessage(ctx context.Context, msg *SyncCommitteeMessage, subnet uint64) ValidationResult
	ValidateContribution(ctx context.Context, c *SignedContributionAndProof) ValidationResult
	ValidateVoluntaryExit(ctx context.Context, exit *VoluntaryExit) ValidationResult
	ValidateAttesterSlashing(ctx context.Context, raw []byte) ValidationResult
	ValidateProposerSlashing(ctx context.Context, raw []byte) ValidationResult
}
