package duty

import (
	"context"

	types "github.com/prysmaticlabs/eth2-types"

	"github.com/attestval/duties/core"
)

// The methods in this file are the engine's externally-exposed surface
// (spec §6 "Exposed"): each re-validates a message through gossip
// validation, broadcasts on Accept-or-Ignore, and returns an error only
// for Reject or a transport failure — unlike the internal duty paths,
// these never silently drop a caller-supplied message.

func (e *Engine) SendAttestation(ctx context.Context, att *core.Attestation, subnet uint64) error {
	if result := e.Gossip.ValidateAttestation(ctx, att, subnet); !result.BroadcastEligible() {
		return &GossipRejectedError{Reason: "attestation"}
	}
	return e.Network.BroadcastAttestation(ctx, subnet, att)
}

func (e *Engine) SendAggregateAndProof(ctx context.Context, agg *core.SignedAggregateAndProof) error {
	if result := e.Gossip.ValidateAggregate(ctx, agg); !result.BroadcastEligible() {
		return &GossipRejectedError{Reason: "aggregate_and_proof"}
	}
	return e.Network.BroadcastAggregate(ctx, agg)
}

func (e *Engine) SendVoluntaryExit(ctx context.Context, exit *core.VoluntaryExit) error {
	if result := e.Gossip.ValidateVoluntaryExit(ctx, exit); !result.BroadcastEligible() {
		return &GossipRejectedError{Reason: "voluntary_exit"}
	}
	return e.Network.BroadcastVoluntaryExit(ctx, exit)
}

func (e *Engine) SendAttesterSlashing(ctx context.Context, raw []byte) error {
	if result := e.Gossip.ValidateAttesterSlashing(ctx, raw); !result.BroadcastEligible() {
		return &GossipRejectedError{Reason: "attester_slashing"}
	}
	return e.Network.BroadcastAttesterSlashing(ctx, raw)
}

func (e *Engine) SendProposerSlashing(ctx context.Context, raw []byte) error {
	if result := e.Gossip.ValidateProposerSlashing(ctx, raw); !result.BroadcastEligible() {
		return &GossipRejectedError{Reason: "proposer_slashing"}
	}
	return e.Network.BroadcastProposerSlashing(ctx, raw)
}

// SendBeaconBlock additionally stores the block into the chain DAG and
// reports whether it was accepted (spec §6: "send_beacon_block
// additionally stores into the chain DAG and returns Ok(accepted: bool)").
func (e *Engine) SendBeaconBlock(ctx context.Context, block *core.SignedBeaconBlock) (bool, error) {
	if result := e.Gossip.ValidateBlock(ctx, block); !result.BroadcastEligible() {
		return false, &GossipRejectedError{Reason: "beacon_block"}
	}
	if err := e.Network.BroadcastBlock(ctx, block); err != nil {
		return false, err
	}
	return e.BlockProc.StoreBlock(ctx, block)
}

// SendSyncCommitteeMessages is the bulk external API entrypoint (spec
// §4.6, §6); it delegates directly to SubmitSyncCommitteeMessages.
func (e *Engine) SendSyncCommitteeMessages(ctx context.Context, headState core.StateHandle, currentSyncCommittee, nextSyncCommittee []types.ValidatorIndex, messages []core.SyncCommitteeMessage) []SubmitResult {
	return e.SubmitSyncCommitteeMessages(ctx, headState, currentSyncCommittee, nextSyncCommittee, messages)
}

func (e *Engine) SendSyncCommitteeContribution(ctx context.Context, c *core.SignedContributionAndProof) error {
	if result := e.Gossip.ValidateContribution(ctx, c); !result.BroadcastEligible() {
		return &GossipRejectedError{Reason: "contribution_and_proof"}
	}
	return e.Network.BroadcastContribution(ctx, c)
}
