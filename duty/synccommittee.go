package duty

import (
	"context"
	"sync"

	types "github.com/prysmaticlabs/eth2-types"
	"go.opencensus.io/trace"

	"github.com/attestval/duties/core"
	"github.com/attestval/duties/metrics"
	"github.com/attestval/duties/params"
	"github.com/attestval/duties/sszutil"
	"github.com/attestval/duties/validatorkey"
)

// subcommitteeIndexOf partitions a full sync committee list into
// SyncCommitteeSubnetCount equal subcommittees, returning the index of
// the subcommittee the member at position belongs to.
func subcommitteeIndexOf(position int) uint64 {
	cfg := params.BeaconConfig()
	subcommitteeSize := cfg.SyncCommitteeSize / cfg.SyncCommitteeSubnetCount
	return uint64(position) / subcommitteeSize
}

// SyncCommitteeMessages implements the sync-committee message path (spec
// §4.5 "Messages"): the committee active at slot+1 owns slot's message,
// since the committee transitions on period boundaries measured from the
// next slot.
func (e *Engine) SyncCommitteeMessages(ctx context.Context, head core.HeadRef, slot types.Slot) {
	ctx, span := trace.StartSpan(ctx, "duty.Engine.SyncCommitteeMessages")
	defer span.End()

	epoch := params.SlotToEpoch(slot + 1)
	epochRef, err := e.Chain.GetEpochRef(ctx, head, epoch, true)
	if err != nil || epochRef == nil || len(epochRef.CurrentSyncCommittee) == 0 {
		return
	}

	domain := sszutil.ComputeDomain(domainSyncCommittee(), epochRef.Fork.CurrentVersion, epochRef.GenesisValidatorsRoot)
	signingRoot := sszutil.SyncCommitteeMessageRoot(head.Root())
	finalSigningRoot := sszutil.ComputeSigningRoot(signingRoot, domain)

	var wg sync.WaitGroup
	for position, validatorIndex := range epochRef.CurrentSyncCommittee {
		info, ok := epochRef.Validators[validatorIndex]
		if !ok {
			continue
		}
		handle, attached := e.Registry.Get(info.PubKey)
		if !attached {
			continue
		}
		if _, hasIndex := handle.Index(); !hasIndex {
			continue
		}

		subnet := subcommitteeIndexOf(position)
		validatorIndex := validatorIndex
		wg.Add(1)
		goSafe(ctx, func() {
			defer wg.Done()
			sig, err := handle.Sign(ctx, validatorkey.SignRequest{Domain: validatorkey.DomainSyncCommitteeMessage, SigningRoot: finalSigningRoot})
			if err != nil {
				log.WithError(err).Warn("sync committee message signing failed")
				return
			}
			msg := &core.SyncCommitteeMessage{Slot: slot, BeaconBlockRoot: head.Root(), ValidatorIndex: validatorIndex, Signature: sig}
			if result := e.Gossip.ValidateSyncMessage(ctx, msg, subnet); !result.BroadcastEligible() {
				return
			}
			if err := e.Network.BroadcastSyncMessage(ctx, subnet, msg); err != nil {
				log.WithError(err).Warn("could not broadcast sync committee message")
				return
			}
			metrics.SyncCommitteeMessagesSubmitted.WithLabelValues(pubkeyLabel(handle)).Inc()
		})
	}
	wg.Wait()
}

type syncSelectionResult struct {
	handle            *validatorkey.Handle
	validatorIndex    types.ValidatorIndex
	subcommitteeIndex uint64
	selectionProof    [96]byte
}

// SyncCommitteeContributions implements spec §4.5 "Contributions".
func (e *Engine) SyncCommitteeContributions(ctx context.Context, head core.HeadRef, slot types.Slot) {
	ctx, span := trace.StartSpan(ctx, "duty.Engine.SyncCommitteeContributions")
	defer span.End()

	epoch := params.SlotToEpoch(slot)
	epochRef, err := e.Chain.GetEpochRef(ctx, head, epoch, true)
	if err != nil || epochRef == nil || len(epochRef.CurrentSyncCommittee) == 0 {
		return
	}

	domain := sszutil.ComputeDomain(domainSyncCommitteeSelectionProof(), epochRef.Fork.CurrentVersion, epochRef.GenesisValidatorsRoot)

	var mu sync.Mutex
	var results []syncSelectionResult
	var wg sync.WaitGroup

	for position, validatorIndex := range epochRef.CurrentSyncCommittee {
		info, ok := epochRef.Validators[validatorIndex]
		if !ok {
			continue
		}
		handle, attached := e.Registry.Get(info.PubKey)
		if !attached {
			continue
		}
		subnet := subcommitteeIndexOf(position)
		validatorIndex := validatorIndex

		wg.Add(1)
		goSafe(ctx, func() {
			defer wg.Done()
			root := syncSelectionProofRoot(slot, subnet)
			signingRoot := sszutil.ComputeSigningRoot(root, domain)
			proof, err := handle.Sign(ctx, validatorkey.SignRequest{Domain: validatorkey.DomainSyncCommitteeSelectionProof, SigningRoot: signingRoot})
			if err != nil {
				log.WithError(err).Warn("sync committee selection proof request failed")
				return
			}
			mu.Lock()
			results = append(results, syncSelectionResult{handle: handle, validatorIndex: validatorIndex, subcommitteeIndex: subnet, selectionProof: proof})
			mu.Unlock()
		})
	}
	wg.Wait()

	for _, r := range results {
		if !isSyncCommitteeAggregator(r.selectionProof) {
			continue
		}
		e.finishSyncCommitteeContribution(ctx, epochRef, head, slot, r)
	}
}

func (e *Engine) finishSyncCommitteeContribution(ctx context.Context, epochRef *core.EpochRef, head core.HeadRef, slot types.Slot, r syncSelectionResult) {
	if e.SyncPool == nil {
		return
	}
	ok, contribution, err := e.SyncPool.ProduceContribution(ctx, slot, head.Root(), r.subcommitteeIndex)
	if err != nil || !ok {
		return
	}

	msg := core.ContributionAndProof{
		AggregatorIndex: r.validatorIndex,
		Contribution:    contribution,
		SelectionProof:  r.selectionProof,
	}

	proofRoot := sszutil.Merkleize([]core.Root{
		sszutil.Uint64Chunk(uint64(msg.AggregatorIndex)),
		sszutil.Uint64Chunk(uint64(contribution.SubcommitteeIndex)),
		contribution.BeaconBlockRoot,
		signatureDigest(msg.SelectionProof),
	})
	domain := sszutil.ComputeDomain(domainContributionAndProof(), epochRef.Fork.CurrentVersion, epochRef.GenesisValidatorsRoot)
	signingRoot := sszutil.ComputeSigningRoot(proofRoot, domain)

	sig, err := r.handle.Sign(ctx, validatorkey.SignRequest{Domain: validatorkey.DomainContributionAndProof, SigningRoot: signingRoot})
	if err != nil {
		return
	}

	signed := &core.SignedContributionAndProof{Message: msg, Signature: sig}
	if result := e.Gossip.ValidateContribution(ctx, signed); !result.BroadcastEligible() {
		return
	}
	if err := e.Network.BroadcastContribution(ctx, signed); err != nil {
		log.WithError(err).Warn("could not broadcast sync committee contribution")
		return
	}
	metrics.SyncCommitteeContributionsSubmitted.WithLabelValues(pubkeyLabel(r.handle)).Inc()
}

// syncSelectionProofRoot computes hash_tree_root(SyncAggregatorSelectionData{slot, subcommittee_index}).
func syncSelectionProofRoot(slot types.Slot, subcommitteeIndex uint64) core.Root {
	return sszutil.Merkleize([]core.Root{
		sszutil.Uint64Chunk(uint64(slot)),
		sszutil.Uint64Chunk(subcommitteeIndex),
	})
}

// isSyncCommitteeAggregator implements the consensus spec's threshold
// test on a hash of the selection proof (spec §4.5 step 3).
func isSyncCommitteeAggregator(proof [96]byte) bool {
	digest := signatureDigest(proof)
	cfg := params.BeaconConfig()
	subcommitteeSize := cfg.SyncCommitteeSize / cfg.SyncCommitteeSubnetCount
	modulo := subcommitteeSize / cfg.TargetAggregatorsPerSyncSubcommittee
	if modulo == 0 {
		modulo = 1
	}
	value := leUint64(digest[:8])
	return value%modulo == 0
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
