package duty

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	types "github.com/prysmaticlabs/eth2-types"
	"go.opencensus.io/trace"

	"github.com/attestval/duties/core"
	"github.com/attestval/duties/metrics"
	"github.com/attestval/duties/params"
	"github.com/attestval/duties/sszutil"
	"github.com/attestval/duties/validatorkey"
)

// slotSignatureResult is one attached validator's slot-signature outcome
// from aggregate's steps 1-2 (spec §4.4): request then await, in
// parallel, every locally-attached committee member's slot signature
// before deciding which of them are aggregators.
type slotSignatureResult struct {
	handle         *validatorkey.Handle
	validatorIndex types.ValidatorIndex
	committeeIndex int
	committeeLen   int
	slotSignature  [96]byte
}

// Aggregate implements the aggregation path (spec §4.4).
func (e *Engine) Aggregate(ctx context.Context, head core.HeadRef, slot types.Slot) {
	ctx, span := trace.StartSpan(ctx, "duty.Engine.Aggregate")
	defer span.End()

	epoch := params.SlotToEpoch(slot)
	epochRef, err := e.Chain.GetEpochRef(ctx, head, epoch, true)
	if err != nil || epochRef == nil {
		return
	}
	slotOffset := int(uint64(slot) - uint64(params.StartSlot(epoch)))
	if slotOffset < 0 || slotOffset >= len(epochRef.Committees) {
		return
	}
	committeesAtSlot := epochRef.Committees[slotOffset]

	domain := sszutil.ComputeDomain(domainSelectionProof(), epochRef.Fork.CurrentVersion, epochRef.GenesisValidatorsRoot)
	slotSigningRoot := sszutil.SlotSigningRoot(slot, domain)

	var mu sync.Mutex
	var results []slotSignatureResult
	var wg sync.WaitGroup

	for committeeIndex, members := range committeesAtSlot {
		for _, validatorIndex := range members {
			info, ok := epochRef.Validators[validatorIndex]
			if !ok {
				continue
			}
			handle, attached := e.Registry.Get(info.PubKey)
			if !attached {
				continue
			}

			committeeIndex, committeeLen := committeeIndex, len(members)
			validatorIndex := validatorIndex
			wg.Add(1)
			goSafe(ctx, func() {
				defer wg.Done()
				sig, err := handle.Sign(ctx, validatorkey.SignRequest{Domain: validatorkey.DomainSelectionProof, SigningRoot: slotSigningRoot})
				if err != nil {
					log.WithError(err).Warn("slot signature request failed")
					return
				}
				mu.Lock()
				results = append(results, slotSignatureResult{
					handle:         handle,
					validatorIndex: validatorIndex,
					committeeIndex: committeeIndex,
					committeeLen:   committeeLen,
					slotSignature:  sig,
				})
				mu.Unlock()
			})
		}
	}
	wg.Wait()

	for _, r := range results {
		if !isAggregator(r.committeeLen, r.slotSignature) {
			continue
		}
		e.finishAggregate(ctx, epochRef, slot, r)
	}
}

// finishAggregate implements spec §4.4 step 3's make_aggregate_and_proof
// plus step 4's sign-and-broadcast.
func (e *Engine) finishAggregate(ctx context.Context, epochRef *core.EpochRef, slot types.Slot, r slotSignatureResult) {
	if e.AttPool == nil {
		return
	}
	aggregate, found, err := e.AttPool.GetAggregatedAttestation(ctx, slot, types.CommitteeIndex(r.committeeIndex))
	if err != nil || !found {
		return
	}

	msg := core.AggregateAndProof{
		AggregatorIndex: r.validatorIndex,
		Aggregate:       *aggregate,
		SelectionProof:  r.slotSignature,
	}

	proofRoot := sszutil.Merkleize([]core.Root{
		sszutil.Uint64Chunk(uint64(msg.AggregatorIndex)),
		sszutil.AttestationDataRoot(msg.Aggregate.Data),
		signatureDigest(msg.SelectionProof),
	})
	domain := sszutil.ComputeDomain(domainAggregateAndProof(), epochRef.Fork.CurrentVersion, epochRef.GenesisValidatorsRoot)
	signingRoot := sszutil.ComputeSigningRoot(proofRoot, domain)

	sig, err := r.handle.Sign(ctx, validatorkey.SignRequest{Domain: validatorkey.DomainAggregateAndProof, SigningRoot: signingRoot})
	if err != nil {
		metrics.AggregationsFailed.WithLabelValues(pubkeyLabel(r.handle)).Inc()
		return
	}

	signed := &core.SignedAggregateAndProof{Message: msg, Signature: sig}
	if result := e.Gossip.ValidateAggregate(ctx, signed); !result.BroadcastEligible() {
		metrics.AggregationsFailed.WithLabelValues(pubkeyLabel(r.handle)).Inc()
		return
	}
	if err := e.Network.BroadcastAggregate(ctx, signed); err != nil {
		metrics.AggregationsFailed.WithLabelValues(pubkeyLabel(r.handle)).Inc()
		return
	}
	metrics.AggregationsSubmitted.WithLabelValues(pubkeyLabel(r.handle)).Inc()
}

// signatureDigest folds a 96-byte BLS signature down to a 32-byte chunk
// for use as a container field leaf.
func signatureDigest(sig [96]byte) core.Root {
	return sha256.Sum256(sig[:])
}

// isAggregator implements the consensus spec's is_aggregator predicate:
// bytes_to_uint64(hash(slot_signature)[0:8]) % modulo == 0, where
// modulo = max(1, committee_len // TARGET_AGGREGATORS_PER_COMMITTEE).
func isAggregator(committeeLen int, slotSignature [96]byte) bool {
	digest := sha256.Sum256(slotSignature[:])
	target := params.BeaconConfig().TargetAggregatorsPerCommittee
	modulo := uint64(committeeLen) / target
	if modulo == 0 {
		modulo = 1
	}
	value := binary.LittleEndian.Uint64(digest[:8])
	return value%modulo == 0
}
