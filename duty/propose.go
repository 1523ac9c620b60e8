package duty

import (
	"context"
	"encoding/hex"

	types "github.com/prysmaticlabs/eth2-types"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/attestval/duties/core"
	"github.com/attestval/duties/metrics"
	"github.com/attestval/duties/params"
	"github.com/attestval/duties/sszutil"
	"github.com/attestval/duties/validatorkey"
)

// Propose implements the block-proposal path (spec §4.2). It returns the
// chain's new head on success, or head unchanged otherwise. The error is
// non-nil when the head is already at or past slot or the duty was
// aborted; a slot whose proposer is not locally attached, and a block
// the local store did not accept, return head with a nil error. Callers
// log and continue the catch-up loop regardless (spec §7 "the slot
// driver never surfaces errors").
func (e *Engine) Propose(ctx context.Context, head core.HeadRef, slot types.Slot) (core.HeadRef, error) {
	ctx, span := trace.StartSpan(ctx, "duty.Engine.Propose")
	defer span.End()

	if head.Slot() >= slot {
		log.WithFields(logrus.Fields{"headSlot": head.Slot(), "slot": slot}).Debug("chain advanced past proposal slot, skipping")
		return head, ErrHeadAheadOfSlot
	}

	proposerIndex, found, err := e.Chain.GetProposer(ctx, head, slot)
	if err != nil || !found {
		return head, err
	}

	validators := e.epochValidators(ctx, head, slot)
	handle, attached := e.Registry.GetByIndex(validators, proposerIndex)
	if !attached {
		return head, nil
	}

	fork := e.Chain.ForkAtEpoch(params.SlotToEpoch(slot))
	genesisRoot := e.Chain.GenesisValidatorsRoot()

	randaoDomain := sszutil.ComputeDomain(domainRandao(), fork.CurrentVersion, genesisRoot)
	randaoRoot := sszutil.Uint64Chunk(uint64(params.SlotToEpoch(slot)))
	randaoSigningRoot := sszutil.ComputeSigningRoot(randaoRoot, randaoDomain)
	randaoReveal, err := handle.Sign(ctx, validatorkey.SignRequest{Domain: validatorkey.DomainRandao, SigningRoot: randaoSigningRoot})
	if err != nil {
		metrics.BlocksFailed.WithLabelValues(pubkeyLabel(handle)).Inc()
		return head, ErrSignerFailure
	}

	block, err := e.makeBlockFor(ctx, head, slot, proposerIndex, randaoReveal)
	if err != nil {
		metrics.BlocksFailed.WithLabelValues(pubkeyLabel(handle)).Inc()
		return head, err
	}

	blockRoot := blockHashTreeRoot(block)
	proposerDomain := sszutil.ComputeDomain(domainBeaconProposer(), fork.CurrentVersion, genesisRoot)
	signingRoot := sszutil.ComputeSigningRoot(blockRoot, proposerDomain)

	ok, conflict, err := e.Protector.RegisterBlock(ctx, proposerIndex, handle.PublicKey(), slot, signingRoot)
	if err != nil {
		metrics.BlocksFailed.WithLabelValues(pubkeyLabel(handle)).Inc()
		return head, err
	}
	if !ok {
		log.WithFields(logrus.Fields{"slot": slot, "validator": proposerIndex, "existingRoot": conflict.ExistingBlockSigningRoot}).Warn("slashing protection tripped for block proposal")
		metrics.BlocksFailed.WithLabelValues(pubkeyLabel(handle)).Inc()
		return head, ErrSlashingProtectionTripped
	}

	sig, err := handle.Sign(ctx, validatorkey.SignRequest{Domain: validatorkey.DomainBlock, SigningRoot: signingRoot})
	if err != nil {
		metrics.BlocksFailed.WithLabelValues(pubkeyLabel(handle)).Inc()
		return head, ErrSignerFailure
	}

	signed := &core.SignedBeaconBlock{Block: *block, Signature: sig}

	if result := e.Gossip.ValidateBlock(ctx, signed); !result.BroadcastEligible() {
		metrics.BlocksFailed.WithLabelValues(pubkeyLabel(handle)).Inc()
		return head, &GossipRejectedError{Reason: "block"}
	}

	if err := e.Network.BroadcastBlock(ctx, signed); err != nil {
		log.WithError(err).Warn("could not broadcast proposed block")
	}

	accepted, err := e.BlockProc.StoreBlock(ctx, signed)
	if err != nil || !accepted {
		log.WithError(err).WithField("slot", slot).Warn("could not store proposed block locally")
		return head, nil
	}

	metrics.BlocksProposed.WithLabelValues(pubkeyLabel(handle)).Inc()

	newHead, err := e.Chain.Head(ctx)
	if err != nil {
		return head, nil
	}
	return newHead, nil
}

// pubkeyLabel gives metrics label cardinality a stable, short identifier
// per validator without printing the full 48-byte key on every sample.
func pubkeyLabel(h *validatorkey.Handle) string {
	pk := h.PublicKey()
	return hex.EncodeToString(pk[:6])
}
