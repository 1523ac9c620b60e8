package duty

import (
	"context"
	"sync"

	types "github.com/prysmaticlabs/eth2-types"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/attestval/duties/core"
	"github.com/attestval/duties/metrics"
	"github.com/attestval/duties/params"
	"github.com/attestval/duties/sszutil"
	"github.com/attestval/duties/validatorkey"
)

// Attest implements the attestation path (spec §4.3): for every attached
// validator in every committee active this slot, build, gate, sign, and
// broadcast an attestation. Each validator's sign-and-broadcast runs on
// its own goroutine: a single validator's failure is logged and does not
// block or fail the others, and Attest returns once all of them have
// finished (spec §5 "Parallelism").
func (e *Engine) Attest(ctx context.Context, head core.HeadRef, slot types.Slot) {
	ctx, span := trace.StartSpan(ctx, "duty.Engine.Attest")
	defer span.End()

	if slot+params.BeaconConfig().SlotsPerEpoch < head.Slot() {
		return
	}

	attestationHead := head
	if rewound, err := head.AtSlot(ctx, slot); err == nil {
		attestationHead = rewound
	}

	epoch := params.SlotToEpoch(slot)
	epochRef, err := e.Chain.GetEpochRef(ctx, attestationHead, epoch, true)
	if err != nil || epochRef == nil {
		log.WithError(err).WithField("slot", slot).Warn("could not resolve epoch ref for attestation")
		return
	}

	slotOffset := int(uint64(slot) - uint64(params.StartSlot(epoch)))
	if slotOffset < 0 || slotOffset >= len(epochRef.Committees) {
		return
	}
	committeesAtSlot := epochRef.Committees[slotOffset]
	committeesPerSlot := uint64(len(committeesAtSlot))

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
			handle.SetIndex(validatorIndex)

			data := core.AttestationData{
				Slot:            slot,
				Index:           types.CommitteeIndex(committeeIndex),
				BeaconBlockRoot: attestationHead.Root(),
				Source:          epochRef.JustifiedCheckpoint,
				Target:          core.Checkpoint{Epoch: epoch, Root: attestationHead.Root()},
			}
			objectRoot := sszutil.AttestationDataRoot(data)
			domain := sszutil.ComputeDomain(domainBeaconAttester(), epochRef.Fork.CurrentVersion, epochRef.GenesisValidatorsRoot)
			signingRoot := sszutil.ComputeSigningRoot(objectRoot, domain)

			ok2, conflict, err := e.Protector.RegisterAttestation(ctx, validatorIndex, info.PubKey, data.Source.Epoch, data.Target.Epoch, signingRoot)
			if err != nil {
				log.WithError(err).WithField("validator", validatorIndex).Warn("slashing protector error, skipping attestation")
				continue
			}
			if !ok2 {
				log.WithFields(logrus.Fields{"validator": validatorIndex, "conflict": conflict.Kind.String()}).Warn("slashing protection tripped for attestation")
				metrics.SlashingProtectionRejections.WithLabelValues(pubkeyLabel(handle), conflict.Kind.String()).Inc()
				continue
			}

			committeeLen := len(members)
			committeeIndex := committeeIndex
			wg.Add(1)
			goSafe(ctx, func() {
				defer wg.Done()
				e.signAndBroadcastAttestation(ctx, handle, data, signingRoot, committeesPerSlot, committeeIndex, committeeLen)
			})
		}
	}
	wg.Wait()
}

func (e *Engine) signAndBroadcastAttestation(ctx context.Context, handle *validatorkey.Handle, data core.AttestationData, signingRoot core.Root, committeesPerSlot uint64, committeeIndex, committeeLen int) {
	sig, err := handle.Sign(ctx, validatorkey.SignRequest{Domain: validatorkey.DomainAttestation, SigningRoot: signingRoot})
	if err != nil {
		log.WithError(err).Warn("attestation signing failed")
		metrics.AttestationsFailed.WithLabelValues(pubkeyLabel(handle)).Inc()
		return
	}

	bits := make([]byte, (committeeLen+7)/8+1)
	att := &core.Attestation{Data: data, Signature: sig, AggregationBits: bits}

	subnet := ComputeSubnetForAttestation(committeesPerSlot, data.Slot, uint64(committeeIndex))

	if result := e.Gossip.ValidateAttestation(ctx, att, subnet); !result.BroadcastEligible() {
		metrics.AttestationsFailed.WithLabelValues(pubkeyLabel(handle)).Inc()
		return
	}

	if err := e.Network.BroadcastAttestation(ctx, subnet, att); err != nil {
		log.WithError(err).Warn("could not broadcast attestation")
		metrics.AttestationsFailed.WithLabelValues(pubkeyLabel(handle)).Inc()
		return
	}
	metrics.AttestationsSubmitted.WithLabelValues(pubkeyLabel(handle)).Inc()
}

// ComputeSubnetForAttestation implements compute_subnet_for_attestation
// exactly (spec §4.3: "must match the spec's formula exactly and is not
// cached across slots").
func ComputeSubnetForAttestation(committeesPerSlot uint64, slot types.Slot, committeeIndex uint64) uint64 {
	cfg := params.BeaconConfig()
	slotsSinceEpochStart := uint64(slot) % uint64(cfg.SlotsPerEpoch)
	committeesSinceEpochStart := committeesPerSlot * slotsSinceEpochStart
	return (committeesSinceEpochStart + committeeIndex) % attestationSubnetCount
}

const attestationSubnetCount = 64
