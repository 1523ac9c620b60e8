package duty

import (
	"context"
	"sync"

	types "github.com/prysmaticlabs/eth2-types"

	"github.com/attestval/duties/core"
	"github.com/attestval/duties/params"
	"github.com/attestval/duties/sszutil"
	"github.com/attestval/duties/validatorkey"
)

// ScheduledAction is one attached validator's upcoming duty, known one
// subnet-subscription lead-time window ahead (spec §4.8,
// "register_duties").
type ScheduledAction struct {
	Slot           types.Slot
	Subnet         uint64
	ValidatorIndex types.ValidatorIndex
	IsAggregator   bool
}

// Tracker is the ActionTracker (spec §2 component 8): it records
// upcoming subnet subscriptions and aggregator selections so the
// network layer can subscribe to gossip subnets ahead of when they're
// needed, rather than reactively per-slot.
type Tracker struct {
	mu      sync.Mutex
	bySlot  map[types.Slot][]ScheduledAction
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{bySlot: make(map[types.Slot][]ScheduledAction)}
}

// record appends action under slot.
func (t *Tracker) record(slot types.Slot, action ScheduledAction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bySlot[slot] = append(t.bySlot[slot], action)
}

// NextAttestationSlot returns the earliest recorded attestation-bearing
// slot at or after from, and whether one exists (spec §4.8's
// next_attestation_slot). OnSlot's gates do not consult it.
func (t *Tracker) NextAttestationSlot(from types.Slot) (types.Slot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	best := types.Slot(0)
	found := false
	for slot, actions := range t.bySlot {
		if slot < from || len(actions) == 0 {
			continue
		}
		if !found || slot < best {
			best = slot
			found = true
		}
	}
	return best, found
}

// NextProposalSlot mirrors NextAttestationSlot for proposal duties; the
// tracker only records attestation/aggregation subnet subscriptions
// (spec §4.8 scope), so proposal lookahead always reports none — callers
// fall back to ChainView.get_proposer directly for the immediate slot.
func (t *Tracker) NextProposalSlot(from types.Slot) (types.Slot, bool) {
	return 0, false
}

// Prune discards recorded actions for slots strictly before slot, since
// the tracker only needs to answer "what's coming up", not retain
// history.
func (t *Tracker) Prune(before types.Slot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for slot := range t.bySlot {
		if slot < before {
			delete(t.bySlot, slot)
		}
	}
}

// RegisterDuties implements spec §4.8: for each slot in
// [wallSlot, wallSlot+SUBNET_SUBSCRIPTION_LEAD_TIME_SLOTS), resolve
// committees and for each attached member compute subnet, request a
// slot signature, compute is_aggregator, and record the result.
func (e *Engine) RegisterDuties(ctx context.Context, head core.HeadRef, wallSlot types.Slot) {
	lead := params.BeaconConfig().SubnetSubscriptionLeadTimeSlots
	for slot := wallSlot; slot < wallSlot+lead; slot++ {
		e.registerDutiesForSlot(ctx, head, slot)
	}
}

func (e *Engine) registerDutiesForSlot(ctx context.Context, head core.HeadRef, slot types.Slot) {
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
	committeesPerSlot := uint64(len(committeesAtSlot))

	domain := sszutil.ComputeDomain(domainSelectionProof(), epochRef.Fork.CurrentVersion, epochRef.GenesisValidatorsRoot)
	signingRoot := sszutil.SlotSigningRoot(slot, domain)

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
			subnet := ComputeSubnetForAttestation(committeesPerSlot, slot, uint64(committeeIndex))
			e.recordAction(ctx, handle, validatorIndex, slot, subnet, signingRoot, len(members))
		}
	}
}

func (e *Engine) recordAction(ctx context.Context, handle *validatorkey.Handle, validatorIndex types.ValidatorIndex, slot types.Slot, subnet uint64, signingRoot core.Root, committeeLen int) {
	sig, err := handle.Sign(ctx, validatorkey.SignRequest{Domain: validatorkey.DomainSelectionProof, SigningRoot: signingRoot})
	if err != nil {
		return
	}
	e.Tracker.record(slot, ScheduledAction{
		Slot:           slot,
		Subnet:         subnet,
		ValidatorIndex: validatorIndex,
		IsAggregator:   isAggregator(committeeLen, sig),
	})
}
