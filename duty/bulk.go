package duty

import (
	"context"
	"fmt"
	"sync"

	types "github.com/prysmaticlabs/eth2-types"

	"github.com/attestval/duties/core"
	"github.com/attestval/duties/params"
)

// SubmitResult is one element of SubmitSyncCommitteeMessages' returned
// vector: either ok, or a specific rejection string, in input order
// (spec §4.6: "preserve input order in the returned result vector; each
// element is Ok or a specific Err string").
type SubmitResult struct {
	Err string // empty means Ok
}

// SubmitSyncCommitteeMessages implements the bulk sync-committee message
// submission external API path (spec §4.6). Unlike the per-slot
// SyncCommitteeMessages path (which signs and sends this engine's own
// attached validators' messages), this path accepts already-signed
// messages from a caller and only validates, routes, and broadcasts
// them.
func (e *Engine) SubmitSyncCommitteeMessages(ctx context.Context, headState core.StateHandle, currentSyncCommittee, nextSyncCommittee []types.ValidatorIndex, messages []core.SyncCommitteeMessage) []SubmitResult {
	results := make([]SubmitResult, len(messages))

	curPeriod := syncCommitteePeriod(headState.Slot())
	nxtPeriod := curPeriod + 1

	cfg := params.BeaconConfig()
	subcommitteeSize := cfg.SyncCommitteeSize / cfg.SyncCommitteeSubnetCount

	var wg sync.WaitGroup
	for i := range messages {
		msg := messages[i]
		msgPeriod := syncCommitteePeriod(msg.Slot)

		if msgPeriod != curPeriod && msgPeriod != nxtPeriod {
			results[i] = SubmitResult{Err: fmt.Sprintf("message slot %d is outside the current or next sync committee period", msg.Slot)}
			continue
		}
		if int(msg.ValidatorIndex) >= headState.NumValidators() {
			results[i] = SubmitResult{Err: fmt.Sprintf("validator index %d out of range", msg.ValidatorIndex)}
			continue
		}

		committee := currentSyncCommittee
		if msgPeriod == nxtPeriod {
			committee = nextSyncCommittee
		}
		position, found := indexOf(committee, msg.ValidatorIndex)
		if !found {
			results[i] = SubmitResult{Err: fmt.Sprintf("validator %d is not a member of the sync committee for period %d", msg.ValidatorIndex, msgPeriod)}
			continue
		}
		subnet := uint64(position) / subcommitteeSize
		i := i

		wg.Add(1)
		goSafe(ctx, func() {
			defer wg.Done()
			if result := e.Gossip.ValidateSyncMessage(ctx, &msg, subnet); !result.BroadcastEligible() {
				results[i] = SubmitResult{Err: "gossip validation rejected message"}
				return
			}
			if err := e.Network.BroadcastSyncMessage(ctx, subnet, &msg); err != nil {
				results[i] = SubmitResult{Err: err.Error()}
				return
			}
			results[i] = SubmitResult{}
		})
	}
	wg.Wait()

	return results
}

func syncCommitteePeriod(slot types.Slot) uint64 {
	epoch := params.SlotToEpoch(slot)
	return uint64(epoch) / epochsPerSyncCommitteePeriod
}

// epochsPerSyncCommitteePeriod is the consensus-spec constant
// EPOCHS_PER_SYNC_COMMITTEE_PERIOD (256 on mainnet); it is not a field
// SPEC_FULL.md's BeaconChainConfig carries (no component other than this
// period computation needs it), so it is kept local to this file rather
// than added to params for a single call site.
const epochsPerSyncCommitteePeriod = 256

func indexOf(committee []types.ValidatorIndex, idx types.ValidatorIndex) (int, bool) {
	for i, v := range committee {
		if v == idx {
			return i, true
		}
	}
	return 0, false
}
