package core

import (
	"context"

	types "github.com/prysmaticlabs/eth2-types"
)

// BlockNotifier resolves when a new block for the given slot has arrived
// at the chain DAG, used by the attestation cutoff's race between block
// arrival and the attestation deadline (spec §4.1 "expectBlock(slot)").
type BlockNotifier interface {
	// ExpectBlock returns a channel that receives the arriving block's
	// root once, then closes. If ctx is cancelled first the channel is
	// simply never sent to; callers select against ctx.Done() as well.
	ExpectBlock(ctx context.Context, slot types.Slot) <-chan Root
}
