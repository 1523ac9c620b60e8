package duty

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	types "github.com/prysmaticlabs/eth2-types"
	"go.opencensus.io/trace"

	"github.com/attestval/duties/clock"
	"github.com/attestval/duties/core"
	"github.com/attestval/duties/metrics"
	"github.com/attestval/duties/params"
	"github.com/attestval/duties/shared/traceutil"
	"github.com/attestval/duties/slashing"
	"github.com/attestval/duties/validatorkey"
)

// validatorMetricsSampleSize bounds how many attached validators
// updateValidatorMetrics labels per call (spec's open question: registry
// iteration order is unspecified, so which 64 get labelled is not stable
// across restarts — acceptable for a cardinality-bounded sample, not for
// identity tracking).
const validatorMetricsSampleSize = 64

var log = logrus.WithField("prefix", "duty")

// Engine is the DutyEngine (spec §2 component 7, §4.1): the orchestrator
// driven once per tick by a BeaconClock. All engine logic runs on the
// calling goroutine; only individual signing/broadcast tasks within a
// slot are spawned concurrently (spec §5's single cooperative scheduler
// with a fan-out-then-join barrier per phase).
type Engine struct {
	Clock         *clock.BeaconClock
	Chain         core.ChainView
	AttPool       core.AttestationPool
	ExitPool      core.ExitPool
	SyncPool      core.SyncCommitteeMsgPool
	Gossip        core.GossipValidator
	Network       core.Network
	BlockProc     core.BlockProcessor
	Eth1          core.Eth1DataProvider
	BlockNotifier core.BlockNotifier
	Protector     slashing.Protector
	Registry      *validatorkey.Registry
	Tracker       *Tracker
	Cfg           Config

	mu       sync.Mutex
	head     core.HeadRef
	lastSlot types.Slot
}

// New constructs an Engine from cfg (its mu/head/lastSlot fields are
// ignored; cfg is not copied after construction so its embedded mutex is
// never duplicated). initialHead/initialSlot seed the catch-up loop's
// starting point.
func New(cfg *Engine, initialHead core.HeadRef, initialSlot types.Slot) *Engine {
	e := &Engine{
		Clock:         cfg.Clock,
		Chain:         cfg.Chain,
		AttPool:       cfg.AttPool,
		ExitPool:      cfg.ExitPool,
		SyncPool:      cfg.SyncPool,
		Gossip:        cfg.Gossip,
		Network:       cfg.Network,
		BlockProc:     cfg.BlockProc,
		Eth1:          cfg.Eth1,
		BlockNotifier: cfg.BlockNotifier,
		Protector:     cfg.Protector,
		Registry:      cfg.Registry,
		Tracker:       cfg.Tracker,
		Cfg:           cfg.Cfg,
		head:          initialHead,
		lastSlot:      initialSlot,
	}
	if e.Tracker == nil {
		e.Tracker = NewTracker()
	}
	return e
}

// OnSlot is the clock's entrypoint (spec §4.1): gates on attached
// validators, sync status, and doppelganger protection, then runs the
// catch-up loop from the engine's last-seen slot up to currentSlot,
// followed by the attestation and aggregate cutoffs for currentSlot.
// The slot driver never surfaces an error — it always returns after
// completing its best-effort work (spec §7 "Propagation policy").
func (e *Engine) OnSlot(ctx context.Context, currentSlot types.Slot) {
	ctx, span := trace.StartSpan(ctx, "duty.Engine.OnSlot")
	defer span.End()

	e.mu.Lock()
	lastSlot := e.lastSlot
	head := e.head
	e.mu.Unlock()

	if e.Registry.Len() == 0 {
		return
	}

	if head.Slot()+e.Cfg.SyncHorizonSlots < currentSlot {
		log.WithFields(logrus.Fields{"headSlot": head.Slot(), "currentSlot": currentSlot}).Warn("not synced, skipping duties")
		e.updateValidatorMetrics()
		return
	}

	if e.Cfg.DoppelgangerDetection && params.SlotToEpoch(currentSlot) < e.Cfg.DoppelgangerStartEpoch {
		log.Debug("doppelganger protection active, skipping duties")
		return
	}

	cur := lastSlot + 1
	for cur < currentSlot {
		newHead, err := e.Propose(ctx, head, cur)
		if err != nil {
			log.WithError(err).WithField("slot", cur).Warn("catch-up proposal failed")
		} else {
			head = newHead
		}
		e.Attest(ctx, head, cur)
		cur++
	}

	newHead, err := e.Propose(ctx, head, currentSlot)
	if err != nil {
		log.WithError(err).WithField("slot", currentSlot).Warn("proposal failed")
	} else {
		head = newHead
	}

	e.runAttestationCutoff(ctx, head, currentSlot)

	e.mu.Lock()
	e.head = head
	e.lastSlot = currentSlot
	e.mu.Unlock()
}

// runAttestationCutoff implements the one-third-slot attestation wait
// (racing block arrival against the deadline) followed by the
// two-thirds-slot aggregate cutoff (spec §4.1).
func (e *Engine) runAttestationCutoff(ctx context.Context, head core.HeadRef, slot types.Slot) {
	slotStart := e.Clock.SlotStart(slot)
	attestationDeadline := slotStart.Add(params.AttestationDeadlineOffset())

	waitCtx, cancel := context.WithTimeout(ctx, e.Clock.FromNow(attestationDeadline))
	defer cancel()

	var blockArrived <-chan core.Root
	if e.BlockNotifier != nil {
		blockArrived = e.BlockNotifier.ExpectBlock(waitCtx, slot)
	}

	select {
	case <-blockArrived:
		propagationDelay := 1000 * time.Millisecond
		bound := e.Clock.FromNow(attestationDeadline.Add(1000 * time.Millisecond))
		if propagationDelay > bound {
			propagationDelay = bound
		}
		time.Sleep(propagationDelay)
	case <-waitCtx.Done():
	}

	if updated, err := e.Chain.Head(ctx); err == nil {
		head = updated
	}

	e.Attest(ctx, head, slot)
	e.SyncCommitteeMessages(ctx, head, slot)
	e.updateValidatorMetrics()

	if slot > 2 {
		e.runAggregateCutoff(ctx, head, slot)
	}
}

func (e *Engine) runAggregateCutoff(ctx context.Context, head core.HeadRef, slot types.Slot) {
	slotStart := e.Clock.SlotStart(slot)
	aggregateDeadline := slotStart.Add(params.AggregateDeadlineOffset())

	select {
	case <-time.After(e.Clock.FromNow(aggregateDeadline)):
	case <-ctx.Done():
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	goSafe(ctx, func() {
		defer wg.Done()
		e.Aggregate(ctx, head, slot)
	})
	goSafe(ctx, func() {
		defer wg.Done()
		e.SyncCommitteeContributions(ctx, head, slot)
	})
	wg.Wait()
}

// updateValidatorMetrics reports each sampled attached validator's known-
// index status on ValidatorStatusGaugeVec (1 once an index has been seen
// on chain, 0 while still pending). It samples at most
// validatorMetricsSampleSize handles off Registry.Range, whose iteration
// order is unspecified — see the doc comment on validatorMetricsSampleSize.
func (e *Engine) updateValidatorMetrics() {
	n := 0
	e.Registry.Range(func(_ core.ValidatorKey, h *validatorkey.Handle) bool {
		status := 0.0
		if _, ok := h.Index(); ok {
			status = 1.0
		}
		metrics.ValidatorStatusGaugeVec.WithLabelValues(pubkeyLabel(h)).Set(status)
		n++
		return n < validatorMetricsSampleSize
	})
}

// goSafe spawns fn on its own goroutine and recovers any panic so that one
// validator's duty failing catastrophically never takes the process down;
// the recovered value is logged and attached to the span the same way a
// gRPC handler panic is (shared/traceutil.RecoveryHandlerFunc).
func goSafe(ctx context.Context, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				_ = traceutil.RecoveryHandlerFunc(ctx, r)
			}
		}()
		fn()
	}()
}
