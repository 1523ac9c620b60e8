// Package validatorkey implements the attached-validator registry (spec
// §3 "AttachedValidator", §4.7): the map from public key to a handle that
// dispatches signing either to an in-process keystore or to a remote
// HTTP signer, plus the lazily-populated ValidatorIndex contract.
package validatorkey

import (
	"context"

	types "github.com/prysmaticlabs/eth2-types"

	"github.com/attestval/duties/core"
)

// SignRequestDomain identifies which of the signer's signing-root
// recipes to use, mirroring the teacher's keymanager.SignatureDomain
// enumeration in validator/keymanager/types.go.
type SignRequestDomain int

const (
	DomainBlock SignRequestDomain = iota
	DomainAttestation
	DomainRandao
	DomainSelectionProof
	DomainAggregateAndProof
	DomainSyncCommitteeMessage
	DomainSyncCommitteeSelectionProof
	DomainContributionAndProof
)

// SignRequest is the payload a Signer signs: a domain kind and a signing
// root. SigningRoot is always precomputed by the caller (block/attestation
// hash-tree-root, or the object-specific BLS signing-root recipe);
// Signer implementations never recompute it, only sign over it.
type SignRequest struct {
	Domain      SignRequestDomain
	SigningRoot core.Root
}

// Signer abstracts over local (in-process) and remote (HTTP) signing
// backends (spec §3's Local/Remote KeystoreDescriptor kinds). Signing
// latency is unbounded for a remote signer, so Sign takes a context and
// can be cancelled (spec §1).
type Signer interface {
	PublicKey() core.ValidatorKey
	Sign(ctx context.Context, req SignRequest) ([96]byte, error)
	Close() error
}

// Handle is a single attached validator: its identity, optionally-known
// chain index, and signing backend (spec §3 "AttachedValidator").
type Handle struct {
	pubkey core.ValidatorKey
	signer Signer

	index    types.ValidatorIndex
	hasIndex bool
}

// NewHandle wraps a signer as an attached validator with no known index
// yet (deposit not yet observed).
func NewHandle(signer Signer) *Handle {
	return &Handle{pubkey: signer.PublicKey(), signer: signer}
}

// PublicKey returns this validator's identity.
func (h *Handle) PublicKey() core.ValidatorKey { return h.pubkey }

// Index returns the validator's chain index and whether it is known yet.
func (h *Handle) Index() (types.ValidatorIndex, bool) {
	return h.index, h.hasIndex
}

// SetIndex backfills the validator's index on first activation sighting.
// Once set, it must never change — spec §3's invariant; a divergent
// reassignment is a programmer/data-source error, not a runtime
// condition callers can recover from, so it panics rather than
// returning an error.
func (h *Handle) SetIndex(idx types.ValidatorIndex) {
	if h.hasIndex && h.index != idx {
		panic("validatorkey: attached validator index changed after being set")
	}
	h.index = idx
	h.hasIndex = true
}

// Sign dispatches to the underlying signing backend.
func (h *Handle) Sign(ctx context.Context, req SignRequest) ([96]byte, error) {
	return h.signer.Sign(ctx, req)
}

// Close releases the underlying signing backend's resources (e.g. the
// remote signer's HTTP client).
func (h *Handle) Close() error {
	return h.signer.Close()
}
