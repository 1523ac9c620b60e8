package validatorkey

import (
	"sync"

	"github.com/sirupsen/logrus"

	types "github.com/prysmaticlabs/eth2-types"

	"github.com/attestval/duties/core"
)

var log = logrus.WithField("prefix", "validatorkey")

// Registry is the AttachedValidators registry (spec §3, §4.7): a map
// from public key to its Handle. Concurrent access is protected by a
// single RWMutex — grounded on the teacher's validator/client keymanager
// usage, which likewise guards its in-memory pubkey map with a plain
// mutex rather than a lock-free structure, since lookups are cheap and
// infrequent relative to a slot's signing work.
type Registry struct {
	mu       sync.RWMutex
	byPubkey map[core.ValidatorKey]*Handle
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{byPubkey: make(map[core.ValidatorKey]*Handle)}
}

// AddLocal attaches a local in-process signer. index is the
// ValidatorIndex resolved by scanning chain state for this pubkey, if
// any; absence (the deposit has not yet been processed) is permitted and
// logged, per spec §4.7's add_local.
func (r *Registry) AddLocal(signer Signer, index *types.ValidatorIndex) *Handle {
	h := NewHandle(signer)
	if index != nil {
		h.SetIndex(*index)
	} else {
		log.WithField("pubkey", h.PublicKey()).Info("attached local validator has no known index yet")
	}
	r.mu.Lock()
	r.byPubkey[h.PublicKey()] = h
	r.mu.Unlock()
	return h
}

// AddRemote attaches a remote HTTP signer. URL resolution failures are
// the keystore loader's concern (spec §4.7: "on URL resolution failure,
// warn and drop — do not abort startup"); by the time a Signer reaches
// this registry it has already been constructed successfully.
func (r *Registry) AddRemote(signer Signer, index *types.ValidatorIndex) *Handle {
	h := NewHandle(signer)
	if index != nil {
		h.SetIndex(*index)
	}
	r.mu.Lock()
	r.byPubkey[h.PublicKey()] = h
	r.mu.Unlock()
	return h
}

// Get returns the handle for pubkey, if attached.
func (r *Registry) Get(pubkey core.ValidatorKey) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byPubkey[pubkey]
	return h, ok
}

// GetByIndex looks up a handle by its chain index, lazily backfilling
// the index onto a not-yet-indexed handle on first activation sighting
// (spec §4.7's "also lazily backfills the handle's index on first
// activation sighting"). validators supplies the authoritative
// index<->pubkey binding for this lookup.
func (r *Registry) GetByIndex(validators map[types.ValidatorIndex]core.ValidatorInfo, idx types.ValidatorIndex) (*Handle, bool) {
	info, ok := validators[idx]
	if !ok {
		return nil, false
	}
	h, ok := r.Get(info.PubKey)
	if !ok {
		return nil, false
	}
	if existing, has := h.Index(); !has {
		h.SetIndex(idx)
	} else if existing != idx {
		panic("validatorkey: registry index binding diverges from chain state")
	}
	return h, true
}

// Len returns the number of attached validators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPubkey)
}

// Range calls fn for every attached (pubkey, handle) pair. Iteration
// order is unspecified, matching spec §4.7's "order is not guaranteed to
// match any external sequence".
func (r *Registry) Range(fn func(core.ValidatorKey, *Handle) bool) {
	r.mu.RLock()
	snapshot := make([]*Handle, 0, len(r.byPubkey))
	for _, h := range r.byPubkey {
		snapshot = append(snapshot, h)
	}
	r.mu.RUnlock()

	for _, h := range snapshot {
		if !fn(h.PublicKey(), h) {
			return
		}
	}
}

// Close releases every attached validator's signing backend.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var firstErr error
	for _, h := range r.byPubkey {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
