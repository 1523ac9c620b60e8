package validatorkey

import (
	"context"
	"testing"

	types "github.com/prysmaticlabs/eth2-types"
	"github.com/stretchr/testify/require"

	"github.com/attestval/duties/core"
)

type fakeSigner struct {
	pubkey core.ValidatorKey
	sig    [96]byte
}

func (f *fakeSigner) PublicKey() core.ValidatorKey { return f.pubkey }
func (f *fakeSigner) Sign(ctx context.Context, req SignRequest) ([96]byte, error) {
	return f.sig, nil
}
func (f *fakeSigner) Close() error { return nil }

func TestHandle_SetIndexOnce(t *testing.T) {
	h := NewHandle(&fakeSigner{pubkey: core.ValidatorKey{1}})
	_, has := h.Index()
	require.False(t, has)

	h.SetIndex(types.ValidatorIndex(7))
	idx, has := h.Index()
	require.True(t, has)
	require.Equal(t, types.ValidatorIndex(7), idx)

	require.NotPanics(t, func() { h.SetIndex(types.ValidatorIndex(7)) })
	require.Panics(t, func() { h.SetIndex(types.ValidatorIndex(8)) })
}

func TestRegistry_AddAndGet(t *testing.T) {
	r := NewRegistry()
	pk := core.ValidatorKey{9}
	idx := types.ValidatorIndex(3)
	r.AddLocal(&fakeSigner{pubkey: pk}, &idx)

	h, ok := r.Get(pk)
	require.True(t, ok)
	gotIdx, has := h.Index()
	require.True(t, has)
	require.Equal(t, idx, gotIdx)

	require.Equal(t, 1, r.Len())
}

func TestRegistry_GetByIndexBackfills(t *testing.T) {
	r := NewRegistry()
	pk := core.ValidatorKey{5}
	r.AddLocal(&fakeSigner{pubkey: pk}, nil)

	validators := map[types.ValidatorIndex]core.ValidatorInfo{
		types.ValidatorIndex(11): {Index: 11, PubKey: pk},
	}

	h, ok := r.GetByIndex(validators, types.ValidatorIndex(11))
	require.True(t, ok)
	idx, has := h.Index()
	require.True(t, has)
	require.Equal(t, types.ValidatorIndex(11), idx)
}

func TestRegistry_RangeVisitsAll(t *testing.T) {
	r := NewRegistry()
	r.AddLocal(&fakeSigner{pubkey: core.ValidatorKey{1}}, nil)
	r.AddLocal(&fakeSigner{pubkey: core.ValidatorKey{2}}, nil)

	seen := map[core.ValidatorKey]bool{}
	r.Range(func(pk core.ValidatorKey, h *Handle) bool {
		seen[pk] = true
		return true
	})
	require.Len(t, seen, 2)
}
