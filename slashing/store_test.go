package slashing

import (
	"context"
	"path/filepath"
	"testing"

	types "github.com/prysmaticlabs/eth2-types"
	"github.com/stretchr/testify/require"

	"github.com/attestval/duties/core"
)

func newTestStore(t *testing.T) *Store {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "slashing.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func root(b byte) core.Root {
	var r core.Root
	r[0] = b
	return r
}

func TestRegisterBlock_FirstWriteAccepted(t *testing.T) {
	store := newTestStore(t)
	var pk [48]byte
	ok, conflict, err := store.RegisterBlock(context.Background(), types.ValidatorIndex(1), pk, types.Slot(100), root(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ConflictNone, conflict.Kind)
}

func TestRegisterBlock_IdempotentReplayAllowed(t *testing.T) {
	store := newTestStore(t)
	var pk [48]byte
	_, _, err := store.RegisterBlock(context.Background(), 1, pk, types.Slot(100), root(1))
	require.NoError(t, err)

	ok, conflict, err := store.RegisterBlock(context.Background(), 1, pk, types.Slot(100), root(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ConflictNone, conflict.Kind)
}

func TestRegisterBlock_DoubleProposalRejected(t *testing.T) {
	store := newTestStore(t)
	var pk [48]byte
	_, _, err := store.RegisterBlock(context.Background(), 1, pk, types.Slot(100), root(1))
	require.NoError(t, err)

	ok, conflict, err := store.RegisterBlock(context.Background(), 1, pk, types.Slot(100), root(2))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, ConflictDoubleProposal, conflict.Kind)
	require.Equal(t, root(1), conflict.ExistingBlockSigningRoot)
}

func TestRegisterAttestation_DoubleVoteRejected(t *testing.T) {
	store := newTestStore(t)
	var pk [48]byte
	_, _, err := store.RegisterAttestation(context.Background(), 1, pk, types.Epoch(5), types.Epoch(6), root(1))
	require.NoError(t, err)

	ok, conflict, err := store.RegisterAttestation(context.Background(), 1, pk, types.Epoch(5), types.Epoch(6), root(2))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, ConflictDoubleVote, conflict.Kind)
}

func TestRegisterAttestation_IdempotentReplayAllowed(t *testing.T) {
	store := newTestStore(t)
	var pk [48]byte
	_, _, err := store.RegisterAttestation(context.Background(), 1, pk, types.Epoch(5), types.Epoch(6), root(1))
	require.NoError(t, err)

	ok, _, err := store.RegisterAttestation(context.Background(), 1, pk, types.Epoch(5), types.Epoch(6), root(1))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRegisterAttestation_SurroundingVoteRejected(t *testing.T) {
	store := newTestStore(t)
	var pk [48]byte
	// Stored: (source=2, target=5).
	_, _, err := store.RegisterAttestation(context.Background(), 1, pk, types.Epoch(2), types.Epoch(5), root(1))
	require.NoError(t, err)

	// New (source=1, target=6) surrounds it: 1 < 2 && 5 < 6.
	ok, conflict, err := store.RegisterAttestation(context.Background(), 1, pk, types.Epoch(1), types.Epoch(6), root(2))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, ConflictSurroundingVote, conflict.Kind)
}

func TestRegisterAttestation_SurroundedVoteRejected(t *testing.T) {
	store := newTestStore(t)
	var pk [48]byte
	// Stored: (source=1, target=6).
	_, _, err := store.RegisterAttestation(context.Background(), 1, pk, types.Epoch(1), types.Epoch(6), root(1))
	require.NoError(t, err)

	// New (source=2, target=5) is surrounded by it: 1 < 2 && 5 < 6.
	ok, conflict, err := store.RegisterAttestation(context.Background(), 1, pk, types.Epoch(2), types.Epoch(5), root(2))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, ConflictSurroundedVote, conflict.Kind)
}

func TestRegisterAttestation_NonConflictingVotesAccepted(t *testing.T) {
	store := newTestStore(t)
	var pk [48]byte
	_, _, err := store.RegisterAttestation(context.Background(), 1, pk, types.Epoch(1), types.Epoch(2), root(1))
	require.NoError(t, err)

	ok, conflict, err := store.RegisterAttestation(context.Background(), 1, pk, types.Epoch(2), types.Epoch(3), root(2))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ConflictNone, conflict.Kind)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slashing.db")

	store, err := Open(path)
	require.NoError(t, err)
	var pk [48]byte
	_, _, err = store.RegisterBlock(context.Background(), 1, pk, types.Slot(42), root(9))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	ok, conflict, err := reopened.RegisterBlock(context.Background(), 1, pk, types.Slot(42), root(9))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ConflictNone, conflict.Kind)

	ok, conflict, err = reopened.RegisterBlock(context.Background(), 1, pk, types.Slot(42), root(10))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, ConflictDoubleProposal, conflict.Kind)
}

func TestInterchangeExportImportRoundTrip(t *testing.T) {
	store := newTestStore(t)
	var pk [48]byte
	pk[0] = 0xAB

	gvr := root(7)
	_, _, err := store.RegisterBlock(context.Background(), 1, pk, types.Slot(10), root(1))
	require.NoError(t, err)
	_, _, err = store.RegisterAttestation(context.Background(), 1, pk, types.Epoch(1), types.Epoch(2), root(2))
	require.NoError(t, err)

	raw, err := store.Export(gvr)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	dir := t.TempDir()
	other, err := Open(filepath.Join(dir, "other.db"))
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, other.Import(raw, gvr))

	// Re-importing the identical file must be idempotent.
	require.NoError(t, other.Import(raw, gvr))

	// Importing against the wrong network must fail.
	err = other.Import(raw, root(8))
	require.Error(t, err)
}
