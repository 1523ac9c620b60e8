// Package sszutil computes the SSZ hash-tree-roots and signing roots the
// duty engine needs to build signing requests (spec §4.2 step 6, and the
// signing-root recipe implicit throughout §4.3-§4.5). These are small,
// fixed-shape containers (Checkpoint, AttestationData, ForkData,
// SigningData) that fastssz's code generator has no reason to run over
// in this module, so their roots are computed by hand-written functions
// against fastssz's Hasher, the same way the teacher hand-writes
// HashTreeRootWith for its own ungenerated container types.
package sszutil

import (
	ssz "github.com/ferranbt/fastssz"
	types "github.com/prysmaticlabs/eth2-types"

	"github.com/attestval/duties/core"
)

func hashRoot(fn func(hh *ssz.Hasher) error) core.Root {
	hh := ssz.DefaultHasherPool.Get()
	defer ssz.DefaultHasherPool.Put(hh)
	hh.Reset()

	if err := fn(hh); err != nil {
		// Every fn here only appends fixed-width fields; a Hasher error
		// at this call shape indicates a programmer error, not a runtime
		// condition callers can meaningfully recover from.
		panic(err)
	}
	root, err := hh.HashRoot()
	if err != nil {
		panic(err)
	}
	return core.Root(root)
}

// CheckpointRoot computes hash_tree_root(Checkpoint{epoch, root}).
func CheckpointRoot(c core.Checkpoint) core.Root {
	return hashRoot(func(hh *ssz.Hasher) error {
		indx := hh.Index()
		hh.PutUint64(uint64(c.Epoch))
		hh.PutBytes(c.Root[:])
		hh.Merkleize(indx)
		return nil
	})
}

// AttestationDataRoot computes hash_tree_root(AttestationData).
func AttestationDataRoot(d core.AttestationData) core.Root {
	return hashRoot(func(hh *ssz.Hasher) error {
		indx := hh.Index()
		hh.PutUint64(uint64(d.Slot))
		hh.PutUint64(uint64(d.Index))
		hh.PutBytes(d.BeaconBlockRoot[:])
		srcRoot := CheckpointRoot(d.Source)
		hh.PutBytes(srcRoot[:])
		tgtRoot := CheckpointRoot(d.Target)
		hh.PutBytes(tgtRoot[:])
		hh.Merkleize(indx)
		return nil
	})
}

// ForkDataRoot computes hash_tree_root(ForkData{current_version,
// genesis_validators_root}) per compute_fork_data_root.
func ForkDataRoot(currentVersion [4]byte, genesisValidatorsRoot core.Root) core.Root {
	return hashRoot(func(hh *ssz.Hasher) error {
		indx := hh.Index()
		hh.PutBytes(currentVersion[:])
		hh.PutBytes(genesisValidatorsRoot[:])
		hh.Merkleize(indx)
		return nil
	})
}

// ComputeDomain computes compute_domain(domain_type, fork_version,
// genesis_validators_root): the 4-byte domain type followed by the first
// 28 bytes of the fork data root.
func ComputeDomain(domainType [4]byte, forkVersion [4]byte, genesisValidatorsRoot core.Root) [32]byte {
	forkDataRoot := ForkDataRoot(forkVersion, genesisValidatorsRoot)
	var domain [32]byte
	copy(domain[:4], domainType[:])
	copy(domain[4:], forkDataRoot[:28])
	return domain
}

// ComputeSigningRoot computes compute_signing_root(object, domain):
// hash_tree_root(SigningData{object_root, domain}).
func ComputeSigningRoot(objectRoot core.Root, domain [32]byte) core.Root {
	return hashRoot(func(hh *ssz.Hasher) error {
		indx := hh.Index()
		hh.PutBytes(objectRoot[:])
		hh.PutBytes(domain[:])
		hh.Merkleize(indx)
		return nil
	})
}

// Uint64Chunk packs a little-endian uint64 into a zero-padded 32-byte
// leaf, SSZ's basic-type chunking rule — used when a bare value (not a
// container) needs to be signed directly, e.g. a slot signature.
func Uint64Chunk(v uint64) core.Root {
	var r core.Root
	for i := 0; i < 8; i++ {
		r[i] = byte(v >> (8 * i))
	}
	return r
}

// Merkleize hashes a caller-supplied list of already-computed chunk
// roots into a single root. Used for composite fields (e.g. a block
// body digest) where the fields involved are roots, not raw bytes the
// Hasher can append directly.
func Merkleize(chunks []core.Root) core.Root {
	return hashRoot(func(hh *ssz.Hasher) error {
		indx := hh.Index()
		for _, c := range chunks {
			hh.PutBytes(c[:])
		}
		hh.Merkleize(indx)
		return nil
	})
}

// SlotSigningRoot computes the signing root for a bare slot value, used
// for the aggregator-selection "slot signature" (spec §4.4 step 1), which
// signs hash_tree_root(slot) directly rather than a container. The
// sync-committee selection proof signs a (slot, subcommittee_index)
// container instead and does not use this function.
func SlotSigningRoot(slot types.Slot, domain [32]byte) core.Root {
	return ComputeSigningRoot(Uint64Chunk(uint64(slot)), domain)
}

// SyncCommitteeMessageRoot is the root a sync committee message signs:
// the beacon block root directly (the consensus spec's
// SyncCommitteeMessage signature covers beacon_block_root, not a
// wrapping container).
func SyncCommitteeMessageRoot(blockRoot core.Root) core.Root {
	return blockRoot
}
