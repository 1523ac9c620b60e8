package slashing

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	types "github.com/prysmaticlabs/eth2-types"
	"github.com/prysmaticlabs/prombbolt"
	bolt "go.etcd.io/bbolt"

	"github.com/attestval/duties/core"
	bytesutil "github.com/attestval/duties/shared/bytes"
)

// Bucket layout follows the teacher's validator/db/kv schema: one
// top-level bucket per concern, with a nested per-pubkey bucket holding
// that validator's history. Nesting (rather than a single composite-key
// bucket) keeps a validator's full history a cheap single-bucket scan,
// which RegisterAttestation's surround check needs on every call.
var (
	blockProposalsBucket = []byte("block-proposals")
	attestationsBucket   = []byte("attestation-history")
)

// Store is a durable, bbolt-backed Protector. Every write commits inside
// a single read-write transaction, which bbolt fsyncs before Update
// returns — satisfying spec §4.9's "every Ok write must be crash-atomic"
// without an fsync-on-commit wrapper of our own.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the slashing-protection database at path,
// following the teacher's validator/db/kv.NewKVStore bucket-creation
// pattern: all buckets are created eagerly so later transactions never
// need to branch on "does this bucket exist yet".
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not open slashing protection database")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(blockProposalsBucket); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(attestationsBucket); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "could not initialize slashing protection buckets")
	}
	// Register(), not MustRegister(): tests open and reopen the database
	// repeatedly within one process, and a collector can only be
	// registered once against the default registerer.
	collector := prombbolt.New("slashing_protection", db)
	if err := prometheus.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			db.Close()
			return nil, errors.Wrap(err, "could not register bbolt metrics collector")
		}
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func slotKey(slot types.Slot) []byte {
	return bytesutil.Bytes8(uint64(slot))
}

func epochKey(epoch types.Epoch) []byte {
	return bytesutil.Bytes8(uint64(epoch))
}

// RegisterBlock implements Protector.
func (s *Store) RegisterBlock(ctx context.Context, idx types.ValidatorIndex, pubkey [48]byte, slot types.Slot, signingRoot core.Root) (bool, Conflict, error) {
	var ok bool
	var conflict Conflict
	err := s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(blockProposalsBucket)
		validatorBucket, err := root.CreateBucketIfNotExists(pubkey[:])
		if err != nil {
			return err
		}
		key := slotKey(slot)
		existing := validatorBucket.Get(key)
		if existing != nil {
			var existingRoot core.Root
			copy(existingRoot[:], existing)
			if existingRoot == signingRoot {
				ok = true
				return nil
			}
			conflict = Conflict{Kind: ConflictDoubleProposal, ExistingBlockSigningRoot: existingRoot}
			ok = false
			return nil
		}
		ok = true
		return validatorBucket.Put(key, signingRoot[:])
	})
	if err != nil {
		return false, Conflict{}, errors.Wrap(err, "could not register block proposal")
	}
	return ok, conflict, nil
}

// encodeAttestationRecord builds the fixed-width value stored per target epoch:
// 8 bytes source epoch followed by the 32-byte signing root.
func encodeAttestationRecord(sourceEpoch types.Epoch, signingRoot core.Root) []byte {
	b := make([]byte, 8+32)
	copy(b[:8], bytesutil.Bytes8(uint64(sourceEpoch)))
	copy(b[8:], signingRoot[:])
	return b
}

func decodeAttestationRecord(b []byte) (types.Epoch, core.Root) {
	source := types.Epoch(binary.BigEndian.Uint64(b[:8]))
	var root core.Root
	copy(root[:], b[8:])
	return source, root
}

// RegisterAttestation implements Protector. The surround/double-vote
// check scans every stored (source, target) pair for this validator, per
// spec §3's SlashingRecord invariants — mirrors the teacher's
// attestation_history.go full-history comparison rather than the
// low/high-watermark shortcut, since the spec defines the invariant over
// the full stored set.
func (s *Store) RegisterAttestation(ctx context.Context, idx types.ValidatorIndex, pubkey [48]byte, sourceEpoch, targetEpoch types.Epoch, signingRoot core.Root) (bool, Conflict, error) {
	var ok bool
	var conflict Conflict
	err := s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(attestationsBucket)
		validatorBucket, err := root.CreateBucketIfNotExists(pubkey[:])
		if err != nil {
			return err
		}

		if existing := validatorBucket.Get(epochKey(targetEpoch)); existing != nil {
			existingSource, existingRoot := decodeAttestationRecord(existing)
			if existingRoot == signingRoot {
				ok = true
				return nil
			}
			conflict = Conflict{
				Kind:                ConflictDoubleVote,
				ExistingSourceEpoch: existingSource,
				ExistingTargetEpoch: targetEpoch,
				ExistingSigningRoot: existingRoot,
			}
			ok = false
			return nil
		}

		c := validatorBucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			storedTarget := types.Epoch(binary.BigEndian.Uint64(k))
			storedSource, storedRoot := decodeAttestationRecord(v)

			// s < s' && t' < t: the new vote is surrounded by a stored one.
			if storedSource < sourceEpoch && targetEpoch < storedTarget {
				conflict = Conflict{
					Kind:                ConflictSurroundedVote,
					ExistingSourceEpoch: storedSource,
					ExistingTargetEpoch: storedTarget,
					ExistingSigningRoot: storedRoot,
				}
				ok = false
				return nil
			}
			// s' < s && t < t': the new vote surrounds a stored one.
			if sourceEpoch < storedSource && storedTarget < targetEpoch {
				conflict = Conflict{
					Kind:                ConflictSurroundingVote,
					ExistingSourceEpoch: storedSource,
					ExistingTargetEpoch: storedTarget,
					ExistingSigningRoot: storedRoot,
				}
				ok = false
				return nil
			}
		}

		ok = true
		return validatorBucket.Put(epochKey(targetEpoch), encodeAttestationRecord(sourceEpoch, signingRoot))
	})
	if err != nil {
		return false, Conflict{}, errors.Wrap(err, "could not register attestation")
	}
	return ok, conflict, nil
}

// forEachValidatorHistory is a helper the interchange exporter uses to
// walk every stored record across both buckets.
func (s *Store) forEachValidatorHistory(fn func(pubkey [48]byte, proposals map[types.Slot]core.Root, attestations map[types.Epoch]struct {
	Source types.Epoch
	Root   core.Root
}) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		seen := map[[48]byte]bool{}

		collect := func(pubkey [48]byte) error {
			if seen[pubkey] {
				return nil
			}
			seen[pubkey] = true

			proposals := map[types.Slot]core.Root{}
			if b := tx.Bucket(blockProposalsBucket).Bucket(pubkey[:]); b != nil {
				c := b.Cursor()
				for k, v := c.First(); k != nil; k, v = c.Next() {
					slot := types.Slot(binary.BigEndian.Uint64(k))
					var root core.Root
					copy(root[:], v)
					proposals[slot] = root
				}
			}

			attestations := map[types.Epoch]struct {
				Source types.Epoch
				Root   core.Root
			}{}
			if b := tx.Bucket(attestationsBucket).Bucket(pubkey[:]); b != nil {
				c := b.Cursor()
				for k, v := c.First(); k != nil; k, v = c.Next() {
					target := types.Epoch(binary.BigEndian.Uint64(k))
					source, root := decodeAttestationRecord(v)
					attestations[target] = struct {
						Source types.Epoch
						Root   core.Root
					}{Source: source, Root: root}
				}
			}

			return fn(pubkey, proposals, attestations)
		}

		if err := tx.Bucket(blockProposalsBucket).ForEach(func(k, v []byte) error {
			if v != nil {
				return nil // not a sub-bucket
			}
			var pubkey [48]byte
			copy(pubkey[:], k)
			return collect(pubkey)
		}); err != nil {
			return err
		}
		return tx.Bucket(attestationsBucket).ForEach(func(k, v []byte) error {
			if v != nil {
				return nil
			}
			var pubkey [48]byte
			copy(pubkey[:], k)
			return collect(pubkey)
		})
	})
}
