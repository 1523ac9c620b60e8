package slashing

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"

	"github.com/attestval/duties/core"
)

// Interchange format grounded on the teacher's
// validator/slashing-protection/local/standard-protection-format
// (EIP-3076): epochs/slots are decimal strings, roots/pubkeys are
// 0x-prefixed hex, wrapped under a metadata+data envelope.
const interchangeVersion = "5"

type interchangeFile struct {
	Metadata interchangeMetadata `json:"metadata"`
	Data     []interchangeEntry  `json:"data"`
}

type interchangeMetadata struct {
	InterchangeFormatVersion string `json:"interchange_format_version"`
	GenesisValidatorsRoot    string `json:"genesis_validators_root"`
}

type interchangeEntry struct {
	Pubkey             string                    `json:"pubkey"`
	SignedBlocks       []interchangeSignedBlock  `json:"signed_blocks"`
	SignedAttestations []interchangeSignedAttest `json:"signed_attestations"`
}

type interchangeSignedBlock struct {
	Slot        string `json:"slot"`
	SigningRoot string `json:"signing_root,omitempty"`
}

type interchangeSignedAttest struct {
	SourceEpoch string `json:"source_epoch"`
	TargetEpoch string `json:"target_epoch"`
	SigningRoot string `json:"signing_root,omitempty"`
}

func hexEncode(b []byte) string { return "0x" + hex.EncodeToString(b) }

func hexDecode(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return hex.DecodeString(s)
}

// Export serializes the entire store to the EIP-3076 JSON interchange
// format, for operators migrating a validator between machines.
func (s *Store) Export(genesisValidatorsRoot core.Root) ([]byte, error) {
	file := interchangeFile{
		Metadata: interchangeMetadata{
			InterchangeFormatVersion: interchangeVersion,
			GenesisValidatorsRoot:    hexEncode(genesisValidatorsRoot[:]),
		},
	}

	err := s.forEachValidatorHistory(func(pubkey [48]byte, proposals map[types.Slot]core.Root, attestations map[types.Epoch]struct {
		Source types.Epoch
		Root   core.Root
	}) error {
		entry := interchangeEntry{Pubkey: hexEncode(pubkey[:])}
		for slot, root := range proposals {
			entry.SignedBlocks = append(entry.SignedBlocks, interchangeSignedBlock{
				Slot:        strconv.FormatUint(uint64(slot), 10),
				SigningRoot: hexEncode(root[:]),
			})
		}
		for target, rec := range attestations {
			entry.SignedAttestations = append(entry.SignedAttestations, interchangeSignedAttest{
				SourceEpoch: strconv.FormatUint(uint64(rec.Source), 10),
				TargetEpoch: strconv.FormatUint(uint64(target), 10),
				SigningRoot: hexEncode(rec.Root[:]),
			})
		}
		file.Data = append(file.Data, entry)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not export slashing protection history")
	}

	return json.MarshalIndent(file, "", "  ")
}

// Import loads an EIP-3076 JSON interchange document into the store,
// refusing to import a file minted for a different network.
func (s *Store) Import(raw []byte, genesisValidatorsRoot core.Root) error {
	var file interchangeFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return errors.Wrap(err, "could not parse interchange file")
	}

	wantRoot := hexEncode(genesisValidatorsRoot[:])
	if file.Metadata.GenesisValidatorsRoot != wantRoot {
		return fmt.Errorf("interchange file genesis_validators_root %s does not match configured %s", file.Metadata.GenesisValidatorsRoot, wantRoot)
	}

	for _, entry := range file.Data {
		pubkeyBytes, err := hexDecode(entry.Pubkey)
		if err != nil || len(pubkeyBytes) != 48 {
			return fmt.Errorf("invalid pubkey %q in interchange file", entry.Pubkey)
		}
		var pubkey [48]byte
		copy(pubkey[:], pubkeyBytes)

		for _, b := range entry.SignedBlocks {
			slot, err := strconv.ParseUint(b.Slot, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid slot %q", b.Slot)
			}
			var root core.Root
			if b.SigningRoot != "" {
				rootBytes, err := hexDecode(b.SigningRoot)
				if err != nil || len(rootBytes) != 32 {
					return fmt.Errorf("invalid signing root %q", b.SigningRoot)
				}
				copy(root[:], rootBytes)
			}
			if _, conflict, err := s.RegisterBlock(nil, 0, pubkey, types.Slot(slot), root); err != nil {
				return err
			} else if conflict.Kind != ConflictNone {
				return fmt.Errorf("imported proposal for slot %d conflicts with an existing record", slot)
			}
		}

		for _, a := range entry.SignedAttestations {
			source, err := strconv.ParseUint(a.SourceEpoch, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid source_epoch %q", a.SourceEpoch)
			}
			target, err := strconv.ParseUint(a.TargetEpoch, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid target_epoch %q", a.TargetEpoch)
			}
			var root core.Root
			if a.SigningRoot != "" {
				rootBytes, err := hexDecode(a.SigningRoot)
				if err != nil || len(rootBytes) != 32 {
					return fmt.Errorf("invalid signing root %q", a.SigningRoot)
				}
				copy(root[:], rootBytes)
			}
			if _, conflict, err := s.RegisterAttestation(nil, 0, pubkey, types.Epoch(source), types.Epoch(target), root); err != nil {
				return err
			} else if conflict.Kind != ConflictNone {
				return fmt.Errorf("imported attestation for target epoch %d conflicts with an existing record", target)
			}
		}
	}
	return nil
}
