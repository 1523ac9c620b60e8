// Package params defines the runtime constants this engine needs to compute
// slot/epoch boundaries, cutoffs, subnet identifiers, and domain separators.
package params

import (
	"time"

	types "github.com/prysmaticlabs/eth2-types"
)

// BeaconChainConfig holds the constants this engine reads on every slot.
// Field names and shape follow the teacher's shared/params.BeaconChainConfig
// (MainnetConfig/AltonaConfig builders), trimmed to what the duty engine
// consults.
type BeaconChainConfig struct {
	NetworkName string

	// Time parameters.
	SecondsPerSlot uint64
	SlotsPerEpoch  types.Slot
	IntervalsPerSlot uint64 // one-third / two-thirds cutoffs

	// Sync committee parameters (Altair+).
	AltairForkEpoch                      types.Epoch
	SyncCommitteeSize                    uint64
	SyncCommitteeSubnetCount             uint64
	TargetAggregatorsPerCommittee        uint64
	TargetAggregatorsPerSyncSubcommittee uint64

	// Networking / gating.
	SubnetSubscriptionLeadTimeSlots types.Slot
	WeakSubjectivityPeriod          types.Epoch

	// Domains (4-byte domain-type separators).
	DomainBeaconProposer            [4]byte
	DomainBeaconAttester            [4]byte
	DomainRandao                    [4]byte
	DomainSelectionProof            [4]byte
	DomainAggregateAndProof         [4]byte
	DomainSyncCommittee             [4]byte
	DomainSyncCommitteeSelectionProof [4]byte
	DomainContributionAndProof      [4]byte

	BLSSecretKeyLength int

	FarFutureEpoch types.Epoch
}

// Copy returns a full copy of the config object, matching the teacher's
// Copy()-then-override pattern used for testnet configs.
func (c *BeaconChainConfig) Copy() *BeaconChainConfig {
	copied := *c
	return &copied
}

func mainnetConfig() *BeaconChainConfig {
	return &BeaconChainConfig{
		NetworkName:                          "Mainnet",
		SecondsPerSlot:                       12,
		SlotsPerEpoch:                        32,
		IntervalsPerSlot:                     3,
		AltairForkEpoch:                      74240,
		SyncCommitteeSize:                    512,
		SyncCommitteeSubnetCount:             4,
		TargetAggregatorsPerCommittee:        16,
		TargetAggregatorsPerSyncSubcommittee: 16,
		SubnetSubscriptionLeadTimeSlots:       4,
		WeakSubjectivityPeriod:                types.Epoch(256),
		DomainBeaconProposer:                  [4]byte{0x00, 0x00, 0x00, 0x00},
		DomainBeaconAttester:                  [4]byte{0x01, 0x00, 0x00, 0x00},
		DomainRandao:                          [4]byte{0x02, 0x00, 0x00, 0x00},
		DomainSelectionProof:                  [4]byte{0x05, 0x00, 0x00, 0x00},
		DomainAggregateAndProof:               [4]byte{0x06, 0x00, 0x00, 0x00},
		DomainSyncCommittee:                   [4]byte{0x07, 0x00, 0x00, 0x00},
		DomainSyncCommitteeSelectionProof:     [4]byte{0x08, 0x00, 0x00, 0x00},
		DomainContributionAndProof:            [4]byte{0x09, 0x00, 0x00, 0x00},
		BLSSecretKeyLength:                    32,
		FarFutureEpoch:                        types.Epoch(1<<64 - 1),
	}
}

var beaconConfig = mainnetConfig()

// BeaconConfig returns the currently active chain config.
func BeaconConfig() *BeaconChainConfig {
	return beaconConfig
}

// OverrideBeaconConfig replaces the active config wholesale, mirroring the
// teacher's UseAltonaConfig/OverrideBeaconNetworkConfig style of global
// override used to switch network presets at startup.
func OverrideBeaconConfig(c *BeaconChainConfig) {
	beaconConfig = c
}

// SlotToEpoch converts a slot to its containing epoch.
func SlotToEpoch(slot types.Slot) types.Epoch {
	return types.Epoch(uint64(slot) / uint64(beaconConfig.SlotsPerEpoch))
}

// StartSlot returns the first slot of the given epoch.
func StartSlot(epoch types.Epoch) types.Slot {
	return types.Slot(uint64(epoch) * uint64(beaconConfig.SlotsPerEpoch))
}

// SlotDuration is the configured slot length as a time.Duration.
func SlotDuration() time.Duration {
	return time.Duration(beaconConfig.SecondsPerSlot) * time.Second
}

// AttestationDeadlineOffset is one INTERVALS_PER_SLOT-th of a slot, i.e. the
// "one third" cutoff used by spec §4.1.
func AttestationDeadlineOffset() time.Duration {
	return SlotDuration() / time.Duration(beaconConfig.IntervalsPerSlot)
}

// AggregateDeadlineOffset is two INTERVALS_PER_SLOT-ths of a slot, the
// "two thirds" cutoff used by spec §4.1.
func AggregateDeadlineOffset() time.Duration {
	return 2 * AttestationDeadlineOffset()
}
