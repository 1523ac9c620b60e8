package duty

import "github.com/attestval/duties/params"

// Domain-separator accessors, named per the consensus-spec constants
// they wrap, so call sites read like the spec's own pseudocode
// (spec §4.2-§4.5 each cite a specific DOMAIN_* constant). These read the
// live config on every call rather than caching at package-init time,
// since a network-preset override (params.OverrideBeaconConfig) may
// happen after this package is loaded but before the engine starts.
func domainRandao() [4]byte                { return params.BeaconConfig().DomainRandao }
func domainBeaconProposer() [4]byte        { return params.BeaconConfig().DomainBeaconProposer }
func domainBeaconAttester() [4]byte        { return params.BeaconConfig().DomainBeaconAttester }
func domainSelectionProof() [4]byte        { return params.BeaconConfig().DomainSelectionProof }
func domainAggregateAndProof() [4]byte     { return params.BeaconConfig().DomainAggregateAndProof }
func domainSyncCommittee() [4]byte         { return params.BeaconConfig().DomainSyncCommittee }
func domainSyncCommitteeSelectionProof() [4]byte {
	return params.BeaconConfig().DomainSyncCommitteeSelectionProof
}
func domainContributionAndProof() [4]byte { return params.BeaconConfig().DomainContributionAndProof }
