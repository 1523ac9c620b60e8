// Package metrics holds the prometheus collectors the duty engine exports.
// Shape follows the teacher's validator/client package-level vectors
// (validatorStatusesGaugeVec, successful/failed attestation counters in
// validator_aggregate.go), registered via promauto so they attach to the
// default registry on first use without an explicit Register call.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ValidatorStatusGaugeVec reports each attached validator's last known
	// beacon-state status, keyed by pubkey.
	ValidatorStatusGaugeVec = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "duties",
			Name:      "validator_statuses",
			Help:      "Current status of each attached validator, by public key.",
		},
		[]string{"pubkey"},
	)

	AttestationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duties",
			Name:      "attestations_submitted_total",
			Help:      "Attestations this engine successfully broadcast.",
		},
		[]string{"pubkey"},
	)

	AttestationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duties",
			Name:      "attestations_failed_total",
			Help:      "Attestations that failed to build, sign, or broadcast.",
		},
		[]string{"pubkey"},
	)

	AggregationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duties",
			Name:      "aggregations_submitted_total",
			Help:      "Aggregate-and-proofs this engine successfully broadcast.",
		},
		[]string{"pubkey"},
	)

	AggregationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duties",
			Name:      "aggregations_failed_total",
			Help:      "Aggregate-and-proofs that failed to build, sign, or broadcast.",
		},
		[]string{"pubkey"},
	)

	BlocksProposed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duties",
			Name:      "blocks_proposed_total",
			Help:      "Blocks this engine successfully proposed.",
		},
		[]string{"pubkey"},
	)

	BlocksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duties",
			Name:      "blocks_failed_total",
			Help:      "Block proposals that failed to build, sign, or broadcast.",
		},
		[]string{"pubkey"},
	)

	SyncCommitteeMessagesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duties",
			Name:      "sync_committee_messages_submitted_total",
			Help:      "Sync committee messages this engine successfully broadcast.",
		},
		[]string{"pubkey"},
	)

	SyncCommitteeContributionsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duties",
			Name:      "sync_committee_contributions_submitted_total",
			Help:      "Sync committee contributions this engine successfully broadcast.",
		},
		[]string{"pubkey"},
	)

	SlashingProtectionRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duties",
			Name:      "slashing_protection_rejections_total",
			Help:      "Duties refused by the slashing protector before signing.",
		},
		[]string{"pubkey", "kind"},
	)
)
