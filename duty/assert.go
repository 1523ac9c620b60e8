package duty

// attestationSlotOffset and syncCommitteeMessageSlotOffset must be equal
// (spec §4.1: "The attestation_slot_offset MUST equal
// sync_committee_message_slot_offset (compile-time assertion)") since
// runAttestationCutoff fires both the attestation and the sync-committee
// message paths from the same one-third-slot wait. Both are defined as
// literal 1 here (one INTERVALS_PER_SLOT-th of a slot); if that ever
// diverges in either direction one of these array bounds goes negative
// and fails to compile.
const (
	attestationSlotOffset         = 1
	syncCommitteeMessageSlotOffset = 1
)

var _ [attestationSlotOffset - syncCommitteeMessageSlotOffset]struct{}
var _ [syncCommitteeMessageSlotOffset - attestationSlotOffset]struct{}
