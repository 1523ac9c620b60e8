package duty

import (
	types "github.com/prysmaticlabs/eth2-types"
)

// Config carries the engine's configuration inputs (spec §6
// "Configuration inputs"). Keystore descriptors are consumed upstream to
// build the Registry the engine is handed; they are not part of this
// struct.
type Config struct {
	GraffitiBytes          [32]byte
	SyncHorizonSlots       types.Slot
	DoppelgangerDetection  bool
	DoppelgangerStartEpoch types.Epoch
	DumpEnabled            bool
	DumpDir                string
}
