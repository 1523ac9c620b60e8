package params

import types "github.com/prysmaticlabs/eth2-types"

// UseAltonaConfig sets the active config to the Altona testnet preset, the
// first public Altair-era testnet. Kept as a worked example of the
// Copy()-then-override pattern used to switch presets; ordinary operation
// uses BeaconConfig()'s mainnet default.
func UseAltonaConfig() {
	cfg := mainnetConfig().Copy()
	cfg.NetworkName = "Altona"
	cfg.AltairForkEpoch = types.Epoch(36660)
	OverrideBeaconConfig(cfg)
}
