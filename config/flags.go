// Package config wires CLI flags, keystore loading, and defaults into the
// duty.Config/duty.Engine the cmd/duties-validator binary runs.
package config

import (
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/attestval/duties/shared/fileutil"
)

var log = logrus.WithField("prefix", "config")

var (
	// BeaconRPCProviderFlag defines a beacon node RPC endpoint.
	BeaconRPCProviderFlag = &cli.StringFlag{
		Name:  "beacon-rpc-provider",
		Usage: "Beacon node RPC provider endpoint",
		Value: "127.0.0.1:4000",
	}
	// GraffitiFlag defines the graffiti value included in proposed blocks.
	GraffitiFlag = &cli.StringFlag{
		Name:  "graffiti",
		Usage: "String to include in proposed blocks",
	}
	// GrpcRetriesFlag defines the number of times to retry a failed beacon node request.
	GrpcRetriesFlag = &cli.UintFlag{
		Name:  "grpc-retries",
		Usage: "Number of attempts to retry beacon node requests",
		Value: 5,
	}
	// GrpcRetryDelayFlag defines the interval to retry a failed beacon node request.
	GrpcRetryDelayFlag = &cli.DurationFlag{
		Name:  "grpc-retry-delay",
		Usage: "The amount of time between beacon node retry requests",
		Value: 1 * time.Second,
	}
	// KeystorePathFlag defines the location of the keystore directory for a validator's accounts.
	KeystorePathFlag = &cli.StringFlag{
		Name:  "keystore-path",
		Usage: "Path to the desired keystore directory",
		Value: filepath.Join(DefaultValidatorDir(), "keys"),
	}
	// PasswordFlag defines the password value for decrypting keystores in KeystorePathFlag.
	PasswordFlag = &cli.StringFlag{
		Name:  "password",
		Usage: "String value of the password for your validator private keys",
	}
	// PasswordFileFlag defines the path to a file holding the keystore password, an
	// alternative to typing PasswordFlag in on every launch.
	PasswordFileFlag = &cli.StringFlag{
		Name:  "password-file",
		Usage: "Path to a plain-text file containing the password for the keystore directory",
	}
	// MonitoringPortFlag defines the http port used to serve prometheus metrics.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used to listen for and respond to prometheus metrics",
		Value: 8081,
	}
	// DataDirFlag defines the directory holding the slashing protection database.
	DataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the slashing protection database",
		Value: DefaultValidatorDir(),
	}
	// SyncHorizonFlag bounds how many slots behind the head the engine will
	// still perform duties for, rather than declare itself not synced.
	SyncHorizonFlag = &cli.Uint64Flag{
		Name:  "sync-horizon",
		Usage: "Maximum number of slots the head may lag before duties are skipped as not synced",
		Value: 1000,
	}
	// DoppelgangerDetectionFlag sets duty.Config.DoppelgangerDetection.
	// cmd/duties-validator starts the detection window at epoch 0, so the
	// engine's doppelganger gate skips no slot, and no network activity is
	// observed.
	DoppelgangerDetectionFlag = &cli.BoolFlag{
		Name:  "enable-doppelganger-detection",
		Usage: "Enable the engine's doppelganger gate (its window starts at epoch 0, so no duty is skipped)",
		Value: true,
	}
	// GraffitiFileFlag names a file of per-validator graffiti overrides. The
	// flag is accepted but its value is not read: GraffitiFlag's single
	// value is used for every validator.
	GraffitiFileFlag = &cli.StringFlag{
		Name:  "graffiti-file",
		Usage: "Path to a file of validator-pubkey-to-graffiti overrides (accepted but not read; --graffiti applies to all validators)",
	}
)

// DefaultValidatorDir returns the OS-specific default validator directory.
func DefaultValidatorDir() string {
	home := fileutil.HomeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Eth2Validators")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Eth2Validators")
	default:
		return filepath.Join(home, ".eth2validators")
	}
}
