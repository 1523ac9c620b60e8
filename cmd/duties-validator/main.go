// Command duties-validator runs the validator duties engine as a
// long-lived process: it decrypts keystores, opens the slashing
// protection database, and drives duty.Engine off a BeaconClock tick
// for as long as the process runs.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	types "github.com/prysmaticlabs/eth2-types"
	"github.com/urfave/cli/v2"
	"go.opencensus.io/trace"

	"github.com/attestval/duties/clock"
	"github.com/attestval/duties/config"
	"github.com/attestval/duties/core"
	"github.com/attestval/duties/duty"
	sharedcmd "github.com/attestval/duties/shared/cmd"
	"github.com/attestval/duties/shared/logutil"
	"github.com/attestval/duties/shared/prometheus"
	"github.com/attestval/duties/slashing"
	"github.com/attestval/duties/validatorkey"
)

var log = logrus.WithField("prefix", "main")

// ChainAdapter bundles every external collaborator the engine treats as
// out of scope (ChainView, Network, GossipValidator, BlockProcessor,
// Eth1DataProvider, and the duty pools): a concrete beacon-node RPC/REST
// client implementing these interfaces for a specific node, supplied by
// the deployment rather than by this module.
type ChainAdapter struct {
	Chain         core.ChainView
	Network       core.Network
	Gossip        core.GossipValidator
	BlockProc     core.BlockProcessor
	Eth1          core.Eth1DataProvider
	BlockNotifier core.BlockNotifier
	AttPool       core.AttestationPool
	ExitPool      core.ExitPool
	SyncPool      core.SyncCommitteeMsgPool
	InitialHead   core.HeadRef
	InitialSlot   types.Slot
	GenesisTime   time.Time
}

// NewChainAdapter constructs the beacon-node connection for
// beaconRPCProvider. It is a build-time extension point: this module
// implements the engine's own logic and treats chain/network/gossip
// access as external (spec's "Out of scope: external, interface-only"),
// so no concrete client ships here. A real deployment links one in by
// replacing this variable before calling Run.
var NewChainAdapter = func(beaconRPCProvider string) (*ChainAdapter, error) {
	return nil, fmt.Errorf("no beacon node adapter configured for %q: link a concrete core.ChainView/Network/GossipValidator implementation by setting main.NewChainAdapter", beaconRPCProvider)
}

func main() {
	app := &cli.App{
		Name:  "duties-validator",
		Usage: "runs the validator duties engine against a beacon node",
		Flags: []cli.Flag{
			sharedcmd.VerbosityFlag,
			sharedcmd.LogFileFlag,
			sharedcmd.DataDirFlag,
			sharedcmd.EnableTracingFlag,
			sharedcmd.TracingEndpointFlag,
			sharedcmd.TraceSampleFractionFlag,
			sharedcmd.DisableMonitoringFlag,
			sharedcmd.MonitoringPortFlag,
			config.BeaconRPCProviderFlag,
			config.GraffitiFlag,
			config.GraffitiFileFlag,
			config.KeystorePathFlag,
			config.PasswordFlag,
			config.PasswordFileFlag,
			config.SyncHorizonFlag,
			config.DoppelgangerDetectionFlag,
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("duties-validator exited with an error")
	}
}

func run(c *cli.Context) error {
	if err := configureLogging(c); err != nil {
		return err
	}
	configureTracing(c)

	dataDir := c.String(sharedcmd.DataDirFlag.Name)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("could not create data directory %q: %w", dataDir, err)
	}

	adapter, err := NewChainAdapter(c.String(config.BeaconRPCProviderFlag.Name))
	if err != nil {
		return err
	}

	store, err := slashing.Open(dataDir + "/slashing-protection.db")
	if err != nil {
		return fmt.Errorf("could not open slashing protection database: %w", err)
	}
	defer store.Close()

	registry, err := buildRegistry(c)
	if err != nil {
		return err
	}
	if registry.Len() == 0 {
		log.Warn("no validator keys loaded; the engine will idle until keys are attached")
	}

	var monitoring *prometheus.Service
	if !c.Bool(sharedcmd.DisableMonitoringFlag.Name) {
		addr := fmt.Sprintf(":%d", c.Int64(sharedcmd.MonitoringPortFlag.Name))
		monitoring = prometheus.NewService(addr, func() error { return nil })
		monitoring.Start()
		defer monitoring.Stop()
	}

	engineCfg := duty.Config{
		GraffitiBytes:          graffitiBytes(c.String(config.GraffitiFlag.Name)),
		SyncHorizonSlots:       types.Slot(c.Uint64(config.SyncHorizonFlag.Name)),
		DoppelgangerDetection:  c.Bool(config.DoppelgangerDetectionFlag.Name),
		DoppelgangerStartEpoch: 0,
	}

	beaconClock := clock.New(adapter.GenesisTime)
	engine := duty.New(&duty.Engine{
		Clock:         beaconClock,
		Chain:         adapter.Chain,
		AttPool:       adapter.AttPool,
		ExitPool:      adapter.ExitPool,
		SyncPool:      adapter.SyncPool,
		Gossip:        adapter.Gossip,
		Network:       adapter.Network,
		BlockProc:     adapter.BlockProc,
		Eth1:          adapter.Eth1,
		BlockNotifier: adapter.BlockNotifier,
		Protector:     store,
		Registry:      registry,
		Cfg:           engineCfg,
	}, adapter.InitialHead, adapter.InitialSlot)

	logutil.CountdownToGenesis(adapter.GenesisTime, 60)

	ticker := clock.NewSlotTicker(adapter.GenesisTime)
	defer ticker.Done()

	log.WithField("validators", registry.Len()).Info("duties-validator engine started")
	for slot := range ticker.C() {
		engine.OnSlot(c.Context, slot)
	}
	return nil
}

func buildRegistry(c *cli.Context) (*validatorkey.Registry, error) {
	passphrase, err := config.ResolvePassphrase(c.String(config.PasswordFlag.Name), c.String(config.PasswordFileFlag.Name))
	if err != nil {
		return nil, err
	}
	signers, err := config.LoadLocalSigners(c.String(config.KeystorePathFlag.Name), passphrase)
	if err != nil {
		return nil, fmt.Errorf("could not load keystores: %w", err)
	}

	registry := validatorkey.NewRegistry()
	for _, signer := range signers {
		registry.AddLocal(signer, nil)
	}
	return registry, nil
}

func graffitiBytes(graffiti string) [32]byte {
	var out [32]byte
	copy(out[:], graffiti)
	return out
}

func configureLogging(c *cli.Context) error {
	level, err := logrus.ParseLevel(c.String(sharedcmd.VerbosityFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid verbosity %q: %w", c.String(sharedcmd.VerbosityFlag.Name), err)
	}
	logrus.SetLevel(level)

	if logFile := c.String(sharedcmd.LogFileFlag.Name); logFile != "" {
		if err := logutil.ConfigurePersistentLogging(logFile); err != nil {
			return fmt.Errorf("could not configure log file: %w", err)
		}
	}
	return nil
}

func configureTracing(c *cli.Context) {
	if !c.Bool(sharedcmd.EnableTracingFlag.Name) {
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.NeverSample()})
		return
	}
	fraction := c.Float64(sharedcmd.TraceSampleFractionFlag.Name)
	trace.ApplyConfig(trace.Config{DefaultSampler: trace.ProbabilitySampler(fraction)})
}
