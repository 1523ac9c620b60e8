// Package cmd defines command line flags shared by every entrypoint binary.
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "cmd")

var (
	// VerbosityFlag defines the logrus configuration.
	VerbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (debug, info=default, warn, error, fatal, panic)",
		Value: "info",
	}
	// DataDirFlag defines the directory holding the slashing protection
	// database and any decrypted-at-rest material.
	DataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the slashing protection database",
		Value: DefaultDataDir(),
	}
	// PasswordFileFlag defines the path to the keystore password file.
	PasswordFileFlag = &cli.StringFlag{
		Name:  "password-file",
		Usage: "Path to a file containing the password used to decrypt keystores",
	}
	// EnableTracingFlag defines a flag to enable opencensus tracing.
	EnableTracingFlag = &cli.BoolFlag{
		Name:  "enable-tracing",
		Usage: "Enable request tracing",
	}
	// TracingEndpointFlag names a trace collector endpoint. No trace
	// exporter is registered by this module, so its value is not read and
	// no traces are exported.
	TracingEndpointFlag = &cli.StringFlag{
		Name:  "tracing-endpoint",
		Usage: "Tracing collector endpoint (accepted but not read; no trace exporter is registered)",
		Value: "http://127.0.0.1:14268",
	}
	// TraceSampleFractionFlag defines a flag to indicate what fraction of
	// requests are sampled for tracing.
	TraceSampleFractionFlag = &cli.Float64Flag{
		Name:  "trace-sample-fraction",
		Usage: "Fraction of requests sampled for tracing",
		Value: 0.20,
	}
	// DisableMonitoringFlag defines a flag to disable the metrics collection.
	DisableMonitoringFlag = &cli.BoolFlag{
		Name:  "disable-monitoring",
		Usage: "Disable the prometheus metrics service",
	}
	// MonitoringPortFlag defines the http port used to serve prometheus metrics.
	MonitoringPortFlag = &cli.Int64Flag{
		Name:  "monitoring-port",
		Usage: "Port used to serve prometheus metrics",
		Value: 8080,
	}
	// LogFileFlag specifies the path to a log file to tee stdout logs into.
	LogFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "Path to a file to tee logs into, in addition to stdout",
	}
)
