package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/contentiq/internal/flagx"
)

var (
	valuedFlags = []string{
		"-d", "-store", "-archive", "-log-level", "-log-format", "-metrics", "-timeout", "-model",
	}
	boolFlags = []string{"-simulate"}
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-d string           data directory
//	-store string       local store backend (sqlite, badger)
//	-archive string     remote archive backend (drive, s3)
//	-simulate           use simulated credentials
//	-log-level string   debug, info, warn, error
//	-log-format string  auto, text, json
//	-metrics string     host:port for the /metrics endpoint
//	-timeout duration   analysis request timeout
//	-model string       analysis model
//
// Unknown arguments are filtered out with flagx.FilterArgs so -c and any
// positional arguments pass through untouched.
func parseFlags(cfg *Config, args []string) error {
	filtered := flagx.FilterArgs(args, valuedFlags, boolFlags...)

	fs := flag.NewFlagSet("contentiq", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "local store backend (sqlite, badger)")
	fs.StringVar(&cfg.ArchiveBackend, "archive", cfg.ArchiveBackend, "remote archive backend (drive, s3)")
	fs.BoolVar(&cfg.Simulate, "simulate", cfg.Simulate, "use simulated credentials")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (auto, text, json)")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "metrics listen address")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "analysis request timeout")
	fs.StringVar(&cfg.AnalysisModel, "model", cfg.AnalysisModel, "analysis model")

	if err := fs.Parse(filtered); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
