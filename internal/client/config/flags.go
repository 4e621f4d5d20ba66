package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/sheharfix/civicsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only the flags handled here are parsed; see flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-m", "-t", "-l", "-mock-lifecycle"})

	fs := flag.NewFlagSet("civiccli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "backend API base URL")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.DispatchMode, "m", cfg.DispatchMode, "dispatch mode (mock-first, network-only, mock-only)")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.MockLifecycle, "mock-lifecycle", cfg.MockLifecycle, "serve assign/resolve/patch from the mock backend")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
