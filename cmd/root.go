// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/westwoodrobotics/bearbus/internal/config"
	"github.com/westwoodrobotics/bearbus/internal/logging"
)

var (
	configPath string

	// Set by PersistentPreRunE before any command runs
	cfg         *config.Config
	logger      = zap.NewNop()
	closeLogger = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "bearctl",
	Short: "BEAR actuator bus tool",
	Long: `bearctl - A CLI tool for talking to BEAR actuators over their RS-485 bus.

Reads and writes device registers, persists configuration, polls devices
into Prometheus metrics and decodes raw bus traffic.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 8000000]
  WebSocket: --url ws://host/path [--username user]
  TCP:       --tcp host:port
  Simulator: --simulate

Every flag can also be set in a bearbus.yaml config file or through a
BEARBUS_<SECTION>_<KEY> environment variable, e.g. BEARBUS_BUS_PORT.

For WebSocket authentication, the password is read from the BEARBUS_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogger()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default: bearbus.yaml in . or the user config dir)")

	// Connection
	flags.StringP("port", "p", "", "Serial port device")
	flags.IntP("baud", "b", 8000000, "Baud rate (serial only)")
	flags.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
	flags.String("tcp", "", "TCP serial bridge address (host:port)")
	flags.Bool("simulate", false, "Talk to simulated devices instead of hardware")

	// Exchange policy
	flags.Duration("timeout", 0, "Response timeout (default: derived from the baud rate)")
	flags.Int("retries", 2, "Retries after a timeout or corrupt response")
	flags.Duration("command-gap", 0, "Minimum gap between commands")
	flags.Bool("allow-warnings", false, "Accept responses that only carry warning flags")

	// Observability
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console, json)")
	flags.String("log-file", "", "Also log to this file, rotated")
	flags.String("trace-file", "", "Append a CBOR record of every exchange to this file")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (poll only)")
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	l, closeFn, err := logging.InitLogger(loaded.Logging, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cfg, logger, closeLogger = loaded, l, closeFn
	return nil
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// Execute runs the root command. Ctrl+C cancels the command context so
// long running commands can stop cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
