// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

var probeWait time.Duration

var probeCmd = &cobra.Command{
	Use:   "probe <id>",
	Short: "Test the connection by waiting for a device to answer",
	Long: `Repeatedly read the id register of a device until it answers.

Corrupt or missing responses are ignored until the wait time runs out, so
the command can be used while a device is still booting.

Exit codes:
  0 - Device answered before timeout
  1 - Timeout reached without a valid answer
  2 - Connection error

Useful for testing wiring, baud rate and bridge connectivity from scripts.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().DurationVar(&probeWait, "wait", 10*time.Second, "How long to wait for an answer")
}

func runProbe(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	id := ids[0]

	s, err := openSession(cmd.Context())
	if err != nil {
		return &exitError{code: 2, err: fmt.Errorf("connection error: %w", err)}
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "bearctl - Probe\n")
	fmt.Fprintf(out, "Connection: %s\n", s.info)
	fmt.Fprintf(out, "Waiting up to %s for device %s...\n\n", probeWait, formatIDArg(id))

	deadline := time.Now().Add(probeWait)
	var last error
	for attempt := 1; ; attempt++ {
		start := time.Now()
		v, err := s.client.ReadUint32(id, bear.ConfigAddr(0))
		if err == nil {
			fmt.Fprintf(out, "%s device %s answered\n", valueStyle.Render("SUCCESS:"), formatIDArg(id))
			fmt.Fprintf(out, "  Reported id: %d\n", v)
			fmt.Fprintf(out, "  Round trip: %s\n", time.Since(start).Round(time.Microsecond))
			fmt.Fprintf(out, "  Attempts: %d\n", attempt)
			if skipped := s.stats.Snapshot().SkippedBytes; skipped > 0 {
				fmt.Fprintf(out, "  (skipped %d invalid bytes)\n", skipped)
			}
			return nil
		}
		if errors.Is(err, bear.ErrTransport) || errors.Is(err, bear.ErrInvalidArgument) {
			return &exitError{code: 2, err: err}
		}
		// A device error is still an answer: the device is alive.
		var devErr *bear.DeviceError
		if errors.As(err, &devErr) {
			fmt.Fprintf(out, "%s device %s answered with %s\n", warningStyle.Render("SUCCESS:"), formatIDArg(id), devErr.Status)
			return nil
		}
		last = err
		logger.Debug("probe attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if !time.Now().Before(deadline) {
			break
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s no valid answer within %s\n", errorStyle.Render("TIMEOUT:"), probeWait)
	return &exitError{code: 1, err: fmt.Errorf("no answer from %s: %w", formatIDArg(id), last)}
}
