// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
	"github.com/westwoodrobotics/bearbus/pkg/transport"
)

var (
	sniffCount    int
	sniffDuration time.Duration
	sniffHex      bool
	sniffErrors   bool
)

var sniffCmd = &cobra.Command{
	Use:   "sniff",
	Short: "Display bus traffic in human-readable format",
	Long: `Continuously decode and display BEAR packets as they pass on the bus.

bearctl never transmits in this mode. Packets carry no request/response
marker, so a packet from the id that was just addressed is shown as that
device's response and anything else as a new request.

Corrupt frames are reported and the decoder resynchronizes on the next
packet marker. Use --errors-only to watch a busy bus for trouble.`,
	Args: cobra.NoArgs,
	RunE: runSniff,
}

func init() {
	rootCmd.AddCommand(sniffCmd)
	sniffCmd.Flags().IntVarP(&sniffCount, "count", "n", 0, "Stop after this many packets (0 runs until Ctrl+C)")
	sniffCmd.Flags().DurationVar(&sniffDuration, "duration", 0, "Stop after this long (0 runs until Ctrl+C)")
	sniffCmd.Flags().BoolVar(&sniffHex, "hex", false, "Also print the raw frame bytes")
	sniffCmd.Flags().BoolVar(&sniffErrors, "errors-only", false, "Only show corrupt frames and responses with a non-zero status")
}

// sniffer frames packets out of captured bus bytes and prints them.
type sniffer struct {
	dec     bear.Decoder
	out     io.Writer
	hex     bool
	quiet   bool // errors only
	awaited int // id whose response comes next, -1 when none
	packets int
	errors  int
}

func newSniffer(out io.Writer, hex, errorsOnly bool) *sniffer {
	return &sniffer{out: out, hex: hex, quiet: errorsOnly, awaited: -1}
}

// feed consumes captured bytes and prints every complete packet.
func (s *sniffer) feed(data []byte) {
	for len(data) > 0 {
		n, _ := s.dec.Write(data)
		data = data[n:]
		s.drain()
	}
}

func (s *sniffer) drain() {
	for {
		p, err := s.dec.Next()
		if errors.Is(err, bear.ErrIncomplete) {
			return
		}
		ts := headerStyle.Render(time.Now().Format("15:04:05.000"))
		if err != nil {
			s.errors++
			fmt.Fprintf(s.out, "[%s] %s %v\n", ts, errorStyle.Render("[ERROR]"), err)
			continue
		}
		s.packets++

		response := s.awaited == int(p.ID)
		if response {
			s.awaited = -1
		} else if p.ID != bear.BroadcastID {
			s.awaited = int(p.ID)
		}
		flagged := response && !p.Status().OK()
		if s.quiet && !flagged {
			continue
		}
		line := bear.FormatPacket(p, response)
		if flagged {
			line = warningStyle.Render(line)
		}
		fmt.Fprintf(s.out, "[%s] %s\n", ts, line)
		if s.hex {
			if frame, err := p.AppendTo(nil); err == nil {
				fmt.Fprintf(s.out, "    %s\n", headerStyle.Render(bear.FormatFrame(frame)))
			}
		}
	}
}

func runSniff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	t, info, err := OpenTransport(ctx, cfg.Bus)
	if err != nil {
		return err
	}
	if c, ok := t.(io.Closer); ok {
		defer c.Close()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "bearctl - Bus Sniffer\n")
	fmt.Fprintf(out, "Connection: %s\n", info)
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	s := newSniffer(out, sniffHex, sniffErrors)
	var stop time.Time
	if sniffDuration > 0 {
		stop = time.Now().Add(sniffDuration)
	}
	buf := make([]byte, bear.MaxPacketSize)
	for {
		if ctx.Err() != nil || (sniffCount > 0 && s.packets >= sniffCount) {
			break
		}
		if !stop.IsZero() && !time.Now().Before(stop) {
			break
		}
		n, err := t.Read(buf, time.Now().Add(100*time.Millisecond))
		if err != nil {
			// A closed bridge will not come back, so stop gracefully.
			if errors.Is(err, transport.ErrConnectionClosed) {
				logger.Info("connection closed")
				break
			}
			return fmt.Errorf("read: %w", err)
		}
		s.feed(buf[:n])
	}

	fmt.Fprintf(out, "\n%d packets, %d errors, %d bytes skipped\n", s.packets, s.errors, s.dec.Skipped())
	logger.Debug("sniff finished", zap.Int("packets", s.packets), zap.Int("errors", s.errors))
	return nil
}
