// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/westwoodrobotics/bearbus/internal/metrics"
	"github.com/westwoodrobotics/bearbus/pkg/bear"
	"github.com/westwoodrobotics/bearbus/pkg/bear/registers"
)

var (
	pollIDs       []string
	pollRegisters []string
	pollInterval  time.Duration
	pollCount     int
	pollQuiet     bool
)

var defaultPollRegisters = []string{"present_pos", "present_vel", "present_iq", "input_voltage", "winding_temp"}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll registers of devices periodically",
	Long: `Read a set of registers from a set of devices at a fixed interval.

Each round prints one line per device. With --metrics-addr the values, the
device status and the bus statistics are exported as Prometheus metrics
for as long as the command runs.

A device that fails to answer is reported and polled again next round;
polling only stops on a transport failure, after --count rounds, or on
Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().StringSliceVar(&pollIDs, "ids", []string{"1"}, "Device ids to poll")
	pollCmd.Flags().StringSliceVar(&pollRegisters, "registers", defaultPollRegisters, "Registers to read")
	pollCmd.Flags().DurationVar(&pollInterval, "interval", time.Second, "Time between rounds")
	pollCmd.Flags().IntVar(&pollCount, "count", 0, "Stop after this many rounds (0 polls forever)")
	pollCmd.Flags().BoolVarP(&pollQuiet, "quiet", "q", false, "Do not print values, only export metrics")
}

// poller reads the same registers from every device once per round.
type poller struct {
	client  *bear.Client
	ids     []uint8
	regs    []registers.Register
	metrics *metrics.PollMetrics
	out     io.Writer
	log     *zap.Logger
}

// round polls every device once. Device level failures are reported and
// skipped; a transport failure is returned.
func (p *poller) round() error {
	start := time.Now()
	var buf [bear.RegisterSize]byte
	for _, id := range p.ids {
		label := fmt.Sprintf("%d", id)
		fields := make([]string, 0, len(p.regs))
		var failed error
		var status bear.ErrorFlags
		for _, r := range p.regs {
			st, err := p.client.ReadInto(buf[:], id, r.Address)
			if err != nil {
				failed = err
				var devErr *bear.DeviceError
				if errors.As(err, &devErr) {
					status = devErr.Status
				}
				break
			}
			status |= st
			fields = append(fields, r.Name+"="+r.Format(buf[:]))
			if p.metrics != nil {
				if v, err := r.Decode(buf[:]); err == nil {
					p.metrics.Value.WithLabelValues(label, r.Name).Set(toFloat64(v))
				}
			}
		}

		if p.metrics != nil {
			p.metrics.Status.WithLabelValues(label).Set(float64(status))
			up := 1.0
			if failed != nil {
				up = 0
			}
			p.metrics.Up.WithLabelValues(label).Set(up)
		}

		if failed != nil {
			if errors.Is(failed, bear.ErrTransport) {
				return failed
			}
			p.log.Warn("poll failed", zap.Uint8("id", id), zap.Error(failed))
			if p.out != nil {
				fmt.Fprintf(p.out, "%s %s\n", labelStyle.Render(formatIDArg(id)), errorStyle.Render(failed.Error()))
			}
			continue
		}
		if p.out != nil {
			line := labelStyle.Render(formatIDArg(id)) + " " + valueStyle.Render(strings.Join(fields, " "))
			if !status.OK() {
				line += " " + warningStyle.Render(status.String())
			}
			fmt.Fprintln(p.out, line)
		}
	}
	if p.metrics != nil {
		p.metrics.Duration.Observe(time.Since(start).Seconds())
	}
	return nil
}

func toFloat64(v interface{}) float64 {
	switch x := v.(type) {
	case float32:
		return float64(x)
	case uint32:
		return float64(x)
	}
	return 0
}

func runPoll(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(pollIDs)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no device ids to poll")
	}
	regs := make([]registers.Register, 0, len(pollRegisters))
	for _, name := range pollRegisters {
		r, err := registers.Lookup(name)
		if err != nil {
			return err
		}
		regs = append(regs, r)
	}
	if pollInterval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", pollInterval)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	p := &poller{client: s.client, ids: ids, regs: regs, log: logger}
	if !pollQuiet {
		p.out = cmd.OutOrStdout()
	}

	if cfg.Metrics.Addr != "" {
		reg := metrics.NewRegistry()
		reg.MustRegister(metrics.NewStatsCollector(s.stats))
		p.metrics = metrics.NewPollMetrics(reg)
		stop, err := serveMetrics(reg, cfg.Metrics.Addr, cfg.Metrics.Path)
		if err != nil {
			return err
		}
		defer stop()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for n := 1; ; n++ {
		if err := p.round(); err != nil {
			return err
		}
		if pollCount > 0 && n >= pollCount {
			break
		}
		select {
		case <-ctx.Done():
			logger.Info("poll stopped", zap.Int("rounds", n))
			return nil
		case <-ticker.C:
		}
	}
	if p.out != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), headerStyle.Render(s.stats.String()))
	}
	return nil
}

// serveMetrics exposes reg over HTTP until the returned stop function runs.
func serveMetrics(reg *prometheus.Registry, addr, path string) (func(), error) {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Surface an immediate bind failure instead of polling silently.
	select {
	case err := <-errCh:
		return nil, fmt.Errorf("metrics server: %w", err)
	case <-time.After(50 * time.Millisecond):
	}
	logger.Info("serving metrics", zap.String("addr", addr), zap.String("path", path))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
