// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/westwoodrobotics/bearbus/internal/config"
	"github.com/westwoodrobotics/bearbus/pkg/bear"
	"github.com/westwoodrobotics/bearbus/pkg/bear/beartest"
	"github.com/westwoodrobotics/bearbus/pkg/trace"
	"github.com/westwoodrobotics/bearbus/pkg/transport"
)

// simulatedIDs are the devices attached to the --simulate bus.
var simulatedIDs = []uint8{1, 2, 3}

var (
	simOnce sync.Once
	simBus  *beartest.Bus
)

// simulator returns the process-wide simulated bus, so register writes
// survive between commands run in one process.
func simulator() *beartest.Bus {
	simOnce.Do(func() {
		simBus = beartest.NewBus()
		for _, id := range simulatedIDs {
			d := beartest.NewDevice(id)
			// baudrate, present_pos, input_voltage, winding_temp
			d.Set(bear.ConfigAddr(2), 8000000)
			d.Set(bear.StatusAddr(9), math.Float32bits(float32(id)))
			d.Set(bear.StatusAddr(10), math.Float32bits(24.1))
			d.Set(bear.StatusAddr(11), math.Float32bits(31.5))
			simBus.Attach(d)
		}
	})
	return simBus
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv(config.EnvPrefix + "_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenTransport opens the medium selected by the bus configuration. The
// returned string describes the connection for humans.
func OpenTransport(ctx context.Context, bc config.BusConfig) (bear.Transport, string, error) {
	selected := 0
	for _, set := range []bool{bc.Port != "", bc.URL != "", bc.TCP != "", bc.Simulate} {
		if set {
			selected++
		}
	}
	switch {
	case selected == 0:
		return nil, "", errors.New("one of --port, --url, --tcp or --simulate must be specified")
	case selected > 1:
		return nil, "", errors.New("--port, --url, --tcp and --simulate are mutually exclusive")
	}

	switch {
	case bc.Simulate:
		return simulator(), fmt.Sprintf("Simulator: devices %v", simulatedIDs), nil

	case bc.URL != "":
		password := ""
		if bc.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}
		ws, err := transport.DialWebSocket(ctx, bc.URL, transport.WebSocketOptions{
			Username:      bc.Username,
			Password:      password,
			SkipTLSVerify: bc.SkipTLSVerify,
		})
		if err != nil {
			return nil, "", err
		}
		return ws, ws.String(), nil

	case bc.TCP != "":
		s, err := transport.DialTCP(ctx, bc.TCP)
		if err != nil {
			return nil, "", err
		}
		return s, s.String(), nil

	default:
		s, err := transport.OpenSerial(bc.Port, bc.Baud)
		if err != nil {
			return nil, "", err
		}
		return s, s.String(), nil
	}
}

// session is an open transport plus the client driving it.
type session struct {
	client    *bear.Client
	transport bear.Transport
	stats     *bear.Statistics
	info      string
	closers   []func() error
}

// openSession opens the configured transport and wraps it in a client with
// statistics, logging and optional tracing.
func openSession(ctx context.Context) (*session, error) {
	t, info, err := OpenTransport(ctx, cfg.Bus)
	if err != nil {
		return nil, err
	}
	s := &session{transport: t, stats: bear.NewStatistics(), info: info}
	if c, ok := t.(io.Closer); ok {
		s.closers = append(s.closers, c.Close)
	}

	opts := []bear.Option{
		bear.WithLogger(logger.With(zap.String("bus", info))),
		bear.WithStatistics(s.stats),
	}
	if cfg.Trace.File != "" {
		rec, err := trace.Create(cfg.Trace.File)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		opts = append(opts, bear.WithTracer(rec))
		s.closers = append([]func() error{rec.Close}, s.closers...)
	}

	s.client = bear.NewClient(t, cfg.Bus.ClientConfig(), opts...)
	logger.Info("connected", zap.String("bus", info))
	return s, nil
}

// Close releases the tracer and the transport.
func (s *session) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	logger.Debug("session closed", zap.String("stats", s.stats.String()))
	return errors.Join(errs...)
}
