// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Counters is a point-in-time copy of exchange statistics.
type Counters struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	Exchanges     uint64 // operations started, including broadcasts
	Responses     uint64 // exchanges that ended with a valid answer
	Broadcasts    uint64
	Transmissions uint64 // request packets written, retries included
	Retries       uint64

	Timeouts         uint64
	ChecksumErrors   uint64
	FramingErrors    uint64
	IDMismatches     uint64
	DeviceErrors     uint64
	ProtocolErrors   uint64
	TransportErrors  uint64
	InvalidArguments uint64

	BytesSent     uint64
	BytesReceived uint64
	SkippedBytes  uint64

	// Rates (calculated)
	ExchangeRate float64 // exchanges/sec
	ErrorRate    float64 // failed attempts/sec
}

// Errors returns the number of failed attempts of every kind.
func (c Counters) Errors() uint64 {
	return c.Timeouts + c.ChecksumErrors + c.FramingErrors + c.IDMismatches +
		c.DeviceErrors + c.ProtocolErrors + c.TransportErrors
}

// Statistics tracks exchange statistics and error rates. It is safe to read
// from another goroutine while a Client updates it.
type Statistics struct {
	mu sync.Mutex
	c  Counters
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{c: Counters{StartTime: now, LastUpdateTime: now}}
}

func (s *Statistics) update(fn func(c *Counters)) {
	s.mu.Lock()
	fn(&s.c)
	s.c.LastUpdateTime = time.Now()
	s.mu.Unlock()
}

func (s *Statistics) exchangeStarted(broadcast bool) {
	s.update(func(c *Counters) {
		c.Exchanges++
		if broadcast {
			c.Broadcasts++
		}
	})
}

func (s *Statistics) transmitted(n int, retry bool) {
	s.update(func(c *Counters) {
		c.Transmissions++
		c.BytesSent += uint64(n)
		if retry {
			c.Retries++
		}
	})
}

func (s *Statistics) received(n int) {
	s.update(func(c *Counters) {
		c.BytesReceived += uint64(n)
	})
}

func (s *Statistics) skipped(n uint64) {
	if n == 0 {
		return
	}
	s.update(func(c *Counters) {
		c.SkippedBytes += n
	})
}

// attempt classifies the outcome of one request/response attempt.
func (s *Statistics) attempt(err error) {
	s.update(func(c *Counters) {
		var mismatch *IDMismatchError
		switch {
		case err == nil:
			c.Responses++
		case errors.As(err, &mismatch):
			c.IDMismatches++
		case errors.Is(err, ErrTimeout):
			c.Timeouts++
		case errors.Is(err, ErrChecksum):
			c.ChecksumErrors++
		case errors.Is(err, ErrFraming):
			c.FramingErrors++
		case errors.Is(err, ErrDevice):
			c.DeviceErrors++
		case errors.Is(err, ErrProtocol):
			c.ProtocolErrors++
		case errors.Is(err, ErrTransport):
			c.TransportErrors++
		case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrCapacity):
			c.InvalidArguments++
		}
	})
}

// Snapshot returns a copy of the counters with rates calculated.
func (s *Statistics) Snapshot() Counters {
	s.mu.Lock()
	c := s.c
	s.mu.Unlock()

	elapsed := time.Since(c.StartTime).Seconds()
	if elapsed > 0 {
		c.ExchangeRate = float64(c.Exchanges) / elapsed
		c.ErrorRate = float64(c.Errors()) / elapsed
	}
	return c
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	c := s.Snapshot()

	percent := func(n uint64) float64 {
		if c.Transmissions == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(c.Transmissions)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== Statistics (%.0f seconds) ===\n", time.Since(c.StartTime).Seconds())
	fmt.Fprintf(&b, "Exchanges:       %8d\n", c.Exchanges)
	fmt.Fprintf(&b, "Transmissions:   %8d (%d retries)\n", c.Transmissions, c.Retries)
	fmt.Fprintf(&b, "Responses:       %8d (%.1f%%)\n", c.Responses, percent(c.Responses))

	rows := []struct {
		label string
		n     uint64
	}{
		{"Timeouts:        ", c.Timeouts},
		{"Checksum Errors: ", c.ChecksumErrors},
		{"Framing Errors:  ", c.FramingErrors},
		{"ID Mismatches:   ", c.IDMismatches},
		{"Device Errors:   ", c.DeviceErrors},
		{"Protocol Errors: ", c.ProtocolErrors},
		{"Transport Errors:", c.TransportErrors},
	}
	for _, row := range rows {
		if row.n > 0 {
			fmt.Fprintf(&b, "%s%8d (%.1f%%)\n", row.label, row.n, percent(row.n))
		}
	}
	if c.SkippedBytes > 0 {
		fmt.Fprintf(&b, "Skipped Bytes:   %8d\n", c.SkippedBytes)
	}

	fmt.Fprintf(&b, "Exchange Rate:   %8.1f ex/sec\n", c.ExchangeRate)
	fmt.Fprintf(&b, "Error Rate:      %8.1f errors/sec\n", c.ErrorRate)
	b.WriteString("================================\n")
	return b.String()
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := time.Now()
	s.mu.Lock()
	s.c = Counters{StartTime: now, LastUpdateTime: now}
	s.mu.Unlock()
}
