// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import "time"

// DefaultTimeout is used when neither a timeout nor a baud rate is configured.
const DefaultTimeout = 50 * time.Millisecond

// responseSlack is added to a baud-derived timeout to cover the device
// turnaround time.
const responseSlack = time.Millisecond

// TransferTime returns how long it takes to move n bytes at the given baud
// rate. Each byte costs 10 bits: start bit, 8 data bits and stop bit.
func TransferTime(n int, baud int) time.Duration {
	if n <= 0 || baud <= 0 {
		return 0
	}
	bits := uint64(n) * 10
	ns := (bits*uint64(time.Second) + uint64(baud) - 1) / uint64(baud)
	return time.Duration(ns)
}

// exchangeTimeout picks the per-attempt timeout for a request of reqSize
// bytes expecting respSize bytes back.
func exchangeTimeout(cfg Config, reqSize, respSize int) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	if cfg.BaudRate > 0 {
		return TransferTime(reqSize+respSize, cfg.BaudRate) + responseSlack
	}
	return DefaultTimeout
}
