// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build rp2040

package transport

import (
	"context"
	"errors"
	"machine"
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

var (
	_ bear.Transport      = (*UART)(nil)
	_ bear.InputDiscarder = (*UART)(nil)
)

const uartDrainWindow = 200 * time.Microsecond

// UART is a bear.Transport over an RP2040 hardware UART wired to an RS-485
// transceiver.
type UART struct {
	u     *uartx.UART
	drain [32]byte
}

// UARTConfig selects the peripheral and pins.
type UARTConfig struct {
	Index    int // 0 or 1
	BaudRate uint32
	TX, RX   machine.Pin
}

// OpenUART configures a hardware UART.
func OpenUART(cfg UARTConfig) (*UART, error) {
	var hw *uartx.UART
	switch cfg.Index {
	case 0:
		hw = uartx.UART0
	case 1:
		hw = uartx.UART1
	default:
		return nil, errors.New("uart index must be 0 or 1")
	}
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: cfg.BaudRate,
		TX:       cfg.TX,
		RX:       cfg.RX,
	}); err != nil {
		return nil, err
	}
	return &UART{u: hw}, nil
}

func (p *UART) Write(b []byte) (int, error) {
	return p.u.Write(b)
}

// Read waits for bytes with RecvSomeContext until the deadline.
func (p *UART) Read(b []byte, deadline time.Time) (int, error) {
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()
	n, err := p.u.RecvSomeContext(ctx, b)
	if errors.Is(err, context.DeadlineExceeded) {
		return n, nil
	}
	return n, err
}

// DiscardInput drops bytes already sitting in the receive buffer, giving up
// after uartDrainWindow even if the line stays busy.
func (p *UART) DiscardInput() error {
	ctx, cancel := context.WithTimeout(context.Background(), uartDrainWindow)
	defer cancel()
	for ctx.Err() == nil {
		n, err := p.u.RecvSomeContext(ctx, p.drain[:])
		if n == 0 || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// SetBaudRate changes the line rate.
func (p *UART) SetBaudRate(baud uint32) {
	p.u.SetBaudRate(baud)
}
