// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides bear.Transport implementations for serial
// ports, WebSocket serial bridges, TCP streams and the RP2040 UART.
package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

var (
	_ bear.Transport      = (*Serial)(nil)
	_ bear.InputDiscarder = (*Serial)(nil)
)

// Serial is a bear.Transport over a local serial port, 8N1.
type Serial struct {
	port    serial.Port
	name    string
	baud    int
	timeout time.Duration
}

// OpenSerial opens a serial port
func OpenSerial(name string, baud int) (*Serial, error) {
	port, err := serial.Open(name, serialMode(baud))
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return &Serial{port: port, name: name, baud: baud, timeout: -1}, nil
}

// NewSerial wraps an already open port.
func NewSerial(port serial.Port, name string, baud int) *Serial {
	return &Serial{port: port, name: name, baud: baud, timeout: -1}
}

func serialMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Ports lists the serial ports of the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// Read waits until bytes arrive or the deadline passes. The port reports a
// timeout as (0, nil), which is the bear.Transport contract.
func (s *Serial) Read(p []byte, deadline time.Time) (int, error) {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return 0, nil
	}
	// The port timeout has millisecond resolution on most platforms.
	if remaining < time.Millisecond {
		remaining = time.Millisecond
	}
	if remaining != s.timeout {
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return 0, err
		}
		s.timeout = remaining
	}
	return s.port.Read(p)
}

// DiscardInput drops bytes received but not read yet.
func (s *Serial) DiscardInput() error {
	return s.port.ResetInputBuffer()
}

// SetBaudRate reconfigures the port, for example after changing the baud
// rate register of every device on the bus.
func (s *Serial) SetBaudRate(baud int) error {
	if err := s.port.SetMode(serialMode(baud)); err != nil {
		return err
	}
	s.baud = baud
	return nil
}

// BaudRate returns the configured baud rate.
func (s *Serial) BaudRate() int {
	return s.baud
}

func (s *Serial) Close() error {
	return s.port.Close()
}

func (s *Serial) String() string {
	return fmt.Sprintf("Serial: %s @ %d baud", s.name, s.baud)
}
