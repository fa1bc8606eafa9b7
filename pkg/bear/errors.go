// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import (
	"errors"
	"fmt"
)

var (
	// ErrIncomplete means more bytes are needed to frame a packet. It is only
	// returned by the streaming decoder and never leaves a Client exchange.
	ErrIncomplete = errors.New("bear: incomplete packet")

	ErrInvalidArgument = errors.New("bear: invalid argument")
	ErrCapacity        = errors.New("bear: packet exceeds buffer capacity")
	ErrTransport       = errors.New("bear: transport failure")
	ErrTimeout         = errors.New("bear: timeout waiting for response")
	ErrChecksum        = errors.New("bear: checksum mismatch")
	ErrFraming         = errors.New("bear: framing error")
	ErrIDMismatch      = errors.New("bear: response id mismatch")
	ErrDevice          = errors.New("bear: device reported error")
	ErrProtocol        = errors.New("bear: protocol violation")
	ErrLengthMismatch  = errors.New("bear: length field disagrees with packet size")
)

// CapacityError reports a packet that does not fit a fixed-capacity buffer.
type CapacityError struct {
	Required int
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("bear: buffer is too small: need %d bytes, but the size is %d", e.Required, e.Capacity)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacity
}

func checkCapacity(required, capacity int) error {
	if required > capacity {
		return &CapacityError{Required: required, Capacity: capacity}
	}
	return nil
}

// ChecksumError reports a framed packet whose checksum does not match.
type ChecksumError struct {
	Message  byte // checksum carried by the packet
	Computed byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("bear: invalid checksum, message claims 0x%02X, computed 0x%02X", e.Message, e.Computed)
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksum
}

// FramingError reports bytes that cannot be framed as a packet.
type FramingError struct {
	Reason string
	Value  int

	lengthMismatch bool
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("bear: framing error: %s (%d)", e.Reason, e.Value)
}

func (e *FramingError) Is(target error) bool {
	return target == ErrFraming || (e.lengthMismatch && target == ErrLengthMismatch)
}

// IDMismatchError reports a response from a device other than the one asked.
// It matches both ErrIDMismatch and ErrFraming: on a shared bus it is stale or
// misdirected data.
type IDMismatchError struct {
	Expected uint8
	Actual   uint8
}

func (e *IDMismatchError) Error() string {
	return fmt.Sprintf("bear: invalid packet ID, expected 0x%02X, got 0x%02X", e.Expected, e.Actual)
}

func (e *IDMismatchError) Is(target error) bool {
	return target == ErrIDMismatch || target == ErrFraming
}

// DeviceError carries a non-success status reported by a device.
type DeviceError struct {
	ID     uint8
	Status ErrorFlags
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("bear: device 0x%02X reported %s", e.ID, e.Status)
}

func (e *DeviceError) Is(target error) bool {
	return target == ErrDevice
}

// ParamCountError reports a response whose data length breaks the contract
// of the request.
type ParamCountError struct {
	Expected int
	Actual   int
}

func (e *ParamCountError) Error() string {
	return fmt.Sprintf("bear: invalid parameter count, expected exactly %d, got %d", e.Expected, e.Actual)
}

func (e *ParamCountError) Is(target error) bool {
	return target == ErrProtocol
}

// TransportError wraps a failure reported by the underlying medium.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bear: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Retryable reports whether an exchange that failed with err may be re-sent.
// Timeouts and framing-class failures are transient; device answers,
// transport failures and argument errors are not.
func Retryable(err error) bool {
	if errors.Is(err, ErrDevice) || errors.Is(err, ErrTransport) {
		return false
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrChecksum) || errors.Is(err, ErrFraming)
}

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidArgument}, args...)...)
}
