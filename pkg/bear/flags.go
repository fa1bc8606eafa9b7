// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import "strings"

// ErrorFlags is the status byte a BEAR reports in every response.
type ErrorFlags uint8

// Status bits
const (
	// FlagCommunication: a corrupted packet was received. Resets on the next
	// round of communication.
	FlagCommunication ErrorFlags = 1 << iota
	// FlagOverheat: a temperature exceeded the configured low limit.
	FlagOverheat
	// FlagAbsolutePosition: the absolute position could not be read.
	FlagAbsolutePosition
	// FlagWatchdogEstop: watchdog timeout or external emergency stop.
	FlagWatchdogEstop
	// FlagJointLimit: a joint limit was exceeded.
	FlagJointLimit
	// FlagHardware: input voltage out of range or MOSFET driver fault.
	FlagHardware
	// FlagInitialization: corrupted save file in flash, calibration needed.
	FlagInitialization
)

// WarningFlags reset by themselves and do not mean the instruction failed.
const WarningFlags = FlagCommunication | FlagOverheat

// FatalFlags are every defined bit that is not a warning.
const FatalFlags = FlagAbsolutePosition | FlagWatchdogEstop | FlagJointLimit | FlagHardware | FlagInitialization

var flagNames = []struct {
	flag ErrorFlags
	name string
}{
	{FlagCommunication, "COMMUNICATION"},
	{FlagOverheat, "OVERHEAT"},
	{FlagAbsolutePosition, "ABSOLUTE_POSITION"},
	{FlagWatchdogEstop, "WATCHDOG_ESTOP"},
	{FlagJointLimit, "JOINT_LIMIT"},
	{FlagHardware, "HARDWARE"},
	{FlagInitialization, "INITIALIZATION"},
}

// OK reports whether no bit is set.
func (f ErrorFlags) OK() bool {
	return f == 0
}

// Warnings returns only the warning bits.
func (f ErrorFlags) Warnings() ErrorFlags {
	return f & WarningFlags
}

// Errors returns every bit that is not a warning, including undefined ones.
func (f ErrorFlags) Errors() ErrorFlags {
	return f &^ WarningFlags
}

// Has reports whether all bits of mask are set.
func (f ErrorFlags) Has(mask ErrorFlags) bool {
	return f&mask == mask
}

// String renders the set bits as NAME|NAME, or "OK".
func (f ErrorFlags) String() string {
	if f == 0 {
		return "OK"
	}
	var parts []string
	rest := f
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
			rest &^= fn.flag
		}
	}
	if rest != 0 {
		parts = append(parts, "0x"+hexByte(byte(rest)))
	}
	return strings.Join(parts, "|")
}

const hexDigits = "0123456789ABCDEF"

func hexByte(b byte) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0x0F]})
}
