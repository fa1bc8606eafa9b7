// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package registers describes the register map of a BEAR actuator.
package registers

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

// Kind is the type of the value stored in a register.
type Kind uint8

// Register value kinds
const (
	Uint32 Kind = iota
	Float32
)

func (k Kind) String() string {
	if k == Float32 {
		return "f32"
	}
	return "u32"
}

// Register is one named 4-byte register.
type Register struct {
	Name    string
	Address bear.Address
	Kind    Kind
}

// Decode interprets 4 little-endian bytes. Uint32 registers return a
// uint32 and Float32 registers a float32.
func (r Register) Decode(b []byte) (interface{}, error) {
	if len(b) != bear.RegisterSize {
		return nil, fmt.Errorf("register %s: want %d bytes, got %d", r.Name, bear.RegisterSize, len(b))
	}
	v := binary.LittleEndian.Uint32(b)
	if r.Kind == Float32 {
		return math.Float32frombits(v), nil
	}
	return v, nil
}

// Encode returns the wire form of v. v may be any integer or float type.
func (r Register) Encode(v interface{}) ([]byte, error) {
	var bits uint32
	switch r.Kind {
	case Float32:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("register %s: cannot store %T as f32", r.Name, v)
		}
		bits = math.Float32bits(f)
	default:
		u, ok := toUint(v)
		if !ok {
			return nil, fmt.Errorf("register %s: cannot store %v (%T) as u32", r.Name, v, v)
		}
		bits = u
	}
	return binary.LittleEndian.AppendUint32(make([]byte, 0, bear.RegisterSize), bits), nil
}

// Parse converts text, as typed on a command line, to the wire form.
func (r Register) Parse(s string) ([]byte, error) {
	if r.Kind == Float32 {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", r.Name, err)
		}
		return r.Encode(float32(f))
	}
	u, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", r.Name, err)
	}
	return r.Encode(uint32(u))
}

// Format renders 4 wire bytes the way Parse accepts them.
func (r Register) Format(b []byte) string {
	v, err := r.Decode(b)
	if err != nil {
		return bear.FormatFrame(b)
	}
	return fmt.Sprint(v)
}

func (r Register) String() string {
	return fmt.Sprintf("%s (%s, %s)", r.Name, r.Address, r.Kind)
}

// Config bank, in device order.
var Config = table(bear.BankConfig, []entry{
	{"id", Uint32},
	{"mode", Uint32},
	{"baudrate", Uint32},
	{"homing_offset", Float32},
	{"p_gain_id", Float32},
	{"i_gain_id", Float32},
	{"d_gain_id", Float32},
	{"p_gain_iq", Float32},
	{"i_gain_iq", Float32},
	{"d_gain_iq", Float32},
	{"p_gain_vel", Float32},
	{"i_gain_vel", Float32},
	{"d_gain_vel", Float32},
	{"p_gain_pos", Float32},
	{"i_gain_pos", Float32},
	{"d_gain_pos", Float32},
	{"p_gain_force", Float32},
	{"i_gain_force", Float32},
	{"d_gain_force", Float32},
	{"limit_acc_max", Float32},
	{"limit_i_max", Float32},
	{"limit_vel_max", Float32},
	{"limit_pos_min", Float32},
	{"limit_pos_max", Float32},
	{"min_voltage", Float32},
	{"max_voltage", Float32},
	{"watchdog_timeout", Uint32},
	{"temp_limit_low", Float32},
	{"temp_limit_high", Float32},
})

// Status bank, in device order.
var Status = table(bear.BankStatus, []entry{
	{"torque_enable", Uint32},
	{"homing_complete", Float32},
	{"goal_id", Float32},
	{"goal_iq", Float32},
	{"goal_vel", Float32},
	{"goal_pos", Float32},
	{"present_id", Float32},
	{"present_iq", Float32},
	{"present_vel", Float32},
	{"present_pos", Float32},
	{"input_voltage", Float32},
	{"winding_temp", Float32},
	{"powerstage_temp", Float32},
	{"ic_temp", Float32},
	{"error_status", Float32},
	{"warning_status", Float32},
})

type entry struct {
	name string
	kind Kind
}

func table(bank bear.Bank, entries []entry) []Register {
	regs := make([]Register, len(entries))
	for i, e := range entries {
		regs[i] = Register{Name: e.name, Address: bear.Address{Bank: bank, Reg: uint8(i)}, Kind: e.kind}
	}
	return regs
}

// All returns every register, config bank first.
func All() []Register {
	return append(append([]Register(nil), Config...), Status...)
}

// Lookup finds a register by name. Names are matched case-insensitively and
// may be prefixed with the bank, as in "config.id" or "status.goal_pos".
// Unprefixed names that exist in both banks are not accepted.
func Lookup(name string) (Register, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	var banks [][]Register
	switch {
	case strings.HasPrefix(name, "config."):
		name, banks = strings.TrimPrefix(name, "config."), [][]Register{Config}
	case strings.HasPrefix(name, "status."):
		name, banks = strings.TrimPrefix(name, "status."), [][]Register{Status}
	default:
		banks = [][]Register{Config, Status}
	}

	var found []Register
	for _, bank := range banks {
		for _, r := range bank {
			if r.Name == name {
				found = append(found, r)
			}
		}
	}
	switch len(found) {
	case 0:
		return Register{}, fmt.Errorf("unknown register %q", name)
	case 1:
		return found[0], nil
	default:
		return Register{}, fmt.Errorf("register %q is ambiguous, prefix it with config or status", name)
	}
}

// ByAddress finds the register at addr.
func ByAddress(addr bear.Address) (Register, bool) {
	bank := Status
	if addr.Bank == bear.BankConfig {
		bank = Config
	}
	if int(addr.Reg) >= len(bank) {
		return Register{}, false
	}
	return bank[addr.Reg], true
}

func toFloat(v interface{}) (float32, bool) {
	switch x := v.(type) {
	case float32:
		return x, true
	case float64:
		return float32(x), true
	case int:
		return float32(x), true
	case int32:
		return float32(x), true
	case int64:
		return float32(x), true
	case uint32:
		return float32(x), true
	}
	return 0, false
}

func toUint(v interface{}) (uint32, bool) {
	switch x := v.(type) {
	case uint32:
		return x, true
	case uint8:
		return uint32(x), true
	case uint16:
		return uint32(x), true
	case uint64:
		if x <= math.MaxUint32 {
			return uint32(x), true
		}
	case int:
		if x >= 0 && uint64(x) <= math.MaxUint32 {
			return uint32(x), true
		}
	case int32:
		if x >= 0 {
			return uint32(x), true
		}
	case int64:
		if x >= 0 && x <= math.MaxUint32 {
			return uint32(x), true
		}
	}
	return 0, false
}
