// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))
)

// parseID accepts a device id in any Go integer syntax, or "broadcast".
func parseID(s string) (uint8, error) {
	if strings.EqualFold(s, "broadcast") || strings.EqualFold(s, "all") {
		return bear.BroadcastID, nil
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid device id %q", s)
	}
	if v == 0xFF {
		return 0, fmt.Errorf("device id 0xFF is reserved")
	}
	return uint8(v), nil
}

// parseIDs parses a list of ids; broadcast is not accepted.
func parseIDs(list []string) ([]uint8, error) {
	ids := make([]uint8, 0, len(list))
	for _, s := range list {
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		if id == bear.BroadcastID {
			return nil, fmt.Errorf("broadcast cannot be used here")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseBank(s string) (bear.Bank, error) {
	switch strings.ToLower(s) {
	case "config", "cfg":
		return bear.BankConfig, nil
	case "status", "stat":
		return bear.BankStatus, nil
	}
	return 0, fmt.Errorf("unknown bank %q (use config or status)", s)
}

func parseReg(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid register address %q", s)
	}
	return uint8(v), nil
}

// parseValue encodes one raw register value. Values with a decimal point
// or exponent are stored as f32, anything else as u32.
func parseValue(s string) ([]byte, error) {
	var bits uint32
	if strings.ContainsAny(s, ".eE") && !strings.HasPrefix(strings.ToLower(s), "0x") {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", s)
		}
		bits = math.Float32bits(float32(f))
	} else {
		u, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", s)
		}
		bits = uint32(u)
	}
	return binary.LittleEndian.AppendUint32(nil, bits), nil
}

func formatIDArg(id uint8) string {
	if id == bear.BroadcastID {
		return "broadcast"
	}
	return fmt.Sprintf("0x%02X", id)
}
