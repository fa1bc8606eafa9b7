// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint8
		wantErr bool
	}{
		{"1", 1, false},
		{"0x1F", 0x1F, false},
		{"broadcast", bear.BroadcastID, false},
		{"ALL", bear.BroadcastID, false},
		{"254", bear.BroadcastID, false},
		{"0xFF", 0, true},
		{"256", 0, true},
		{"motor", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseIDs_RejectsBroadcast(t *testing.T) {
	ids, err := parseIDs([]string{"1", "0x02"})
	require.NoError(t, err)
	require.Equal(t, []uint8{1, 2}, ids)

	_, err = parseIDs([]string{"1", "broadcast"})
	require.Error(t, err)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"1", []byte{1, 0, 0, 0}},
		{"0x01020304", []byte{4, 3, 2, 1}},
		{"0xE0", []byte{0xE0, 0, 0, 0}},
		{"1.0", []byte{0x00, 0x00, 0x80, 0x3F}},
		{"-2.5", []byte{0x00, 0x00, 0x20, 0xC0}},
		{"1e3", []byte{0x00, 0x00, 0x7A, 0x44}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseValue(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := parseValue("4294967296")
	require.Error(t, err)
	_, err = parseValue("fast")
	require.Error(t, err)
}

func TestParseBank(t *testing.T) {
	b, err := parseBank("Status")
	require.NoError(t, err)
	require.Equal(t, bear.BankStatus, b)
	b, err = parseBank("cfg")
	require.NoError(t, err)
	require.Equal(t, bear.BankConfig, b)
	_, err = parseBank("eeprom")
	require.Error(t, err)
}
