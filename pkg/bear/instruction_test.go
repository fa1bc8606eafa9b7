// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeRequest(t *testing.T) {
	tests := []struct {
		name string
		id   uint8
		inst Instruction
		want []byte
	}{
		{
			name: "read one config register",
			id:   5,
			inst: Read{Address: ConfigAddr(0x10), Length: 4},
			want: []byte{0xFF, 0xFF, 0x05, 0x03, InstReadCfg, 0x10, 0xE3},
		},
		{
			name: "read two status registers",
			id:   1,
			inst: Read{Address: StatusAddr(0x08), Length: 8},
			want: []byte{0xFF, 0xFF, 0x01, 0x04, InstReadStat, 0x08, 0x09, 0xE7},
		},
		{
			name: "write one status register",
			id:   1,
			inst: Write{Address: StatusAddr(0x00), Data: []byte{1, 0, 0, 0}},
			want: []byte{0xFF, 0xFF, 0x01, 0x07, InstWriteStat, 0x00, 0x01, 0x00, 0x00, 0x00, 0xF3},
		},
		{
			name: "save config",
			id:   2,
			inst: SaveConfig{},
			want: []byte{0xFF, 0xFF, 0x02, 0x02, InstSaveCfg, 0xF5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf [MaxPacketSize]byte
			n, err := EncodeRequest(buf[:], tt.id, tt.inst)
			require.NoError(t, err)
			require.Equal(t, tt.want, buf[:n])

			appended, err := AppendRequest([]byte{0xAB}, tt.id, tt.inst)
			require.NoError(t, err)
			require.Equal(t, append([]byte{0xAB}, tt.want...), appended)
		})
	}
}

func TestEncodeRequest_WriteInterleavesAddresses(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	var buf [MaxPacketSize]byte
	n, err := EncodeRequest(buf[:], 3, Write{Address: ConfigAddr(0x20), Data: data})
	require.NoError(t, err)

	p, err := ParsePacket(buf[:n])
	require.NoError(t, err)
	require.Equal(t, uint8(InstWriteCfg), p.Code)
	require.Equal(t, []byte{0x20, 1, 2, 3, 4, 0x21, 5, 6, 7, 8}, p.Params)
}

func TestEncodeRequest_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		inst Instruction
		kind error
	}{
		{"nil", nil, ErrInvalidArgument},
		{"zero length read", Read{Address: StatusAddr(0), Length: 0}, ErrInvalidArgument},
		{"negative read", Read{Address: StatusAddr(0), Length: -4}, ErrInvalidArgument},
		{"unaligned read", Read{Address: StatusAddr(0), Length: 3}, ErrInvalidArgument},
		{"unknown bank", Read{Address: Address{Bank: 7}, Length: 4}, ErrInvalidArgument},
		{"read past last register", Read{Address: StatusAddr(0xFF), Length: 8}, ErrInvalidArgument},
		{"oversized read", Read{Address: StatusAddr(0), Length: 124}, ErrCapacity},
		{"empty write", Write{Address: StatusAddr(0)}, ErrInvalidArgument},
		{"unaligned write", Write{Address: StatusAddr(0), Data: []byte{1, 2}}, ErrInvalidArgument},
		{"oversized write", Write{Address: StatusAddr(0), Data: make([]byte, 100)}, ErrCapacity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, MaxPacketSize)
			n, err := EncodeRequest(buf, 1, tt.inst)
			require.ErrorIs(t, err, tt.kind)
			require.Zero(t, n)
			require.Equal(t, make([]byte, MaxPacketSize), buf, "nothing may be written")
		})
	}
}

func TestEncodeRequest_Limits(t *testing.T) {
	var buf [MaxPacketSize]byte

	_, err := EncodeRequest(buf[:], 1, Read{Address: StatusAddr(0), Length: 120})
	require.NoError(t, err, "30 registers fit a response")

	_, err = EncodeRequest(buf[:], 1, Write{Address: StatusAddr(0), Data: make([]byte, 96)})
	require.NoError(t, err, "24 registers fit a write")

	_, err = EncodeRequest(buf[:10], 1, Write{Address: StatusAddr(0), Data: make([]byte, 8)})
	require.ErrorIs(t, err, ErrCapacity, "caller buffer is too small")
}

func TestInstruction_Lengths(t *testing.T) {
	r := Read{Address: ConfigAddr(1), Length: 12}
	require.Equal(t, 3, r.ParamLen())
	require.Equal(t, 12, r.ResponseLen())

	w := Write{Address: ConfigAddr(1), Data: make([]byte, 12)}
	require.Equal(t, 15, w.ParamLen())
	require.Zero(t, w.ResponseLen())

	require.Zero(t, SaveConfig{}.ParamLen())
	require.Zero(t, SaveConfig{}.ResponseLen())
}

func TestAddress_String(t *testing.T) {
	require.Equal(t, "config[0x10]", ConfigAddr(0x10).String())
	require.Equal(t, "status[0x02]", StatusAddr(2).String())
	require.Equal(t, "bank(9)[0x00]", Address{Bank: 9}.String())
}
