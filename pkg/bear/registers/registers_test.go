// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package registers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

func TestTables(t *testing.T) {
	require.Len(t, Config, 29)
	require.Len(t, Status, 16)
	require.Len(t, All(), 45)

	for i, r := range Config {
		require.Equal(t, bear.ConfigAddr(uint8(i)), r.Address, r.Name)
	}
	for i, r := range Status {
		require.Equal(t, bear.StatusAddr(uint8(i)), r.Address, r.Name)
	}
}

func TestLookup(t *testing.T) {
	r, err := Lookup("id")
	require.NoError(t, err)
	require.Equal(t, bear.ConfigAddr(0), r.Address)
	require.Equal(t, Uint32, r.Kind)

	r, err = Lookup(" Status.Goal_Pos ")
	require.NoError(t, err)
	require.Equal(t, bear.StatusAddr(5), r.Address)
	require.Equal(t, Float32, r.Kind)

	r, err = Lookup("watchdog_timeout")
	require.NoError(t, err)
	require.Equal(t, bear.ConfigAddr(26), r.Address)

	_, err = Lookup("status.id")
	require.Error(t, err)

	_, err = Lookup("nope")
	require.Error(t, err)
}

func TestByAddress(t *testing.T) {
	r, ok := ByAddress(bear.ConfigAddr(2))
	require.True(t, ok)
	require.Equal(t, "baudrate", r.Name)

	_, ok = ByAddress(bear.StatusAddr(16))
	require.False(t, ok)
}

func TestEncodeDecode(t *testing.T) {
	pos, err := Lookup("goal_pos")
	require.NoError(t, err)

	b, err := pos.Encode(1.5)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x00, 0xC0, 0x3F}, b)

	v, err := pos.Decode(b)
	require.NoError(t, err)
	require.Equal(t, float32(1.5), v)
	require.Equal(t, "1.5", pos.Format(b))

	mode, err := Lookup("mode")
	require.NoError(t, err)
	b, err = mode.Encode(3)
	require.NoError(t, err)
	require.Equal(t, []byte{3, 0, 0, 0}, b)

	_, err = mode.Encode(-1)
	require.Error(t, err)
	_, err = mode.Encode("3")
	require.Error(t, err)
	_, err = mode.Decode([]byte{1})
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	baud, err := Lookup("baudrate")
	require.NoError(t, err)
	b, err := baud.Parse("0x10")
	require.NoError(t, err)
	require.Equal(t, []byte{0x10, 0, 0, 0}, b)

	gain, err := Lookup("p_gain_pos")
	require.NoError(t, err)
	b, err = gain.Parse("-2")
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0xC0}, b)

	_, err = gain.Parse("fast")
	require.Error(t, err)
	_, err = baud.Parse("-1")
	require.Error(t, err)
}
