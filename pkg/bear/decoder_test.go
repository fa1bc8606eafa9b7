// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecoder_ByteByByte(t *testing.T) {
	frame, err := EncodePacket(5, 0, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	d := NewDecoder()
	for i, b := range frame {
		_, err := d.Write([]byte{b})
		require.NoError(t, err)
		p, err := d.Next()
		if i < len(frame)-1 {
			require.ErrorIs(t, err, ErrIncomplete, "byte %d", i)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, uint8(5), p.ID)
		require.Equal(t, []byte{1, 2, 3, 4}, p.Params)
	}
	require.Zero(t, d.Buffered())
	require.Zero(t, d.Skipped())
}

func TestDecoder_MultiplePackets(t *testing.T) {
	d := NewDecoder()
	for id := uint8(1); id <= 3; id++ {
		frame, err := EncodePacket(id, InstSaveCfg, nil)
		require.NoError(t, err)
		_, err = d.Write(frame)
		require.NoError(t, err)
	}

	for id := uint8(1); id <= 3; id++ {
		p, err := d.Next()
		require.NoError(t, err)
		require.Equal(t, id, p.ID)
	}
	_, err := d.Next()
	require.ErrorIs(t, err, ErrIncomplete)
}

func TestDecoder_Resync(t *testing.T) {
	good, err := EncodePacket(9, 0, []byte{0xAA, 0xBB, 0xCC, 0xDD})
	require.NoError(t, err)
	bad := append([]byte(nil), good...)
	bad[len(bad)-1] ^= 0x80

	d := NewDecoder()
	_, err = d.Write([]byte{0x01, 0x02})
	require.NoError(t, err)
	_, err = d.Write(bad)
	require.NoError(t, err)
	_, err = d.Write(good)
	require.NoError(t, err)

	var p Packet
	var sawChecksum bool
	for {
		p, err = d.Next()
		if err == nil {
			break
		}
		require.NotErrorIs(t, err, ErrIncomplete)
		if err != nil && !sawChecksum {
			require.ErrorIs(t, err, ErrChecksum)
			sawChecksum = true
		}
	}
	require.True(t, sawChecksum)
	require.Equal(t, uint8(9), p.ID)
	require.Equal(t, uint64(2+len(bad)), d.Skipped())
}

func TestDecoder_Overflow(t *testing.T) {
	d := NewDecoder()
	n, err := d.Write(make([]byte, decoderBufferSize+10))
	require.Equal(t, decoderBufferSize, n)
	require.ErrorIs(t, err, ErrCapacity)
}

func TestDecoder_FreeCommit(t *testing.T) {
	frame, err := EncodePacket(4, 0, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	d := NewDecoder()
	free := d.Free()
	require.Len(t, free, decoderBufferSize)
	n := copy(free, frame)
	d.Commit(n)

	p, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, uint8(4), p.ID)

	require.Panics(t, func() { d.Commit(decoderBufferSize + 1) })
}

func TestDecoder_CompactsWhenFull(t *testing.T) {
	d := NewDecoder()
	// Garbage that fills the buffer is consumed, so the buffer empties.
	_, err := d.Write(make([]byte, decoderBufferSize))
	require.NoError(t, err)
	_, err = d.Next()
	require.ErrorIs(t, err, ErrIncomplete)
	require.Zero(t, d.Buffered())
	require.Len(t, d.Free(), decoderBufferSize)

	// A partial packet at the end of a full buffer is moved to the front.
	frame, err := EncodePacket(2, 0, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	fill := make([]byte, decoderBufferSize-3)
	_, err = d.Write(append(fill, frame[:3]...))
	require.NoError(t, err)
	_, err = d.Next()
	require.ErrorIs(t, err, ErrIncomplete)
	require.Equal(t, 3, d.Buffered())

	_, err = d.Write(frame[3:])
	require.NoError(t, err)
	p, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, uint8(2), p.ID)
}
