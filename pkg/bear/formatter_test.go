// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatRequest(t *testing.T) {
	require.Equal(t, "READ_CFG (0x04) id=0x05 regs=[0x10 0x11]",
		FormatRequest(Packet{ID: 5, Code: InstReadCfg, Params: []byte{0x10, 0x11}}))
	require.Equal(t, "WRITE_STAT (0x03) id=BROADCAST 0x00=1/1e-45",
		FormatRequest(Packet{ID: BroadcastID, Code: InstWriteStat, Params: []byte{0, 1, 0, 0, 0}}))
	require.Equal(t, "SAVE_CFG (0x06) id=0x01", FormatRequest(Packet{ID: 1, Code: InstSaveCfg}))
	require.Equal(t, "UNKNOWN_0x7A (0x7A) id=0x01 params=[01 02]",
		FormatRequest(Packet{ID: 1, Code: 0x7A, Params: []byte{1, 2}}))
}

func TestFormatResponse(t *testing.T) {
	require.Equal(t, "RESPONSE id=0x05 status=OK data=[1065353216/1]",
		FormatResponse(Packet{ID: 5, Params: []byte{0x00, 0x00, 0x80, 0x3F}}))
	require.Equal(t, "RESPONSE id=0x02 status=OVERHEAT",
		FormatResponse(Packet{ID: 2, Code: uint8(FlagOverheat)}))
	require.Equal(t, "RESPONSE id=0x02 status=OK data=[AA BB]",
		FormatResponse(Packet{ID: 2, Params: []byte{0xAA, 0xBB}}))
}

func TestFormatFrame(t *testing.T) {
	require.Equal(t, "FF FF 05 03 04 10 E3", FormatFrame([]byte{0xFF, 0xFF, 0x05, 0x03, 0x04, 0x10, 0xE3}))
	require.Equal(t, "", FormatFrame(nil))
}
