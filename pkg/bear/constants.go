// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bear implements the serial wire protocol of WestWood Robotics
// BEAR actuators.
//
// The package covers packet framing, checksum validation, instruction
// encoding, response validation and a synchronous Client that drives one
// request/response exchange at a time over any Transport. Encoding and
// decoding work on fixed-capacity buffers so the hot path does not allocate.
package bear

// Protocol framing bytes
const (
	HeaderByte = 0xFF
	HeaderSize = 4 // marker(2) + id + length
)

// Packet size limits
const (
	MaxPacketSize = 128                           // header + code + params + checksum
	MaxParamLen   = MaxPacketSize - HeaderSize - 2 // 122
	RegisterSize  = 4                             // every register is 32 bits wide
	minLength     = 2                             // code + checksum
	maxLength     = MaxPacketSize - HeaderSize
)

// Special device ids
const (
	BroadcastID = 0xFE
	invalidID   = 0xFF // never a valid id, it is marker material
)

// Instruction codes
const (
	InstPing      = 0x01
	InstReadStat  = 0x02
	InstWriteStat = 0x03
	InstReadCfg   = 0x04
	InstWriteCfg  = 0x05
	InstSaveCfg   = 0x06
	InstBulkComm  = 0x12 // reserved, never encoded
)

// Packet field offsets
const (
	offID     = 2
	offLength = 3
	offCode   = 4
	offParams = 5
)
