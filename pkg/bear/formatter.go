// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// FormatInstruction returns the human-readable name for an instruction code
func FormatInstruction(code uint8) string {
	switch code {
	case InstPing:
		return "PING"
	case InstReadStat:
		return "READ_STAT"
	case InstWriteStat:
		return "WRITE_STAT"
	case InstReadCfg:
		return "READ_CFG"
	case InstWriteCfg:
		return "WRITE_CFG"
	case InstSaveCfg:
		return "SAVE_CFG"
	case InstBulkComm:
		return "BULK_COMM"
	default:
		return fmt.Sprintf("UNKNOWN_0x%02X", code)
	}
}

// FormatPacket formats a packet into a human-readable string. A BEAR packet
// does not say whether it is a request or a response, so the caller must.
func FormatPacket(p Packet, response bool) string {
	if response {
		return FormatResponse(p)
	}
	return FormatRequest(p)
}

// FormatRequest formats a request packet
func FormatRequest(p Packet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (0x%02X) id=%s", FormatInstruction(p.Code), p.Code, formatID(p.ID))

	switch p.Code {
	case InstReadStat, InstReadCfg:
		b.WriteString(" regs=[")
		for i, reg := range p.Params {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "0x%02X", reg)
		}
		b.WriteByte(']')
	case InstWriteStat, InstWriteCfg:
		const entry = 1 + RegisterSize
		if len(p.Params)%entry != 0 {
			fmt.Fprintf(&b, " params=[%s]", FormatFrame(p.Params))
			break
		}
		for i := 0; i < len(p.Params); i += entry {
			fmt.Fprintf(&b, " 0x%02X=%s", p.Params[i], FormatValue(p.Params[i+1:i+entry]))
		}
	default:
		if len(p.Params) > 0 {
			fmt.Fprintf(&b, " params=[%s]", FormatFrame(p.Params))
		}
	}
	return b.String()
}

// FormatResponse formats a response packet
func FormatResponse(p Packet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RESPONSE id=%s status=%s", formatID(p.ID), p.Status())
	if len(p.Params) == 0 {
		return b.String()
	}
	if len(p.Params)%RegisterSize != 0 {
		fmt.Fprintf(&b, " data=[%s]", FormatFrame(p.Params))
		return b.String()
	}
	b.WriteString(" data=[")
	for i := 0; i < len(p.Params); i += RegisterSize {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(FormatValue(p.Params[i : i+RegisterSize]))
	}
	b.WriteByte(']')
	return b.String()
}

// FormatValue renders one 4-byte register both as an integer and as a
// float, since the wire does not carry the register type.
func FormatValue(v []byte) string {
	if len(v) != RegisterSize {
		return FormatFrame(v)
	}
	u := binary.LittleEndian.Uint32(v)
	return fmt.Sprintf("%d/%g", u, math.Float32frombits(u))
}

// FormatFrame renders bytes as space separated hex.
func FormatFrame(b []byte) string {
	out := make([]byte, 0, len(b)*3)
	for i, c := range b {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, hexDigits[c>>4], hexDigits[c&0x0F])
	}
	return string(out)
}

func formatID(id uint8) string {
	if id == BroadcastID {
		return "BROADCAST"
	}
	return fmt.Sprintf("0x%02X", id)
}
