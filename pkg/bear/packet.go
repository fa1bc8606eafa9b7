// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

// PACKET
// | HEADER   | ID | LEN | INST/ERR | PARAMS | CK  |
// | 255, 255 | 5  | 3   | 4        | 16     | 227 |
//
// LEN counts the code byte, the parameters and the checksum.

// Packet is one framed BEAR packet. Code is the instruction for requests and
// the status byte for responses.
//
// Packets returned by Decode, ParsePacket and Decoder.Next alias the buffer
// they were decoded from.
type Packet struct {
	ID     uint8
	Code   uint8
	Params []byte
}

// Length returns the value of the length field.
func (p Packet) Length() uint8 {
	return uint8(len(p.Params) + minLength)
}

// Size returns the number of bytes the packet occupies on the wire.
func (p Packet) Size() int {
	return HeaderSize + minLength + len(p.Params)
}

// Status interprets the code byte of a response.
func (p Packet) Status() ErrorFlags {
	return ErrorFlags(p.Code)
}

// IsBroadcast returns true if the packet is addressed to all devices
func (p Packet) IsBroadcast() bool {
	return p.ID == BroadcastID
}

// MarshalTo writes the wire form of p into buf and returns the number of
// bytes written. It never allocates.
func (p Packet) MarshalTo(buf []byte) (int, error) {
	if err := checkCapacity(p.Size(), MaxPacketSize); err != nil {
		return 0, err
	}
	if err := checkCapacity(p.Size(), len(buf)); err != nil {
		return 0, err
	}
	if p.ID == invalidID {
		return 0, invalidArgument("device id 0x%02X is reserved", p.ID)
	}

	buf[0] = HeaderByte
	buf[1] = HeaderByte
	buf[offID] = p.ID
	buf[offLength] = p.Length()
	buf[offCode] = p.Code
	copy(buf[offParams:], p.Params)

	end := offParams + len(p.Params)
	buf[end] = Checksum(buf[offID:end])
	return end + 1, nil
}

// AppendTo appends the wire form of p to dst.
func (p Packet) AppendTo(dst []byte) ([]byte, error) {
	var frame [MaxPacketSize]byte
	n, err := p.MarshalTo(frame[:])
	if err != nil {
		return dst, err
	}
	return append(dst, frame[:n]...), nil
}

// EncodePacket creates a complete wire-formatted packet.
// The length field and checksum are always computed.
func EncodePacket(id, code uint8, params []byte) ([]byte, error) {
	return Packet{ID: id, Code: code, Params: params}.AppendTo(nil)
}

// ParsePacket parses b as exactly one packet. The length field is checked
// against len(b) before the checksum is computed.
func ParsePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize+minLength {
		return Packet{}, &FramingError{Reason: "packet too short", Value: len(b), lengthMismatch: true}
	}
	if b[0] != HeaderByte || b[1] != HeaderByte {
		return Packet{}, &FramingError{Reason: "missing header", Value: int(b[0])<<8 | int(b[1])}
	}
	if err := checkFields(b[offID], b[offLength]); err != nil {
		return Packet{}, err
	}
	if declared := HeaderSize + int(b[offLength]); declared != len(b) {
		return Packet{}, &FramingError{Reason: "length field disagrees with packet size", Value: declared, lengthMismatch: true}
	}
	return verify(b)
}

// Decode frames the first packet in a byte stream.
//
// consumed is the number of leading bytes the caller should drop:
//   - on success, any leading garbage plus the packet itself;
//   - with ErrIncomplete, only the garbage before a possible header;
//   - on a checksum or framing error, the garbage plus one byte of the bad
//     header, so rescanning resynchronizes on the next marker without losing
//     a valid packet that follows.
func Decode(b []byte) (p Packet, consumed int, err error) {
	start := findHeader(b)
	rest := b[start:]
	if len(rest) < HeaderSize {
		return Packet{}, start, ErrIncomplete
	}
	if err := checkFields(rest[offID], rest[offLength]); err != nil {
		return Packet{}, start + 1, err
	}
	total := HeaderSize + int(rest[offLength])
	if len(rest) < total {
		return Packet{}, start, ErrIncomplete
	}
	p, err = verify(rest[:total])
	if err != nil {
		return Packet{}, start + 1, err
	}
	return p, start + total, nil
}

func checkFields(id, length uint8) error {
	if id == invalidID {
		return &FramingError{Reason: "invalid device id", Value: int(id)}
	}
	if length < minLength || int(length) > maxLength {
		return &FramingError{Reason: "invalid length", Value: int(length)}
	}
	return nil
}

// verify checks the checksum of a frame whose length is already known to be
// consistent.
func verify(frame []byte) (Packet, error) {
	end := len(frame) - 1
	computed := Checksum(frame[offID:end])
	if frame[end] != computed {
		return Packet{}, &ChecksumError{Message: frame[end], Computed: computed}
	}
	return Packet{
		ID:     frame[offID],
		Code:   frame[offCode],
		Params: frame[offParams:end],
	}, nil
}

// findHeader returns the first possible start of a header.
// A trailing partial marker counts as a possible start.
func findHeader(b []byte) int {
	for i := range b {
		if b[i] != HeaderByte {
			continue
		}
		if i+1 == len(b) || b[i+1] == HeaderByte {
			return i
		}
	}
	return len(b)
}
