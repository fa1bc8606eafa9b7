// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

const decoderBufferSize = 2 * MaxPacketSize

// Decoder accumulates bytes from a stream and frames packets out of them.
//
// The buffer has a fixed capacity of two maximum-size packets, which always
// leaves room for one complete packet behind a partial one. Bytes may be fed
// with Write, or read directly into Free and committed with Commit.
type Decoder struct {
	buf        [decoderBufferSize]byte
	start, end int
	skipped    uint64
}

// NewDecoder creates a new protocol decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Reset discards all buffered bytes.
func (d *Decoder) Reset() {
	d.start, d.end = 0, 0
}

// Buffered returns the number of bytes waiting to be framed.
func (d *Decoder) Buffered() int {
	return d.end - d.start
}

// Skipped returns the total number of bytes dropped while resynchronizing.
func (d *Decoder) Skipped() uint64 {
	return d.skipped
}

// Free returns the unused tail of the buffer for a zero-copy read.
// The slice is only valid until the next call on the decoder.
func (d *Decoder) Free() []byte {
	d.compact()
	return d.buf[d.end:]
}

// Commit marks n bytes written into the slice returned by Free as buffered.
func (d *Decoder) Commit(n int) {
	if n < 0 || d.end+n > len(d.buf) {
		panic("bear: decoder commit out of range")
	}
	d.end += n
}

// Write copies p into the buffer. It returns a CapacityError when p does
// not fit; the bytes that fit are still buffered.
func (d *Decoder) Write(p []byte) (int, error) {
	n := copy(d.Free(), p)
	d.Commit(n)
	if n < len(p) {
		return n, &CapacityError{Required: d.Buffered() + len(p) - n, Capacity: len(d.buf)}
	}
	return n, nil
}

// Next frames the next packet in the buffer.
//
// It returns ErrIncomplete when more bytes are needed. On a checksum or
// framing error it drops a single byte of the bad header, so calling Next
// again rescans for the next marker. The returned packet aliases the
// decoder buffer and is valid until the next call that modifies it.
func (d *Decoder) Next() (Packet, error) {
	p, consumed, err := Decode(d.buf[d.start:d.end])
	dropped := consumed
	if err == nil {
		dropped -= p.Size()
	}
	d.skipped += uint64(dropped)
	d.start += consumed
	if d.start == d.end {
		d.start, d.end = 0, 0
	}
	return p, err
}

func (d *Decoder) compact() {
	if d.start == 0 {
		return
	}
	// Packets handed out by Next alias the buffer, so only move bytes when
	// the tail is actually needed.
	if d.end < len(d.buf) {
		return
	}
	n := copy(d.buf[:], d.buf[d.start:d.end])
	d.start, d.end = 0, n
}
