// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import "time"

// Transport is the byte-level medium a Client drives. It has no protocol
// knowledge.
//
// Read must return as soon as at least one byte is available, or when the
// deadline passes. A pure timeout is reported as (0, nil); an error always
// means the medium itself failed. Reads may return any number of bytes, so
// a packet can arrive byte by byte.
type Transport interface {
	Write(p []byte) (int, error)
	Read(p []byte, deadline time.Time) (int, error)
}

// InputDiscarder is implemented by transports that can drop bytes already
// received but not yet read. The Client discards input before each request
// so stale bytes cannot satisfy a new exchange.
type InputDiscarder interface {
	DiscardInput() error
}
