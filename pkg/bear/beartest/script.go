// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beartest

import (
	"sync"
	"time"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

// ScriptTransport is a bear.Transport that answers every write with the
// chunks returned by Reply. Each Read hands out at most one chunk. When no
// chunk is pending, Read sleeps on Clock until the deadline and returns
// (0, nil).
type ScriptTransport struct {
	Clock bear.Clock

	// Reply returns the chunks to deliver after frame was written.
	Reply func(frame []byte) [][]byte

	// WriteErr and ReadErr, when set, are returned by every call.
	WriteErr error
	ReadErr  error
	// ShortWrite makes Write report one byte less than it was given.
	ShortWrite bool

	mu       sync.Mutex
	writes   [][]byte
	pending  [][]byte
	reads    int
	discards int
}

// Queue appends chunks to the pending input as if they had arrived before
// the next request.
func (s *ScriptTransport) Queue(chunks ...[]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.pending = append(s.pending, append([]byte(nil), c...))
	}
}

func (s *ScriptTransport) Write(p []byte) (int, error) {
	if s.WriteErr != nil {
		return 0, s.WriteErr
	}
	frame := append([]byte(nil), p...)

	s.mu.Lock()
	s.writes = append(s.writes, frame)
	s.mu.Unlock()

	if s.Reply != nil {
		s.Queue(s.Reply(frame)...)
	}
	if s.ShortWrite {
		return len(p) - 1, nil
	}
	return len(p), nil
}

func (s *ScriptTransport) Read(p []byte, deadline time.Time) (int, error) {
	if s.ReadErr != nil {
		return 0, s.ReadErr
	}
	s.mu.Lock()
	s.reads++
	if len(s.pending) > 0 {
		n := copy(p, s.pending[0])
		if n == len(s.pending[0]) {
			s.pending = s.pending[1:]
		} else {
			s.pending[0] = s.pending[0][n:]
		}
		s.mu.Unlock()
		return n, nil
	}
	s.mu.Unlock()

	s.clock().Sleep(deadline.Sub(s.clock().Now()))
	return 0, nil
}

// DiscardInput drops every pending chunk.
func (s *ScriptTransport) DiscardInput() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.discards++
	return nil
}

// Writes returns copies of every frame written so far.
func (s *ScriptTransport) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.writes...)
}

// Reads returns the number of Read calls.
func (s *ScriptTransport) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Discards returns the number of DiscardInput calls.
func (s *ScriptTransport) Discards() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discards
}

func (s *ScriptTransport) clock() bear.Clock {
	if s.Clock == nil {
		return bear.SystemClock
	}
	return s.Clock
}

// Bytewise splits b into one chunk per byte.
func Bytewise(b []byte) [][]byte {
	chunks := make([][]byte, len(b))
	for i := range b {
		chunks[i] = b[i : i+1]
	}
	return chunks
}

// Response builds a well-formed response frame.
func Response(id uint8, status bear.ErrorFlags, data []byte) []byte {
	frame, err := bear.EncodePacket(id, uint8(status), data)
	if err != nil {
		panic(err)
	}
	return frame
}
