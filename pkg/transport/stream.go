// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

var (
	_ bear.Transport      = (*Stream)(nil)
	_ bear.InputDiscarder = (*Stream)(nil)
)

// drainWindow bounds how long DiscardInput keeps reading stale bytes.
const drainWindow = time.Millisecond

// DeadlineReadWriter is a byte stream with read deadlines, such as a
// net.Conn.
type DeadlineReadWriter interface {
	io.ReadWriter
	SetReadDeadline(t time.Time) error
}

// Stream is a bear.Transport over a byte stream, typically a TCP connection
// to a serial server.
type Stream struct {
	rw    DeadlineReadWriter
	label string
	drain [64]byte
}

// NewStream wraps rw.
func NewStream(rw DeadlineReadWriter) *Stream {
	return &Stream{rw: rw, label: "Stream"}
}

// DialTCP connects to a serial server at addr.
func DialTCP(ctx context.Context, addr string) (*Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &Stream{rw: conn, label: "TCP: " + addr}, nil
}

func (s *Stream) Write(p []byte) (int, error) {
	return s.rw.Write(p)
}

func (s *Stream) Read(p []byte, deadline time.Time) (int, error) {
	if err := s.rw.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	n, err := s.rw.Read(p)
	if isTimeout(err) {
		return n, nil
	}
	return n, err
}

// DiscardInput reads and drops whatever arrives within drainWindow. A peer
// that keeps sending does not extend the window.
func (s *Stream) DiscardInput() error {
	until := time.Now().Add(drainWindow)
	for time.Now().Before(until) {
		if err := s.rw.SetReadDeadline(until); err != nil {
			return err
		}
		n, err := s.rw.Read(s.drain[:])
		if isTimeout(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}

// Close closes the stream if it can be closed.
func (s *Stream) Close() error {
	if c, ok := s.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Stream) String() string {
	return s.label
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
