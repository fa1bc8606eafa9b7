// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

var (
	_ bear.Transport      = (*WebSocket)(nil)
	_ bear.InputDiscarder = (*WebSocket)(nil)
)

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketOptions configures DialWebSocket.
type WebSocketOptions struct {
	Username         string
	Password         string
	SkipTLSVerify    bool
	HandshakeTimeout time.Duration
}

// WebSocket is a bear.Transport over a WebSocket serial bridge. Every binary
// message carries raw bus bytes in either direction; other message types
// are ignored.
//
// A gorilla connection cannot be read again after a read deadline expires,
// so a reader goroutine pumps messages into a channel and Read waits on it.
type WebSocket struct {
	conn  *websocket.Conn
	label string

	msgs      chan []byte
	done      chan struct{} // closed when the reader stops
	closing   chan struct{}
	closeOnce sync.Once
	err       error // valid once done is closed

	buf []byte
}

// DialWebSocket opens a WebSocket connection with HTTP Basic auth
func DialWebSocket(ctx context.Context, wsURL string, opts WebSocketOptions) (*WebSocket, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: opts.SkipTLSVerify,
		}
	}

	headers := http.Header{}
	if opts.Username != "" && opts.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	ws := NewWebSocket(conn)
	ws.label = "WebSocket: " + wsURL
	return ws, nil
}

// NewWebSocket takes ownership of conn and starts reading from it.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	ws := &WebSocket{
		conn:    conn,
		label:   "WebSocket",
		msgs:    make(chan []byte, 16),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
	go ws.readLoop()
	return ws
}

func (w *WebSocket) readLoop() {
	defer close(w.done)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.err = err
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case w.msgs <- data:
		case <-w.closing:
			w.err = ErrConnectionClosed
			return
		}
	}
}

func (w *WebSocket) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Read returns buffered message bytes first, then waits for the next
// message until the deadline.
func (w *WebSocket) Read(p []byte, deadline time.Time) (int, error) {
	if len(w.buf) > 0 {
		return w.take(p), nil
	}

	select {
	case data := <-w.msgs:
		w.buf = data
		return w.take(p), nil
	default:
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return 0, nil
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case data := <-w.msgs:
		w.buf = data
		return w.take(p), nil
	case <-w.done:
		// Deliver messages queued before the connection failed.
		select {
		case data := <-w.msgs:
			w.buf = data
			return w.take(p), nil
		default:
		}
		return 0, fmt.Errorf("%w: %v", ErrConnectionClosed, w.err)
	case <-timer.C:
		return 0, nil
	}
}

func (w *WebSocket) take(p []byte) int {
	n := copy(p, w.buf)
	w.buf = w.buf[n:]
	return n
}

// DiscardInput drops buffered and queued messages.
func (w *WebSocket) DiscardInput() error {
	w.buf = nil
	for {
		select {
		case <-w.msgs:
		default:
			return nil
		}
	}
}

func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closing)
		err = w.conn.Close()
	})
	return err
}

func (w *WebSocket) String() string {
	return w.label
}
