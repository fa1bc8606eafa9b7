// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
	"github.com/westwoodrobotics/bearbus/pkg/bear/beartest"
)

// bridge serves a simulated bus the way a WebSocket serial bridge would.
func bridge(t *testing.T, bus *beartest.Bus, user, pass string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user != "" {
			u, p, ok := r.BasicAuth()
			if !ok || u != user || p != pass {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Text messages are noise for the transport.
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			_, _ = bus.Write(data)
			out := make([]byte, bear.MaxPacketSize)
			if n, _ := bus.Read(out, time.Now()); n > 0 {
				// Split the response across two messages.
				half := n / 2
				_ = conn.WriteMessage(websocket.BinaryMessage, out[:half])
				_ = conn.WriteMessage(websocket.BinaryMessage, out[half:n])
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocket_ClientExchange(t *testing.T) {
	dev := beartest.NewDevice(4)
	srv := bridge(t, beartest.NewBus(dev), "admin", "secret")

	ws, err := DialWebSocket(context.Background(), wsURL(srv), WebSocketOptions{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	defer ws.Close()

	c := bear.NewClient(ws, bear.Config{Timeout: time.Second})
	_, err = c.WriteFloat32(4, bear.ConfigAddr(3), 0.25)
	require.NoError(t, err)

	v, err := c.ReadFloat32(4, bear.ConfigAddr(3))
	require.NoError(t, err)
	require.Equal(t, float32(0.25), v)
}

func TestWebSocket_ReadTimeoutKeepsConnection(t *testing.T) {
	srv := bridge(t, beartest.NewBus(beartest.NewDevice(1)), "", "")

	ws, err := DialWebSocket(context.Background(), wsURL(srv), WebSocketOptions{})
	require.NoError(t, err)
	defer ws.Close()

	n, err := ws.Read(make([]byte, 8), time.Now().Add(20*time.Millisecond))
	require.NoError(t, err)
	require.Zero(t, n)

	c := bear.NewClient(ws, bear.Config{Timeout: time.Second})
	id, err := c.ReadUint32(1, bear.ConfigAddr(0))
	require.NoError(t, err)
	require.Equal(t, uint32(1), id)
}

func TestWebSocket_AuthFailure(t *testing.T) {
	srv := bridge(t, beartest.NewBus(), "admin", "secret")

	_, err := DialWebSocket(context.Background(), wsURL(srv), WebSocketOptions{Username: "admin", Password: "wrong"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 401")
}

func TestWebSocket_BadScheme(t *testing.T) {
	_, err := DialWebSocket(context.Background(), "http://localhost:1", WebSocketOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported URL scheme")
}

func TestWebSocket_ClosedIsError(t *testing.T) {
	srv := bridge(t, beartest.NewBus(), "", "")
	ws, err := DialWebSocket(context.Background(), wsURL(srv), WebSocketOptions{})
	require.NoError(t, err)
	require.NoError(t, ws.Close())

	_, err = ws.Read(make([]byte, 8), time.Now().Add(time.Second))
	require.ErrorIs(t, err, ErrConnectionClosed)
}
