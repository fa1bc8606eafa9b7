// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
	"github.com/westwoodrobotics/bearbus/pkg/bear/beartest"
)

func TestStream_ReadTimeout(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	s := NewStream(local)
	defer s.Close()

	start := time.Now()
	n, err := s.Read(make([]byte, 8), time.Now().Add(20*time.Millisecond))
	require.NoError(t, err)
	require.Zero(t, n)
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestStream_ReadData(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	s := NewStream(local)
	defer s.Close()

	go func() {
		_, _ = remote.Write([]byte{1, 2, 3})
	}()

	buf := make([]byte, 8)
	n, err := s.Read(buf, time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, buf[:n])
}

func TestStream_ClosedIsError(t *testing.T) {
	local, remote := net.Pipe()
	s := NewStream(local)
	require.NoError(t, remote.Close())

	_, err := s.Read(make([]byte, 8), time.Now().Add(time.Second))
	require.Error(t, err)
}

// A client exchange over a pipe to a simulated bus.
func TestStream_ClientExchange(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	dev := beartest.NewDevice(3)
	dev.Set(bear.StatusAddr(9), 0x01020304)
	bus := beartest.NewBus(dev)

	go func() {
		buf := make([]byte, bear.MaxPacketSize)
		for {
			n, err := remote.Read(buf)
			if err != nil {
				return
			}
			_, _ = bus.Write(buf[:n])
			out := make([]byte, bear.MaxPacketSize)
			m, _ := bus.Read(out, time.Now())
			if m > 0 {
				if _, err := remote.Write(out[:m]); err != nil {
					return
				}
			}
		}
	}()

	c := bear.NewClient(NewStream(local), bear.Config{Timeout: time.Second})
	v, err := c.ReadUint32(3, bear.StatusAddr(9))
	require.NoError(t, err)
	require.Equal(t, uint32(0x01020304), v)
}

// chatter writes a byte every 200µs on remote until stop is closed, and
// swallows anything the other side sends.
func chatter(t *testing.T, remote net.Conn) {
	t.Helper()
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, remote)
	}()
	go func() {
		defer close(done)
		tick := time.NewTicker(200 * time.Microsecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				if _, err := remote.Write([]byte{0x00}); err != nil {
					return
				}
			}
		}
	}()
	t.Cleanup(func() {
		close(stop)
		_ = remote.Close()
		<-done
	})
}

func TestStream_DiscardInput_BusyLine(t *testing.T) {
	local, remote := net.Pipe()
	chatter(t, remote)
	s := NewStream(local)

	start := time.Now()
	require.NoError(t, s.DiscardInput())
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestStream_ClientTimeout_BusyLine(t *testing.T) {
	local, remote := net.Pipe()
	chatter(t, remote)
	c := bear.NewClient(NewStream(local), bear.Config{Timeout: 5 * time.Millisecond})

	start := time.Now()
	_, err := c.Read(1, bear.StatusAddr(0), 4)
	require.ErrorIs(t, err, bear.ErrTimeout)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}
