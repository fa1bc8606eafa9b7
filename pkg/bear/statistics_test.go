// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatistics_Classification(t *testing.T) {
	s := NewStatistics()
	s.attempt(nil)
	s.attempt(fmt.Errorf("%w: late", ErrTimeout))
	s.attempt(&ChecksumError{})
	s.attempt(&FramingError{})
	s.attempt(&IDMismatchError{})
	s.attempt(&DeviceError{})
	s.attempt(&ParamCountError{})
	s.attempt(&TransportError{Op: "write"})
	s.attempt(invalidArgument("nope"))
	s.transmitted(7, false)
	s.transmitted(7, true)
	s.received(10)
	s.skipped(3)

	c := s.Snapshot()
	require.Equal(t, uint64(1), c.Responses)
	require.Equal(t, uint64(1), c.Timeouts)
	require.Equal(t, uint64(1), c.ChecksumErrors)
	require.Equal(t, uint64(1), c.FramingErrors, "id mismatches are counted apart")
	require.Equal(t, uint64(1), c.IDMismatches)
	require.Equal(t, uint64(1), c.DeviceErrors)
	require.Equal(t, uint64(1), c.ProtocolErrors)
	require.Equal(t, uint64(1), c.TransportErrors)
	require.Equal(t, uint64(1), c.InvalidArguments)
	require.Equal(t, uint64(7), c.Errors())
	require.Equal(t, uint64(2), c.Transmissions)
	require.Equal(t, uint64(1), c.Retries)
	require.Equal(t, uint64(14), c.BytesSent)
	require.Equal(t, uint64(10), c.BytesReceived)
	require.Equal(t, uint64(3), c.SkippedBytes)

	out := s.String()
	require.True(t, strings.Contains(out, "Checksum Errors:"))
	require.True(t, strings.Contains(out, "Skipped Bytes:"))

	s.Reset()
	require.Zero(t, s.Snapshot().Transmissions)
}
