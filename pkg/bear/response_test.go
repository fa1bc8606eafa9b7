// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeResponse(t *testing.T) {
	read := Read{Address: ConfigAddr(0x10), Length: 4}

	t.Run("success", func(t *testing.T) {
		resp, err := DecodeResponse(Packet{ID: 5, Params: []byte{1, 2, 3, 4}}, 5, read, false)
		require.NoError(t, err)
		require.Equal(t, Response{ID: 5, Data: []byte{1, 2, 3, 4}}, resp)
	})

	t.Run("id mismatch wins over status", func(t *testing.T) {
		_, err := DecodeResponse(Packet{ID: 6, Code: uint8(FlagHardware)}, 5, read, false)
		var mismatch *IDMismatchError
		require.ErrorAs(t, err, &mismatch)
		require.Equal(t, uint8(5), mismatch.Expected)
		require.Equal(t, uint8(6), mismatch.Actual)
		require.ErrorIs(t, err, ErrFraming)
	})

	t.Run("device error keeps status and drops data", func(t *testing.T) {
		resp, err := DecodeResponse(Packet{ID: 5, Code: uint8(FlagJointLimit), Params: []byte{1, 2, 3, 4}}, 5, read, false)
		var devErr *DeviceError
		require.ErrorAs(t, err, &devErr)
		require.Equal(t, FlagJointLimit, devErr.Status)
		require.Equal(t, FlagJointLimit, resp.Status)
		require.Nil(t, resp.Data)
	})

	t.Run("device error checked before length", func(t *testing.T) {
		_, err := DecodeResponse(Packet{ID: 5, Code: uint8(FlagHardware)}, 5, read, false)
		require.ErrorIs(t, err, ErrDevice)
	})

	t.Run("wrong data length", func(t *testing.T) {
		_, err := DecodeResponse(Packet{ID: 5, Params: []byte{1, 2}}, 5, read, false)
		var countErr *ParamCountError
		require.ErrorAs(t, err, &countErr)
		require.Equal(t, 4, countErr.Expected)
		require.Equal(t, 2, countErr.Actual)
		require.False(t, Retryable(err))
	})

	t.Run("warnings are errors by default", func(t *testing.T) {
		_, err := DecodeResponse(Packet{ID: 5, Code: uint8(FlagOverheat), Params: []byte{1, 2, 3, 4}}, 5, read, false)
		require.ErrorIs(t, err, ErrDevice)
	})

	t.Run("allowed warnings are reported", func(t *testing.T) {
		resp, err := DecodeResponse(Packet{ID: 5, Code: uint8(FlagOverheat | FlagCommunication), Params: []byte{1, 2, 3, 4}}, 5, read, true)
		require.NoError(t, err)
		require.Equal(t, FlagOverheat|FlagCommunication, resp.Status)
		require.Equal(t, []byte{1, 2, 3, 4}, resp.Data)
	})

	t.Run("allowed warnings do not hide errors", func(t *testing.T) {
		_, err := DecodeResponse(Packet{ID: 5, Code: uint8(FlagOverheat | FlagWatchdogEstop)}, 5, read, true)
		require.ErrorIs(t, err, ErrDevice)
	})

	t.Run("save config carries no data", func(t *testing.T) {
		resp, err := DecodeResponse(Packet{ID: 2}, 2, SaveConfig{}, false)
		require.NoError(t, err)
		require.Empty(t, resp.Data)

		_, err = DecodeResponse(Packet{ID: 2, Params: []byte{0}}, 2, SaveConfig{}, false)
		require.ErrorIs(t, err, ErrProtocol)
	})
}

func TestRetryable(t *testing.T) {
	require.True(t, Retryable(ErrTimeout))
	require.True(t, Retryable(&ChecksumError{}))
	require.True(t, Retryable(&FramingError{}))
	require.True(t, Retryable(&IDMismatchError{}))
	require.False(t, Retryable(&DeviceError{}))
	require.False(t, Retryable(&TransportError{Op: "read", Err: ErrTimeout}))
	require.False(t, Retryable(ErrInvalidArgument))
	require.False(t, Retryable(&CapacityError{}))
	require.False(t, Retryable(nil))
}
