// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

// Response is the validated answer of a device.
//
// Data is empty for Write and SaveConfig, and is never populated when the
// device reported an error.
type Response struct {
	ID     uint8
	Status ErrorFlags
	Data   []byte
}

// DecodeResponse validates a framed packet as the answer to inst sent to id.
//
// Checks run in order and the first failure wins: the responding id must
// match, the status must be a success, and the data length must match what
// inst asked for. When allowWarnings is set, warning bits in the status are
// reported in Response.Status but do not fail the exchange.
//
// A device error still returns a Response carrying the status, since the
// device did answer.
func DecodeResponse(p Packet, id uint8, inst Instruction, allowWarnings bool) (Response, error) {
	if p.ID != id {
		return Response{}, &IDMismatchError{Expected: id, Actual: p.ID}
	}

	resp := Response{ID: p.ID, Status: p.Status()}
	failed := resp.Status
	if allowWarnings {
		failed = failed.Errors()
	}
	if failed != 0 {
		return resp, &DeviceError{ID: p.ID, Status: resp.Status}
	}

	if want := inst.ResponseLen(); len(p.Params) != want {
		return resp, &ParamCountError{Expected: want, Actual: len(p.Params)}
	}
	resp.Data = p.Params
	return resp, nil
}
