// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import "testing"

func TestErrorFlags_String(t *testing.T) {
	tests := []struct {
		flags ErrorFlags
		want  string
	}{
		{0, "OK"},
		{FlagOverheat, "OVERHEAT"},
		{FlagCommunication | FlagHardware, "COMMUNICATION|HARDWARE"},
		{0x80 | FlagJointLimit, "JOINT_LIMIT|0x80"},
	}
	for _, tt := range tests {
		if got := tt.flags.String(); got != tt.want {
			t.Errorf("ErrorFlags(0x%02X).String() = %q, want %q", uint8(tt.flags), got, tt.want)
		}
	}
}

func TestErrorFlags_Split(t *testing.T) {
	f := FlagOverheat | FlagAbsolutePosition | 0x80
	if f.Warnings() != FlagOverheat {
		t.Errorf("Warnings() = %s", f.Warnings())
	}
	if f.Errors() != FlagAbsolutePosition|0x80 {
		t.Errorf("Errors() = %s", f.Errors())
	}
	if !f.Has(FlagOverheat | FlagAbsolutePosition) {
		t.Error("Has() should match a subset")
	}
	if f.Has(FlagHardware) {
		t.Error("Has() matched a clear bit")
	}
	if WarningFlags|FatalFlags != 0x7F {
		t.Errorf("defined flags = 0x%02X, want 0x7F", uint8(WarningFlags|FatalFlags))
	}
}
