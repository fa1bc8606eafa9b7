// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import (
	"testing"
	"time"
)

func TestTransferTime(t *testing.T) {
	tests := []struct {
		n, baud int
		want    time.Duration
	}{
		{0, 115200, 0},
		{10, 0, 0},
		{1, 1000, 10 * time.Millisecond},
		{16, 8_000_000, 20 * time.Microsecond},
		{1, 3, 3333333334}, // rounds up
	}
	for _, tt := range tests {
		if got := TransferTime(tt.n, tt.baud); got != tt.want {
			t.Errorf("TransferTime(%d, %d) = %v, want %v", tt.n, tt.baud, got, tt.want)
		}
	}
}

func TestExchangeTimeout(t *testing.T) {
	if got := exchangeTimeout(Config{}, 7, 10); got != DefaultTimeout {
		t.Errorf("zero config timeout = %v, want %v", got, DefaultTimeout)
	}
	if got := exchangeTimeout(Config{Timeout: time.Second, BaudRate: 9600}, 7, 10); got != time.Second {
		t.Errorf("explicit timeout = %v, want 1s", got)
	}
	want := TransferTime(17, 1000) + responseSlack
	if got := exchangeTimeout(Config{BaudRate: 1000}, 7, 10); got != want {
		t.Errorf("baud derived timeout = %v, want %v", got, want)
	}
}
