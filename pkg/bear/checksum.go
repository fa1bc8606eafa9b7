// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

// Checksum computes the BEAR packet checksum for the given bytes.
//
// data is everything between the marker and the checksum itself: id, length,
// instruction or status code and parameters. The result is the one's
// complement of the 8-bit sum.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum
}
