// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// bearctl - BEAR actuator bus tool
//
// A CLI tool for reading, writing and monitoring BEAR actuators over their
// RS-485 bus.

package main

import (
	"fmt"
	"os"

	"github.com/westwoodrobotics/bearbus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}
