// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
	"github.com/westwoodrobotics/bearbus/pkg/bear/registers"
)

var readBank string

var readCmd = &cobra.Command{
	Use:   "read <id> <register> [length]",
	Short: "Read raw registers from a device",
	Long: `Read length bytes of registers starting at a register address.

Length is in bytes and must be a multiple of 4 (one register); it defaults
to 4. Every register is shown both as an unsigned integer and as a float,
plus its name when the address is known.

Examples:
  bearctl read 1 0x00            # config register 0 (id)
  bearctl read 1 9 12 --bank status`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().StringVar(&readBank, "bank", "config", "Register bank (config or status)")
}

func runRead(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	bank, err := parseBank(readBank)
	if err != nil {
		return err
	}
	reg, err := parseReg(args[1])
	if err != nil {
		return err
	}
	length := bear.RegisterSize
	if len(args) == 3 {
		if length, err = strconv.Atoi(args[2]); err != nil {
			return fmt.Errorf("invalid length %q", args[2])
		}
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	addr := bear.Address{Bank: bank, Reg: reg}
	data, err := s.client.Read(id, addr, length)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i := 0; i+bear.RegisterSize <= len(data); i += bear.RegisterSize {
		a := bear.Address{Bank: bank, Reg: reg + uint8(i/bear.RegisterSize)}
		value := data[i : i+bear.RegisterSize]
		name := ""
		if r, ok := registers.ByAddress(a); ok {
			name = " " + headerStyle.Render(r.Name+"="+r.Format(value))
		}
		fmt.Fprintf(out, "%s %s%s\n", labelStyle.Render(a.String()), valueStyle.Render(bear.FormatValue(value)), name)
	}
	return nil
}
