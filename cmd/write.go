// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

var (
	writeBank      string
	writeBroadcast bool
)

var writeCmd = &cobra.Command{
	Use:   "write <id|broadcast> <register> <value>...",
	Short: "Write raw registers on a device",
	Long: `Write consecutive registers starting at a register address.

Each value fills one 32-bit register. Values with a decimal point or an
exponent are stored as floats, anything else as an unsigned integer
(0x prefixes are accepted).

Writing to "broadcast" (or passing --broadcast and no id) reaches every
device on the bus. No device answers a broadcast, so the command returns
as soon as the request is sent.

Examples:
  bearctl write 1 0x05 --bank status 1.5     # goal_pos
  bearctl write broadcast 0 --bank status 0  # disable torque everywhere
  bearctl write --broadcast 0 --bank status 0`,
	Args: cobra.MinimumNArgs(2),
	RunE: runWrite,
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().StringVar(&writeBank, "bank", "config", "Register bank (config or status)")
	writeCmd.Flags().BoolVar(&writeBroadcast, "broadcast", false, "Write to every device; the id argument is omitted")
}

func runWrite(cmd *cobra.Command, args []string) error {
	if writeBroadcast {
		args = append([]string{"broadcast"}, args...)
	}
	if len(args) < 3 {
		return errors.New("write needs an id, a register and at least one value")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	bank, err := parseBank(writeBank)
	if err != nil {
		return err
	}
	reg, err := parseReg(args[1])
	if err != nil {
		return err
	}
	var data []byte
	for _, v := range args[2:] {
		b, err := parseValue(v)
		if err != nil {
			return err
		}
		data = append(data, b...)
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	addr := bear.Address{Bank: bank, Reg: reg}
	status, err := s.client.Write(id, addr, data)
	if err != nil {
		return err
	}
	printAck(cmd, fmt.Sprintf("wrote %d register(s) at %s on %s", len(data)/bear.RegisterSize, addr, formatIDArg(id)), id, status)
	return nil
}

// printAck reports a completed command, with any warning flags the device
// raised.
func printAck(cmd *cobra.Command, msg string, id uint8, status bear.ErrorFlags) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, valueStyle.Render("OK")+" "+msg)
	if id != bear.BroadcastID && !status.OK() {
		fmt.Fprintln(out, warningStyle.Render("warning: "+status.String()))
	}
}
