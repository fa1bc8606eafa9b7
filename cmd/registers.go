// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
	"github.com/westwoodrobotics/bearbus/pkg/bear/registers"
)

var getCmd = &cobra.Command{
	Use:   "get <id> <register>...",
	Short: "Read named registers from a device",
	Long: `Read registers by name and show them with their type.

Names come from the register map (see "bearctl registers"). A name that
exists in both banks must be prefixed, as in config.id or status.goal_pos.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runGet,
}

var setCmd = &cobra.Command{
	Use:   "set <id|broadcast> <register> <value>",
	Short: "Write a named register on a device",
	Long: `Write one register by name. The value is parsed according to the
register type: floats for f32 registers, integers (0x accepted) for u32.

Config registers are volatile until "bearctl save" is run.`,
	Args: cobra.ExactArgs(3),
	RunE: runSet,
}

var registersCmd = &cobra.Command{
	Use:   "registers",
	Short: "List the register map",
	Args:  cobra.NoArgs,
	// Needs no bus, so it skips the config and logger setup of the root.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runRegisters,
}

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(registersCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	regs := make([]registers.Register, 0, len(args)-1)
	for _, name := range args[1:] {
		r, err := registers.Lookup(name)
		if err != nil {
			return err
		}
		regs = append(regs, r)
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	nameWidth := lipgloss.NewStyle().Width(maxNameLen(regs) + 2)
	var buf [bear.RegisterSize]byte
	for _, r := range regs {
		status, err := s.client.ReadInto(buf[:], id, r.Address)
		if err != nil {
			return fmt.Errorf("read %s: %w", r.Name, err)
		}
		line := nameWidth.Inherit(labelStyle).Render(r.Name) + valueStyle.Render(r.Format(buf[:])) +
			" " + headerStyle.Render(r.Kind.String())
		if !status.OK() {
			line += " " + warningStyle.Render(status.String())
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func runSet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	r, err := registers.Lookup(args[1])
	if err != nil {
		return err
	}
	data, err := r.Parse(args[2])
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	status, err := s.client.Write(id, r.Address, data)
	if err != nil {
		return err
	}
	printAck(cmd, fmt.Sprintf("%s = %s on %s", r.Name, r.Format(data), formatIDArg(id)), id, status)
	return nil
}

func runRegisters(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	all := registers.All()
	nameWidth := lipgloss.NewStyle().Width(maxNameLen(all) + 2)
	for _, r := range all {
		fmt.Fprintln(out, nameWidth.Inherit(labelStyle).Render(r.Name)+
			headerStyle.Render(fmt.Sprintf("%-18s %s", r.Address, r.Kind)))
	}
	return nil
}

func maxNameLen(regs []registers.Register) int {
	n := 0
	for _, r := range regs {
		if len(r.Name) > n {
			n = len(r.Name)
		}
	}
	return n
}
