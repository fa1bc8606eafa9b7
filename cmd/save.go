// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save <id>...",
	Short: "Persist the config bank of devices",
	Long: `Ask each device to store its config bank in non-volatile memory.

Saving cannot be broadcast; every device is addressed and confirms on its own.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	for _, id := range ids {
		status, err := s.client.SaveConfig(id)
		if err != nil {
			return err
		}
		printAck(cmd, "saved config of "+formatIDArg(id), id, status)
	}
	return nil
}
