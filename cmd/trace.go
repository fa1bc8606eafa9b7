// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/westwoodrobotics/bearbus/pkg/trace"
)

var traceErrorsOnly bool

var traceCmd = &cobra.Command{
	Use:   "trace <file>",
	Short: "Print an exchange trace file",
	Long: `Print the exchanges recorded with --trace-file.

Each record shows the instruction, the device id, how many transmissions
it took and the decoded request and response frames. Records are grouped
by the bearctl run (session) that wrote them.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.Flags().BoolVar(&traceErrorsOnly, "errors", false, "Only show failed exchanges")
}

func runTrace(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	r := trace.NewReader(f)
	total, failed := 0, 0
	session := ""
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", total+1, err)
		}
		total++
		if rec.Error != "" {
			failed++
		} else if traceErrorsOnly {
			continue
		}
		if rec.Session != session {
			session = rec.Session
			fmt.Fprintln(out, headerStyle.Render("session "+session))
		}
		fmt.Fprint(out, trace.Format(rec))
	}
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%d exchanges, %d failed", total, failed)))
	return nil
}
