package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"digestbot/digest"
	"digestbot/types"
)

var digestUser string

// digestCmd runs a single digest in the foreground
var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Build one digest now and print its outcome",
	Long: `Runs the digest pipeline once for --user and prints the outcome as JSON.
Exits non-zero only when the run failed; a skipped run exits zero.

Example:
  digestbot digest --user 3f6a...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		out := a.pipeline.Run(cmd.Context(), types.DigestJob{UserID: digestUser})
		return printOutcome(cmd.OutOrStdout(), out)
	},
}

func init() {
	digestCmd.Flags().StringVar(&digestUser, "user", "", "user id to build the digest for")
	_ = digestCmd.MarkFlagRequired("user")
}

// printOutcome writes out as indented JSON and turns a failure into an error.
func printOutcome(w io.Writer, out digest.Outcome) error {
	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, string(raw)); err != nil {
		return err
	}
	if out.Failed() {
		return fmt.Errorf("digest failed at %s: %w", out.Stage, out.Err)
	}
	return nil
}
