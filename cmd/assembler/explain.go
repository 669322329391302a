package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strogmv/assembler/assembler"
)

func newExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [CODE]",
		Short: "Explain a deployment error code",
		Long:  "Without an argument, lists every stable error code.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				codes := slices.Clone(assembler.StableErrorCodes)
				slices.Sort(codes)
				for _, code := range codes {
					fmt.Fprintln(out, code)
				}
				return nil
			}
			code := strings.ToUpper(strings.TrimSpace(args[0]))
			hint := assembler.Hint(code)
			if hint == "" {
				return fmt.Errorf("unknown error code %q", code)
			}
			if jsonOutput {
				printJSON(out, map[string]string{"code": code, "hint": hint})
				return nil
			}
			fmt.Fprintf(out, "%s\n  %s\n", code, hint)
			return nil
		},
	}
}
