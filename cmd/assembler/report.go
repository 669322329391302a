package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strogmv/assembler/assembler"
	"github.com/strogmv/assembler/internal/pkg/report"
)

func newReportCmd() *cobra.Command {
	var appID, output string
	var limit int
	cmd := &cobra.Command{
		Use:   "report <descriptor>...",
		Short: "Deploy descriptors and write a PDF deployment report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()
			// Failed descriptors still show up in the report.
			_ = deployAll(cmd.Context(), c, cmd.ErrOrStderr(), args)

			app, ok := c.Assembler.Application(appID)
			if !ok {
				return fmt.Errorf("%w: %s", assembler.ErrNoSuchApplication, appID)
			}
			failures, err := c.RecentFailures(cmd.Context(), "", limit)
			if err != nil {
				return err
			}
			pdf, err := report.NewGenerator().GenerateDeploymentReport(report.FromApplication(app, failures))
			if err != nil {
				return err
			}
			if output == "-" {
				_, err = cmd.OutOrStdout().Write(pdf)
				return err
			}
			if err := os.WriteFile(output, pdf, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", output, len(pdf))
			return nil
		},
	}
	cmd.Flags().StringVar(&appID, "app", "", "application to report on")
	cmd.Flags().StringVarP(&output, "output", "o", "report.pdf", "output file, - for stdout")
	cmd.Flags().IntVar(&limit, "failures", 20, "recent failures to include")
	_ = cmd.MarkFlagRequired("app")
	return cmd
}
