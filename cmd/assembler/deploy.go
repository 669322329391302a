package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/strogmv/assembler/assembler"
)

func newDeployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy <descriptor>...",
		Short: "Assemble descriptors and print what was deployed",
		Long: "Each descriptor is a .cue or .json file, or a directory holding one CUE package.\n" +
			"A descriptor with an appId is a single application; anything else is a whole configuration.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()

			deployErr := deployAll(cmd.Context(), c, cmd.ErrOrStderr(), args)
			printApplications(cmd.OutOrStdout(), c.Assembler.Applications())
			return deployErr
		},
	}
}

type appOutput struct {
	AppID    string       `json:"appId"`
	RunID    string       `json:"runId"`
	Beans    []beanOutput `json:"beans"`
	Warnings []string     `json:"warnings,omitempty"`
}

type beanOutput struct {
	DeploymentID string   `json:"deploymentId"`
	Kind         string   `json:"kind"`
	Container    string   `json:"container"`
	Names        []string `json:"names"`
}

func printApplications(w io.Writer, apps []*assembler.Application) {
	out := make([]appOutput, 0, len(apps))
	for _, app := range apps {
		names := map[string][]string{}
		for _, bb := range app.Bindings() {
			for _, n := range bb.JndiNames {
				names[bb.DeploymentID] = append(names[bb.DeploymentID], n.Name)
			}
		}
		ao := appOutput{AppID: app.ID(), RunID: app.RunID}
		for _, b := range app.Beans() {
			ao.Beans = append(ao.Beans, beanOutput{
				DeploymentID: b.DeploymentID,
				Kind:         string(b.Kind),
				Container:    b.ContainerID,
				Names:        names[b.DeploymentID],
			})
		}
		for _, warn := range app.Warnings {
			ao.Warnings = append(ao.Warnings, fmt.Sprintf("[%s] %s", warn.Code, warn.Message))
		}
		out = append(out, ao)
	}
	if jsonOutput {
		printJSON(w, out)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, ao := range out {
		fmt.Fprintf(tw, "Application %s (run %s)\n", ao.AppID, ao.RunID)
		for _, b := range ao.Beans {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", b.DeploymentID, b.Kind, b.Container, strings.Join(b.Names, ", "))
		}
		for _, warn := range ao.Warnings {
			fmt.Fprintf(tw, "  warning: %s\n", warn)
		}
	}
	_ = tw.Flush()
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
