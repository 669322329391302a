package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/strogmv/assembler/assembler"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/info"
	"github.com/strogmv/assembler/assembler/jndi"
)

func newInspectCmd() *cobra.Command {
	var appID, beanID string
	cmd := &cobra.Command{
		Use:   "inspect <descriptor>...",
		Short: "Show the resolved method policy of deployed beans",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := deployAll(cmd.Context(), c, cmd.ErrOrStderr(), args); err != nil {
				return err
			}

			var beans []*deployment.BeanContext
			for _, app := range c.Assembler.Applications() {
				if appID != "" && app.ID() != appID {
					continue
				}
				for _, b := range app.Beans() {
					if beanID == "" || b.DeploymentID == beanID {
						beans = append(beans, b)
					}
				}
			}
			if len(beans) == 0 {
				return errors.New("no matching beans deployed")
			}

			if jsonOutput {
				out := map[string][]assembler.MethodPolicy{}
				for _, b := range beans {
					out[b.DeploymentID] = assembler.Explain(b)
				}
				printJSON(cmd.OutOrStdout(), out)
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, b := range beans {
				fmt.Fprintf(tw, "%s\n", b)
				fmt.Fprintln(tw, "  METHOD\tTX\tLOCK\tPERMISSION\tINTERCEPTORS")
				for _, p := range assembler.Explain(b) {
					fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", p.Method, p.Transaction, orDash(p.Lock), permission(p), strings.Join(p.Interceptors, " > "))
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&appID, "app", "", "only beans of this application")
	cmd.Flags().StringVar(&beanID, "bean", "", "only this deployment id")
	return cmd
}

func permission(p assembler.MethodPolicy) string {
	switch {
	case p.Excluded:
		return "excluded"
	case p.Unchecked:
		return "unchecked"
	case len(p.Roles) > 0:
		return strings.Join(p.Roles, ",")
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newJndiCmd() *cobra.Command {
	var scope, prefix, appID string
	cmd := &cobra.Command{
		Use:   "jndi <descriptor>...",
		Short: "Deploy descriptors and list the bound names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := deployAll(cmd.Context(), c, cmd.ErrOrStderr(), args); err != nil {
				return err
			}

			var ctx *jndi.Context
			switch scope {
			case "internal":
				ctx = c.Assembler.ContainerSystem().JNDIContext()
			case "global":
				ctx = c.Assembler.ContainerSystem().GlobalContext()
			case "app":
				app, ok := c.Assembler.Application(appID)
				if !ok {
					return fmt.Errorf("%w: %s", assembler.ErrNoSuchApplication, appID)
				}
				ctx = app.Names()
			default:
				return fmt.Errorf("unknown scope %q", scope)
			}
			names := ctx.List(prefix)
			if jsonOutput {
				out := map[string]any{}
				for _, n := range names {
					v, _ := ctx.Lookup(n)
					out[n] = v
				}
				printJSON(cmd.OutOrStdout(), out)
				return nil
			}
			for _, n := range names {
				v, _ := ctx.Lookup(n)
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", n, v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "internal", "internal, global or app")
	cmd.Flags().StringVar(&prefix, "prefix", "", "only names below this prefix")
	cmd.Flags().StringVar(&appID, "app", "", "application for the app scope")
	return cmd
}

func newResolveCmd() *cobra.Command {
	var appID, module string
	var ref info.EjbReferenceInfo
	var refType string
	cmd := &cobra.Command{
		Use:   "resolve <descriptor>...",
		Short: "Resolve an ejb reference against deployed applications",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := deployAll(cmd.Context(), c, cmd.ErrOrStderr(), args); err != nil {
				return err
			}
			app, ok := c.Assembler.Application(appID)
			if !ok {
				return fmt.Errorf("%w: %s", assembler.ErrNoSuchApplication, appID)
			}
			ref.Type = info.RefType(strings.ToUpper(refType))
			id := app.Resolve(module, ref)
			if id == "" {
				return fmt.Errorf("%s does not resolve from module %q", ref.ReferenceName, module)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&appID, "app", "", "application the reference is declared in")
	cmd.Flags().StringVar(&module, "module", "", "module name or uri the reference is declared in")
	cmd.Flags().StringVar(&ref.ReferenceName, "ref", "ejb/ref", "reference name")
	cmd.Flags().StringVar(&ref.Link, "link", "", "ejb-link")
	cmd.Flags().StringVar(&ref.Interface, "interface", "", "business or component interface")
	cmd.Flags().StringVar(&ref.Home, "home", "", "home interface")
	cmd.Flags().StringVar(&refType, "type", "", "LOCAL or REMOTE")
	_ = cmd.MarkFlagRequired("app")
	return cmd
}
