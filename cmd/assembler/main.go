package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/strogmv/assembler/assembler"
	"github.com/strogmv/assembler/internal/app"
	"github.com/strogmv/assembler/internal/config"
	"github.com/strogmv/assembler/internal/pkg/logger"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

var (
	logLevel   string
	jsonOutput bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "assembler",
		Short:        "Assemble enterprise bean applications into a running container system",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newDeployCmd(),
		newInspectCmd(),
		newJndiCmd(),
		newResolveCmd(),
		newExplainCmd(),
		newReportCmd(),
		newServeCmd(),
		newMCPCmd(),
		newWatchCmd(),
		newHashTokenCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "assembler %s\n", version)
			},
		},
	)
	return root
}

// setup loads configuration and builds the container. Logs go to stderr so
// stdout stays parseable.
func setup(ctx context.Context, reg prometheus.Registerer) (*app.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	log := logger.New(os.Stderr, cfg.LogLevel)
	return app.NewContainer(ctx, cfg, log, reg)
}

// deployAll loads every descriptor into c and reports failures without
// stopping at the first one.
func deployAll(ctx context.Context, c *app.Container, w io.Writer, paths []string) error {
	var failed int
	for _, path := range paths {
		if err := deployPath(ctx, c, path); err != nil {
			failed++
			fmt.Fprintf(w, "FAILED %s: %v\n", path, err)
			if hint := assembler.Hint(assembler.Code(err)); hint != "" {
				fmt.Fprintf(w, "  hint: %s\n", hint)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d descriptors failed", failed, len(paths))
	}
	return nil
}

func deployPath(ctx context.Context, c *app.Container, path string) error {
	isApp, err := c.Loader.IsApp(path)
	if err != nil {
		return err
	}
	if isApp {
		ai, err := c.Loader.LoadApp(path)
		if err != nil {
			return err
		}
		_, err = c.Assembler.CreateApplication(ctx, ai)
		return err
	}
	cfg, err := c.Loader.LoadConfiguration(path)
	if err != nil {
		return err
	}
	if err := c.Assembler.Build(ctx, cfg); err != nil {
		return err
	}
	// Build skips applications that fail; surface them.
	for _, ai := range cfg.Apps {
		if !c.Assembler.IsDeployed(ai.AppID) {
			if f, ok := c.Assembler.Exceptions().Get(ai.AppID); ok {
				return f.Err
			}
		}
	}
	return nil
}
