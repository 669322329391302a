package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/strogmv/assembler/internal/mcp"
	"github.com/strogmv/assembler/internal/pkg/auth"
	"github.com/strogmv/assembler/internal/pkg/tracing"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve [descriptor]...",
		Short: "Run the admin HTTP API, optionally deploying descriptors first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := setup(ctx, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer c.Close()

			shutdownTracing, err := tracing.Init(ctx, c.Config.OTLPEndpoint, c.Config.ServiceName)
			if err != nil {
				return err
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdownTracing(sctx)
			}()

			if len(args) > 0 {
				// Keep serving; failures are visible under /api/failures.
				if err := deployAll(ctx, c, cmd.ErrOrStderr(), args); err != nil {
					c.Logger.Warn("initial deployment incomplete", slog.Any("error", err))
				}
			}

			if addr == "" {
				addr = c.Config.HTTPAddr
			}
			api := c.HTTPServer(prometheus.DefaultGatherer)
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				c.Logger.Info("admin api listening", slog.String("addr", addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			c.Logger.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			api.Hub().Close()
			return srv.Shutdown(sctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address; overrides HTTP_ADDR")
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp [descriptor]...",
		Short: "Serve MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()
			if len(args) > 0 {
				if err := deployAll(cmd.Context(), c, cmd.ErrOrStderr(), args); err != nil {
					c.Logger.Warn("initial deployment incomplete", slog.Any("error", err))
				}
			}
			return mcp.NewServer(c.Assembler, c.Loader, version).Run()
		},
	}
}

func newHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the bcrypt hash to put in ADMIN_TOKEN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
