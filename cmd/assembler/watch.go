package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/strogmv/assembler/assembler"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print deployment events other assemblers publish on NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := setup(ctx, nil)
			if err != nil {
				return err
			}
			defer c.Close()
			if c.Events == nil {
				return errors.New("watch needs NATS_URL")
			}

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			sub, err := c.Events.Subscribe(func(e assembler.Event) error {
				mu.Lock()
				defer mu.Unlock()
				printEvent(out, e)
				return nil
			})
			if err != nil {
				return err
			}
			defer func() { _ = sub.Unsubscribe() }()

			<-ctx.Done()
			return nil
		},
	}
}

func printEvent(w io.Writer, e assembler.Event) {
	if jsonOutput {
		printJSON(w, e)
		return
	}
	line := fmt.Sprintf("%s %-24s %s", e.At.Format(time.RFC3339), e.Type, e.AppID)
	switch {
	case e.Code != "":
		line += fmt.Sprintf(" [%s] %s", e.Code, e.Error)
	case len(e.Deployments) > 0:
		line += " " + strings.Join(e.Deployments, ",")
	}
	fmt.Fprintln(w, line)
}
