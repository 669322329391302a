package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	natspkg "github.com/nats-io/nats.go"

	"github.com/strogmv/assembler/assembler"
	"github.com/strogmv/assembler/internal/pkg/logger"
	"github.com/strogmv/assembler/internal/port"
)

type Client struct {
	nc      *natspkg.Conn
	subject string
}

func NewClient(url, subject string) (*Client, error) {
	nc, err := natspkg.Connect(url, natspkg.Name("assembler"))
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc, subject: subject}, nil
}

func (c *Client) Close() {
	c.nc.Close()
}

// Subject is the subject an event of type t is published on.
func (c *Client) Subject(t assembler.EventType) string {
	return c.subject + "." + string(t)
}

func (c *Client) PublishDeploymentEvent(ctx context.Context, event assembler.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	if err := c.nc.Publish(c.Subject(event.Type), data); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// DeploymentEvent publishes assembler lifecycle events. A failed publish is
// logged; it never fails the deployment.
func (c *Client) DeploymentEvent(ctx context.Context, event assembler.Event) {
	if err := c.PublishDeploymentEvent(ctx, event); err != nil {
		logger.From(ctx).Warn("event not published", slog.String("app", event.AppID), slog.Any("error", err))
	}
}

// Subscribe delivers every deployment event published under the client subject.
func (c *Client) Subscribe(handler func(event assembler.Event) error) (*natspkg.Subscription, error) {
	return c.nc.Subscribe(c.subject+".>", func(msg *natspkg.Msg) {
		var event assembler.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("malformed deployment event", slog.String("subject", msg.Subject), slog.Any("error", err))
			return
		}
		_ = handler(event)
	})
}

var (
	_ port.Publisher     = (*Client)(nil)
	_ assembler.Listener = (*Client)(nil)
)
