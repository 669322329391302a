package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/strogmv/assembler/assembler"
	"github.com/strogmv/assembler/assembler/descriptor"
	"github.com/strogmv/assembler/assembler/diag"
	"github.com/strogmv/assembler/internal/adapter/events/nats"
	"github.com/strogmv/assembler/internal/adapter/exceptions/postgres"
	redisledger "github.com/strogmv/assembler/internal/adapter/ledger/redis"
	"github.com/strogmv/assembler/internal/adapter/storage/s3"
	"github.com/strogmv/assembler/internal/config"
	"github.com/strogmv/assembler/internal/pkg/metrics"
	transporthttp "github.com/strogmv/assembler/internal/transport/http"
)

const defaultFailureLimit = 50

// Container wires configuration into an Assembler and its optional
// adapters. An adapter is only created when its connection setting is set.
type Container struct {
	Config    *config.Config
	Logger    *slog.Logger
	Assembler *assembler.Assembler
	Loader    *descriptor.Loader
	Metrics   *metrics.Metrics

	Events   *nats.Client
	Ledger   *redisledger.Ledger
	Failures *postgres.FailureRepository
	Storage  *s3.S3Client

	closers []func()
}

func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
		Loader: descriptor.New(),
	}
	if reg != nil {
		c.Metrics = metrics.New(reg)
	}
	if err := c.connect(ctx); err != nil {
		c.Close()
		return nil, err
	}

	sinks := []diag.Sink{diag.Logging(logger)}
	if c.Metrics != nil {
		sinks = append(sinks, c.Metrics.Sink())
	}
	opts := []assembler.Option{
		assembler.WithLogger(logger),
		assembler.WithWarnings(diag.Tee(sinks...)),
		assembler.WithOptions(cfg.Properties()),
		assembler.WithExceptionBufferSize(cfg.ExceptionBuffer),
	}
	if c.Metrics != nil {
		opts = append(opts, assembler.WithListener(c.Metrics))
	}
	if c.Events != nil {
		opts = append(opts, assembler.WithListener(c.Events))
	}
	if c.Ledger != nil {
		opts = append(opts, assembler.WithNameLedger(c.Ledger))
	}
	if c.Failures != nil {
		opts = append(opts, assembler.WithExceptionStore(c.Failures))
	}
	c.Assembler = assembler.New(opts...)
	return c, nil
}

func (c *Container) connect(ctx context.Context) error {
	cfg := c.Config
	if cfg.NATSURL != "" {
		ev, err := nats.NewClient(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		c.Events = ev
		c.closers = append(c.closers, ev.Close)
		c.Logger.Info("publishing deployment events", slog.String("subject", cfg.NATSSubject))
	}
	if cfg.RedisAddr != "" {
		client := redisledger.NewClient(cfg.RedisAddr, cfg.RedisPassword)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("connect redis: %w", err)
		}
		c.Ledger = redisledger.NewLedger(client, cfg.LedgerPrefix)
		c.closers = append(c.closers, func() { _ = client.Close() })
		c.Logger.Info("sharing jndi names through redis", slog.String("prefix", cfg.LedgerPrefix))
	}
	if cfg.DatabaseURL != "" {
		repo, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		c.Failures = repo
		c.closers = append(c.closers, repo.Close)
	}
	if cfg.S3Bucket != "" {
		st, err := s3.New(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Endpoint)
		if err != nil {
			return fmt.Errorf("connect s3: %w", err)
		}
		c.Storage = st
	}
	return nil
}

// HTTPServer builds the admin API over the container's assembler.
func (c *Container) HTTPServer(gatherer prometheus.Gatherer) *transporthttp.Server {
	opts := []transporthttp.Option{
		transporthttp.WithLogger(c.Logger),
		transporthttp.WithCORSOrigins(splitList(c.Config.CORSOrigins)...),
		transporthttp.WithAdminTokenHash(c.Config.AdminTokenHash),
	}
	if gatherer != nil {
		opts = append(opts, transporthttp.WithGatherer(gatherer))
	}
	if c.Failures != nil {
		opts = append(opts, transporthttp.WithFailureRepository(c.Failures))
	}
	if c.Storage != nil {
		opts = append(opts, transporthttp.WithDescriptorStorage(c.Storage))
	}
	return transporthttp.NewServer(c.Assembler, c.Loader, opts...)
}

// RecentFailures lists failures from the database when one is configured,
// otherwise from the in-memory buffer. A limit below one means 50, as in
// the database store.
func (c *Container) RecentFailures(ctx context.Context, appID string, limit int) ([]assembler.DeploymentFailure, error) {
	if limit <= 0 {
		limit = defaultFailureLimit
	}
	if c.Failures != nil {
		return c.Failures.ListDeploymentFailures(ctx, appID, limit)
	}
	var out []assembler.DeploymentFailure
	for _, f := range c.Assembler.Exceptions().All() {
		if appID == "" || f.AppID == appID {
			out = append(out, f)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Close releases adapters in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
