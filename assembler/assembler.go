// Package assembler turns validated descriptors into a live container
// system: it creates the facilities and containers, then assembles each
// application by running the interceptor, policy, naming and reference
// builders in dependency order.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/strogmv/assembler/assembler/diag"
	"github.com/strogmv/assembler/assembler/ejbref"
	"github.com/strogmv/assembler/assembler/info"
)

var tracer = otel.Tracer("github.com/strogmv/assembler/assembler")

// Option keys read by the assembler itself.
const (
	OptAutoCreateContainers = "openejb.autocreate.containers"
	OptStrictReferences     = "openejb.assembler.strict.references"
)

// Default service ids used when the configuration leaves them empty.
const (
	DefaultTransactionManagerID = "Default Transaction Manager"
	DefaultSecurityServiceID    = "Default Security Service"
)

// Assembler owns the container system and every deployed application.
// Assembly operations are serialized.
type Assembler struct {
	logger    *slog.Logger
	warn      diag.Sink
	listeners []Listener
	ledger    NameLedger
	store     ExceptionStore
	options   *info.Options
	bufSize   int

	mu         sync.Mutex
	system     *ContainerSystem
	exceptions *DeploymentExceptionManager
	global     *ejbref.Resolver
	apps       *orderedmap.OrderedMap[string, *Application]
}

type Option func(*Assembler)

func WithLogger(l *slog.Logger) Option { return func(a *Assembler) { a.logger = l } }

// WithWarnings receives every soft diagnostic of every operation.
func WithWarnings(s diag.Sink) Option { return func(a *Assembler) { a.warn = s } }

func WithListener(l Listener) Option {
	return func(a *Assembler) { a.listeners = append(a.listeners, l) }
}

// WithNameLedger checks external names against other nodes.
func WithNameLedger(l NameLedger) Option { return func(a *Assembler) { a.ledger = l } }

// WithExceptionStore persists deployment failures.
func WithExceptionStore(s ExceptionStore) Option { return func(a *Assembler) { a.store = s } }

// WithOptions sets the system-level options every application inherits.
func WithOptions(props info.Properties) Option {
	return func(a *Assembler) { a.options = info.NewOptions(props, nil) }
}

func WithExceptionBufferSize(n int) Option { return func(a *Assembler) { a.bufSize = n } }

func New(opts ...Option) *Assembler {
	a := &Assembler{
		logger: slog.Default(),
		system: NewContainerSystem(),
		global: ejbref.New(nil, ejbref.ScopeGlobal),
		apps:   orderedmap.New[string, *Application](),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.options == nil {
		a.options = info.NewOptions(nil, nil)
	}
	a.exceptions = NewDeploymentExceptionManager(a.bufSize)
	return a
}

// AddListener registers a lifecycle listener.
func (a *Assembler) AddListener(l Listener) {
	a.mu.Lock()
	a.listeners = append(a.listeners, l)
	a.mu.Unlock()
}

func (a *Assembler) ContainerSystem() *ContainerSystem { return a.system }

func (a *Assembler) Exceptions() *DeploymentExceptionManager { return a.exceptions }

func (a *Assembler) TransactionManager() *TransactionManager { return a.system.TransactionManager }

func (a *Assembler) SecurityService() *SecurityService { return a.system.SecurityService }

// Options returns the system-level options.
func (a *Assembler) Options() *info.Options { return a.options }

// Applications lists deployed applications in deploy order.
func (a *Assembler) Applications() []*Application {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Application, 0, a.apps.Len())
	for pair := a.apps.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Application returns a deployed application by id.
func (a *Assembler) Application(id string) (*Application, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.apps.Get(id)
}

// IsDeployed reports whether an application with id is deployed.
func (a *Assembler) IsDeployed(id string) bool {
	_, ok := a.Application(id)
	return ok
}

// Build creates the facilities and containers of cfg, then every
// application. An application that fails is logged and remembered in the
// exception manager; it does not stop the others. Build fails only when the
// configuration or the facilities are broken.
func (a *Assembler) Build(ctx context.Context, cfg *info.Configuration) (err error) {
	ctx, span := tracer.Start(ctx, "assembler.Build")
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = WrapDeploymentError(StageFacilities, ErrCodeUnknownBug, "build container system", fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if err := info.Validate(cfg); err != nil {
		return WrapDeploymentError(StageConfig, ErrCodeConfigInvalid, "validate configuration", err)
	}
	a.mu.Lock()
	a.options = info.NewOptions(cfg.Properties, a.options)
	err = a.buildFacilities(cfg.Facilities)
	a.mu.Unlock()
	if err != nil {
		return unknownBug(StageFacilities, "build facilities", err)
	}

	for i := range cfg.Apps {
		app := &cfg.Apps[i]
		if _, err := a.CreateApplication(ctx, app); err != nil {
			if errors.Is(err, ErrDuplicateDeploymentID) {
				continue
			}
			a.logger.Error("application not deployed", slog.String("app", app.AppID), slog.String("path", app.Path), slog.Any("error", err))
		}
	}
	a.publish(ctx, Event{Type: EventContainerSystemCreated, Deployments: deploymentIDs(a.system.Deployments())})
	return nil
}

func (a *Assembler) buildFacilities(f info.FacilitiesInfo) error {
	if a.system.TransactionManager != nil {
		return WrapDeploymentError(StageFacilities, ErrCodeTransactionService, "create transaction manager", errors.New("container system already built"))
	}
	a.system.TransactionManager = &TransactionManager{
		ID:         orDefault(f.TransactionService.ID, DefaultTransactionManagerID),
		Service:    orDefault(f.TransactionService.Service, "TransactionManager"),
		Properties: f.TransactionService.Properties,
	}
	a.logger.Info("created transaction manager", slog.String("id", a.system.TransactionManager.ID))

	a.system.SecurityService = &SecurityService{
		ID:         orDefault(f.SecurityService.ID, DefaultSecurityServiceID),
		Service:    orDefault(f.SecurityService.Service, "SecurityService"),
		Properties: f.SecurityService.Properties,
	}
	a.logger.Info("created security service", slog.String("id", a.system.SecurityService.ID))

	for _, ci := range f.Containers {
		if err := a.CreateContainer(ci); err != nil {
			return err
		}
	}
	return nil
}

// CreateContainer adds a container to the container system.
func (a *Assembler) CreateContainer(ci info.ContainerInfo) error {
	if err := a.system.AddContainer(newContainer(ci)); err != nil {
		return WrapDeploymentError(StageFacilities, ErrCodeContainerCreate, "create container "+ci.ID, err)
	}
	a.logger.Info("created container", slog.String("id", ci.ID), slog.String("type", string(ci.Type)))
	return nil
}

// publish hands e to a snapshot of the listeners. Callers must not hold
// a.mu, so listeners may call back into the Assembler.
func (a *Assembler) publish(ctx context.Context, e Event) {
	if e.Type == "" {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	a.mu.Lock()
	listeners := slices.Clone(a.listeners)
	a.mu.Unlock()
	for _, l := range listeners {
		l.DeploymentEvent(ctx, e)
	}
}

// failed records a failed application deployment and returns err with the
// event the caller publishes.
func (a *Assembler) failed(ctx context.Context, app *info.AppInfo, ac *AssemblyContext, err error) (Event, error) {
	f := DeploymentFailure{AppID: app.AppID, Path: app.Path, Code: Code(err), Err: err}
	e := Event{Type: EventAppFailed, AppID: app.AppID, Code: f.Code, Error: err.Error()}
	if ac != nil {
		f.RunID = ac.RunID
		e.RunID = ac.RunID
		e.Warnings = len(ac.Warnings())
		e.Duration = ac.Elapsed()
	}
	a.exceptions.Save(f)
	if a.store != nil {
		if serr := a.store.SaveDeploymentFailure(ctx, f); serr != nil {
			a.logger.Warn("failed to persist deployment failure", slog.String("app", app.AppID), slog.Any("error", serr))
		}
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.code", f.Code))
	return e, err
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
