package assembler

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/strogmv/assembler/assembler/ejbref"
)

// DestroyApplication undeploys an application: its names are unbound, its
// beans leave their containers and the global resolver is rebuilt from the
// applications that remain.
func (a *Assembler) DestroyApplication(ctx context.Context, appID string) (err error) {
	ctx, span := tracer.Start(ctx, "assembler.DestroyApplication", trace.WithAttributes(attribute.String("app", appID)))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	e, err := a.destroyApplication(ctx, appID)
	a.publish(ctx, e)
	return err
}

func (a *Assembler) destroyApplication(ctx context.Context, appID string) (Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	app, ok := a.apps.Get(appID)
	if !ok {
		return Event{}, WrapDeploymentError(StageUndeploy, ErrCodeAppNotFound, "destroy application "+appID, fmt.Errorf("%w: %s", ErrNoSuchApplication, appID))
	}
	ac := newAssemblyContext(appID, app.Context.Options, a.logger, a.warn)
	ac.Logger.Info("destroying application", slog.String("path", app.Info.Path))

	beans := app.Beans()
	for _, b := range beans {
		if c, ok := a.system.Container(b.ContainerID); ok {
			c.Undeploy(b.DeploymentID)
		}
		a.system.RemoveDeployment(b.DeploymentID)
		ac.Logger.Info("undeployed ejb", slog.String("deployment_id", b.DeploymentID))
	}
	unbindErr := a.unbindModules(ctx, app.modules)

	a.apps.Delete(appID)
	a.rebuildGlobalResolver()

	if unbindErr != nil {
		ac.Logger.Warn("application destroyed with names left bound", slog.Any("error", unbindErr))
	}
	return Event{
		Type:        EventAppDestroyed,
		AppID:       appID,
		RunID:       ac.RunID,
		Deployments: deploymentIDs(beans),
		Duration:    ac.Elapsed(),
	}, WrapDeploymentError(StageUndeploy, ErrCodeUndeploy, "destroy application "+appID, unbindErr)
}

// rebuildGlobalResolver indexes the remaining applications into a fresh
// global resolver and re-parents their application resolvers onto it.
func (a *Assembler) rebuildGlobalResolver() {
	global := ejbref.New(nil, ejbref.ScopeGlobal)
	for pair := a.apps.Oldest(); pair != nil; pair = pair.Next() {
		for _, ms := range pair.Value.modules {
			global.Add(ms.jar)
		}
	}
	for pair := a.apps.Oldest(); pair != nil; pair = pair.Next() {
		app := pair.Value
		app.resolver = ejbref.New(global, ejbref.ScopeEAR)
		for _, ms := range app.modules {
			app.resolver.Add(ms.jar)
		}
		for _, ms := range app.modules {
			ms.resolver = ejbref.New(app.resolver, ejbref.ScopeEJBJar, ms.jar)
		}
	}
	a.global = global
}
