package assembler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/diag"
	"github.com/strogmv/assembler/assembler/ejbref"
	"github.com/strogmv/assembler/assembler/info"
	"github.com/strogmv/assembler/assembler/interceptor"
	"github.com/strogmv/assembler/assembler/jndi"
	"github.com/strogmv/assembler/assembler/methodinfo"
)

// Application is a deployed application.
type Application struct {
	Info     *info.AppInfo
	Context  *deployment.AppContext
	RunID    string
	Warnings []diag.Warning

	resolver *ejbref.Resolver
	names    *jndi.Context
	modules  []*moduleState
}

// moduleState is everything assembly produced for one ejb-jar that
// undeploy has to take back.
type moduleState struct {
	jar          *info.EjbJarInfo
	module       *deployment.ModuleContext
	resolver     *ejbref.Resolver
	interceptors *interceptor.Builder
	scopes       jndi.Scopes
	bindings     []jndi.BeanBindings
	claims       []claim
}

type claim struct {
	name         string
	deploymentID string
}

// ID returns the application id.
func (app *Application) ID() string { return app.Info.AppID }

// Beans lists the beans of every module in module order.
func (app *Application) Beans() []*deployment.BeanContext { return app.Context.Beans() }

// Bean finds a bean of the application by deployment id.
func (app *Application) Bean(id string) (*deployment.BeanContext, bool) {
	for _, b := range app.Beans() {
		if b.DeploymentID == id {
			return b, true
		}
	}
	return nil, false
}

// Bindings returns the naming result of every bean, in bind order.
func (app *Application) Bindings() []jndi.BeanBindings {
	var out []jndi.BeanBindings
	for _, ms := range app.modules {
		out = append(out, ms.bindings...)
	}
	return out
}

// Names returns the application naming scope (java:app).
func (app *Application) Names() *jndi.Context { return app.names }

// Resolve resolves an ejb reference as seen from a module of the application.
func (app *Application) Resolve(moduleURI string, ref info.EjbReferenceInfo) string {
	for _, ms := range app.modules {
		if ms.jar.URI() == moduleURI || ms.jar.ModuleName == moduleURI {
			return ms.resolver.Resolve(ejbref.FromInfo(ref), ms.jar.URI())
		}
	}
	return app.resolver.Resolve(ejbref.FromInfo(ref), moduleURI)
}

// Interceptors returns the interceptor builder of a module; explain uses it
// to show which bindings produced a chain.
func (app *Application) Interceptors(moduleName string) (*interceptor.Builder, bool) {
	for _, ms := range app.modules {
		if ms.module.ID == moduleName {
			return ms.interceptors, true
		}
	}
	return nil, false
}

// CreateApplication assembles and deploys one application. Either every
// bean is deployed or none is: a failure undoes everything the operation
// did and is remembered in the exception manager. app is not modified.
func (a *Assembler) CreateApplication(ctx context.Context, app *info.AppInfo) (*Application, error) {
	if app == nil {
		return nil, WrapDeploymentError(StageConfig, ErrCodeAppInvalid, "create application", errors.New("application is nil"))
	}
	ctx, span := tracer.Start(ctx, "assembler.CreateApplication", trace.WithAttributes(attribute.String("app", app.AppID)))
	defer span.End()

	out, e, err := a.createApplication(ctx, app)
	a.publish(ctx, e)
	return out, err
}

// createApplication holds a.mu for the whole deployment and returns the
// lifecycle event to publish once the lock is released.
func (a *Assembler) createApplication(ctx context.Context, app *info.AppInfo) (out *Application, e Event, err error) {
	if verr := info.ValidateApp(app); verr != nil {
		e, err = a.failed(ctx, app, nil, WrapDeploymentError(StageConfig, ErrCodeAppInvalid, "validate "+app.AppID, verr))
		return nil, e, err
	}
	if app.Path == "" {
		withPath := *app
		withPath.Path = app.AppID
		app = &withPath
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ac := newAssemblyContext(app.AppID, info.NewOptions(app.Properties, a.options), a.logger, a.warn)
	ac.Logger.Info("creating application", slog.String("path", app.Path))
	d := &deployer{Assembler: a, ac: ac, app: app}

	defer func() {
		if r := recover(); r != nil {
			d.rollback(ctx)
			out = nil
			e, err = a.failed(ctx, app, ac, WrapDeploymentError(StageDeploy, ErrCodeUnknownBug, "create application "+app.AppID, fmt.Errorf("panic: %v", r)))
		}
	}()

	out, err = d.deploy(ctx)
	if err != nil {
		d.rollback(ctx)
		e, err = a.failed(ctx, app, ac, unknownBug(StageDeploy, "create application "+app.AppID, err))
		return nil, e, err
	}

	a.apps.Set(app.AppID, out)
	a.global.AddAll(d.jars()...)
	a.exceptions.Clear(app.AppID)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("deployments", len(out.Beans())))
	ac.Logger.Info("created application", slog.Int("deployments", len(out.Beans())), slog.Duration("elapsed", ac.Elapsed()))
	return out, Event{
		Type:        EventAppCreated,
		AppID:       app.AppID,
		RunID:       ac.RunID,
		Deployments: deploymentIDs(out.Beans()),
		Warnings:    len(out.Warnings),
		Duration:    ac.Elapsed(),
	}, nil
}

// deployer runs one CreateApplication.
type deployer struct {
	*Assembler
	ac  *AssemblyContext
	app *info.AppInfo

	loader    *classes.Loader
	appCtx    *deployment.AppContext
	resolver  *ejbref.Resolver
	appNames  *jndi.Context
	modules   []*moduleState
	schedules map[*deployment.BeanContext][]*classes.Method

	registered []*deployment.BeanContext
	deployed   []*deployment.BeanContext
	created    []string
}

func (d *deployer) jars() []*info.EjbJarInfo {
	out := make([]*info.EjbJarInfo, len(d.app.EjbJars))
	for i := range d.app.EjbJars {
		out[i] = &d.app.EjbJars[i]
	}
	return out
}

func (d *deployer) deploy(ctx context.Context) (*Application, error) {
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"check duplicates", d.checkDuplicates},
		{"define classes", d.defineClasses},
		{"create beans", d.createBeans},
		{"build interceptors", d.buildInterceptors},
		{"build policy", d.buildPolicy},
		{"register deployments", d.register},
		{"bind names", d.bindNames},
		{"fix timer transactions", d.fixTimerTransactions},
		{"application exceptions", d.applicationExceptions},
		{"resolve references", d.resolveReferences},
		{"deploy to containers", d.deployToContainers},
	}
	for _, step := range steps {
		stepCtx, span := tracer.Start(ctx, "assembler."+strings.ReplaceAll(step.name, " ", "_"))
		err := step.run(stepCtx)
		span.End()
		if err != nil {
			return nil, err
		}
	}

	for _, b := range d.appCtx.Beans() {
		b.Freeze()
	}
	return &Application{
		Info:     d.app,
		Context:  d.appCtx,
		RunID:    d.ac.RunID,
		Warnings: d.ac.Warnings(),
		resolver: d.resolver,
		names:    d.appNames,
		modules:  d.modules,
	}, nil
}

// checkDuplicates rejects an application whose id or deployment ids are
// already in use, including ids used twice within the application.
func (d *deployer) checkDuplicates(context.Context) error {
	if _, ok := d.apps.Get(d.app.AppID); ok {
		return WrapDeploymentError(StageBeans, ErrCodeDuplicateApplication, "create application "+d.app.AppID, ErrDuplicateApplication)
	}
	var used []string
	seen := map[string]bool{}
	for _, jar := range d.jars() {
		for i := range jar.EnterpriseBeans {
			id := jar.EnterpriseBeans[i].DeploymentID()
			if _, taken := d.system.Deployment(id); taken || seen[id] {
				used = append(used, id)
			}
			seen[id] = true
		}
	}
	if len(used) == 0 {
		return nil
	}
	d.ac.Logger.Error("application cannot be deployed as it has beans with deployment ids already in use", slog.String("path", d.app.Path))
	for _, id := range used {
		d.ac.Logger.Error("deployment id in use", slog.String("deployment_id", id))
	}
	return WrapDeploymentError(StageBeans, ErrCodeDuplicateDeploymentID, "create application "+d.app.AppID,
		fmt.Errorf("%w: %s", ErrDuplicateDeploymentID, strings.Join(used, ", ")))
}

// defineClasses loads the class tables of every jar into one application loader.
func (d *deployer) defineClasses(context.Context) error {
	d.loader = classes.NewAppLoader()
	for _, jar := range d.jars() {
		for _, def := range jar.Classes {
			if _, err := d.loader.Define(def); err != nil {
				return WrapDeploymentError(StageClasses, ErrCodeClassDefine, "define classes of "+jar.ModuleName, err)
			}
		}
	}
	if err := d.loader.Link(); err != nil {
		return WrapDeploymentError(StageClasses, ErrCodeClassLink, "link classes of "+d.app.AppID, err)
	}

	d.appCtx = &deployment.AppContext{ID: d.app.AppID, Standalone: d.app.StandaloneModule, Options: d.ac.Options}
	for _, jar := range d.jars() {
		m := &deployment.ModuleContext{
			ID:      jar.ModuleName,
			URI:     jar.URI(),
			App:     d.appCtx,
			Loader:  d.loader,
			Options: info.NewOptions(jar.Properties, d.ac.Options),
		}
		d.appCtx.Modules = append(d.appCtx.Modules, m)
		d.modules = append(d.modules, &moduleState{jar: jar, module: m})
	}
	return nil
}

func (d *deployer) createBeans(context.Context) error {
	d.schedules = map[*deployment.BeanContext][]*classes.Method{}
	for _, ms := range d.modules {
		for i := range ms.jar.EnterpriseBeans {
			b, err := d.newBean(ms.module, &ms.jar.EnterpriseBeans[i])
			if err != nil {
				return err
			}
			ms.module.Beans = append(ms.module.Beans, b)
		}
	}
	return nil
}

func (d *deployer) buildInterceptors(context.Context) error {
	for _, ms := range d.modules {
		ib, err := interceptor.NewBuilder(d.loader, ms.jar, interceptor.WithLogger(d.ac.Logger), interceptor.WithWarnings(d.ac.Warn()))
		if err != nil {
			return WrapDeploymentError(StageInterceptors, ErrCodeInterceptorBuild, "load interceptors of "+ms.jar.ModuleName, err)
		}
		ms.interceptors = ib
		for _, b := range ms.module.Beans {
			if err := ib.Build(b, b.Info); err != nil {
				return WrapDeploymentError(StageInterceptors, ErrCodeInterceptorBuild, "build interceptors of "+b.DeploymentID, err)
			}
		}
	}
	return nil
}

func (d *deployer) buildPolicy(context.Context) error {
	for _, ms := range d.modules {
		beans := ms.module.Beans
		tb := methodinfo.TransactionBuilder{Logger: d.ac.Logger, Warn: d.ac.Warn()}
		if err := tb.Build(beans, ms.jar.MethodTransactions); err != nil {
			return WrapDeploymentError(StagePolicy, ErrCodeTransactionPolicy, "transactions of "+ms.jar.ModuleName, err)
		}
		cb := methodinfo.ConcurrencyBuilder{Logger: d.ac.Logger, Warn: d.ac.Warn()}
		if err := cb.Build(beans, ms.jar.MethodConcurrency); err != nil {
			return WrapDeploymentError(StagePolicy, ErrCodeConcurrencyPolicy, "concurrency of "+ms.jar.ModuleName, err)
		}
		pb := methodinfo.PermissionBuilder{Logger: d.ac.Logger, Warn: d.ac.Warn()}
		if err := pb.Build(beans, ms.jar.MethodPermissions, ms.jar.ExcludeList); err != nil {
			return WrapDeploymentError(StagePolicy, ErrCodePermissionPolicy, "permissions of "+ms.jar.ModuleName, err)
		}
	}
	return nil
}

// register makes the beans visible in the container system before their
// names are bound.
func (d *deployer) register(context.Context) error {
	for _, b := range d.appCtx.Beans() {
		if err := d.system.AddDeployment(b); err != nil {
			return WrapDeploymentError(StageBeans, ErrCodeDuplicateDeploymentID, "register "+b.DeploymentID, err)
		}
		d.registered = append(d.registered, b)
	}
	return nil
}

func (d *deployer) bindNames(ctx context.Context) error {
	d.appNames = jndi.NewContext()
	names := jndi.NewBuilder(d.system.JNDIContext(), jndi.WithLogger(d.ac.Logger), jndi.WithWarnings(d.ac.Warn()))
	for _, ms := range d.modules {
		ms.scopes = jndi.Scopes{Global: d.system.GlobalContext(), App: d.appNames, Module: jndi.NewContext()}
		bindings, err := names.Build(ms.jar, ms.module, ms.scopes)
		ms.bindings = bindings
		if err != nil {
			return WrapDeploymentError(StageJNDI, jndiCode(err), "bind names of "+ms.jar.ModuleName, err)
		}
		if err := d.claimNames(ctx, ms); err != nil {
			return err
		}
		for _, bb := range bindings {
			b, ok := d.system.Deployment(bb.DeploymentID)
			if !ok {
				continue
			}
			out := make([]deployment.Binding, 0, len(bb.Names)+len(bb.Java))
			for _, n := range bb.Names {
				out = append(out, deployment.Binding{Name: n, Target: bb.DeploymentID})
			}
			for _, jb := range bb.Java {
				out = append(out, deployment.Binding{Name: "java:" + jb.Name, Target: bb.DeploymentID})
			}
			if err := b.SetBindings(out); err != nil {
				return WrapDeploymentError(StageJNDI, ErrCodeJndiBind, "record bindings of "+b.DeploymentID, err)
			}
		}
	}
	return nil
}

func jndiCode(err error) string {
	var collision *jndi.CollisionError
	switch {
	case errors.As(err, &collision):
		return ErrCodeJndiCollision
	case errors.Is(err, jndi.ErrUnknownStrategy), errors.Is(err, jndi.ErrTemplateKey):
		return ErrCodeJndiStrategy
	}
	return ErrCodeJndiBind
}

// claimNames records the external names of a module in the shared ledger.
// A name owned by a deployment on another node is a collision, handled by
// the same policy as a local one.
func (d *deployer) claimNames(ctx context.Context, ms *moduleState) error {
	if d.ledger == nil {
		return nil
	}
	fail := ms.module.Options.GetBool(jndi.OptFailOnCollision, true)
	for _, bb := range ms.bindings {
		for _, n := range bb.JndiNames {
			owner, err := d.ledger.Claim(ctx, n.Name, bb.DeploymentID)
			if err != nil {
				return WrapDeploymentError(StageJNDI, ErrCodeJndiLedger, "claim "+n.Name, err)
			}
			if owner == bb.DeploymentID {
				ms.claims = append(ms.claims, claim{name: n.Name, deploymentID: bb.DeploymentID})
				continue
			}
			collision := &jndi.CollisionError{Name: n.Name, DeploymentID: bb.DeploymentID, Owner: owner}
			d.ac.Warn().Emit(diag.Warning{Kind: "jndi", Code: diag.CodeJndiNameCollision, Severity: "error", Bean: bb.DeploymentID, Message: collision.Error(), Hint: "name is owned on another node"})
			if fail {
				return WrapDeploymentError(StageJNDI, ErrCodeJndiCollision, "claim "+n.Name, collision)
			}
		}
	}
	return nil
}

func (d *deployer) fixTimerTransactions(context.Context) error {
	for _, b := range d.appCtx.Beans() {
		if err := fixTimerTransactions(b, d.schedules[b]); err != nil {
			return WrapDeploymentError(StagePolicy, ErrCodeTimerFixup, "timer transactions of "+b.DeploymentID, err)
		}
	}
	return nil
}

// fixTimerTransactions downgrades RequiresNew to Required on the timeout
// method, scheduled methods and asynchronous methods: the container
// already starts a transaction for those calls. Stateful beans have no
// timers; their asynchronous methods are still adjusted.
func fixTimerTransactions(b *deployment.BeanContext, schedules []*classes.Method) error {
	var methods []*classes.Method
	if b.Kind != info.Stateful {
		if m := b.TimeoutMethod(); m != nil {
			methods = append(methods, m)
		}
		methods = append(methods, schedules...)
	}
	for _, mc := range b.MethodContexts() {
		if b.IsAsynchronous(mc.Method) {
			methods = append(methods, mc.Method)
		}
	}
	for _, m := range methods {
		for view, tx := range b.TransactionViews(m) {
			if tx != deployment.RequiresNew {
				continue
			}
			if err := b.SetMethodTransactionAttribute(m, deployment.Required, view); err != nil {
				return err
			}
		}
	}
	return nil
}

// applicationExceptions registers the application exceptions of every jar
// on every bean of the application. Unknown exception classes are logged
// and skipped.
func (d *deployer) applicationExceptions(context.Context) error {
	beans := d.appCtx.Beans()
	for _, jar := range d.jars() {
		for _, ex := range jar.ApplicationExceptions {
			if _, ok := d.loader.Load(ex.ExceptionClass); !ok {
				d.ac.Logger.Error("invalid application exception class", slog.String("class", ex.ExceptionClass), slog.String("module", jar.ModuleName))
				continue
			}
			p := deployment.ExceptionPolicy{Rollback: ex.Rollback, Inherited: ex.IsInherited()}
			for _, b := range beans {
				if err := b.AddApplicationException(ex.ExceptionClass, p); err != nil {
					return WrapDeploymentError(StagePolicy, ErrCodeAppException, "application exception "+ex.ExceptionClass, err)
				}
			}
		}
	}
	return nil
}

func (d *deployer) deployToContainers(context.Context) error {
	for _, b := range d.appCtx.Beans() {
		c, ok := d.system.Container(b.ContainerID)
		if !ok {
			return WrapDeploymentError(StageDeploy, ErrCodeContainerNotFound, "deploy "+b.DeploymentID, fmt.Errorf("%w: %s", ErrContainerNotFound, b.ContainerID))
		}
		if err := c.Deploy(b); err != nil {
			return WrapDeploymentError(StageDeploy, ErrCodeContainerDeploy, "deploy "+b.DeploymentID, err)
		}
		d.deployed = append(d.deployed, b)
		d.ac.Logger.Info("deployed ejb", slog.String("deployment_id", b.DeploymentID), slog.String("container", c.ID))
	}
	return nil
}

// rollback undoes whatever deploy got through.
func (d *deployer) rollback(ctx context.Context) {
	for _, b := range d.deployed {
		if c, ok := d.system.Container(b.ContainerID); ok {
			c.Undeploy(b.DeploymentID)
		}
	}
	if err := d.unbindModules(ctx, d.modules); err != nil {
		d.ac.Logger.Warn("rollback left names bound", slog.Any("error", err))
	}
	for _, b := range d.registered {
		d.system.RemoveDeployment(b.DeploymentID)
	}
	for _, id := range d.created {
		if d.system.RemoveContainer(id) {
			d.ac.Logger.Info("removed auto-created container", slog.String("id", id))
		}
	}
}

// unbindModules takes back names and ledger claims of modules.
func (a *Assembler) unbindModules(ctx context.Context, modules []*moduleState) error {
	names := jndi.NewBuilder(a.system.JNDIContext(), jndi.WithLogger(a.logger))
	var errs []error
	for _, ms := range slices.Backward(modules) {
		if err := names.Unbind(ms.bindings, ms.scopes); err != nil {
			errs = append(errs, err)
		}
		if a.ledger == nil {
			continue
		}
		for _, c := range ms.claims {
			if err := a.ledger.Release(ctx, c.name, c.deploymentID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func deploymentIDs(beans []*deployment.BeanContext) []string {
	out := make([]string, len(beans))
	for i, b := range beans {
		out[i] = b.DeploymentID
	}
	return out
}
