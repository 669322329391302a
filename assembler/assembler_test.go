package assembler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/diag"
	"github.com/strogmv/assembler/assembler/info"
	"github.com/strogmv/assembler/assembler/jndi"
)

const (
	orderLocal     = "org.acme.OrderLocal"
	orderBean      = "org.acme.OrderBean"
	customerRemote = "org.acme.CustomerRemote"
	auditor        = "org.acme.AuditInterceptor"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// shopApp is an ear with two jars: orders holds a stateless Order bean with
// a timer, an asynchronous method and a link to the stateful Customer bean
// of the customers jar.
func shopApp(appID string) *info.AppInfo {
	return &info.AppInfo{
		AppID: appID,
		EjbJars: []info.EjbJarInfo{
			{
				ModuleName: "orders",
				ModuleURI:  "orders.jar",
				Classes: []classes.Definition{
					{Name: orderLocal, Interface: true, Methods: []classes.MethodDefinition{
						{Name: "place", Params: []string{"java.lang.String"}},
						{Name: "cancel"},
					}},
					{Name: orderBean, Interfaces: []string{orderLocal}, Methods: []classes.MethodDefinition{
						{Name: "place", Params: []string{"java.lang.String"}},
						{Name: "cancel"},
						{Name: "tick", Params: []string{classes.Timer}},
						{Name: "sendMail"},
					}},
					{Name: auditor, Methods: []classes.MethodDefinition{
						{Name: "audit", Params: []string{classes.InvocationContext}, Returns: classes.ObjectClass},
					}},
					{Name: "org.acme.OrderException"},
					{Name: "org.acme.LateOrderException", Super: "org.acme.OrderException"},
				},
				EnterpriseBeans: []info.EnterpriseBeanInfo{{
					Kind:                info.Stateless,
					EjbName:             "Order",
					EjbClass:            orderBean,
					BusinessLocal:       []string{orderLocal},
					TimeoutMethod:       &info.NamedMethodInfo{MethodName: "tick", MethodParams: []string{classes.Timer}},
					AsynchronousMethods: []info.NamedMethodInfo{{MethodName: "sendMail", MethodParams: []string{}}},
					EjbRefs:             []info.EjbReferenceInfo{{ReferenceName: "ejb/Customer", Link: "Customer"}},
				}},
				Interceptors: []info.InterceptorInfo{{
					Clazz:        auditor,
					AroundInvoke: []info.CallbackInfo{{Method: "audit"}},
				}},
				InterceptorBindings: []info.InterceptorBindingInfo{{EjbName: "Order", Interceptors: []string{auditor}}},
				MethodTransactions: []info.MethodTransactionInfo{{
					Methods:        []info.MethodInfo{{EjbName: "Order", MethodName: "*"}},
					TransAttribute: info.TxRequiresNew,
				}},
				ApplicationExceptions: []info.ApplicationExceptionInfo{
					{ExceptionClass: "org.acme.OrderException", Rollback: true},
					{ExceptionClass: "org.acme.Missing"},
				},
			},
			{
				ModuleName: "customers",
				ModuleURI:  "customers.jar",
				Classes: []classes.Definition{
					{Name: customerRemote, Interface: true, Methods: []classes.MethodDefinition{
						{Name: "find", Params: []string{"java.lang.String"}, Returns: "java.lang.String"},
					}},
					{Name: "org.acme.CustomerBean", Interfaces: []string{customerRemote}, Methods: []classes.MethodDefinition{
						{Name: "find", Params: []string{"java.lang.String"}, Returns: "java.lang.String"},
					}},
				},
				EnterpriseBeans: []info.EnterpriseBeanInfo{{
					Kind:           info.Stateful,
					EjbName:        "Customer",
					EjbClass:       "org.acme.CustomerBean",
					BusinessRemote: []string{customerRemote},
				}},
			},
		},
	}
}

// portalApp is a standalone jar whose Portal bean refers to Customer by
// interface only, so it resolves through the global scope.
func portalApp() *info.AppInfo {
	return &info.AppInfo{
		AppID:            "portal",
		StandaloneModule: true,
		EjbJars: []info.EjbJarInfo{{
			ModuleName: "portal",
			Classes: []classes.Definition{
				{Name: "org.acme.PortalBean", Methods: []classes.MethodDefinition{{Name: "render"}}},
			},
			EnterpriseBeans: []info.EnterpriseBeanInfo{{
				Kind:      info.Singleton,
				EjbName:   "Portal",
				EjbClass:  "org.acme.PortalBean",
				LocalBean: true,
				EjbRefs:   []info.EjbReferenceInfo{{ReferenceName: "ejb/Customers", Interface: customerRemote}},
			}},
		}},
	}
}

func method(t *testing.T, b *deployment.BeanContext, name string, params ...string) *classes.Method {
	t.Helper()
	types := make([]classes.TypeName, len(params))
	for i, p := range params {
		types[i] = classes.MustParseTypeName(p)
	}
	m, ok := b.BeanClass.FindPublic(name, types...)
	require.True(t, ok, "%s.%s not found", b.BeanClass.Name, name)
	return m
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) DeploymentEvent(_ context.Context, e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type memLedger struct {
	mu     sync.Mutex
	owners map[string]string
}

func newMemLedger() *memLedger { return &memLedger{owners: map[string]string{}} }

func (l *memLedger) Claim(_ context.Context, name, id string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if owner, ok := l.owners[name]; ok {
		return owner, nil
	}
	l.owners[name] = id
	return id, nil
}

func (l *memLedger) Release(_ context.Context, name, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners[name] == id {
		delete(l.owners, name)
	}
	return nil
}

type memStore struct {
	mu       sync.Mutex
	failures []DeploymentFailure
}

func (s *memStore) SaveDeploymentFailure(_ context.Context, f DeploymentFailure) error {
	s.mu.Lock()
	s.failures = append(s.failures, f)
	s.mu.Unlock()
	return nil
}

func TestCreateApplicationDeploysEveryBean(t *testing.T) {
	t.Parallel()

	var warnings diag.Collector
	events := &recorder{}
	a := New(WithLogger(quiet()), WithWarnings(warnings.Sink()), WithListener(events))

	app, err := a.CreateApplication(context.Background(), shopApp("shop"))
	require.NoError(t, err)
	require.Equal(t, "shop", app.ID())
	require.Equal(t, "shop", app.Info.Path)
	require.True(t, a.IsDeployed("shop"))
	require.NotEmpty(t, app.RunID)

	order, ok := app.Bean("Order")
	require.True(t, ok)
	customer, ok := app.Bean("Customer")
	require.True(t, ok)
	for _, b := range app.Beans() {
		assert.True(t, b.Frozen(), "%s should be frozen", b.DeploymentID)
		_, ok := a.ContainerSystem().Deployment(b.DeploymentID)
		assert.True(t, ok, "%s should be registered", b.DeploymentID)
	}

	stateless, ok := a.ContainerSystem().Container("Default Stateless Container")
	require.True(t, ok, "stateless container is auto-created")
	assert.Equal(t, stateless.ID, order.ContainerID)
	assert.Len(t, stateless.Deployments(), 1)
	assert.Equal(t, "Default Stateful Container", customer.ContainerID)

	chain := order.MethodInterceptors(method(t, order, "place", "java.lang.String"))
	require.Len(t, chain, 1)
	assert.Equal(t, auditor, chain[0].Class.Name)

	names := a.ContainerSystem().JNDIContext()
	v, err := names.Lookup(jndi.DeploymentName("Order", orderLocal, ""))
	require.NoError(t, err)
	assert.Equal(t, "Order", v.(jndi.Ref).DeploymentID)
	_, err = names.Lookup("openejb/local/OrderLocal")
	require.NoError(t, err)
	_, err = a.ContainerSystem().GlobalContext().Lookup("global/shop/orders/Order!" + orderLocal)
	require.NoError(t, err)
	_, err = app.Names().Lookup("app/customers/Customer!" + customerRemote)
	require.NoError(t, err)
	assert.Contains(t, order.Bindings(), deployment.Binding{Name: "java:app/orders/Order!" + orderLocal, Target: "Order"})

	require.Equal(t, []deployment.Reference{{
		Name:         "ejb/Customer",
		DeploymentID: "Customer",
		JndiName:     jndi.DeploymentName("Customer", customerRemote, ""),
	}}, order.References())
	assert.Contains(t, order.Bindings(), deployment.Binding{Name: "java:comp/env/ejb/Customer", Target: jndi.DeploymentName("Customer", customerRemote, "")})
	_, err = names.Lookup(order.References()[0].JndiName)
	require.NoError(t, err, "reference target is bound")

	// every jar's application exceptions reach every bean of the application
	for _, b := range []*deployment.BeanContext{order, customer} {
		assert.Equal(t, []string{"org.acme.OrderException"}, b.ApplicationExceptions())
		p, ok := b.ApplicationException("org.acme.LateOrderException", b.Module.Loader)
		require.True(t, ok)
		assert.True(t, p.Rollback)
	}

	assert.Equal(t, []EventType{EventAppCreated}, events.types())
	assert.Equal(t, []string{"Order", "Customer"}, events.events[0].Deployments)
	for _, w := range warnings.Warnings() {
		assert.Equal(t, "shop", w.App)
	}
}

func TestTimerAndAsynchronousMethodsDropRequiresNew(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(quiet()))
	app, err := a.CreateApplication(context.Background(), shopApp("shop"))
	require.NoError(t, err)
	order, _ := app.Bean("Order")

	require.NotNil(t, order.TimeoutMethod())
	assert.Equal(t, "tick", order.TimeoutMethod().Name)
	assert.Equal(t, deployment.Required, order.TransactionAttribute(method(t, order, "tick", classes.Timer), deployment.AnyView))

	sendMail := method(t, order, "sendMail")
	assert.True(t, order.IsAsynchronous(sendMail))
	assert.Equal(t, deployment.Required, order.TransactionAttribute(sendMail, deployment.AnyView))

	assert.Equal(t, deployment.RequiresNew, order.TransactionAttribute(method(t, order, "place", "java.lang.String"), deployment.AnyView))
	assert.Equal(t, deployment.RequiresNew, order.TransactionAttribute(method(t, order, "cancel"), deployment.AnyView))
}

func TestStatefulTimeoutKeepsRequiresNew(t *testing.T) {
	t.Parallel()

	loader := classes.NewAppLoader()
	_, err := loader.Define(classes.Definition{Name: "org.acme.CartBean", Methods: []classes.MethodDefinition{
		{Name: "expire", Params: []string{classes.Timer}},
		{Name: "notify"},
	}})
	require.NoError(t, err)
	require.NoError(t, loader.Link())

	b := deployment.NewBeanContext("Cart", "Cart", info.Stateful, loader.MustLoad("org.acme.CartBean"))
	expire := method(t, b, "expire", classes.Timer)
	notify := method(t, b, "notify")
	require.NoError(t, b.SetTimeoutMethod(expire))
	require.NoError(t, b.SetAsynchronous(notify))
	require.NoError(t, b.SetMethodTransactionAttribute(expire, deployment.RequiresNew, deployment.AnyView))
	require.NoError(t, b.SetMethodTransactionAttribute(notify, deployment.RequiresNew, deployment.AnyView))
	require.NoError(t, b.SetMethodTransactionAttribute(notify, deployment.RequiresNew, info.IntfLocal))

	require.NoError(t, fixTimerTransactions(b, []*classes.Method{expire}))
	assert.Equal(t, deployment.RequiresNew, b.TransactionAttribute(expire, deployment.AnyView))
	assert.Equal(t, deployment.Required, b.TransactionAttribute(notify, deployment.AnyView))
	assert.Equal(t, deployment.Required, b.TransactionAttribute(notify, info.IntfLocal))
}

func TestDuplicateDeploymentIDIsRejected(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(quiet()))
	_, err := a.CreateApplication(context.Background(), shopApp("shop"))
	require.NoError(t, err)

	_, err = a.CreateApplication(context.Background(), shopApp("shop-copy"))
	require.ErrorIs(t, err, ErrDuplicateDeploymentID)
	assert.Equal(t, ErrCodeDuplicateDeploymentID, Code(err))
	assert.Contains(t, err.Error(), "Order, Customer")
	assert.False(t, a.IsDeployed("shop-copy"))

	f, ok := a.Exceptions().Get("shop-copy")
	require.True(t, ok)
	assert.Equal(t, ErrCodeDuplicateDeploymentID, f.Code)

	_, err = a.CreateApplication(context.Background(), shopApp("shop"))
	require.ErrorIs(t, err, ErrDuplicateApplication)
}

func TestFailedDeploymentRollsBack(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	events := &recorder{}
	a := New(WithLogger(quiet()), WithExceptionStore(store), WithListener(events))

	app := shopApp("shop")
	// Customer links to a bean nobody deploys; both beans are registered
	// and bound by then and must be taken back.
	app.EjbJars[1].EnterpriseBeans[0].EjbRefs = []info.EjbReferenceInfo{{ReferenceName: "ejb/Nowhere", Link: "Nowhere"}}

	_, err := a.CreateApplication(context.Background(), app)
	require.Error(t, err)
	assert.Equal(t, ErrCodeReferenceResolve, Code(err))

	assert.Empty(t, a.ContainerSystem().Deployments())
	assert.Zero(t, a.ContainerSystem().JNDIContext().Len(), "names are unbound")
	assert.Zero(t, a.ContainerSystem().GlobalContext().Len())
	for _, c := range a.ContainerSystem().Containers() {
		assert.Empty(t, c.Deployments(), "container %s", c.ID)
	}
	assert.False(t, a.IsDeployed("shop"))

	require.Len(t, store.failures, 1)
	assert.Equal(t, ErrCodeReferenceResolve, store.failures[0].Code)
	assert.Equal(t, []EventType{EventAppFailed}, events.types())

	// the same application deploys once fixed
	_, err = a.CreateApplication(context.Background(), shopApp("shop"))
	require.NoError(t, err)
	_, failed := a.Exceptions().Get("shop")
	assert.False(t, failed, "success clears the remembered failure")
}

func TestFailedDeploymentRemovesAutoCreatedContainers(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(quiet()))
	require.NoError(t, a.CreateContainer(info.ContainerInfo{ID: "Pool", Type: info.StatelessContainer}))

	app := shopApp("shop")
	app.EjbJars[1].EnterpriseBeans[0].EjbRefs = []info.EjbReferenceInfo{{ReferenceName: "ejb/Nowhere", Link: "Nowhere"}}
	_, err := a.CreateApplication(context.Background(), app)
	require.Error(t, err)

	containers := a.ContainerSystem().Containers()
	require.Len(t, containers, 1, "only the container created before the deployment remains")
	assert.Equal(t, "Pool", containers[0].ID)
}

func TestCreateApplicationLeavesDescriptorUntouched(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(quiet()))
	app := shopApp("shop")
	require.Empty(t, app.Path)

	out, err := a.CreateApplication(context.Background(), app)
	require.NoError(t, err)
	assert.Empty(t, app.Path)
	assert.Equal(t, "shop", out.Info.Path, "the deployed application carries the default path")
}

func TestListenersMayQueryTheAssembler(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(quiet()))
	var mu sync.Mutex
	seen := map[EventType]int{}
	a.AddListener(ListenerFunc(func(_ context.Context, e Event) {
		n := len(a.Applications())
		a.IsDeployed(e.AppID)
		mu.Lock()
		seen[e.Type] = n
		mu.Unlock()
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := a.CreateApplication(context.Background(), shopApp("shop"))
		assert.NoError(t, err)
		_, err = a.CreateApplication(context.Background(), shopApp("shop"))
		assert.Error(t, err)
		assert.NoError(t, a.DestroyApplication(context.Background(), "shop"))
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener deadlocked the assembler")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[EventType]int{EventAppCreated: 1, EventAppFailed: 1, EventAppDestroyed: 0}, seen)
}

func TestUnresolvedReferenceWarnsWhenNotStrict(t *testing.T) {
	t.Parallel()

	var warnings diag.Collector
	a := New(WithLogger(quiet()), WithWarnings(warnings.Sink()), WithOptions(info.Properties{OptStrictReferences: "false"}))

	app, err := a.CreateApplication(context.Background(), portalApp())
	require.NoError(t, err)
	portal, _ := app.Bean("Portal")
	assert.Empty(t, portal.References())
	assert.Contains(t, warnings.Codes(), diag.CodeUnresolvedReference)
	assert.Equal(t, "portal", warnings.Warnings()[0].App)
}

func TestMissingBeanClassFails(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(quiet()))
	app := shopApp("shop")
	app.EjbJars[0].EnterpriseBeans[0].EjbClass = "org.acme.Gone"

	_, err := a.CreateApplication(context.Background(), app)
	require.Error(t, err)
	assert.Equal(t, ErrCodeBeanClass, Code(err))
	var de *DeploymentError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, StageBeans, de.Stage)
}

func TestCrossApplicationReferencesAndDestroy(t *testing.T) {
	t.Parallel()

	events := &recorder{}
	a := New(WithLogger(quiet()), WithListener(events))
	ctx := context.Background()

	_, err := a.CreateApplication(ctx, shopApp("shop"))
	require.NoError(t, err)
	portal, err := a.CreateApplication(ctx, portalApp())
	require.NoError(t, err)

	bean, _ := portal.Bean("Portal")
	require.Len(t, bean.References(), 1)
	assert.Equal(t, "Customer", bean.References()[0].DeploymentID)
	assert.Equal(t, "Customer", portal.Resolve("portal", info.EjbReferenceInfo{ReferenceName: "x", Interface: customerRemote}))
	_, err = a.ContainerSystem().GlobalContext().Lookup("global/portal/Portal")
	require.NoError(t, err, "standalone module has no application segment")

	require.NoError(t, a.DestroyApplication(ctx, "shop"))
	assert.False(t, a.IsDeployed("shop"))
	_, ok := a.ContainerSystem().Deployment("Order")
	assert.False(t, ok)
	_, err = a.ContainerSystem().JNDIContext().Lookup("openejb/local/OrderLocal")
	require.ErrorIs(t, err, jndi.ErrNameNotFound)

	// the global scope no longer knows Customer
	assert.Empty(t, portal.Resolve("portal", info.EjbReferenceInfo{ReferenceName: "x", Interface: customerRemote}))
	require.NoError(t, a.DestroyApplication(ctx, "portal"))
	_, err = a.CreateApplication(ctx, portalApp())
	require.Error(t, err)
	assert.Equal(t, ErrCodeReferenceResolve, Code(err))

	err = a.DestroyApplication(ctx, "shop")
	require.ErrorIs(t, err, ErrNoSuchApplication)
	assert.Equal(t, ErrCodeAppNotFound, Code(err))

	assert.Equal(t, []EventType{EventAppCreated, EventAppCreated, EventAppDestroyed, EventAppDestroyed, EventAppFailed}, events.types())
}

func TestNameLedgerCollision(t *testing.T) {
	t.Parallel()

	ledger := newMemLedger()
	ledger.owners["OrderLocal"] = "Order@node-2"
	a := New(WithLogger(quiet()), WithNameLedger(ledger))

	_, err := a.CreateApplication(context.Background(), shopApp("shop"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeJndiCollision, Code(err))
	var collision *jndi.CollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "Order@node-2", collision.Owner)

	assert.Equal(t, map[string]string{"OrderLocal": "Order@node-2"}, ledger.owners, "claims of the failed deploy are released")
}

func TestNameLedgerClaimsAndReleases(t *testing.T) {
	t.Parallel()

	ledger := newMemLedger()
	a := New(WithLogger(quiet()), WithNameLedger(ledger))
	ctx := context.Background()

	_, err := a.CreateApplication(ctx, shopApp("shop"))
	require.NoError(t, err)
	assert.Equal(t, "Order", ledger.owners["OrderLocal"])
	assert.Equal(t, "Customer", ledger.owners["CustomerRemote"])

	require.NoError(t, a.DestroyApplication(ctx, "shop"))
	assert.Empty(t, ledger.owners)
}

func TestLedgerCollisionWarnsWhenConfigured(t *testing.T) {
	t.Parallel()

	ledger := newMemLedger()
	ledger.owners["OrderLocal"] = "Order@node-2"
	var warnings diag.Collector
	a := New(WithLogger(quiet()), WithNameLedger(ledger), WithWarnings(warnings.Sink()))

	app := shopApp("shop")
	app.Properties = info.Properties{jndi.OptFailOnCollision: "false"}
	_, err := a.CreateApplication(context.Background(), app)
	require.NoError(t, err)
	assert.Contains(t, warnings.Codes(), diag.CodeJndiNameCollision)
	assert.Equal(t, "Order@node-2", ledger.owners["OrderLocal"])
}

func TestJndiCollisionAcrossApplications(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(quiet()), WithOptions(info.Properties{jndi.OptFormat: "{interfaceClass.simpleName}"}))
	ctx := context.Background()
	_, err := a.CreateApplication(ctx, shopApp("shop"))
	require.NoError(t, err)

	other := shopApp("outlet")
	other.EjbJars = other.EjbJars[:1]
	other.EjbJars[0].EnterpriseBeans[0].EjbName = "Outlet"
	other.EjbJars[0].EnterpriseBeans[0].EjbRefs = nil
	other.EjbJars[0].InterceptorBindings[0].EjbName = "Outlet"
	other.EjbJars[0].MethodTransactions[0].Methods[0].EjbName = "Outlet"

	_, err = a.CreateApplication(ctx, other)
	require.ErrorIs(t, err, jndi.ErrNameAlreadyBound)
	assert.Equal(t, ErrCodeJndiCollision, Code(err))
	var collision *jndi.CollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "Order", collision.Owner)

	v, err := a.ContainerSystem().JNDIContext().Lookup("openejb/local/OrderLocal")
	require.NoError(t, err, "the first application keeps its name")
	assert.Equal(t, "Order", v.(jndi.Ref).DeploymentID)
	_, ok := a.ContainerSystem().Deployment("Outlet")
	assert.False(t, ok)
}

func TestBuildCreatesFacilitiesAndSkipsFailedApps(t *testing.T) {
	t.Parallel()

	events := &recorder{}
	a := New(WithLogger(quiet()), WithListener(events))

	broken := shopApp("broken")
	broken.EjbJars = broken.EjbJars[:1]
	broken.EjbJars[0].EnterpriseBeans[0].EjbName = "Broken"
	broken.EjbJars[0].EnterpriseBeans[0].EjbClass = "org.acme.Gone"

	cfg := &info.Configuration{
		Facilities: info.FacilitiesInfo{
			TransactionService: info.ServiceInfo{ID: "tm"},
			Containers: []info.ContainerInfo{
				{ID: "Stateless", Type: info.StatelessContainer},
				{ID: "Stateful", Type: info.StatefulContainer},
			},
		},
		Apps: []info.AppInfo{*shopApp("shop"), *broken},
	}
	require.NoError(t, a.Build(context.Background(), cfg))

	assert.Equal(t, "tm", a.TransactionManager().ID)
	assert.Equal(t, DefaultSecurityServiceID, a.SecurityService().ID)
	assert.Len(t, a.ContainerSystem().Containers(), 2, "configured containers serve the beans")

	require.True(t, a.IsDeployed("shop"))
	app, _ := a.Application("shop")
	order, _ := app.Bean("Order")
	assert.Equal(t, "Stateless", order.ContainerID)

	assert.False(t, a.IsDeployed("broken"))
	f, ok := a.Exceptions().Last()
	require.True(t, ok)
	assert.Equal(t, "broken", f.AppID)
	assert.Equal(t, ErrCodeBeanClass, f.Code)

	assert.Equal(t, []EventType{EventAppCreated, EventAppFailed, EventContainerSystemCreated}, events.types())

	err := a.Build(context.Background(), &info.Configuration{})
	require.Error(t, err, "a container system is built once")
	assert.Equal(t, ErrCodeTransactionService, Code(err))
}

func TestContainerMustMatchBeanKind(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(quiet()))
	require.NoError(t, a.CreateContainer(info.ContainerInfo{ID: "mdb", Type: info.MessageContainer}))
	require.Error(t, a.CreateContainer(info.ContainerInfo{ID: "mdb", Type: info.MessageContainer}))

	app := shopApp("shop")
	app.EjbJars[0].EnterpriseBeans[0].ContainerID = "mdb"
	_, err := a.CreateApplication(context.Background(), app)
	require.ErrorIs(t, err, ErrContainerNotFound)
	assert.Equal(t, ErrCodeContainerNotFound, Code(err))
}

func TestAutoCreateCanBeDisabled(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(quiet()), WithOptions(info.Properties{OptAutoCreateContainers: "false"}))
	_, err := a.CreateApplication(context.Background(), shopApp("shop"))
	require.ErrorIs(t, err, ErrContainerNotFound)
	assert.Empty(t, a.ContainerSystem().Containers())
}

func TestCreateApplicationRejectsInvalidDescriptors(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(quiet()))
	_, err := a.CreateApplication(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeAppInvalid, Code(err))

	app := shopApp("")
	_, err = a.CreateApplication(context.Background(), app)
	require.Error(t, err)
	assert.Equal(t, ErrCodeAppInvalid, Code(err))
	assert.True(t, a.Exceptions().HasFailed())
	assert.False(t, errors.Is(err, ErrDuplicateApplication))
}
