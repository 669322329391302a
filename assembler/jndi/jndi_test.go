package jndi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/diag"
	"github.com/strogmv/assembler/assembler/info"
)

type world struct {
	loader *classes.Loader
	app    *deployment.AppContext
	module *deployment.ModuleContext
	jar    *info.EjbJarInfo
	ctx    *Context
	scopes Scopes
}

func newWorld(t *testing.T, props info.Properties) *world {
	t.Helper()
	l := classes.NewAppLoader()
	for _, d := range []classes.Definition{
		{Name: "org.acme.WidgetLocal", Interface: true},
		{Name: "org.acme.WidgetRemote", Interface: true},
		{Name: "org.acme.BaseBean"},
		{Name: "org.acme.WidgetBean", Super: "org.acme.BaseBean"},
		{Name: "org.acme.GadgetBean"},
		{Name: "org.acme.ListenerBean", Interfaces: []string{classes.MessageListener}},
	} {
		_, err := l.Define(d)
		require.NoError(t, err)
	}
	require.NoError(t, l.Link())

	app := &deployment.AppContext{ID: "shop", Options: info.NewOptions(nil, nil)}
	module := &deployment.ModuleContext{ID: "widgets", App: app, Loader: l, Options: info.NewOptions(props, app.Options)}
	app.Modules = []*deployment.ModuleContext{module}
	return &world{
		loader: l,
		app:    app,
		module: module,
		jar:    &info.EjbJarInfo{ModuleName: "widgets"},
		ctx:    NewContext(),
		scopes: Scopes{Global: NewContext(), App: NewContext(), Module: NewContext()},
	}
}

// add registers a bean; configure fills in its views.
func (w *world) add(bi info.EnterpriseBeanInfo, configure func(*deployment.BeanContext)) {
	w.jar.EnterpriseBeans = append(w.jar.EnterpriseBeans, bi)
	b := deployment.NewBeanContext(bi.DeploymentID(), bi.EjbName, bi.Kind, w.loader.MustLoad(bi.EjbClass))
	b.Module = w.module
	if configure != nil {
		configure(b)
	}
	w.module.Beans = append(w.module.Beans, b)
}

func (w *world) finish() {
	// bean infos point into the jar slice, which may have grown
	for i, b := range w.module.Beans {
		b.Info = &w.jar.EnterpriseBeans[i]
	}
}

func (w *world) widget(extra ...info.JndiNameInfo) {
	w.add(info.EnterpriseBeanInfo{Kind: info.Stateless, EjbName: "Widget", EjbClass: "org.acme.WidgetBean", JndiNames: extra},
		func(b *deployment.BeanContext) {
			b.BusinessLocal = []*classes.Class{w.loader.MustLoad("org.acme.WidgetLocal")}
			b.BusinessRemote = []*classes.Class{w.loader.MustLoad("org.acme.WidgetRemote")}
		})
}

func (w *world) lookup(t *testing.T, name string) Ref {
	t.Helper()
	v, err := w.ctx.Lookup(name)
	require.NoError(t, err, name)
	ref, ok := v.(Ref)
	require.True(t, ok, "%s is %T", name, v)
	return ref
}

func TestBindsBusinessViews(t *testing.T) {
	t.Parallel()
	w := newWorld(t, nil)
	w.widget()
	w.finish()

	out, err := NewBuilder(w.ctx).Build(w.jar, w.module, w.scopes)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, BusinessLocalType, w.lookup(t, "openejb/Deployment/Widget/org.acme.WidgetLocal").Type)
	assert.Equal(t, BusinessLocalType, w.lookup(t, "openejb/Deployment/Widget/org.acme.WidgetLocal!Local").Type)
	assert.Equal(t, "org.acme.WidgetLocal", w.lookup(t, "openejb/local/WidgetLocal").Interface)
	assert.Equal(t, "org.acme.WidgetRemote", w.lookup(t, "openejb/local/WidgetRemote").Interface)
	assert.Equal(t, "org.acme.WidgetRemote", w.lookup(t, "openejb/remote/WidgetRemote").Interface)
	w.lookup(t, "openejb/remote/global/shop/widgets/Widget!org.acme.WidgetRemote")
	w.lookup(t, "openejb/global/global/shop/widgets/Widget")

	_, err = w.scopes.Global.Lookup("global/shop/widgets/Widget!org.acme.WidgetLocal")
	require.NoError(t, err)
	_, err = w.scopes.App.Lookup("app/widgets/Widget")
	require.NoError(t, err)
	v, err := w.scopes.Module.Lookup("module/Widget")
	require.NoError(t, err)
	assert.Equal(t, BusinessLocalType, v.(Ref).Type, "plain name refers to the first view bound")

	names := make([]string, 0, len(out[0].JndiNames))
	for _, n := range out[0].JndiNames {
		names = append(names, n.Name)
	}
	assert.Contains(t, names, "WidgetLocal")
	assert.Contains(t, names, "WidgetRemote")
	assert.Empty(t, w.jar.EnterpriseBeans[0].JndiNames, "descriptor must not be rewritten")

	owner, ok := NewBuilder(w.ctx).Owner("openejb/local/WidgetLocal")
	assert.False(t, ok, "owners are tracked per builder")
	assert.Empty(t, owner)
}

func twoBeansSharingAName(w *world) {
	local := w.loader.MustLoad("org.acme.WidgetLocal")
	w.widget()
	w.add(info.EnterpriseBeanInfo{Kind: info.Stateless, EjbName: "Gadget", EjbClass: "org.acme.GadgetBean"},
		func(b *deployment.BeanContext) { b.BusinessLocal = []*classes.Class{local} })
	w.finish()
}

func TestCollisionFailsByDefault(t *testing.T) {
	t.Parallel()
	w := newWorld(t, info.Properties{OptFormat: "{interfaceClass.simpleName}"})
	twoBeansSharingAName(w)

	b := NewBuilder(w.ctx)
	out, err := b.Build(w.jar, w.module, w.scopes)
	var collision *CollisionError
	require.True(t, errors.As(err, &collision), "got %v", err)
	assert.True(t, errors.Is(err, ErrNameAlreadyBound))
	assert.Equal(t, "WidgetLocal", collision.Name)
	assert.Equal(t, "Gadget", collision.DeploymentID)
	assert.Equal(t, "Widget", collision.Owner)
	require.Len(t, out, 2, "partial result is returned for cleanup")

	require.NoError(t, b.Unbind(out, w.scopes))
	assert.Equal(t, 0, w.ctx.Len())
	assert.Equal(t, 0, w.scopes.Global.Len())
}

func TestCollisionWarnsWhenConfigured(t *testing.T) {
	t.Parallel()
	w := newWorld(t, info.Properties{OptFormat: "{interfaceClass.simpleName}", OptFailOnCollision: "false"})
	twoBeansSharingAName(w)

	var c diag.Collector
	out, err := NewBuilder(w.ctx, WithWarnings(c.Sink())).Build(w.jar, w.module, w.scopes)
	require.NoError(t, err)
	assert.Equal(t, "Widget", w.lookup(t, "openejb/local/WidgetLocal").DeploymentID, "first writer wins")
	assert.Contains(t, c.Codes(), diag.CodeJndiNameCollision)
	for _, n := range out[1].JndiNames {
		assert.NotEqual(t, "WidgetLocal", n.Name)
	}

	_, err = NewBuilder(NewContext(), WithFailOnCollision(true)).Build(w.jar, w.module, Scopes{})
	assert.ErrorIs(t, err, ErrNameAlreadyBound, "builder option overrides module options")
}

func TestFormatWithColonIsTrimmed(t *testing.T) {
	t.Parallel()
	w := newWorld(t, info.Properties{OptFormat: "java:{deploymentId}"})
	w.widget()
	w.finish()

	var c diag.Collector
	_, err := NewBuilder(w.ctx, WithWarnings(c.Sink())).Build(w.jar, w.module, w.scopes)
	require.NoError(t, err)
	assert.Equal(t, []string{diag.CodeJndiFormatColon}, c.Codes())
	assert.Equal(t, BusinessLocalType, w.lookup(t, "openejb/local/Widget").Type)
	assert.Equal(t, BusinessRemoteType, w.lookup(t, "openejb/remote/Widget").Type)
}

func TestPerInterfaceOverride(t *testing.T) {
	t.Parallel()
	w := newWorld(t, nil)
	w.widget(info.JndiNameInfo{Name: "custom/LocalWidget", Interface: "org.acme.WidgetLocal"},
		info.JndiNameInfo{Name: "Ghost", Interface: "org.acme.Nope"})
	w.finish()

	var c diag.Collector
	_, err := NewBuilder(w.ctx, WithWarnings(c.Sink())).Build(w.jar, w.module, w.scopes)
	require.NoError(t, err)
	w.lookup(t, "openejb/local/custom/LocalWidget")
	w.lookup(t, "openejb/remote/WidgetRemote")
	assert.Equal(t, []string{diag.CodeUnknownInterface}, c.Codes())
}

func TestLegacyStrategy(t *testing.T) {
	t.Parallel()
	w := newWorld(t, info.Properties{OptStrategy: "org.apache.openejb.assembler.classic.JndiBuilder$LegacyAddedSuffixStrategy"})
	w.widget()
	w.finish()

	_, err := NewBuilder(w.ctx).Build(w.jar, w.module, w.scopes)
	require.NoError(t, err)
	w.lookup(t, "openejb/local/WidgetBusinessLocal")
	w.lookup(t, "openejb/remote/WidgetBusinessRemote")
}

func TestUnknownStrategy(t *testing.T) {
	t.Parallel()
	w := newWorld(t, info.Properties{OptStrategy: "fancy"})
	w.widget()
	w.finish()

	_, err := NewBuilder(w.ctx).Build(w.jar, w.module, w.scopes)
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestLocalBeanAliasesSuperclasses(t *testing.T) {
	t.Parallel()
	w := newWorld(t, nil)
	w.add(info.EnterpriseBeanInfo{Kind: info.Singleton, EjbName: "Widget", EjbClass: "org.acme.WidgetBean", LocalBean: true},
		func(b *deployment.BeanContext) { b.LocalBean = true })
	w.finish()

	_, err := NewBuilder(w.ctx).Build(w.jar, w.module, w.scopes)
	require.NoError(t, err)
	assert.Equal(t, LocalBeanType, w.lookup(t, "openejb/Deployment/Widget/org.acme.WidgetBean!LocalBean").Type)
	assert.Equal(t, LocalBeanType, w.lookup(t, "openejb/Deployment/Widget/org.acme.BaseBean!LocalBean").Type)
	w.lookup(t, "openejb/Deployment/Widget/org.acme.WidgetBean!LocalBeanHome")
	w.lookup(t, "openejb/local/WidgetLocalBean")
}

func TestMessageDrivenDestinationLink(t *testing.T) {
	t.Parallel()
	w := newWorld(t, nil)
	w.add(info.EnterpriseBeanInfo{Kind: info.MessageDriven, EjbName: "Listener", EjbClass: "org.acme.ListenerBean",
		MessageDriven: &info.MessageDrivenInfo{DestinationID: "orders"}},
		func(b *deployment.BeanContext) { b.MdbInterface = w.loader.MustLoad(classes.MessageListener) })
	w.finish()
	require.NoError(t, w.ctx.Bind("openejb/Resource/orders", "queue:orders"))

	_, err := NewBuilder(w.ctx).Build(w.jar, w.module, w.scopes)
	require.NoError(t, err)
	v, err := w.ctx.Lookup("openejb/remote/Listener")
	require.NoError(t, err)
	assert.Equal(t, "queue:orders", v)
}

func TestStandaloneModuleGlobalName(t *testing.T) {
	t.Parallel()
	w := newWorld(t, nil)
	w.app.Standalone = true
	w.widget()
	w.finish()

	_, err := NewBuilder(w.ctx).Build(w.jar, w.module, w.scopes)
	require.NoError(t, err)
	_, err = w.scopes.Global.Lookup("global/widgets/Widget")
	require.NoError(t, err)
}

func TestContext(t *testing.T) {
	t.Parallel()
	c := NewContext()
	require.NoError(t, c.Bind("/a/b", 1))
	if err := c.Bind("a/b", 2); !errors.Is(err, ErrNameAlreadyBound) {
		t.Fatalf("expected ErrNameAlreadyBound, got %v", err)
	}
	require.NoError(t, c.Rebind("a/b", 3))
	v, err := c.Lookup("java:a/b")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	require.NoError(t, c.Bind("a/c", LinkRef{Name: "a/b"}))
	require.NoError(t, c.Bind("x", 0))
	assert.Equal(t, []string{"a/b", "a/c"}, c.List("a"))
	v, err = c.Lookup("a/c")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	require.NoError(t, c.Bind("loop/1", LinkRef{Name: "loop/2"}))
	require.NoError(t, c.Bind("loop/2", LinkRef{Name: "loop/1"}))
	_, err = c.Lookup("loop/1")
	assert.ErrorIs(t, err, ErrInvalidName)

	assert.ErrorIs(t, c.Unbind("missing"), ErrNameNotFound)
	assert.ErrorIs(t, c.Bind("", 1), ErrInvalidName)
}

func TestTemplate(t *testing.T) {
	t.Parallel()
	values := map[string]string{"ejbName": "OrderService", "interfaceType.xmlName": "business-local"}

	got, err := NewTemplate("{ejbName.lc}/{ejbName.UC}/{interfaceType.xmlName.cc}").Apply(values)
	require.NoError(t, err)
	assert.Equal(t, "orderservice/ORDERSERVICE/businessLocal", got)

	_, err = NewTemplate("{ejbName}{missing}").Apply(values)
	assert.ErrorIs(t, err, ErrTemplateKey)
	assert.Equal(t, []string{"ejbName", "missing"}, NewTemplate("{ejbName}{missing}{ejbName}").Keys())
}

func TestInterfaceNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "localHome", LocalHome.XMLNameCC())
	assert.Equal(t, "", RemoteHome.LegacyName())
	i, ok := ParseInterface("business-remote")
	require.True(t, ok)
	assert.Equal(t, BusinessRemote, i)
	assert.Equal(t, "openejb/Deployment/X/a.B!LocalHome", DeploymentName("X", "a.B", EJBLocalHome))
}
