package deployment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/info"
)

func widgetLoader(t *testing.T) *classes.Loader {
	t.Helper()
	l := classes.NewAppLoader()
	defs := []classes.Definition{
		{Name: "org.acme.AppError"},
		{Name: "org.acme.DerivedError", Super: "org.acme.AppError"},
		{Name: "org.acme.Widget", Methods: []classes.MethodDefinition{
			{Name: "doWork"},
			{Name: "read", Returns: "int"},
		}},
	}
	for _, d := range defs {
		_, err := l.Define(d)
		require.NoError(t, err)
	}
	require.NoError(t, l.Link())
	return l
}

func TestTransactionAttributeLookupOrder(t *testing.T) {
	t.Parallel()
	l := widgetLoader(t)
	widget := l.MustLoad("org.acme.Widget")
	doWork, _ := widget.FindDeclared("doWork")
	read, _ := widget.FindDeclared("read")

	b := NewBeanContext("Widget", "Widget", info.Stateless, widget)
	require.NoError(t, b.SetMethodTransactionAttribute(doWork, Mandatory, AnyView))
	require.NoError(t, b.SetMethodTransactionAttribute(doWork, Never, info.IntfRemote))

	if got := b.TransactionAttribute(doWork, info.IntfRemote); got != Never {
		t.Fatalf("remote attribute = %q, want %q", got, Never)
	}
	if got := b.TransactionAttribute(doWork, info.IntfLocal); got != Mandatory {
		t.Fatalf("local attribute = %q, want %q", got, Mandatory)
	}
	if got := b.TransactionAttribute(read, AnyView); got != Required {
		t.Fatalf("default attribute = %q, want %q", got, Required)
	}

	b.BeanManagedTransaction = true
	if got := b.TransactionAttribute(doWork, AnyView); got != BeanManaged {
		t.Fatalf("bean-managed attribute = %q, want %q", got, BeanManaged)
	}
}

func TestLockTypeAndTimeoutDefaults(t *testing.T) {
	t.Parallel()
	l := widgetLoader(t)
	widget := l.MustLoad("org.acme.Widget")
	read, _ := widget.FindDeclared("read")

	b := NewBeanContext("Widget", "Widget", info.Singleton, widget)
	require.Equal(t, Write, b.LockType(read))
	_, ok := b.AccessTimeout(read)
	require.False(t, ok)

	require.NoError(t, b.SetAccessTimeout(nil, time.Second))
	d, ok := b.AccessTimeout(read)
	require.True(t, ok)
	require.Equal(t, time.Second, d)

	require.NoError(t, b.SetMethodConcurrencyAttribute(read, Read))
	require.NoError(t, b.SetAccessTimeout(read, 5*time.Millisecond))
	require.Equal(t, Read, b.LockType(read))
	d, _ = b.AccessTimeout(read)
	require.Equal(t, 5*time.Millisecond, d)
}

func TestFreezeRejectsWrites(t *testing.T) {
	t.Parallel()
	l := widgetLoader(t)
	widget := l.MustLoad("org.acme.Widget")
	doWork, _ := widget.FindDeclared("doWork")
	read, _ := widget.FindDeclared("read")

	b := NewBeanContext("Widget", "Widget", info.Stateless, widget)
	self := NewInterceptorData(widget)
	require.NoError(t, b.SetSelfInterception(doWork, self))
	b.Freeze()

	require.ErrorIs(t, b.SetMethodTransactionAttribute(doWork, Never, AnyView), ErrFrozen)
	require.ErrorIs(t, b.SetCallbackInterceptors(nil), ErrFrozen)
	require.ErrorIs(t, b.SetBindings(nil), ErrFrozen)

	_, ok := b.MethodContext(read)
	require.False(t, ok, "frozen contexts must not grow")
	chain := b.MethodInterceptors(doWork)
	require.Len(t, chain, 1)
	require.Same(t, self, chain[0])
}

func TestApplicationExceptionInheritance(t *testing.T) {
	t.Parallel()
	l := widgetLoader(t)
	b := NewBeanContext("Widget", "Widget", info.Stateless, l.MustLoad("org.acme.Widget"))
	require.NoError(t, b.AddApplicationException("org.acme.AppError", ExceptionPolicy{Rollback: true, Inherited: true}))

	p, ok := b.ApplicationException("org.acme.DerivedError", l)
	require.True(t, ok)
	require.True(t, p.Rollback)

	require.NoError(t, b.AddApplicationException("org.acme.AppError", ExceptionPolicy{Rollback: true}))
	_, ok = b.ApplicationException("org.acme.DerivedError", l)
	require.False(t, ok)
	require.Equal(t, []string{"org.acme.AppError"}, b.ApplicationExceptions())
}

func TestInterceptorDataDeduplicates(t *testing.T) {
	t.Parallel()
	l := widgetLoader(t)
	widget := l.MustLoad("org.acme.Widget")
	doWork, _ := widget.FindDeclared("doWork")

	d := NewInterceptorData(widget)
	require.True(t, d.Empty())
	d.Add(PostConstruct, doWork, doWork)
	require.Len(t, d.Methods(PostConstruct), 1)
	require.False(t, d.Empty())
	require.Equal(t, []string{"org.acme.Widget"}, ClassNames([]*InterceptorData{d}))
}
