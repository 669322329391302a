// Package deployment holds the live deployment units produced by assembly.
// A BeanContext is written while its application is assembled and frozen
// before it is handed to a container; after Freeze every setter fails.
package deployment

import (
	"errors"
	"fmt"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/info"
)

// ErrFrozen is returned by setters once a BeanContext has been frozen.
var ErrFrozen = errors.New("deployment is frozen")

// AnyView is the view key of attributes that apply regardless of interface.
const AnyView = ""

// MethodContext is the resolved policy of one bean method.
type MethodContext struct {
	Method *classes.Method

	txByView      map[string]TransactionType
	lock          LockType
	accessTimeout *time.Duration
	permission    *Permission
	interceptors  []*InterceptorData
	self          *InterceptorData
	asynchronous  bool
}

// Interceptors returns the declared interceptor classes wrapping the method,
// outermost first, without the bean itself.
func (mc *MethodContext) Interceptors() []*InterceptorData { return mc.interceptors }

// SelfInterception returns the bean acting as its own interceptor.
func (mc *MethodContext) SelfInterception() *InterceptorData { return mc.self }

// Chain returns the full chain: declared interceptors followed by the bean.
func (mc *MethodContext) Chain() []*InterceptorData {
	out := make([]*InterceptorData, 0, len(mc.interceptors)+1)
	out = append(out, mc.interceptors...)
	if mc.self != nil {
		out = append(out, mc.self)
	}
	return out
}

// BeanContext is the deployment unit of one enterprise bean.
type BeanContext struct {
	DeploymentID string
	EjbName      string
	Kind         info.BeanKind
	ContainerID  string
	Module       *ModuleContext
	Info         *info.EnterpriseBeanInfo

	BeanClass       *classes.Class
	Home            *classes.Class
	Remote          *classes.Class
	LocalHome       *classes.Class
	Local           *classes.Class
	BusinessLocal   []*classes.Class
	BusinessRemote  []*classes.Class
	ServiceEndpoint *classes.Class
	MdbInterface    *classes.Class
	LocalBean       bool

	BeanManagedTransaction bool
	BeanManagedConcurrency bool

	methods       *orderedmap.OrderedMap[*classes.Method, *MethodContext]
	callbacks     []*InterceptorData
	timeout       *classes.Method
	appExceptions *orderedmap.OrderedMap[string, ExceptionPolicy]
	references    []Reference
	bindings      []Binding
	accessTimeout *time.Duration
	frozen        bool
}

// NewBeanContext creates an empty, writable deployment unit.
func NewBeanContext(id, ejbName string, kind info.BeanKind, beanClass *classes.Class) *BeanContext {
	return &BeanContext{
		DeploymentID:  id,
		EjbName:       ejbName,
		Kind:          kind,
		BeanClass:     beanClass,
		methods:       orderedmap.New[*classes.Method, *MethodContext](),
		appExceptions: orderedmap.New[string, ExceptionPolicy](),
	}
}

func (b *BeanContext) String() string {
	return fmt.Sprintf("%s (%s)", b.DeploymentID, b.Kind)
}

// Freeze makes the context read-only.
func (b *BeanContext) Freeze() { b.frozen = true }

// Frozen reports whether Freeze was called.
func (b *BeanContext) Frozen() bool { return b.frozen }

func (b *BeanContext) writable(op string) error {
	if b.frozen {
		return fmt.Errorf("%s %s: %w", op, b.DeploymentID, ErrFrozen)
	}
	return nil
}

// MatchingBeanMethod maps an interface method to the bean-class method
// implementing it. Methods of the bean hierarchy map to themselves.
func (b *BeanContext) MatchingBeanMethod(m *classes.Method) *classes.Method {
	if m == nil || b.BeanClass == nil || m.Declaring == nil || !m.Declaring.Interface {
		return m
	}
	if impl, ok := b.BeanClass.FindPublic(m.Name, m.Params...); ok && !impl.Declaring.Interface {
		return impl
	}
	return m
}

func (b *BeanContext) lookup(m *classes.Method) (*MethodContext, bool) {
	return b.methods.Get(b.MatchingBeanMethod(m))
}

// MethodContext returns the context of m, creating it on first use. After
// Freeze it only returns existing contexts. Interface methods share the
// context of the bean method implementing them.
func (b *BeanContext) MethodContext(m *classes.Method) (*MethodContext, bool) {
	m = b.MatchingBeanMethod(m)
	if mc, ok := b.lookup(m); ok {
		return mc, true
	}
	if b.frozen {
		return nil, false
	}
	mc := &MethodContext{Method: m, txByView: map[string]TransactionType{}}
	b.methods.Set(m, mc)
	return mc, true
}

// MethodContexts lists method contexts in creation order.
func (b *BeanContext) MethodContexts() []*MethodContext {
	out := make([]*MethodContext, 0, b.methods.Len())
	for pair := b.methods.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Views lists the view classes a client can reach the bean through.
func (b *BeanContext) Views() []*classes.Class {
	var out []*classes.Class
	for _, c := range []*classes.Class{b.Home, b.Remote, b.LocalHome, b.Local} {
		if c != nil {
			out = append(out, c)
		}
	}
	out = append(out, b.BusinessLocal...)
	out = append(out, b.BusinessRemote...)
	for _, c := range []*classes.Class{b.ServiceEndpoint, b.MdbInterface} {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// SetMethodTransactionAttribute records the attribute of m for a view.
// Use AnyView for attributes that are not tied to an interface.
func (b *BeanContext) SetMethodTransactionAttribute(m *classes.Method, tx TransactionType, view string) error {
	if err := b.writable("set transaction attribute"); err != nil {
		return err
	}
	mc, _ := b.MethodContext(m)
	mc.txByView[view] = tx
	return nil
}

// TransactionAttribute returns the attribute of m as seen through view,
// falling back to the view-independent attribute and then to Required.
func (b *BeanContext) TransactionAttribute(m *classes.Method, view string) TransactionType {
	if b.BeanManagedTransaction {
		return BeanManaged
	}
	if mc, ok := b.lookup(m); ok {
		if tx, ok := mc.txByView[view]; ok {
			return tx
		}
		if tx, ok := mc.txByView[AnyView]; ok {
			return tx
		}
	}
	return Required
}

// TransactionViews returns the views that carry an explicit attribute for m.
func (b *BeanContext) TransactionViews(m *classes.Method) map[string]TransactionType {
	mc, ok := b.lookup(m)
	if !ok {
		return nil
	}
	out := make(map[string]TransactionType, len(mc.txByView))
	for k, v := range mc.txByView {
		out[k] = v
	}
	return out
}

// SetMethodConcurrencyAttribute records the lock type of m.
func (b *BeanContext) SetMethodConcurrencyAttribute(m *classes.Method, lock LockType) error {
	if err := b.writable("set lock type"); err != nil {
		return err
	}
	mc, _ := b.MethodContext(m)
	mc.lock = lock
	return nil
}

// LockType returns the lock type of m, Write when unset.
func (b *BeanContext) LockType(m *classes.Method) LockType {
	if mc, ok := b.lookup(m); ok && mc.lock != "" {
		return mc.lock
	}
	return Write
}

// SetAccessTimeout records the access timeout of m. A nil method sets the
// bean-wide default.
func (b *BeanContext) SetAccessTimeout(m *classes.Method, d time.Duration) error {
	if err := b.writable("set access timeout"); err != nil {
		return err
	}
	if m == nil {
		b.accessTimeout = &d
		return nil
	}
	mc, _ := b.MethodContext(m)
	mc.accessTimeout = &d
	return nil
}

// AccessTimeout returns the timeout of m, or the bean-wide default.
func (b *BeanContext) AccessTimeout(m *classes.Method) (time.Duration, bool) {
	if mc, ok := b.lookup(m); ok && mc.accessTimeout != nil {
		return *mc.accessTimeout, true
	}
	if b.accessTimeout != nil {
		return *b.accessTimeout, true
	}
	return 0, false
}

// SetPermission records the method permission of m.
func (b *BeanContext) SetPermission(m *classes.Method, p Permission) error {
	if err := b.writable("set permission"); err != nil {
		return err
	}
	mc, _ := b.MethodContext(m)
	mc.permission = &p
	return nil
}

// Permission returns the method permission of m.
func (b *BeanContext) Permission(m *classes.Method) (Permission, bool) {
	if mc, ok := b.lookup(m); ok && mc.permission != nil {
		return *mc.permission, true
	}
	return Permission{}, false
}

// SetMethodInterceptors records the interceptor classes wrapping m.
func (b *BeanContext) SetMethodInterceptors(m *classes.Method, chain []*InterceptorData) error {
	if err := b.writable("set method interceptors"); err != nil {
		return err
	}
	mc, _ := b.MethodContext(m)
	mc.interceptors = append([]*InterceptorData(nil), chain...)
	return nil
}

// SetSelfInterception records the bean's own interceptor for m.
func (b *BeanContext) SetSelfInterception(m *classes.Method, self *InterceptorData) error {
	if err := b.writable("set self interception"); err != nil {
		return err
	}
	mc, _ := b.MethodContext(m)
	mc.self = self
	return nil
}

// MethodInterceptors returns the full chain for m with the bean last.
func (b *BeanContext) MethodInterceptors(m *classes.Method) []*InterceptorData {
	if mc, ok := b.lookup(m); ok {
		return mc.Chain()
	}
	return nil
}

// SetCallbackInterceptors records the lifecycle callback chain.
func (b *BeanContext) SetCallbackInterceptors(chain []*InterceptorData) error {
	if err := b.writable("set callback interceptors"); err != nil {
		return err
	}
	b.callbacks = append([]*InterceptorData(nil), chain...)
	return nil
}

// CallbackInterceptors returns the lifecycle callback chain, bean last.
func (b *BeanContext) CallbackInterceptors() []*InterceptorData { return b.callbacks }

// SetAsynchronous marks m as an asynchronous business method.
func (b *BeanContext) SetAsynchronous(m *classes.Method) error {
	if err := b.writable("set asynchronous"); err != nil {
		return err
	}
	mc, _ := b.MethodContext(m)
	mc.asynchronous = true
	return nil
}

// IsAsynchronous reports whether m was marked asynchronous.
func (b *BeanContext) IsAsynchronous(m *classes.Method) bool {
	mc, ok := b.lookup(m)
	return ok && mc.asynchronous
}

// SetTimeoutMethod records the timer callback.
func (b *BeanContext) SetTimeoutMethod(m *classes.Method) error {
	if err := b.writable("set timeout method"); err != nil {
		return err
	}
	b.timeout = m
	return nil
}

// TimeoutMethod returns the timer callback, if any.
func (b *BeanContext) TimeoutMethod() *classes.Method { return b.timeout }

// AddApplicationException registers an application exception class.
func (b *BeanContext) AddApplicationException(class string, p ExceptionPolicy) error {
	if err := b.writable("add application exception"); err != nil {
		return err
	}
	b.appExceptions.Set(class, p)
	return nil
}

// ApplicationException returns the policy for an exception class. Inherited
// policies of superclasses apply when loader can resolve the hierarchy.
func (b *BeanContext) ApplicationException(class string, loader *classes.Loader) (ExceptionPolicy, bool) {
	if p, ok := b.appExceptions.Get(class); ok {
		return p, true
	}
	if loader == nil {
		return ExceptionPolicy{}, false
	}
	c, ok := loader.Load(class)
	if !ok {
		return ExceptionPolicy{}, false
	}
	for k := c.Super; k != nil; k = k.Super {
		if p, ok := b.appExceptions.Get(k.Name); ok && p.Inherited {
			return p, true
		}
	}
	return ExceptionPolicy{}, false
}

// ApplicationExceptions lists registered exception classes in registration order.
func (b *BeanContext) ApplicationExceptions() []string {
	out := make([]string, 0, b.appExceptions.Len())
	for pair := b.appExceptions.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// SetReferences records resolved environment references.
func (b *BeanContext) SetReferences(refs []Reference) error {
	if err := b.writable("set references"); err != nil {
		return err
	}
	b.references = append([]Reference(nil), refs...)
	return nil
}

func (b *BeanContext) References() []Reference { return b.references }

// SetBindings records the names bound for the bean.
func (b *BeanContext) SetBindings(bindings []Binding) error {
	if err := b.writable("set bindings"); err != nil {
		return err
	}
	b.bindings = append([]Binding(nil), bindings...)
	return nil
}

func (b *BeanContext) Bindings() []Binding { return b.bindings }
