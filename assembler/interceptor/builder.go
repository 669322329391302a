package interceptor

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/diag"
	"github.com/strogmv/assembler/assembler/info"
	"github.com/strogmv/assembler/assembler/methodinfo"
)

var (
	// ErrDuplicateCallback reports two callbacks of one phase declared on one class.
	ErrDuplicateCallback = errors.New("duplicate callback for phase")
	// ErrCallbackNotFound reports a bean lifecycle callback that does not exist.
	ErrCallbackNotFound = errors.New("bean callback method not found")
	// ErrInterceptorClass reports an interceptor class missing from the method table.
	ErrInterceptorClass = errors.New("interceptor class cannot be loaded")
)

var (
	invocationContext = classes.MustParseTypeName(classes.InvocationContext)
	booleanType       = classes.MustParseTypeName("boolean")
)

// Builder resolves interceptor chains for the beans of one ejb-jar.
type Builder struct {
	logger          *slog.Logger
	warn            diag.Sink
	bindings        []info.InterceptorBindingInfo
	packageAndClass []info.InterceptorBindingInfo
	interceptors    map[string]*deployment.InterceptorData
	warned          map[string]bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(b *Builder) { b.logger = l } }

// WithWarnings sets the warning sink.
func WithWarnings(s diag.Sink) Option { return func(b *Builder) { b.warn = s } }

// NewBuilder sorts the jar's bindings and resolves the callback methods of
// every declared interceptor class.
func NewBuilder(loader *classes.Loader, jar *info.EjbJarInfo, opts ...Option) (*Builder, error) {
	b := &Builder{
		logger:       slog.Default(),
		interceptors: map[string]*deployment.InterceptorData{},
		warned:       map[string]bool{},
	}
	for _, opt := range opts {
		opt(b)
	}

	b.bindings = SortBindings(jar.InterceptorBindings)
	for _, binding := range b.bindings {
		level := LevelOf(binding)
		if level == LevelPackage || level.IsClassLevel() {
			b.packageAndClass = append(b.packageAndClass, binding)
		}
	}

	var errs []error
	for _, ii := range jar.Interceptors {
		class, ok := loader.Load(ii.Clazz)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInterceptorClass, ii.Clazz))
			continue
		}
		data := deployment.NewInterceptorData(class)
		phases := []struct {
			phase     deployment.Phase
			callbacks []info.CallbackInfo
		}{
			{deployment.AroundInvoke, ii.AroundInvoke},
			{deployment.PostActivate, ii.PostActivate},
			{deployment.PrePassivate, ii.PrePassivate},
			{deployment.PostConstruct, ii.PostConstruct},
			{deployment.PreDestroy, ii.PreDestroy},
			{deployment.AfterBegin, ii.AfterBegin},
			{deployment.BeforeCompletion, ii.BeforeCompletion},
			{deployment.AfterCompletion, ii.AfterCompletion},
			{deployment.AroundTimeout, ii.AroundTimeout},
		}
		for _, p := range phases {
			methods, err := b.interceptorMethods(class, p.phase, p.callbacks)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			data.Add(p.phase, methods...)
		}
		b.interceptors[ii.Clazz] = data
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return b, nil
}

// Interceptor returns the resolved data of a declared interceptor class.
func (b *Builder) Interceptor(className string) (*deployment.InterceptorData, bool) {
	d, ok := b.interceptors[className]
	return d, ok
}

// Build writes the method chains, self interception and callback chain of
// one bean. beanInfo is not modified.
func (b *Builder) Build(bean *deployment.BeanContext, beanInfo *info.EnterpriseBeanInfo) error {
	class := bean.BeanClass
	if class == nil {
		return fmt.Errorf("%s: bean class is not loaded", bean.DeploymentID)
	}
	self := deployment.NewInterceptorData(class)

	var errs []error
	collect := func(methods []*classes.Method, err error, phase deployment.Phase) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		self.Add(phase, methods...)
	}

	ms, err := b.interceptorMethods(class, deployment.AroundInvoke, beanInfo.AroundInvoke)
	collect(ms, err, deployment.AroundInvoke)
	ms, err = b.callbackMethods(class, deployment.PostConstruct, beanInfo.PostConstruct)
	collect(ms, err, deployment.PostConstruct)
	if beanInfo.Kind == info.Stateless || beanInfo.Kind == info.MessageDriven {
		// ejbCreate runs after the declared post-construct callbacks.
		create, err := methodinfo.ResolveNamed(class, info.NamedMethodInfo{MethodName: "ejbCreate", MethodParams: []string{}})
		if err == nil {
			self.Add(deployment.PostConstruct, create)
		}
	}
	ms, err = b.callbackMethods(class, deployment.PreDestroy, beanInfo.PreDestroy)
	collect(ms, err, deployment.PreDestroy)

	if beanInfo.Kind == info.Stateful {
		s := beanInfo.SessionOrEmpty()
		ms, err = b.callbackMethods(class, deployment.PostActivate, s.PostActivate)
		collect(ms, err, deployment.PostActivate)
		ms, err = b.callbackMethods(class, deployment.PrePassivate, s.PrePassivate)
		collect(ms, err, deployment.PrePassivate)
		ms, err = b.callbackMethods(class, deployment.AfterBegin, s.AfterBegin)
		collect(ms, err, deployment.AfterBegin)
		ms, err = b.callbackMethods(class, deployment.BeforeCompletion, s.BeforeCompletion)
		collect(ms, err, deployment.BeforeCompletion)
		ms, err = b.callbackMethods(class, deployment.AfterCompletion, s.AfterCompletion, booleanType)
		collect(ms, err, deployment.AfterCompletion)
	} else {
		ms, err = b.interceptorMethods(class, deployment.AroundTimeout, beanInfo.AroundTimeout)
		collect(ms, err, deployment.AroundTimeout)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", bean.DeploymentID, err)
	}

	for _, k := range class.Hierarchy() {
		for _, m := range k.DeclaredMethods() {
			if err := bean.SetMethodInterceptors(m, b.Chain(m, beanInfo.EjbName)); err != nil {
				return err
			}
			if err := bean.SetSelfInterception(m, self); err != nil {
				return err
			}
		}
	}

	callbacks := b.chain(nil, beanInfo.EjbName, b.packageAndClass)
	callbacks = append(callbacks, self)
	return bean.SetCallbackInterceptors(callbacks)
}

// Chain returns the declared interceptors wrapping method of bean ejbName,
// outermost first. A nil method yields the lifecycle callback chain. The
// bean itself is not included.
func (b *Builder) Chain(method *classes.Method, ejbName string) []*deployment.InterceptorData {
	if method == nil {
		return b.chain(nil, ejbName, b.packageAndClass)
	}
	return b.chain(method, ejbName, b.bindings)
}

// AppliedBindings returns the bindings contributing to method's chain,
// outermost first.
func (b *Builder) AppliedBindings(method *classes.Method, ejbName string) []info.InterceptorBindingInfo {
	bindings := b.bindings
	if method == nil {
		bindings = b.packageAndClass
	}
	applied := ProcessBindings(method, ejbName, bindings)
	slices.Reverse(applied)
	return applied
}

func (b *Builder) chain(method *classes.Method, ejbName string, bindings []info.InterceptorBindingInfo) []*deployment.InterceptorData {
	applied := ProcessBindings(method, ejbName, bindings)
	slices.Reverse(applied)

	var out []*deployment.InterceptorData
	for _, binding := range applied {
		names := binding.Interceptors
		if len(binding.InterceptorOrder) > 0 {
			names = binding.InterceptorOrder
		}
		for _, name := range names {
			data, ok := b.interceptors[name]
			if !ok {
				if b.warned[ejbName+"/"+name] {
					continue
				}
				b.warned[ejbName+"/"+name] = true
				b.warn.Emit(diag.Warning{
					Kind:     "interceptor",
					Code:     diag.CodeUndeclaredInterceptor,
					Severity: "warn",
					Bean:     ejbName,
					Message:  "interceptor binding references non-existent (undeclared) interceptor: " + name,
				})
				b.logger.Warn("interceptor binding references undeclared interceptor", slog.String("interceptor", name), slog.String("bean", ejbName))
				continue
			}
			out = append(out, data)
		}
	}
	return out
}

// interceptorMethods resolves around-invoke style methods taking an
// InvocationContext. A missing method is skipped with a warning.
func (b *Builder) interceptorMethods(class *classes.Class, phase deployment.Phase, callbacks []info.CallbackInfo) ([]*classes.Method, error) {
	var out []*classes.Method
	for _, cb := range callbacks {
		m, ok := findCallback(class, cb, invocationContext)
		if !ok {
			b.warn.Emit(diag.Warning{
				Kind:     "interceptor",
				Code:     diag.CodeInterceptorMethodAbsent,
				Severity: "warn",
				Message:  fmt.Sprintf("interceptor method not found (skipping): Object %s(InvocationContext) in class %s", cb.Method, class.Name),
			})
			b.logger.Warn("interceptor method not found", slog.String("method", cb.Method), slog.String("class", class.Name))
			continue
		}
		// An unqualified interceptor callback must be declared by the class itself.
		if m != nil && cb.ClassName == "" && m.Declaring.Name != class.Name {
			continue
		}
		if m != nil {
			out = appendUnique(out, m)
		}
	}
	return sortCallbacks(class, phase, out)
}

// callbackMethods resolves bean lifecycle callbacks. A missing method is fatal.
func (b *Builder) callbackMethods(class *classes.Class, phase deployment.Phase, callbacks []info.CallbackInfo, params ...classes.TypeName) ([]*classes.Method, error) {
	var out []*classes.Method
	for _, cb := range callbacks {
		m, ok := findCallback(class, cb, params...)
		if !ok {
			b.logger.Warn("bean callback method not found", slog.String("method", cb.Method), slog.String("class", class.Name))
			return nil, fmt.Errorf("%w: void %s() in class %s", ErrCallbackNotFound, cb.Method, class.Name)
		}
		if m != nil {
			out = appendUnique(out, m)
		}
	}
	return sortCallbacks(class, phase, out)
}

// findCallback locates the method a callback designates, starting at class
// and walking up. When the callback names a declaring class and the nearest
// method lives elsewhere, a private method of that exact class is used
// instead. ok is false only when no method of that name exists at all; a nil
// method with ok=true means the designated method is overridden.
func findCallback(class *classes.Class, cb info.CallbackInfo, params ...classes.TypeName) (*classes.Method, bool) {
	m, ok := class.FindDeclared(cb.Method, params...)
	if !ok {
		return nil, false
	}
	if cb.ClassName == "" || m.Declaring.Name == cb.ClassName {
		return m, true
	}
	for _, k := range class.Hierarchy() {
		if k.Name != cb.ClassName {
			continue
		}
		for _, d := range k.DeclaredMethods() {
			if d.Name == cb.Method && d.HasParams(params...) && d.IsPrivate() {
				return d, true
			}
		}
	}
	return nil, true
}

func appendUnique(ms []*classes.Method, m *classes.Method) []*classes.Method {
	if slices.Contains(ms, m) {
		return ms
	}
	return append(ms, m)
}

// sortCallbacks orders methods superclass first and rejects two methods of
// the same phase declared on one class.
func sortCallbacks(class *classes.Class, phase deployment.Phase, ms []*classes.Method) ([]*classes.Method, error) {
	seen := map[*classes.Class]*classes.Method{}
	for _, m := range ms {
		if prev, ok := seen[m.Declaring]; ok {
			return nil, fmt.Errorf("%w %s: %s and %s both declared on %s (via %s)", ErrDuplicateCallback, phase, prev.Signature(), m.Signature(), m.Declaring.Name, class.Name)
		}
		seen[m.Declaring] = m
	}
	slices.SortStableFunc(ms, func(a, b *classes.Method) int {
		switch {
		case a.Declaring == b.Declaring:
			return 0
		case a.Declaring.IsAssignableFrom(b.Declaring):
			return -1
		case b.Declaring.IsAssignableFrom(a.Declaring):
			return 1
		}
		return 0
	})
	return ms, nil
}
