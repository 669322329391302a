package jndi

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/diag"
	"github.com/strogmv/assembler/assembler/info"
)

// CollisionError reports an external name already taken by another bean.
type CollisionError struct {
	Name         string
	DeploymentID string
	// Owner is the deployment holding the name, empty when it is held by
	// something other than a bean.
	Owner string
}

func (e *CollisionError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("Jndi(name=%s) cannot be bound to Ejb(deployment-id=%s). Name already taken by another object in the system", e.Name, e.DeploymentID)
	}
	return fmt.Sprintf("Jndi(name=%s) cannot be bound to Ejb(deployment-id=%s). Name already taken by Ejb(deployment-id=%s)", e.Name, e.DeploymentID, e.Owner)
}

func (e *CollisionError) Unwrap() error { return ErrNameAlreadyBound }

// Scopes are the java: contexts a bean is also published in.
type Scopes struct {
	Global *Context
	App    *Context
	Module *Context
}

// JavaBinding is a name bound in one of the java: scopes.
type JavaBinding struct {
	Scope string `json:"scope"`
	Name  string `json:"name"`
}

// BeanBindings is the outcome of binding one bean.
type BeanBindings struct {
	DeploymentID string `json:"deploymentId"`
	// Names are the openejb context names bound, in bind order.
	Names []string `json:"names"`
	// JndiNames are the external names, replacing the descriptor's list.
	JndiNames []info.JndiNameInfo `json:"jndiNames"`
	Java      []JavaBinding       `json:"java,omitempty"`
}

// Builder binds beans into the openejb context. It remembers which
// deployment owns each name until Unbind.
type Builder struct {
	ctx             *Context
	logger          *slog.Logger
	warn            diag.Sink
	failOnCollision *bool

	mu     sync.Mutex
	owners map[string]string
}

type BuilderOption func(*Builder)

func WithLogger(l *slog.Logger) BuilderOption { return func(b *Builder) { b.logger = l } }

func WithWarnings(s diag.Sink) BuilderOption { return func(b *Builder) { b.warn = s } }

// WithFailOnCollision fixes the collision policy instead of reading
// OptFailOnCollision from the module options.
func WithFailOnCollision(fail bool) BuilderOption {
	return func(b *Builder) { b.failOnCollision = &fail }
}

func NewBuilder(ctx *Context, opts ...BuilderOption) *Builder {
	b := &Builder{ctx: ctx, logger: slog.Default(), owners: map[string]string{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Context returns the openejb context.
func (b *Builder) Context() *Context { return b.ctx }

// Owner returns the deployment that bound name.
func (b *Builder) Owner(name string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.owners[name]
	return id, ok
}

// Build binds every bean of module in descriptor order. On error the names
// bound so far stay bound and are part of the returned result so the caller
// can unbind them.
func (b *Builder) Build(jar *info.EjbJarInfo, module *deployment.ModuleContext, scopes Scopes) ([]BeanBindings, error) {
	strategy, err := NewStrategy(StrategyConfig{Jar: jar, Module: module, Options: module.Options, Logger: b.logger, Warn: b.warn})
	if err != nil {
		return nil, err
	}
	fail := true
	if b.failOnCollision != nil {
		fail = *b.failOnCollision
	} else if module.Options != nil {
		fail = module.Options.GetBool(OptFailOnCollision, true)
	}

	var out []BeanBindings
	for i := range jar.EnterpriseBeans {
		bi := &jar.EnterpriseBeans[i]
		bean, ok := module.Bean(bi.EjbName)
		if !ok {
			return out, fmt.Errorf("bean %s has no deployment", bi.EjbName)
		}
		if err := strategy.Begin(bean); err != nil {
			return out, err
		}
		bb := &binder{Builder: b, bean: bean, module: module, scopes: scopes, strategy: strategy, fail: fail,
			result: BeanBindings{DeploymentID: bean.DeploymentID}}
		err := bb.bind()
		strategy.End()
		out = append(out, bb.result)
		if err != nil {
			return out, fmt.Errorf("bind %s: %w", bean.DeploymentID, err)
		}
	}
	return out, nil
}

// Unbind removes everything bindings recorded.
func (b *Builder) Unbind(bindings []BeanBindings, scopes Scopes) error {
	var errs []error
	for _, bb := range bindings {
		for _, name := range bb.Names {
			if err := b.ctx.Unbind(name); err != nil && !errors.Is(err, ErrNameNotFound) {
				errs = append(errs, err)
			}
			b.mu.Lock()
			if b.owners[name] == bb.DeploymentID {
				delete(b.owners, name)
			}
			b.mu.Unlock()
		}
		for _, jb := range bb.Java {
			ctx := scopes.context(jb.Scope)
			if ctx == nil {
				continue
			}
			if err := ctx.Unbind(jb.Name); err != nil && !errors.Is(err, ErrNameNotFound) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (s Scopes) context(scope string) *Context {
	switch scope {
	case "global":
		return s.Global
	case "app":
		return s.App
	case "module":
		return s.Module
	}
	return nil
}

// binder binds the views of one bean.
type binder struct {
	*Builder
	bean     *deployment.BeanContext
	module   *deployment.ModuleContext
	scopes   Scopes
	strategy Strategy
	fail     bool
	result   BeanBindings
}

// bind publishes views most universal first: local bean, business locals,
// business remotes, local home, home. The first view bound also takes the
// plain java:global name.
func (bb *binder) bind() error {
	id := bb.bean.DeploymentID
	var simple *Ref

	if bb.bean.LocalBean && bb.bean.BeanClass != nil {
		class := bb.bean.BeanClass
		ref := Ref{DeploymentID: id, Interface: class.Name, Type: LocalBeanType}
		bb.optional(DeploymentName(id, class.Name, LocalBeanType), ref)
		// injection through a superclass of the bean
		for k := class.Super; k != nil && k.Name != classes.ObjectClass; k = k.Super {
			bb.optional(DeploymentName(id, k.Name, LocalBeanType), ref)
		}
		if err := bb.internal(DeploymentName(id, class.Name, BusinessLocalBeanHome), ref); err != nil {
			return err
		}
		if err := bb.external(class, LocalBean, ref, "openejb/local/"); err != nil {
			return err
		}
		if err := bb.java(class, ref); err != nil {
			return err
		}
		simple = &ref
	}

	for _, intf := range bb.bean.BusinessLocal {
		ref := Ref{DeploymentID: id, Interface: intf.Name, Type: BusinessLocalType}
		bb.optional(DeploymentName(id, intf.Name, ""), ref)
		if err := bb.internal(DeploymentName(id, intf.Name, BusinessLocalType), ref); err != nil {
			return err
		}
		if err := bb.external(intf, BusinessLocal, ref, "openejb/local/"); err != nil {
			return err
		}
		if err := bb.java(intf, ref); err != nil {
			return err
		}
		if simple == nil {
			simple = &ref
		}
	}

	for _, intf := range bb.bean.BusinessRemote {
		ref := Ref{DeploymentID: id, Interface: intf.Name, Type: BusinessRemoteType}
		bb.optional(DeploymentName(id, intf.Name, ""), ref)
		if err := bb.internal(DeploymentName(id, intf.Name, BusinessRemoteType), ref); err != nil {
			return err
		}
		if err := bb.external(intf, BusinessRemote, ref, "openejb/local/", "openejb/remote/"); err != nil {
			return err
		}
		if err := bb.bindExternal("openejb/remote/"+bb.globalName(intf), intf, ref); err != nil {
			return err
		}
		if err := bb.java(intf, ref); err != nil {
			return err
		}
		if simple == nil {
			simple = &ref
		}
	}

	if home := bb.bean.LocalHome; home != nil {
		ref := Ref{DeploymentID: id, Interface: home.Name, Type: EJBLocalHome}
		if err := bb.external(home, LocalHome, ref, "openejb/local/"); err != nil {
			return err
		}
		bb.optional(DeploymentName(id, home.Name, EJBLocalHome), ref)
		if local := bb.bean.Local; local != nil {
			if err := bb.internal(DeploymentName(id, local.Name, ""), ref); err != nil {
				return err
			}
			if err := bb.internal(DeploymentName(id, local.Name, EJBLocal), ref); err != nil {
				return err
			}
		}
		if err := bb.java(home, ref); err != nil {
			return err
		}
		if simple == nil {
			simple = &ref
		}
	}

	if home := bb.bean.Home; home != nil {
		ref := Ref{DeploymentID: id, Interface: home.Name, Type: EJBHome}
		if err := bb.external(home, RemoteHome, ref, "openejb/local/", "openejb/remote/"); err != nil {
			return err
		}
		bb.optional(DeploymentName(id, home.Name, EJBHome), ref)
		if remote := bb.bean.Remote; remote != nil {
			if err := bb.internal(DeploymentName(id, remote.Name, ""), ref); err != nil {
				return err
			}
			if err := bb.internal(DeploymentName(id, remote.Name, EJBObject), ref); err != nil {
				return err
			}
		}
		if err := bb.java(home, ref); err != nil {
			return err
		}
		if simple == nil {
			simple = &ref
		}
	}

	if simple != nil {
		if err := bb.java(nil, *simple); err != nil {
			return err
		}
	}

	if mdb := bb.bean.MdbInterface; mdb != nil && mdb.Name == classes.MessageListener && bb.bean.Info != nil && bb.bean.Info.MessageDriven != nil {
		dest := LinkRef{Name: "openejb/Resource/" + bb.bean.Info.MessageDriven.DestinationID}
		for _, prefix := range []string{"openejb/local/", "openejb/remote/"} {
			if err := bb.bindExternal(prefix+id, mdb, dest); err != nil {
				return err
			}
		}
	}
	return nil
}

// optional binds an alias; an existing binding is not an error.
func (bb *binder) optional(name string, value any) {
	if err := bb.ctx.Bind(name, value); err != nil {
		bb.logger.Debug("failed to bind ejb", slog.String("name", name), slog.Any("ref", value))
		return
	}
	bb.record(name)
	bb.logger.Debug("bound ejb", slog.String("name", name), slog.Any("ref", value))
}

// internal binds a name that must be free.
func (bb *binder) internal(name string, value any) error {
	if err := bb.ctx.Bind(name, value); err != nil {
		bb.logger.Error("jndi name could not be bound; it may be taken by another ejb", slog.String("name", name))
		return err
	}
	bb.record(name)
	bb.logger.Debug("bound ejb", slog.String("name", name), slog.Any("ref", value))
	return nil
}

// external renders the strategy name of a view and binds it under each prefix.
func (bb *binder) external(intf *classes.Class, typ Interface, value any, prefixes ...string) error {
	name, err := bb.strategy.Name(intf, DefaultKey, typ)
	if err != nil {
		return err
	}
	for _, prefix := range prefixes {
		if err := bb.bindExternal(prefix+name, intf, value); err != nil {
			return err
		}
	}
	return nil
}

// bindExternal binds a user-visible name. Binding the same name twice for one
// bean is a no-op; a name taken by someone else is a collision.
func (bb *binder) bindExternal(name string, intf *classes.Class, value any) error {
	short := externalName(name)
	if slices.Contains(bb.result.Names, name) {
		if strings.HasPrefix(name, "openejb/local/") {
			bb.logger.Debug("duplicate jndi name", slog.String("name", short))
		}
		return nil
	}
	if err := bb.ctx.Bind(name, value); err != nil {
		if !errors.Is(err, ErrNameAlreadyBound) {
			return err
		}
		owner, ok := bb.Owner(name)
		if !ok {
			if v, err := bb.ctx.Lookup(name); err == nil {
				if ref, isRef := v.(Ref); isRef {
					owner = ref.DeploymentID
				}
			}
		}
		collision := &CollisionError{Name: short, DeploymentID: bb.bean.DeploymentID, Owner: owner}
		bb.logger.Error(collision.Error())
		bb.warn.Emit(diag.Warning{
			Kind:     "jndi",
			Code:     diag.CodeJndiNameCollision,
			Severity: "error",
			Bean:     bb.bean.DeploymentID,
			Message:  collision.Error(),
		})
		if bb.fail {
			return collision
		}
		return nil
	}
	bb.record(name)

	if !slices.ContainsFunc(bb.result.JndiNames, func(n info.JndiNameInfo) bool { return n.Name == short }) {
		ni := info.JndiNameInfo{Name: short}
		if intf != nil {
			ni.Interface = intf.Name
		}
		bb.result.JndiNames = append(bb.result.JndiNames, ni)
		bb.logger.Info(fmt.Sprintf("Jndi(name=%s) --> Ejb(deployment-id=%s)", short, bb.bean.DeploymentID))
	}
	return nil
}

func (bb *binder) record(name string) {
	bb.result.Names = append(bb.result.Names, name)
	bb.mu.Lock()
	if _, taken := bb.owners[name]; !taken {
		bb.owners[name] = bb.bean.DeploymentID
	}
	bb.mu.Unlock()
}

// externalName strips the "openejb/<section>/" prefix.
func externalName(name string) string {
	rest, ok := strings.CutPrefix(name, "openejb/")
	if !ok {
		return name
	}
	if _, after, found := strings.Cut(rest, "/"); found {
		return after
	}
	return name
}

func (bb *binder) moduleName() string {
	return strings.TrimPrefix(bb.module.ID, "/") + "/"
}

func (bb *binder) appName() string {
	app := bb.module.App
	if app == nil || app.Standalone {
		return ""
	}
	return app.ID + "/"
}

func (bb *binder) beanName(intf *classes.Class) string {
	if intf == nil {
		return bb.bean.EjbName
	}
	return bb.bean.EjbName + "!" + intf.Name
}

// globalName is global/[<app>/]<module>/<ejbName>[!<interface>].
func (bb *binder) globalName(intf *classes.Class) string {
	return "global/" + bb.appName() + bb.moduleName() + bb.beanName(intf)
}

// java binds the global, app and module names of a view. A global name that
// is already bound means the interface plays several roles; the view is
// skipped.
func (bb *binder) java(intf *classes.Class, ref Ref) error {
	global := bb.globalName(intf)
	if g := bb.scopes.Global; g != nil {
		if err := g.Bind(global, ref); err != nil {
			if errors.Is(err, ErrNameAlreadyBound) {
				return nil
			}
			return err
		}
		bb.result.Java = append(bb.result.Java, JavaBinding{Scope: "global", Name: global})
	}
	if err := bb.bindExternal("openejb/global/"+global, intf, ref); err != nil {
		return err
	}

	app := "app/" + bb.moduleName() + bb.beanName(intf)
	if a := bb.scopes.App; a != nil {
		if err := a.Bind(app, ref); err != nil {
			return err
		}
		bb.result.Java = append(bb.result.Java, JavaBinding{Scope: "app", Name: app})
	}
	mod := "module/" + bb.beanName(intf)
	if m := bb.scopes.Module; m != nil {
		if err := m.Bind(mod, ref); err != nil {
			return err
		}
		bb.result.Java = append(bb.result.Java, JavaBinding{Scope: "module", Name: mod})
	}
	return nil
}
