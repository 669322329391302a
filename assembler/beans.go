package assembler

import (
	"fmt"
	"log/slog"

	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/info"
	"github.com/strogmv/assembler/assembler/methodinfo"
)

var containerNames = map[info.ContainerType]string{
	info.StatelessContainer: "Default Stateless Container",
	info.StatefulContainer:  "Default Stateful Container",
	info.SingletonContainer: "Default Singleton Container",
	info.ManagedContainer:   "Default Managed Container",
	info.BMPEntityContainer: "Default BMP Container",
	info.CMPEntityContainer: "Default CMP Container",
	info.MessageContainer:   "Default MDB Container",
}

// newBean creates the deployment unit of one bean: classes, container,
// timeout, schedule and asynchronous methods.
func (d *deployer) newBean(m *deployment.ModuleContext, bi *info.EnterpriseBeanInfo) (*deployment.BeanContext, error) {
	id := bi.DeploymentID()
	op := "create bean " + id
	load := func(role, name string) (*classes.Class, error) {
		if name == "" {
			return nil, nil
		}
		c, ok := d.loader.Load(name)
		if !ok {
			return nil, WrapDeploymentError(StageBeans, ErrCodeBeanClass, op, fmt.Errorf("%s class %s not found", role, name))
		}
		return c, nil
	}

	class, err := load("ejb", bi.EjbClass)
	if err != nil {
		return nil, err
	}
	b := deployment.NewBeanContext(id, bi.EjbName, bi.Kind, class)
	b.Module = m
	b.Info = bi
	b.LocalBean = bi.LocalBean
	b.BeanManagedTransaction = bi.BeanManagedTransactions()
	b.BeanManagedConcurrency = bi.BeanManagedConcurrency()

	for _, f := range []struct {
		role string
		name string
		dst  **classes.Class
	}{
		{"home", bi.Home, &b.Home},
		{"remote", bi.Remote, &b.Remote},
		{"local-home", bi.LocalHome, &b.LocalHome},
		{"local", bi.Local, &b.Local},
		{"service-endpoint", bi.ServiceEndpoint, &b.ServiceEndpoint},
	} {
		if *f.dst, err = load(f.role, f.name); err != nil {
			return nil, err
		}
	}
	for _, name := range bi.BusinessLocal {
		c, err := load("business-local", name)
		if err != nil {
			return nil, err
		}
		b.BusinessLocal = append(b.BusinessLocal, c)
	}
	for _, name := range bi.BusinessRemote {
		c, err := load("business-remote", name)
		if err != nil {
			return nil, err
		}
		b.BusinessRemote = append(b.BusinessRemote, c)
	}
	if bi.Kind == info.MessageDriven {
		name := classes.MessageListener
		if bi.MessageDriven != nil && bi.MessageDriven.MdbInterface != "" {
			name = bi.MessageDriven.MdbInterface
		}
		if b.MdbInterface, err = load("messaging", name); err != nil {
			return nil, err
		}
	}

	c, err := d.containerFor(bi)
	if err != nil {
		return nil, err
	}
	b.ContainerID = c.ID

	if err := d.timerMethods(b, bi); err != nil {
		return nil, err
	}
	for _, nmi := range bi.AsynchronousMethods {
		method, err := methodinfo.ResolveNamed(class, nmi)
		if err != nil {
			return nil, WrapDeploymentError(StageBeans, ErrCodeBeanMethod, op, fmt.Errorf("asynchronous method: %w", err))
		}
		if err := b.SetAsynchronous(method); err != nil {
			return nil, WrapDeploymentError(StageBeans, ErrCodeBeanMethod, op, err)
		}
	}
	return b, nil
}

// containerFor picks the container named by the bean, or the first
// container of its kind. A missing default container is created when
// OptAutoCreateContainers allows it.
func (d *deployer) containerFor(bi *info.EnterpriseBeanInfo) (*Container, error) {
	op := "create bean " + bi.DeploymentID()
	c, ok := d.system.ContainerFor(bi.ContainerID, bi.Kind)
	if !ok && bi.ContainerID == "" && d.ac.Options.GetBool(OptAutoCreateContainers, true) {
		typ := bi.Kind.ContainerType()
		ci := info.ContainerInfo{ID: containerNames[typ], Type: typ}
		if err := d.CreateContainer(ci); err != nil {
			return nil, err
		}
		d.created = append(d.created, ci.ID)
		d.ac.Logger.Info("auto-created container", slog.String("id", ci.ID), slog.String("bean", bi.EjbName))
		c, ok = d.system.Container(ci.ID)
	}
	if !ok {
		return nil, WrapDeploymentError(StageBeans, ErrCodeContainerNotFound, op, fmt.Errorf("%w: %q for %s bean", ErrContainerNotFound, bi.ContainerID, bi.Kind))
	}
	if c.Type != bi.Kind.ContainerType() {
		return nil, WrapDeploymentError(StageBeans, ErrCodeContainerNotFound, op,
			fmt.Errorf("%w: container %s is %s, bean is %s", ErrContainerNotFound, c.ID, c.Type, bi.Kind))
	}
	return c, nil
}

// timerMethods resolves the timeout method, falling back to ejbTimeout of
// a TimedObject bean, and the methods carrying schedules.
func (d *deployer) timerMethods(b *deployment.BeanContext, bi *info.EnterpriseBeanInfo) error {
	op := "create bean " + b.DeploymentID
	var timeout *classes.Method
	if bi.TimeoutMethod != nil {
		m, err := methodinfo.ResolveNamed(b.BeanClass, *bi.TimeoutMethod)
		if err != nil {
			return WrapDeploymentError(StageBeans, ErrCodeBeanMethod, op, fmt.Errorf("timeout method: %w", err))
		}
		timeout = m
	} else if timed, ok := d.loader.Load(classes.TimedObject); ok && timed.IsAssignableFrom(b.BeanClass) {
		if m, ok := b.BeanClass.FindPublic("ejbTimeout", classes.MustParseTypeName(classes.Timer)); ok {
			timeout = m
		}
	}
	if timeout != nil {
		if err := b.SetTimeoutMethod(timeout); err != nil {
			return WrapDeploymentError(StageBeans, ErrCodeBeanMethod, op, err)
		}
	}
	for _, s := range bi.Schedules {
		m, err := methodinfo.ResolveNamed(b.BeanClass, s.Method)
		if err != nil {
			return WrapDeploymentError(StageBeans, ErrCodeBeanMethod, op, fmt.Errorf("schedule %q: %w", s.Expression, err))
		}
		d.schedules[b] = append(d.schedules[b], m)
	}
	return nil
}
