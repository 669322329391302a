package assembler

import (
	"fmt"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/info"
	"github.com/strogmv/assembler/assembler/jndi"
)

// TransactionManager is the configured transaction service. Transactions are
// not run here; the record is what containers are wired against.
type TransactionManager struct {
	ID         string
	Service    string
	Properties info.Properties
}

// SecurityService is the configured security service.
type SecurityService struct {
	ID         string
	Service    string
	Properties info.Properties
}

// Container hosts deployments of one bean kind.
type Container struct {
	ID         string
	Type       info.ContainerType
	Properties info.Properties

	mu          sync.RWMutex
	deployments *orderedmap.OrderedMap[string, *deployment.BeanContext]
}

func newContainer(ci info.ContainerInfo) *Container {
	return &Container{
		ID:          ci.ID,
		Type:        ci.Type,
		Properties:  ci.Properties,
		deployments: orderedmap.New[string, *deployment.BeanContext](),
	}
}

// Deploy adds a bean. The bean kind must match the container type.
func (c *Container) Deploy(b *deployment.BeanContext) error {
	if b.Kind.ContainerType() != c.Type {
		return fmt.Errorf("container %s (%s) cannot host %s", c.ID, c.Type, b)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.deployments.Get(b.DeploymentID); ok {
		return fmt.Errorf("container %s: %w: %s", c.ID, ErrDuplicateDeploymentID, b.DeploymentID)
	}
	c.deployments.Set(b.DeploymentID, b)
	return nil
}

// Undeploy removes a bean; unknown ids are ignored.
func (c *Container) Undeploy(id string) {
	c.mu.Lock()
	c.deployments.Delete(id)
	c.mu.Unlock()
}

// Deployments lists hosted beans in deploy order.
func (c *Container) Deployments() []*deployment.BeanContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*deployment.BeanContext, 0, c.deployments.Len())
	for pair := c.deployments.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// ContainerSystem is the live result of assembly: containers, deployments
// and the naming contexts they are published in.
type ContainerSystem struct {
	mu          sync.RWMutex
	containers  *orderedmap.OrderedMap[string, *Container]
	deployments *orderedmap.OrderedMap[string, *deployment.BeanContext]

	ctx    *jndi.Context
	global *jndi.Context

	TransactionManager *TransactionManager
	SecurityService    *SecurityService
}

func NewContainerSystem() *ContainerSystem {
	return &ContainerSystem{
		containers:  orderedmap.New[string, *Container](),
		deployments: orderedmap.New[string, *deployment.BeanContext](),
		ctx:         jndi.NewContext(),
		global:      jndi.NewContext(),
	}
}

// JNDIContext is the openejb naming context.
func (s *ContainerSystem) JNDIContext() *jndi.Context { return s.ctx }

// GlobalContext is the java:global context shared by every application.
func (s *ContainerSystem) GlobalContext() *jndi.Context { return s.global }

// AddContainer registers a container; ids are unique.
func (s *ContainerSystem) AddContainer(c *Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers.Get(c.ID); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateContainer, c.ID)
	}
	s.containers.Set(c.ID, c)
	return nil
}

// RemoveContainer drops an empty container. It reports false when the
// container is unknown or still hosts deployments.
func (s *ContainerSystem) RemoveContainer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers.Get(id)
	if !ok || len(c.Deployments()) > 0 {
		return false
	}
	s.containers.Delete(id)
	return true
}

func (s *ContainerSystem) Container(id string) (*Container, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.containers.Get(id)
}

// Containers lists containers in creation order.
func (s *ContainerSystem) Containers() []*Container {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Container, 0, s.containers.Len())
	for pair := s.containers.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// ContainerFor returns the container a bean is deployed to: the one it
// names, or the first container able to host its kind.
func (s *ContainerSystem) ContainerFor(id string, kind info.BeanKind) (*Container, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id != "" {
		return s.containers.Get(id)
	}
	want := kind.ContainerType()
	for pair := s.containers.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Type == want {
			return pair.Value, true
		}
	}
	return nil, false
}

// AddDeployment registers a bean under its deployment id.
func (s *ContainerSystem) AddDeployment(b *deployment.BeanContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deployments.Get(b.DeploymentID); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateDeploymentID, b.DeploymentID)
	}
	s.deployments.Set(b.DeploymentID, b)
	return nil
}

// RemoveDeployment unregisters a bean.
func (s *ContainerSystem) RemoveDeployment(id string) {
	s.mu.Lock()
	s.deployments.Delete(id)
	s.mu.Unlock()
}

// Deployment finds a bean by deployment id.
func (s *ContainerSystem) Deployment(id string) (*deployment.BeanContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deployments.Get(id)
}

// Deployments lists beans in deploy order.
func (s *ContainerSystem) Deployments() []*deployment.BeanContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*deployment.BeanContext, 0, s.deployments.Len())
	for pair := s.deployments.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}
