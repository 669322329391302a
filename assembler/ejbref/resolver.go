// Package ejbref resolves ejb-ref and ejb-local-ref targets to deployment ids.
// Resolvers nest: an ejb-jar scope delegates to its application scope, which
// delegates to the global scope.
package ejbref

import (
	"sync"

	"github.com/strogmv/assembler/assembler/info"
	"github.com/strogmv/assembler/assembler/link"
)

// Scope is the visibility level of a resolver.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeEAR
	ScopeEJBJar
)

func (s Scope) String() string {
	switch s {
	case ScopeGlobal:
		return "GLOBAL"
	case ScopeEAR:
		return "EAR"
	case ScopeEJBJar:
		return "EJBJAR"
	}
	return "UNKNOWN"
}

// Reference is what resolution needs from an environment reference.
type Reference interface {
	Name() string
	EjbLink() string
	Home() string
	Interface() string
	MappedName() string
	RefType() info.RefType
}

// FromInfo adapts a descriptor reference.
func FromInfo(ref info.EjbReferenceInfo) Reference { return infoRef{ref} }

type infoRef struct{ ref info.EjbReferenceInfo }

func (r infoRef) Name() string          { return r.ref.ReferenceName }
func (r infoRef) EjbLink() string       { return r.ref.Link }
func (r infoRef) Home() string          { return r.ref.Home }
func (r infoRef) Interface() string     { return r.ref.Interface }
func (r infoRef) MappedName() string    { return r.ref.MappedName }
func (r infoRef) RefType() info.RefType { return r.ref.Type }

// Interfaces keys the interface indexes. Home is empty for business and
// component interfaces indexed on their own.
type Interfaces struct {
	Home   string
	Object string
}

// Deployment is an indexed bean.
type Deployment struct {
	Bean      *info.EnterpriseBeanInfo
	ModuleURI string
	Scope     Scope
}

// Resolver indexes beans of one scope.
type Resolver struct {
	parent *Resolver
	scope  Scope

	mu          sync.RWMutex
	deployments map[string]Deployment
	links       *link.Resolver[string]
	remote      map[Interfaces]string
	local       map[Interfaces]string
}

// New creates a resolver for scope and indexes jars into it.
func New(parent *Resolver, scope Scope, jars ...*info.EjbJarInfo) *Resolver {
	r := &Resolver{
		parent:      parent,
		scope:       scope,
		deployments: map[string]Deployment{},
		links:       link.New[string](),
		remote:      map[Interfaces]string{},
		local:       map[Interfaces]string{},
	}
	r.AddAll(jars...)
	return r
}

// Parent returns the enclosing scope, nil for the global resolver.
func (r *Resolver) Parent() *Resolver { return r.parent }

// Scope returns this resolver's level.
func (r *Resolver) Scope() Scope { return r.scope }

// AddAll indexes every bean of every jar.
func (r *Resolver) AddAll(jars ...*info.EjbJarInfo) {
	for _, jar := range jars {
		r.Add(jar)
	}
}

// Add indexes the beans of one jar. The first bean indexed under a key keeps it.
func (r *Resolver) Add(jar *info.EjbJarInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uri := jar.URI()
	for i := range jar.EnterpriseBeans {
		bean := &jar.EnterpriseBeans[i]
		id := bean.DeploymentID()
		if _, ok := r.deployments[id]; !ok {
			r.deployments[id] = Deployment{Bean: bean, ModuleURI: uri, Scope: r.scope}
		}
		r.links.Add(uri, bean.EjbName, id)

		if bean.Kind == info.MessageDriven {
			continue
		}
		if bean.Remote != "" {
			putIfAbsent(r.remote, Interfaces{Home: bean.Home, Object: bean.Remote}, id)
			putIfAbsent(r.remote, Interfaces{Object: bean.Remote}, id)
		}
		for _, intf := range bean.BusinessRemote {
			putIfAbsent(r.remote, Interfaces{Object: intf}, id)
		}
		if bean.Local != "" {
			putIfAbsent(r.local, Interfaces{Home: bean.LocalHome, Object: bean.Local}, id)
			putIfAbsent(r.local, Interfaces{Object: bean.Local}, id)
		}
		for _, intf := range bean.BusinessLocal {
			putIfAbsent(r.local, Interfaces{Object: intf}, id)
		}
		if bean.LocalBean {
			putIfAbsent(r.local, Interfaces{Object: bean.EjbClass}, id)
		}
	}
}

func putIfAbsent(m map[Interfaces]string, k Interfaces, id string) {
	if _, ok := m[k]; !ok {
		m[k] = id
	}
}

// Resolve returns the deployment id ref designates from within moduleURI,
// or "" when it cannot be resolved.
//
// A mapped name always wins. Otherwise a link is resolved in this scope and
// then in enclosing ones. A reference without a link is matched on its
// interfaces.
func (r *Resolver) Resolve(ref Reference, moduleURI string) string {
	if mapped := ref.MappedName(); mapped != "" {
		return mapped
	}
	if l := ref.EjbLink(); l != "" {
		return r.resolveLink(l, moduleURI)
	}
	return r.resolveInterface(ref)
}

func (r *Resolver) resolveLink(l, moduleURI string) string {
	for s := r; s != nil; s = s.parent {
		s.mu.RLock()
		id, ok := s.links.ResolveLink(l, moduleURI)
		s.mu.RUnlock()
		if ok {
			return id
		}
	}
	return ""
}

func (r *Resolver) resolveInterface(ref Reference) string {
	key := Interfaces{Home: ref.Home(), Object: ref.Interface()}
	if key.Object == "" {
		return ""
	}
	for s := r; s != nil; s = s.parent {
		s.mu.RLock()
		var id string
		if ref.RefType() == info.RefLocal {
			id = first(s.local, s.remote, key)
		} else {
			id = first(s.remote, s.local, key)
		}
		s.mu.RUnlock()
		if id != "" {
			return id
		}
	}
	return ""
}

func first(a, b map[Interfaces]string, key Interfaces) string {
	if id, ok := a[key]; ok {
		return id
	}
	return b[key]
}

// Deployment finds an indexed bean in this scope or an enclosing one.
func (r *Resolver) Deployment(id string) (Deployment, bool) {
	for s := r; s != nil; s = s.parent {
		s.mu.RLock()
		d, ok := s.deployments[id]
		s.mu.RUnlock()
		if ok {
			return d, true
		}
	}
	return Deployment{}, false
}

// ScopeOf reports the scope that indexed id.
func (r *Resolver) ScopeOf(id string) (Scope, bool) {
	d, ok := r.Deployment(id)
	return d.Scope, ok
}

// IsLocal reports whether id is reachable through a local interface of
// the given class.
func (r *Resolver) IsLocal(id, intf string) bool {
	for s := r; s != nil; s = s.parent {
		s.mu.RLock()
		got, ok := s.local[Interfaces{Object: intf}]
		s.mu.RUnlock()
		if ok {
			return got == id
		}
	}
	return false
}

// Len is the number of beans indexed in this scope.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.deployments)
}
