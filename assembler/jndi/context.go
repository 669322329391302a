// Package jndi computes and binds the names under which deployed beans are
// published.
package jndi

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	ErrNameAlreadyBound = errors.New("name already bound")
	ErrNameNotFound     = errors.New("name not found")
	ErrInvalidName      = errors.New("invalid name")
)

// Context is a flat, hierarchical-by-convention naming tree. It is safe for
// concurrent use.
type Context struct {
	mu      sync.RWMutex
	entries *orderedmap.OrderedMap[string, any]
}

func NewContext() *Context {
	return &Context{entries: orderedmap.New[string, any]()}
}

func normalize(name string) (string, error) {
	n := strings.Trim(strings.TrimPrefix(name, "java:"), "/")
	if n == "" || strings.Contains(n, "//") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return n, nil
}

// Bind binds value under name. An existing binding is left untouched.
func (c *Context) Bind(name string, value any) error {
	n, err := normalize(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries.Get(n); ok {
		return fmt.Errorf("%w: %s", ErrNameAlreadyBound, n)
	}
	c.entries.Set(n, value)
	return nil
}

// Rebind binds value under name, replacing any existing binding.
func (c *Context) Rebind(name string, value any) error {
	n, err := normalize(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries.Set(n, value)
	c.mu.Unlock()
	return nil
}

// Lookup returns the value bound under name. A LinkRef is followed.
func (c *Context) Lookup(name string) (any, error) {
	seen := map[string]bool{}
	for {
		n, err := normalize(name)
		if err != nil {
			return nil, err
		}
		c.mu.RLock()
		v, ok := c.entries.Get(n)
		c.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNameNotFound, n)
		}
		link, isLink := v.(LinkRef)
		if !isLink {
			return v, nil
		}
		if seen[n] {
			return nil, fmt.Errorf("%w: link cycle at %s", ErrInvalidName, n)
		}
		seen[n] = true
		name = link.Name
	}
}

// Unbind removes name.
func (c *Context) Unbind(name string) error {
	n, err := normalize(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries.Delete(n); !ok {
		return fmt.Errorf("%w: %s", ErrNameNotFound, n)
	}
	return nil
}

// List returns every bound name below prefix, sorted. An empty prefix lists
// everything.
func (c *Context) List(prefix string) []string {
	p := strings.Trim(prefix, "/")
	if p != "" {
		p += "/"
	}
	c.mu.RLock()
	var out []string
	for pair := c.entries.Oldest(); pair != nil; pair = pair.Next() {
		if strings.HasPrefix(pair.Key, p) {
			out = append(out, pair.Key)
		}
	}
	c.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Len is the number of bindings.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.Len()
}

// Ref is the value bound for a bean view.
type Ref struct {
	DeploymentID string        `json:"deploymentId"`
	Interface    string        `json:"interface,omitempty"`
	Type         InterfaceType `json:"type"`
}

func (r Ref) String() string {
	return fmt.Sprintf("Ejb(deployment-id=%s, %s %s)", r.DeploymentID, r.Type, r.Interface)
}

// LinkRef points at another name of the same context.
type LinkRef struct {
	Name string `json:"name"`
}
