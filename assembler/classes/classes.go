// Package classes is the method table the assembler resolves descriptors
// against. Classes are defined once from descriptor class definitions and
// linked into a hierarchy; lookups report found/not-found instead of failing.
package classes

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrClassNotFound  = errors.New("class not found")
	ErrDuplicateClass = errors.New("class already defined")
	ErrMalformedType  = errors.New("malformed type name")
)

// Modifier is a bit set of method modifiers.
type Modifier uint8

const (
	Public Modifier = 1 << iota
	Private
	Protected
	Static
	Final
	Abstract
)

var modifierNames = map[string]Modifier{
	"public":    Public,
	"private":   Private,
	"protected": Protected,
	"static":    Static,
	"final":     Final,
	"abstract":  Abstract,
}

// ParseModifiers turns descriptor keywords into a Modifier set. A method with
// no access keyword is public.
func ParseModifiers(words []string) (Modifier, error) {
	var m Modifier
	for _, w := range words {
		bit, ok := modifierNames[strings.ToLower(strings.TrimSpace(w))]
		if !ok {
			return 0, fmt.Errorf("unknown modifier %q", w)
		}
		m |= bit
	}
	if m&(Public|Private|Protected) == 0 {
		m |= Public
	}
	return m, nil
}

// Method is a stable handle for one declared method.
type Method struct {
	Name      string
	Params    []TypeName
	Returns   TypeName
	Modifiers Modifier
	Declaring *Class
}

func (m *Method) IsPublic() bool  { return m.Modifiers&Public != 0 }
func (m *Method) IsPrivate() bool { return m.Modifiers&Private != 0 }
func (m *Method) IsStatic() bool  { return m.Modifiers&Static != 0 }

// SameSignature reports name and parameter type equality.
func (m *Method) SameSignature(other *Method) bool {
	if m.Name != other.Name || len(m.Params) != len(other.Params) {
		return false
	}
	for i := range m.Params {
		if m.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}

// HasParams reports whether the parameter list equals params exactly.
func (m *Method) HasParams(params ...TypeName) bool {
	if len(m.Params) != len(params) {
		return false
	}
	for i := range params {
		if m.Params[i] != params[i] {
			return false
		}
	}
	return true
}

// Signature is "name(p1, p2)" with canonical parameter names.
func (m *Method) Signature() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = p.String()
	}
	return m.Name + "(" + strings.Join(parts, ", ") + ")"
}

// ID identifies the method across the whole table.
func (m *Method) ID() string {
	if m.Declaring == nil {
		return m.Signature()
	}
	return m.Declaring.Name + "." + m.Signature()
}

func (m *Method) String() string { return m.ID() }

// Class is one linked entry of the table.
type Class struct {
	Name       string
	Interface  bool
	Super      *Class
	Interfaces []*Class

	superName      string
	interfaceNames []string
	declared       []*Method
	linked         bool
}

func (c *Class) SimpleName() string  { return SimpleName(c.Name) }
func (c *Class) PackageName() string { return PackageName(c.Name) }
func (c *Class) String() string      { return c.Name }

// DeclaredMethods returns methods declared directly on c, in definition order.
func (c *Class) DeclaredMethods() []*Method {
	out := make([]*Method, len(c.declared))
	copy(out, c.declared)
	return out
}

// Hierarchy returns c followed by its superclasses, stopping before java.lang.Object.
func (c *Class) Hierarchy() []*Class {
	var out []*Class
	for k := c; k != nil && k.Name != ObjectClass; k = k.Super {
		out = append(out, k)
	}
	return out
}

// Methods returns the public method surface: declared and inherited public
// methods of the class chain followed by those of every implemented
// interface. Overridden duplicates are dropped, the most derived wins.
func (c *Class) Methods() []*Method {
	var out []*Method
	add := func(m *Method) {
		if !m.IsPublic() {
			return
		}
		for _, have := range out {
			if have.SameSignature(m) {
				return
			}
		}
		out = append(out, m)
	}
	for k := c; k != nil; k = k.Super {
		for _, m := range k.declared {
			add(m)
		}
	}
	for _, intf := range c.allInterfaces() {
		for _, m := range intf.declared {
			add(m)
		}
	}
	return out
}

func (c *Class) allInterfaces() []*Class {
	var out []*Class
	seen := map[*Class]bool{}
	var walk func(k *Class)
	walk = func(k *Class) {
		for _, intf := range k.Interfaces {
			if seen[intf] {
				continue
			}
			seen[intf] = true
			out = append(out, intf)
			walk(intf)
		}
	}
	for k := c; k != nil; k = k.Super {
		walk(k)
	}
	return out
}

// FindDeclared looks for a declared method with the exact parameter list,
// starting at c and walking up the superclass chain. Private methods are
// eligible.
func (c *Class) FindDeclared(name string, params ...TypeName) (*Method, bool) {
	for k := c; k != nil; k = k.Super {
		for _, m := range k.declared {
			if m.Name == name && m.HasParams(params...) {
				return m, true
			}
		}
	}
	return nil, false
}

// FindPublic looks a method up on the public surface.
func (c *Class) FindPublic(name string, params ...TypeName) (*Method, bool) {
	for _, m := range c.Methods() {
		if m.Name == name && m.HasParams(params...) {
			return m, true
		}
	}
	return nil, false
}

// IsAssignableFrom reports whether other is c or a subtype of c.
func (c *Class) IsAssignableFrom(other *Class) bool {
	if other == nil {
		return false
	}
	if c.Name == ObjectClass && !other.Interface {
		return true
	}
	for k := other; k != nil; k = k.Super {
		if k == c {
			return true
		}
	}
	for _, intf := range other.allInterfaces() {
		if intf == c {
			return true
		}
	}
	return false
}

// Definition is the descriptor form of a class.
type Definition struct {
	Name       string             `json:"name" validate:"required"`
	Super      string             `json:"super,omitempty"`
	Interface  bool               `json:"interface,omitempty"`
	Interfaces []string           `json:"interfaces,omitempty"`
	Methods    []MethodDefinition `json:"methods,omitempty" validate:"dive"`
}

// MethodDefinition is the descriptor form of a method.
type MethodDefinition struct {
	Name      string   `json:"name" validate:"required"`
	Params    []string `json:"params,omitempty"`
	Returns   string   `json:"returns,omitempty"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// Loader holds defined classes and delegates misses to its parent.
type Loader struct {
	parent  *Loader
	mu      sync.RWMutex
	classes map[string]*Class
	order   []string
}

func NewLoader(parent *Loader) *Loader {
	return &Loader{parent: parent, classes: map[string]*Class{}}
}

// Parent returns the delegation parent, nil for the system loader.
func (l *Loader) Parent() *Loader { return l.parent }

// Define registers a class. Links to other classes are resolved by Link.
func (l *Loader) Define(def Definition) (*Class, error) {
	if !validBinaryName(def.Name) {
		return nil, fmt.Errorf("define %q: %w", def.Name, ErrMalformedType)
	}
	if _, ok := l.Load(def.Name); ok {
		return nil, fmt.Errorf("define %s: %w", def.Name, ErrDuplicateClass)
	}
	c := &Class{
		Name:           def.Name,
		Interface:      def.Interface,
		superName:      def.Super,
		interfaceNames: append([]string(nil), def.Interfaces...),
	}
	if c.superName == "" && !c.Interface && c.Name != ObjectClass {
		c.superName = ObjectClass
	}
	for _, md := range def.Methods {
		m, err := buildMethod(c, md)
		if err != nil {
			return nil, fmt.Errorf("define %s: %w", def.Name, err)
		}
		for _, have := range c.declared {
			if have.SameSignature(m) {
				return nil, fmt.Errorf("define %s: duplicate method %s", def.Name, m.Signature())
			}
		}
		c.declared = append(c.declared, m)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.classes[c.Name]; ok {
		return nil, fmt.Errorf("define %s: %w", def.Name, ErrDuplicateClass)
	}
	l.classes[c.Name] = c
	l.order = append(l.order, c.Name)
	return c, nil
}

func buildMethod(owner *Class, md MethodDefinition) (*Method, error) {
	mods, err := ParseModifiers(md.Modifiers)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", md.Name, err)
	}
	m := &Method{Name: md.Name, Modifiers: mods, Declaring: owner}
	for _, raw := range md.Params {
		t, ok := ParseTypeName(raw)
		if !ok {
			return nil, fmt.Errorf("method %s param %q: %w", md.Name, raw, ErrMalformedType)
		}
		m.Params = append(m.Params, t)
	}
	ret := md.Returns
	if ret == "" {
		ret = "void"
	}
	if ret == "void" {
		m.Returns = TypeName{Component: "void"}
	} else if t, ok := ParseTypeName(ret); ok {
		m.Returns = t
	} else {
		return nil, fmt.Errorf("method %s returns %q: %w", md.Name, ret, ErrMalformedType)
	}
	return m, nil
}

// Link resolves superclass and interface references of every class defined
// on this loader.
func (l *Loader) Link() error {
	l.mu.RLock()
	pending := make([]*Class, 0, len(l.order))
	for _, name := range l.order {
		if c := l.classes[name]; !c.linked {
			pending = append(pending, c)
		}
	}
	l.mu.RUnlock()

	var errs []error
	for _, c := range pending {
		if c.superName != "" {
			super, ok := l.Load(c.superName)
			if !ok {
				errs = append(errs, fmt.Errorf("%s extends %s: %w", c.Name, c.superName, ErrClassNotFound))
				continue
			}
			if super.Interface {
				errs = append(errs, fmt.Errorf("%s extends interface %s", c.Name, super.Name))
				continue
			}
			c.Super = super
		}
		c.Interfaces = c.Interfaces[:0]
		for _, name := range c.interfaceNames {
			intf, ok := l.Load(name)
			if !ok {
				errs = append(errs, fmt.Errorf("%s implements %s: %w", c.Name, name, ErrClassNotFound))
				continue
			}
			c.Interfaces = append(c.Interfaces, intf)
		}
		c.linked = true
	}
	for _, c := range pending {
		if c.Super != nil && cyclic(c) {
			errs = append(errs, fmt.Errorf("%s: cyclic inheritance", c.Name))
		}
	}
	return errors.Join(errs...)
}

func cyclic(c *Class) bool {
	seen := map[*Class]bool{}
	for k := c; k != nil; k = k.Super {
		if seen[k] {
			return true
		}
		seen[k] = true
	}
	return false
}

// Load finds a class on this loader or one of its parents.
func (l *Loader) Load(name string) (*Class, bool) {
	if l.parent != nil {
		if c, ok := l.parent.Load(name); ok {
			return c, true
		}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.classes[name]
	return c, ok
}

// MustLoad is Load for names that are known to be present.
func (l *Loader) MustLoad(name string) *Class {
	c, ok := l.Load(name)
	if !ok {
		panic(fmt.Sprintf("classes: %s not defined", name))
	}
	return c
}

// Classes lists classes defined directly on this loader in definition order.
func (l *Loader) Classes() []*Class {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Class, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.classes[name])
	}
	return out
}
