// Package link resolves symbolic links ("Name" or "module.jar#Name") to
// values registered per module.
package link

import (
	"net/url"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Resolver maps module-qualified names to values. A full name
// ("moduleURI#name") is unique; a short name may be shared by several modules.
type Resolver[E any] struct {
	byFullName  *orderedmap.OrderedMap[string, E]
	byShortName map[string][]E
	fallback    func(link string, candidates []E) (E, bool)
}

// New returns an empty resolver.
func New[E any]() *Resolver[E] {
	return &Resolver[E]{
		byFullName:  orderedmap.New[string, E](),
		byShortName: map[string][]E{},
	}
}

// NewUniqueDefault returns a resolver that also resolves an ambiguous short
// name when every candidate is the same value, and an empty link when exactly
// one distinct value is registered.
func NewUniqueDefault[E comparable]() *Resolver[E] {
	r := New[E]()
	r.fallback = func(link string, candidates []E) (E, bool) {
		var zero E
		if link == "" {
			candidates = r.Values()
		}
		if len(candidates) == 0 {
			return zero, false
		}
		first := candidates[0]
		for _, c := range candidates[1:] {
			if c != first {
				return zero, false
			}
		}
		return first, true
	}
	return r
}

// FullName joins a module URI and a name.
func FullName(moduleURI, name string) string {
	return moduleURI + "#" + name
}

// Add registers value under moduleURI#name and under name. It reports false,
// leaving the resolver unchanged, when the full name is already taken.
func (r *Resolver[E]) Add(moduleURI, name string, value E) bool {
	full := FullName(moduleURI, name)
	if _, taken := r.byFullName.Get(full); taken {
		return false
	}
	r.byFullName.Set(full, value)
	r.byShortName[name] = append(r.byShortName[name], value)
	return true
}

// AddAll merges every entry of other.
func (r *Resolver[E]) AddAll(other *Resolver[E]) {
	for pair := other.byFullName.Oldest(); pair != nil; pair = pair.Next() {
		module, name, _ := strings.Cut(pair.Key, "#")
		r.Add(module, name, pair.Value)
	}
}

// Values returns every registered value in registration order.
func (r *Resolver[E]) Values() []E {
	out := make([]E, 0, r.byFullName.Len())
	for pair := r.byFullName.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Len is the number of full names registered.
func (r *Resolver[E]) Len() int { return r.byFullName.Len() }

// ResolveLink finds the value a link designates from within moduleURI.
//
// A plain name is looked up in moduleURI first, then by short name, which
// must be unambiguous. A qualified "path#name" link is resolved relative to
// moduleURI and needs one.
func (r *Resolver[E]) ResolveLink(link, moduleURI string) (E, bool) {
	var zero E
	if !strings.Contains(link, "#") {
		if moduleURI != "" {
			if v, ok := r.byFullName.Get(FullName(moduleURI, link)); ok {
				return v, true
			}
		}
		candidates := r.byShortName[link]
		if len(candidates) == 1 {
			return candidates[0], true
		}
		if r.fallback != nil {
			return r.fallback(link, candidates)
		}
		return zero, false
	}
	if moduleURI == "" {
		return zero, false
	}
	full, ok := ResolveURI(moduleURI, link)
	if !ok {
		return zero, false
	}
	return r.byFullName.Get(full)
}

// ResolveURI resolves ref against base with RFC 3986 reference resolution,
// keeping relative results relative ("ejb/a.jar" + "b.jar#X" is "ejb/b.jar#X").
func ResolveURI(base, ref string) (string, bool) {
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	res := b.ResolveReference(u)
	fragment := res.Fragment
	res.Fragment, res.RawFragment = "", ""

	out := res.String()
	if res.Scheme == "" && res.Host == "" {
		out = res.Path
		if !strings.HasPrefix(b.Path, "/") && !strings.HasPrefix(u.Path, "/") {
			out = strings.TrimPrefix(out, "/")
		}
	}
	if strings.Contains(ref, "#") {
		out += "#" + fragment
	}
	return out, true
}
