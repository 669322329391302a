package methodinfo

import (
	"fmt"

	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/diag"
	"github.com/strogmv/assembler/assembler/info"
)

// ViewMethod keys an attribute by interface view and bean method. View is
// deployment.AnyView for patterns without methodIntf; interface methods are
// keyed by the bean method implementing them.
type ViewMethod struct {
	View   string
	Method *classes.Method
}

func (vm ViewMethod) String() string {
	view := vm.View
	if view == "" {
		view = info.Wildcard
	}
	return fmt.Sprintf("%s : %s", view, vm.Method.Signature())
}

// Resolved is the winning rule for one key.
type Resolved[A any] struct {
	ViewMethod
	Rule Rule[A]
}

// ResolveViewAttributes assigns every (view, method) reachable by a rule the
// attribute of the most specific rule matching it. Rules must already be
// ordered by Normalize. Rules that name this bean explicitly but match no
// method are reported to warn.
func ResolveViewAttributes[A any](rules []Rule[A], b *deployment.BeanContext, warn diag.Sink) []Resolved[A] {
	return resolve(rules, b, warn, true)
}

// ResolveAttributes is ResolveViewAttributes keyed by method only.
func ResolveAttributes[A any](rules []Rule[A], b *deployment.BeanContext, warn diag.Sink) []Resolved[A] {
	return resolve(rules, b, warn, false)
}

func resolve[A any](rules []Rule[A], b *deployment.BeanContext, warn diag.Sink, byView bool) []Resolved[A] {
	wildcard := WildcardView(b)
	seen := map[ViewMethod]bool{}
	var out []Resolved[A]
	for _, r := range rules {
		if !AppliesTo(r.Method, b) {
			continue
		}
		matched := candidates(r.Method, b, wildcard)
		if len(matched) == 0 && r.Method.EjbName == b.EjbName {
			warn.Emit(diag.Warning{
				Kind:     "method",
				Code:     diag.CodeUnmatchedMethodRule,
				Severity: "warn",
				Bean:     b.DeploymentID,
				Message:  fmt.Sprintf("method pattern %s matches no method of %s", r.Method, b.EjbName),
			})
			continue
		}
		for _, m := range matched {
			key := ViewMethod{Method: b.MatchingBeanMethod(m)}
			if byView {
				key.View = normalizedIntf(r.Method.MethodIntf)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Resolved[A]{ViewMethod: key, Rule: r})
		}
	}
	return out
}

// MatchingRules lists, most specific first, every rule that touches m on
// bean b. The first entry is the one resolution picks for the rule's view.
func MatchingRules[A any](rules []Rule[A], b *deployment.BeanContext, m *classes.Method) []Rule[A] {
	wildcard := WildcardView(b)
	target := b.MatchingBeanMethod(m)
	var out []Rule[A]
	for _, r := range rules {
		if !AppliesTo(r.Method, b) {
			continue
		}
		for _, c := range candidates(r.Method, b, wildcard) {
			if b.MatchingBeanMethod(c) == target {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// ResolveNamed finds the bean-class method a NamedMethodInfo designates.
// A pattern without params must be unambiguous.
func ResolveNamed(class *classes.Class, nmi info.NamedMethodInfo) (*classes.Method, error) {
	if class == nil {
		return nil, fmt.Errorf("method %s: no class", nmi)
	}
	var found []*classes.Method
	for _, k := range class.Hierarchy() {
		if nmi.ClassName != "" && nmi.ClassName != k.Name {
			continue
		}
		for _, m := range k.DeclaredMethods() {
			if Matches(m, nmi.MethodName, nmi.MethodParams) {
				found = append(found, m)
			}
		}
		if len(found) > 0 {
			break
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("method %s does not exist on %s", nmi, class.Name)
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("method %s is ambiguous on %s: %d overloads", nmi, class.Name, len(found))
}
