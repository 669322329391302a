// Package methodinfo matches declarative method patterns against a bean's
// method table and resolves per-method attributes by specificity.
package methodinfo

import (
	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/info"
)

// Level is the specificity of a method pattern, least specific first.
type Level int

const (
	LevelPackage Level = iota
	LevelBean
	LevelOverloadedMethod
	LevelExactMethod
)

func (l Level) String() string {
	switch l {
	case LevelPackage:
		return "PACKAGE"
	case LevelBean:
		return "BEAN"
	case LevelOverloadedMethod:
		return "OVERLOADED_METHOD"
	case LevelExactMethod:
		return "EXACT_METHOD"
	}
	return "UNKNOWN"
}

// View is the secondary sort key of a method pattern.
type View int

const (
	ViewClass View = iota
	ViewAny
	ViewInterface
)

func (v View) String() string {
	switch v {
	case ViewClass:
		return "CLASS"
	case ViewAny:
		return "ANY"
	case ViewInterface:
		return "INTERFACE"
	}
	return "UNKNOWN"
}

// LevelOf classifies a pattern.
func LevelOf(mi info.MethodInfo) Level {
	if mi.EjbName == info.Wildcard {
		return LevelPackage
	}
	if mi.MethodName == info.Wildcard {
		return LevelBean
	}
	if mi.MethodParams == nil {
		return LevelOverloadedMethod
	}
	return LevelExactMethod
}

// ViewOf classifies the view restriction of a pattern.
func ViewOf(mi info.MethodInfo) View {
	if mi.ClassName != "" && mi.ClassName != info.Wildcard {
		return ViewClass
	}
	if intf := normalizedIntf(mi.MethodIntf); intf != "" {
		return ViewInterface
	}
	return ViewAny
}

func normalizedIntf(intf string) string {
	if intf == info.Wildcard {
		return ""
	}
	return intf
}

// Matches reports whether m has the given name and, when params is non-nil,
// the given parameter types. Each param may be written in canonical form
// ("java.lang.String[]", nested classes with dots) or as the runtime name
// ("[Ljava.lang.String;", "a.Outer$Inner").
func Matches(m *classes.Method, name string, params []string) bool {
	if m.Name != name {
		return false
	}
	if params == nil {
		return true
	}
	if len(params) != len(m.Params) {
		return false
	}
	for i, p := range m.Params {
		want := params[i]
		if want != p.SourceName() && want != p.JVMName() {
			return false
		}
	}
	return true
}

// MatchesInfo is Matches for a MethodInfo pattern.
func MatchesInfo(m *classes.Method, mi info.MethodInfo) bool {
	return Matches(m, mi.MethodName, mi.MethodParams)
}

// MatchesNamed is Matches for a NamedMethodInfo.
func MatchesNamed(m *classes.Method, nmi *info.NamedMethodInfo) bool {
	if nmi == nil {
		return false
	}
	return Matches(m, nmi.MethodName, nmi.MethodParams)
}

// MatchingMethods filters methods by the pattern's level, then by its class
// restriction.
func MatchingMethods(mi info.MethodInfo, methods []*classes.Method) []*classes.Method {
	var out []*classes.Method
	level := LevelOf(mi)
	for _, m := range methods {
		switch level {
		case LevelOverloadedMethod, LevelExactMethod:
			if !MatchesInfo(m, mi) {
				continue
			}
		}
		if ViewOf(mi) == ViewClass && (m.Declaring == nil || m.Declaring.Name != mi.ClassName) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// WildcardView is the method surface a pattern without methodIntf applies to:
// the bean's public methods plus every view-interface method the bean class
// does not itself expose, minus container housekeeping methods.
func WildcardView(b *deployment.BeanContext) []*classes.Method {
	var beanMethods []*classes.Method
	if b.BeanClass != nil {
		beanMethods = b.BeanClass.Methods()
	}
	out := append([]*classes.Method(nil), beanMethods...)
	for _, view := range b.Views() {
		out = append(out, exclude(beanMethods, view.Methods())...)
	}
	return removeContainerMethods(out)
}

func exclude(excludes, methods []*classes.Method) []*classes.Method {
	var out []*classes.Method
	for _, m := range methods {
		found := false
		for _, x := range excludes {
			if x.SameSignature(m) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, m)
		}
	}
	return out
}

func removeContainerMethods(methods []*classes.Method) []*classes.Method {
	out := methods[:0]
	for _, m := range methods {
		if !classes.IsContainerMethod(m) {
			out = append(out, m)
		}
	}
	return out
}

// InterfaceMethods returns the candidate methods of a methodIntf view.
// Remote and Local include the business interfaces of the same kind.
func InterfaceMethods(b *deployment.BeanContext, intf string) []*classes.Method {
	var views []*classes.Class
	switch intf {
	case info.IntfHome:
		views = append(views, b.Home)
	case info.IntfRemote:
		views = append(views, b.Remote)
		views = append(views, b.BusinessRemote...)
	case info.IntfLocalHome:
		views = append(views, b.LocalHome)
	case info.IntfLocal:
		views = append(views, b.Local)
		views = append(views, b.BusinessLocal...)
	case info.IntfServiceEndpoint:
		views = append(views, b.ServiceEndpoint)
	}
	var out []*classes.Method
	for _, v := range views {
		if v != nil {
			out = append(out, v.Methods()...)
		}
	}
	return out
}

// candidates returns the methods a pattern may touch on bean b.
func candidates(mi info.MethodInfo, b *deployment.BeanContext, wildcard []*classes.Method) []*classes.Method {
	intf := normalizedIntf(mi.MethodIntf)
	if intf == "" {
		return MatchingMethods(mi, wildcard)
	}
	return removeContainerMethods(MatchingMethods(mi, InterfaceMethods(b, intf)))
}

// AppliesTo reports whether the pattern's ejb name selects bean b.
func AppliesTo(mi info.MethodInfo, b *deployment.BeanContext) bool {
	return mi.EjbName == "" || mi.EjbName == info.Wildcard || mi.EjbName == b.EjbName
}
