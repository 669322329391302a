// Package interceptor resolves, for every business method and lifecycle
// callback of a bean, the ordered chain of interceptors wrapping it.
package interceptor

import (
	"slices"

	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/info"
	"github.com/strogmv/assembler/assembler/methodinfo"
)

// Level is the scope of a binding, least specific first.
type Level int

const (
	LevelPackage Level = iota
	LevelAnnotationClass
	LevelClass
	LevelAnnotationMethod
	LevelOverloadedMethod
	LevelExactMethod
)

var levelNames = [...]string{"PACKAGE", "ANNOTATION_CLASS", "CLASS", "ANNOTATION_METHOD", "OVERLOADED_METHOD", "EXACT_METHOD"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// IsClassLevel reports bindings that apply to a whole bean.
func (l Level) IsClassLevel() bool {
	return l == LevelClass || l == LevelAnnotationClass
}

// Type orders bindings of the same level, weakest first.
type Type int

const (
	TypeAdditionOrLowerExclusion Type = iota
	TypeSameLevelExclusion
	TypeSameAndLowerExclusion
	TypeExplicitOrdering
)

var typeNames = [...]string{"ADDITION_OR_LOWER_EXCLUSION", "SAME_LEVEL_EXCLUSION", "SAME_AND_LOWER_EXCLUSION", "EXPLICIT_ORDERING"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "UNKNOWN"
}

// LevelOf classifies a binding.
func LevelOf(b info.InterceptorBindingInfo) Level {
	if b.EjbName == info.Wildcard {
		return LevelPackage
	}
	if b.Method == nil {
		if b.ClassName == "" {
			return LevelClass
		}
		return LevelAnnotationClass
	}
	if b.Method.MethodParams == nil {
		return LevelOverloadedMethod
	}
	if b.ClassName == "" {
		return LevelExactMethod
	}
	return LevelAnnotationMethod
}

// TypeOf classifies how a binding combines with others of its level.
func TypeOf(level Level, b info.InterceptorBindingInfo) Type {
	if len(b.InterceptorOrder) > 0 {
		return TypeExplicitOrdering
	}
	if level.IsClassLevel() && b.ExcludeClassInterceptors && b.ExcludeDefaultInterceptors {
		return TypeSameAndLowerExclusion
	}
	if level.IsClassLevel() && b.ExcludeClassInterceptors {
		return TypeSameLevelExclusion
	}
	return TypeAdditionOrLowerExclusion
}

// SortBindings returns bindings most specific first: a stable ascending sort
// by (level, type), reversed.
func SortBindings(bindings []info.InterceptorBindingInfo) []info.InterceptorBindingInfo {
	out := append([]info.InterceptorBindingInfo(nil), bindings...)
	slices.SortStableFunc(out, func(a, b info.InterceptorBindingInfo) int {
		la, lb := LevelOf(a), LevelOf(b)
		if la != lb {
			return int(la) - int(lb)
		}
		return int(TypeOf(la, a)) - int(TypeOf(lb, b))
	})
	slices.Reverse(out)
	return out
}

// implies reports whether a binding applies to method of bean ejbName. A nil
// method stands for the lifecycle callbacks, which only class and package
// bindings reach.
func implies(method *classes.Method, ejbName string, level Level, b info.InterceptorBindingInfo) bool {
	if level == LevelPackage {
		return true
	}
	if ejbName != b.EjbName {
		return false
	}
	if level.IsClassLevel() {
		return true
	}
	if method == nil {
		return false
	}
	return methodinfo.MatchesNamed(method, b.Method)
}

// ProcessBindings walks bindings (most specific first) and returns the ones
// that apply to method, most specific first.
//
// An explicit ordering ends the walk unless its level was excluded. A class
// binding excluding class and default interceptors ends the walk. A class
// binding excluding only class interceptors excludes its own level. Every
// other binding is kept unless its level was excluded, and may exclude lower
// levels for the rest of the walk.
func ProcessBindings(method *classes.Method, ejbName string, bindings []info.InterceptorBindingInfo) []info.InterceptorBindingInfo {
	var out []info.InterceptorBindingInfo
	excludes := map[Level]bool{}
	for _, b := range bindings {
		level := LevelOf(b)
		if !implies(method, ejbName, level, b) {
			continue
		}
		typ := TypeOf(level, b)

		if typ == TypeExplicitOrdering && !excludes[level] {
			return append(out, b)
		}
		if typ == TypeSameAndLowerExclusion {
			return out
		}
		if typ == TypeSameLevelExclusion {
			excludes[level] = true
		}
		if !excludes[level] {
			out = append(out, b)
		}
		if b.ExcludeClassInterceptors {
			excludes[LevelClass] = true
			excludes[LevelAnnotationClass] = true
		}
		if b.ExcludeDefaultInterceptors {
			excludes[LevelPackage] = true
		}
	}
	return out
}
