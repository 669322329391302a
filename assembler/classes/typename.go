package classes

import (
	"fmt"
	"strings"
)

// ObjectClass is the root of every class hierarchy.
const ObjectClass = "java.lang.Object"

var primitives = map[string]string{
	"int":     "I",
	"double":  "D",
	"long":    "J",
	"boolean": "Z",
	"float":   "F",
	"char":    "C",
	"short":   "S",
	"byte":    "B",
}

// TypeName is a parsed parameter or return type.
type TypeName struct {
	// Component is the binary name of the element type, e.g. "a.b.Outer$Inner" or "int".
	Component string
	Dims      int
}

// IsPrimitive reports whether the element type is a primitive.
func (t TypeName) IsPrimitive() bool {
	_, ok := primitives[t.Component]
	return ok
}

// String returns the canonical "Component[]" form.
func (t TypeName) String() string {
	return t.Component + strings.Repeat("[]", t.Dims)
}

// SourceName is the canonical form with nested-class separators written as dots.
func (t TypeName) SourceName() string {
	return strings.ReplaceAll(t.String(), "$", ".")
}

// JVMName is the name a runtime reports for the type: plain binary name for
// non-arrays, descriptor form ("[I", "[Ljava.lang.String;") for arrays.
func (t TypeName) JVMName() string {
	if t.Dims == 0 {
		return t.Component
	}
	prefix := strings.Repeat("[", t.Dims)
	if code, ok := primitives[t.Component]; ok {
		return prefix + code
	}
	return prefix + "L" + t.Component + ";"
}

// ParseTypeName accepts canonical ("java.lang.String[]") and descriptor
// ("[Ljava.lang.String;") spellings. The bool result is false for names
// that cannot denote a type.
func ParseTypeName(raw string) (TypeName, bool) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return TypeName{}, false
	}
	if strings.HasPrefix(name, "[") {
		return parseDescriptor(name)
	}
	dims := 0
	for strings.HasSuffix(name, "[]") {
		dims++
		name = strings.TrimSuffix(name, "[]")
	}
	if !validBinaryName(name) {
		return TypeName{}, false
	}
	return TypeName{Component: name, Dims: dims}, true
}

func parseDescriptor(name string) (TypeName, bool) {
	dims := 0
	for dims < len(name) && name[dims] == '[' {
		dims++
	}
	rest := name[dims:]
	if len(rest) == 1 {
		for prim, code := range primitives {
			if code == rest {
				return TypeName{Component: prim, Dims: dims}, true
			}
		}
		return TypeName{}, false
	}
	if !strings.HasPrefix(rest, "L") || !strings.HasSuffix(rest, ";") {
		return TypeName{}, false
	}
	component := rest[1 : len(rest)-1]
	if !validBinaryName(component) {
		return TypeName{}, false
	}
	return TypeName{Component: component, Dims: dims}, true
}

func validBinaryName(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return false
		}
		for i, r := range part {
			switch {
			case r == '_' || r == '$':
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9':
				if i == 0 {
					return false
				}
			default:
				return false
			}
		}
	}
	return true
}

// MustParseTypeName panics on malformed names; used for built-in tables.
func MustParseTypeName(raw string) TypeName {
	t, ok := ParseTypeName(raw)
	if !ok {
		panic(fmt.Sprintf("classes: malformed type name %q", raw))
	}
	return t
}

// SimpleName returns the last segment of a binary class name.
func SimpleName(name string) string {
	if i := strings.LastIndexAny(name, ".$"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// PackageName returns everything before the last dot, or "" for the default package.
func PackageName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return ""
}
