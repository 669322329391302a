package jndi

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// ErrTemplateKey reports a placeholder with no value.
var ErrTemplateKey = errors.New("template key has no value")

var placeholder = regexp.MustCompile(`\{([\w.]+)\}`)

// Template substitutes {key} placeholders. A key ending in .lc, .uc or .cc
// takes the value of the key without the suffix lower-cased, upper-cased or
// camel-cased.
type Template struct {
	raw string
}

func NewTemplate(raw string) Template { return Template{raw: raw} }

func (t Template) String() string { return t.raw }

// Keys lists the placeholders in order of appearance.
func (t Template) Keys() []string {
	var out []string
	for _, m := range placeholder.FindAllStringSubmatch(t.raw, -1) {
		if !slices.Contains(out, m[1]) {
			out = append(out, m[1])
		}
	}
	return out
}

// Apply renders the template. Every placeholder must have a value.
func (t Template) Apply(values map[string]string) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(t.raw, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := lookup(values, key)
		if !ok {
			missing = append(missing, key)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s in %q", ErrTemplateKey, strings.Join(missing, ", "), t.raw)
	}
	return out, nil
}

func lookup(values map[string]string, key string) (string, bool) {
	if v, ok := values[key]; ok {
		return v, true
	}
	base, suffix, found := cutSuffix(key)
	if !found {
		return "", false
	}
	v, ok := values[base]
	if !ok {
		return "", false
	}
	switch suffix {
	case "lc":
		return strings.ToLower(v), true
	case "uc":
		return strings.ToUpper(v), true
	default:
		return CamelCase(v), true
	}
}

func cutSuffix(key string) (string, string, bool) {
	i := strings.LastIndexByte(key, '.')
	if i < 0 {
		return "", "", false
	}
	switch s := strings.ToLower(key[i+1:]); s {
	case "lc", "uc", "cc":
		return key[:i], s, true
	}
	return "", "", false
}

// CamelCase joins words separated by '-', '_', '.' or spaces, capitalizing
// every word after the first: "business-local" becomes "businessLocal".
func CamelCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || unicode.IsSpace(r)
	})
	var b strings.Builder
	for i, w := range words {
		if i == 0 {
			b.WriteString(w)
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}
