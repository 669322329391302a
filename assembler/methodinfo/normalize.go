package methodinfo

import (
	"slices"

	"github.com/strogmv/assembler/assembler/info"
)

// Rule is one method pattern carrying the attribute of the declaration it
// was flattened from. Seq is the position in declaration order.
type Rule[A any] struct {
	Method info.MethodInfo
	Attr   A
	Seq    int
}

func (r Rule[A]) Level() Level { return LevelOf(r.Method) }
func (r Rule[A]) View() View   { return ViewOf(r.Method) }

// Normalize flattens declarations into one rule per method pattern and
// orders them most specific first. Within the same level and view the rule
// declared later comes first.
func Normalize[A any](decls []A, methods func(A) []info.MethodInfo) []Rule[A] {
	var rules []Rule[A]
	for _, d := range decls {
		for _, mi := range methods(d) {
			rules = append(rules, Rule[A]{Method: mi, Attr: d, Seq: len(rules)})
		}
	}
	SortMostSpecificFirst(rules)
	return rules
}

// SortMostSpecificFirst stable-sorts ascending by (level, view) and reverses.
func SortMostSpecificFirst[A any](rules []Rule[A]) {
	slices.SortStableFunc(rules, func(a, b Rule[A]) int {
		if la, lb := a.Level(), b.Level(); la != lb {
			return int(la) - int(lb)
		}
		return int(a.View()) - int(b.View())
	})
	slices.Reverse(rules)
}

// NormalizeTransactions flattens transaction declarations.
func NormalizeTransactions(infos []info.MethodTransactionInfo) []Rule[info.MethodTransactionInfo] {
	return Normalize(infos, func(i info.MethodTransactionInfo) []info.MethodInfo { return i.Methods })
}

// NormalizeConcurrency flattens concurrency declarations.
func NormalizeConcurrency(infos []info.MethodConcurrencyInfo) []Rule[info.MethodConcurrencyInfo] {
	return Normalize(infos, func(i info.MethodConcurrencyInfo) []info.MethodInfo { return i.Methods })
}

// NormalizePermissions flattens permission declarations. Each resulting
// rule carries a copy of the declaration restricted to its one method.
func NormalizePermissions(infos []info.MethodPermissionInfo) []Rule[info.MethodPermissionInfo] {
	rules := Normalize(infos, func(i info.MethodPermissionInfo) []info.MethodInfo { return i.Methods })
	for i := range rules {
		p := rules[i].Attr
		p.Methods = []info.MethodInfo{rules[i].Method}
		p.RoleNames = append([]string(nil), p.RoleNames...)
		rules[i].Attr = p
	}
	return rules
}
