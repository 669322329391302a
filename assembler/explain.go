package assembler

import (
	"sort"
	"time"

	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/info"
)

// MethodPolicy is the resolved policy of one business method, as shown by
// explain and the admin API.
type MethodPolicy struct {
	Method        string            `json:"method"`
	Transaction   string            `json:"transaction"`
	ViewTx        map[string]string `json:"viewTransactions,omitempty"`
	Lock          string            `json:"lock,omitempty"`
	AccessTimeout time.Duration     `json:"accessTimeout,omitempty"`
	Roles         []string          `json:"roles,omitempty"`
	Unchecked     bool              `json:"unchecked,omitempty"`
	Excluded      bool              `json:"excluded,omitempty"`
	Interceptors  []string          `json:"interceptors,omitempty"`
	Asynchronous  bool              `json:"asynchronous,omitempty"`
	Timeout       bool              `json:"timeout,omitempty"`
}

// Explain lists the policy of every public business method of a bean in
// signature order.
func Explain(b *deployment.BeanContext) []MethodPolicy {
	if b.BeanClass == nil {
		return nil
	}
	var out []MethodPolicy
	for _, m := range b.BeanClass.Methods() {
		if !m.IsPublic() || m.IsStatic() || classes.IsContainerMethod(m) {
			continue
		}
		out = append(out, explainMethod(b, m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}

func explainMethod(b *deployment.BeanContext, m *classes.Method) MethodPolicy {
	p := MethodPolicy{
		Method:       m.Signature(),
		Transaction:  string(b.TransactionAttribute(m, deployment.AnyView)),
		Interceptors: deployment.ClassNames(b.MethodInterceptors(m)),
		Asynchronous: b.IsAsynchronous(m),
		Timeout:      b.TimeoutMethod() == m,
	}
	if views := b.TransactionViews(m); len(views) > 0 {
		p.ViewTx = make(map[string]string, len(views))
		for view, tx := range views {
			if view == deployment.AnyView {
				view = "*"
			}
			p.ViewTx[view] = string(tx)
		}
	}
	if b.Kind == info.Singleton && !b.BeanManagedConcurrency {
		p.Lock = string(b.LockType(m))
	}
	if d, ok := b.AccessTimeout(m); ok {
		p.AccessTimeout = d
	}
	if perm, ok := b.Permission(m); ok {
		p.Roles = perm.Roles
		p.Unchecked = perm.Unchecked
		p.Excluded = perm.Excluded
	}
	return p
}
