package methodinfo

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/diag"
	"github.com/strogmv/assembler/assembler/info"
)

// TransactionBuilder applies container-managed transaction attributes.
type TransactionBuilder struct {
	Logger *slog.Logger
	Warn   diag.Sink
}

// Build resolves infos against every bean that does not manage its own
// transactions and records the winning attribute per (view, method).
func (tb TransactionBuilder) Build(beans []*deployment.BeanContext, infos []info.MethodTransactionInfo) error {
	rules := NormalizeTransactions(infos)
	var errs []error
	for _, b := range beans {
		if b.BeanManagedTransaction {
			continue
		}
		for _, res := range ResolveViewAttributes(rules, b, tb.Warn) {
			tx, err := deployment.ParseTransactionType(res.Rule.Attr.TransAttribute)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s %s: %w", b.DeploymentID, res.Method.Signature(), err))
				continue
			}
			if err := b.SetMethodTransactionAttribute(res.Method, tx, res.View); err != nil {
				errs = append(errs, err)
			}
		}
		logger(tb.Logger).Debug("transaction attributes resolved", slog.String("bean", b.DeploymentID))
	}
	return errors.Join(errs...)
}

// ConcurrencyBuilder applies lock types and access timeouts. Lock types only
// apply to singletons; access timeouts apply to singletons and stateful beans.
type ConcurrencyBuilder struct {
	Logger *slog.Logger
	Warn   diag.Sink
}

// Build resolves lock and timeout declarations separately so that a method
// can take its lock from one rule and its timeout from another.
func (cb ConcurrencyBuilder) Build(beans []*deployment.BeanContext, infos []info.MethodConcurrencyInfo) error {
	var locks, timeouts []info.MethodConcurrencyInfo
	for _, i := range infos {
		if i.ConcurrencyAttribute != "" {
			locks = append(locks, i)
		}
		if i.AccessTimeout != nil {
			timeouts = append(timeouts, i)
		}
	}
	lockRules := NormalizeConcurrency(locks)
	timeoutRules := NormalizeConcurrency(timeouts)

	var errs []error
	for _, b := range beans {
		if b.BeanManagedConcurrency {
			continue
		}
		if b.Kind != info.Singleton && b.Kind != info.Stateful {
			continue
		}
		if b.Kind == info.Singleton {
			for _, res := range ResolveAttributes(lockRules, b, cb.Warn) {
				lock, err := deployment.ParseLockType(res.Rule.Attr.ConcurrencyAttribute)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s %s: %w", b.DeploymentID, res.Method.Signature(), err))
					continue
				}
				if err := b.SetMethodConcurrencyAttribute(res.Method, lock); err != nil {
					errs = append(errs, err)
				}
			}
		}
		for _, r := range timeoutRules {
			if r.Method.EjbName == b.EjbName && LevelOf(r.Method) == LevelBean && ViewOf(r.Method) == ViewAny {
				d, ok := r.Attr.AccessTimeout.Duration()
				if !ok {
					errs = append(errs, fmt.Errorf("%s: invalid access timeout unit %q", b.DeploymentID, r.Attr.AccessTimeout.Unit))
					continue
				}
				if err := b.SetAccessTimeout(nil, d); err != nil {
					errs = append(errs, err)
				}
				break
			}
		}
		for _, res := range ResolveAttributes(timeoutRules, b, cb.Warn) {
			d, ok := res.Rule.Attr.AccessTimeout.Duration()
			if !ok {
				errs = append(errs, fmt.Errorf("%s %s: invalid access timeout unit %q", b.DeploymentID, res.Method.Signature(), res.Rule.Attr.AccessTimeout.Unit))
				continue
			}
			if err := b.SetAccessTimeout(res.Method, d); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// PermissionBuilder resolves method permissions. Roles granted by every
// matching declaration are combined; unchecked beats roles and excluded
// beats both.
type PermissionBuilder struct {
	Logger *slog.Logger
	Warn   diag.Sink
}

// Build applies permissions and the exclude list to every bean.
func (pb PermissionBuilder) Build(beans []*deployment.BeanContext, infos []info.MethodPermissionInfo, excludeList []info.MethodInfo) error {
	all := append([]info.MethodPermissionInfo(nil), infos...)
	if len(excludeList) > 0 {
		all = append(all, info.MethodPermissionInfo{Description: "exclude-list", Methods: excludeList, Excluded: true})
	}
	rules := NormalizePermissions(all)

	var errs []error
	for _, b := range beans {
		wildcard := WildcardView(b)
		perms := map[ViewMethod]*deployment.Permission{}
		var order []ViewMethod
		for _, r := range rules {
			if !AppliesTo(r.Method, b) {
				continue
			}
			for _, m := range candidates(r.Method, b, wildcard) {
				key := ViewMethod{Method: b.MatchingBeanMethod(m)}
				p, ok := perms[key]
				if !ok {
					p = &deployment.Permission{}
					perms[key] = p
					order = append(order, key)
				}
				merge(p, r.Attr)
			}
		}
		for _, key := range order {
			if err := b.SetPermission(key.Method, *perms[key]); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func merge(p *deployment.Permission, decl info.MethodPermissionInfo) {
	switch {
	case decl.Excluded:
		p.Excluded = true
	case decl.Unchecked:
		p.Unchecked = true
	}
	for _, role := range decl.RoleNames {
		if !slices.Contains(p.Roles, role) {
			p.Roles = append(p.Roles, role)
		}
	}
	if p.Excluded || p.Unchecked {
		p.Roles = nil
	}
	if p.Excluded {
		p.Unchecked = false
	}
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
