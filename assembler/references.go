package assembler

import (
	"context"
	"fmt"

	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/diag"
	"github.com/strogmv/assembler/assembler/ejbref"
	"github.com/strogmv/assembler/assembler/info"
	"github.com/strogmv/assembler/assembler/jndi"
)

// resolveReferences resolves the ejb references of every bean through the
// ejb-jar, application and global scopes, and records them with their
// java:comp/env links. An unresolved reference fails the deployment unless
// OptStrictReferences is off, in which case it is reported and skipped.
func (d *deployer) resolveReferences(context.Context) error {
	d.resolver = ejbref.New(d.global, ejbref.ScopeEAR, d.jars()...)
	strict := d.ac.Options.GetBool(OptStrictReferences, true)
	for _, ms := range d.modules {
		ms.resolver = ejbref.New(d.resolver, ejbref.ScopeEJBJar, ms.jar)
		for _, b := range ms.module.Beans {
			var refs []deployment.Reference
			bindings := b.Bindings()
			for _, ri := range b.Info.EjbRefs {
				ref, ok := resolveReference(ms.resolver, ri, ms.jar.URI())
				if !ok {
					msg := fmt.Sprintf("ejb reference %s of %s cannot be resolved", ri.ReferenceName, b.DeploymentID)
					if strict {
						return WrapDeploymentError(StageReferences, ErrCodeReferenceResolve, "resolve "+ri.ReferenceName, fmt.Errorf("%s (link=%q interface=%q)", msg, ri.Link, ri.Interface))
					}
					d.ac.Warn().Emit(diag.Warning{Kind: "reference", Code: diag.CodeUnresolvedReference, Severity: "warn", Bean: b.DeploymentID, Message: msg})
					continue
				}
				refs = append(refs, ref)
				bindings = append(bindings, deployment.Binding{Name: "java:comp/env/" + ri.ReferenceName, Target: ref.JndiName})
			}
			if err := b.SetReferences(refs); err != nil {
				return WrapDeploymentError(StageReferences, ErrCodeReferenceResolve, "record references of "+b.DeploymentID, err)
			}
			if err := b.SetBindings(bindings); err != nil {
				return WrapDeploymentError(StageReferences, ErrCodeReferenceResolve, "record references of "+b.DeploymentID, err)
			}
		}
	}
	return nil
}

// resolveReference maps a reference to its target deployment and the
// internal name of the view it designates.
func resolveReference(r *ejbref.Resolver, ri info.EjbReferenceInfo, moduleURI string) (deployment.Reference, bool) {
	id := r.Resolve(ejbref.FromInfo(ri), moduleURI)
	if id == "" {
		return deployment.Reference{}, false
	}
	ref := deployment.Reference{Name: ri.ReferenceName, DeploymentID: id}
	target, known := r.Deployment(id)
	if !known {
		// a mapped name pointing outside every indexed scope
		ref.JndiName = ri.MappedName
		return ref, ri.MappedName != ""
	}
	intf := ri.Interface
	if intf == "" {
		intf = defaultView(target.Bean, ri.Type)
	}
	if intf == "" {
		return deployment.Reference{}, false
	}
	ref.JndiName = jndi.DeploymentName(id, intf, "")
	ref.Local = r.IsLocal(id, intf)
	return ref, true
}

// defaultView picks the interface a reference without one gets: a local
// view for local references, a remote one otherwise, each falling back to
// the other.
func defaultView(bean *info.EnterpriseBeanInfo, t info.RefType) string {
	var local, remote []string
	local = append(local, bean.BusinessLocal...)
	if bean.Local != "" {
		local = append(local, bean.Local)
	}
	if bean.LocalBean {
		local = append(local, bean.EjbClass)
	}
	remote = append(remote, bean.BusinessRemote...)
	if bean.Remote != "" {
		remote = append(remote, bean.Remote)
	}
	first, second := remote, local
	if t == info.RefLocal {
		first, second = local, remote
	}
	if len(first) > 0 {
		return first[0]
	}
	if len(second) > 0 {
		return second[0]
	}
	return ""
}
