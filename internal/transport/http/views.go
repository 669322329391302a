package http

import (
	"github.com/strogmv/assembler/assembler"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/diag"
	"github.com/strogmv/assembler/assembler/jndi"
)

type appSummary struct {
	AppID      string `json:"appId"`
	Path       string `json:"path,omitempty"`
	RunID      string `json:"runId"`
	Standalone bool   `json:"standalone,omitempty"`
	Beans      int    `json:"beanCount"`
	Warnings   int    `json:"warningCount"`
}

type appView struct {
	appSummary
	Beans    []beanView          `json:"beans"`
	Bindings []jndi.BeanBindings `json:"bindings"`
	Warnings []diag.Warning      `json:"warnings,omitempty"`
}

type beanView struct {
	DeploymentID  string                   `json:"deploymentId"`
	EjbName       string                   `json:"ejbName"`
	Kind          string                   `json:"kind"`
	Module        string                   `json:"module,omitempty"`
	Container     string                   `json:"container"`
	BeanClass     string                   `json:"beanClass,omitempty"`
	References    []deployment.Reference   `json:"references,omitempty"`
	AppExceptions []string                 `json:"applicationExceptions,omitempty"`
	Callbacks     []string                 `json:"callbackInterceptors,omitempty"`
	Methods       []assembler.MethodPolicy `json:"methods,omitempty"`
}

type containerView struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Deployments []string `json:"deployments"`
}

type failureView struct {
	assembler.DeploymentFailure
	Message string `json:"message"`
}

func summarize(app *assembler.Application) appSummary {
	return appSummary{
		AppID:      app.ID(),
		Path:       app.Info.Path,
		RunID:      app.RunID,
		Standalone: app.Info.StandaloneModule,
		Beans:      len(app.Beans()),
		Warnings:   len(app.Warnings),
	}
}

func newAppView(app *assembler.Application) appView {
	v := appView{appSummary: summarize(app), Bindings: app.Bindings(), Warnings: app.Warnings}
	for _, b := range app.Beans() {
		v.Beans = append(v.Beans, newBeanView(b, false))
	}
	return v
}

func newBeanView(b *deployment.BeanContext, withMethods bool) beanView {
	v := beanView{
		DeploymentID:  b.DeploymentID,
		EjbName:       b.EjbName,
		Kind:          string(b.Kind),
		Container:     b.ContainerID,
		References:    b.References(),
		AppExceptions: b.ApplicationExceptions(),
		Callbacks:     deployment.ClassNames(b.CallbackInterceptors()),
	}
	if b.Module != nil {
		v.Module = b.Module.ID
	}
	if b.BeanClass != nil {
		v.BeanClass = b.BeanClass.Name
	}
	if withMethods {
		v.Methods = assembler.Explain(b)
	}
	return v
}

func failureViews(in []assembler.DeploymentFailure) []failureView {
	out := make([]failureView, 0, len(in))
	for _, f := range in {
		out = append(out, failureView{DeploymentFailure: f, Message: f.Message()})
	}
	return out
}
