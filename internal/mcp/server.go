// Package mcp exposes the assembler to MCP clients over stdio: deploy
// descriptors, inspect applications and naming, and diagnose failures.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/strogmv/assembler/assembler"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/descriptor"
	"github.com/strogmv/assembler/assembler/info"
	"github.com/strogmv/assembler/assembler/jndi"
)

// Server binds MCP tools to one Assembler.
type Server struct {
	asm    *assembler.Assembler
	loader *descriptor.Loader
	srv    *server.MCPServer
}

func NewServer(asm *assembler.Assembler, loader *descriptor.Loader, version string) *Server {
	s := &Server{
		asm:    asm,
		loader: loader,
		srv: server.NewMCPServer(
			"Assembler MCP Server",
			version,
			server.WithResourceCapabilities(false, true),
			server.WithLogging(),
		),
	}
	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// Run serves MCP over stdio until the client disconnects.
func (s *Server) Run() error {
	return server.ServeStdio(s.srv)
}

type handler func(ctx context.Context, req mcp.CallToolRequest) (any, error)

func (s *Server) addTool(tool mcp.Tool, h handler) {
	s.srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return safeInvokeTool(tool.Name, func() (any, error) { return h(ctx, req) }), nil
	})
}

func (s *Server) registerTools() {
	s.addTool(mcp.NewTool("assembler_deploy",
		mcp.WithDescription("Deploy an application descriptor (.cue, .json or a CUE package directory) from the workspace."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Descriptor path relative to the working directory")),
	), s.deployPath)

	s.addTool(mcp.NewTool("assembler_deploy_descriptor",
		mcp.WithDescription("Deploy an application descriptor passed inline."),
		mcp.WithString("content", mcp.Required()),
		mcp.WithString("format", mcp.Description("cue or json (default json)")),
	), s.deployContent)

	s.addTool(mcp.NewTool("assembler_apps",
		mcp.WithDescription("List deployed applications."),
	), s.listApps)

	s.addTool(mcp.NewTool("assembler_explain",
		mcp.WithDescription("Show the resolved transaction, concurrency, permission and interceptor policy of a bean."),
		mcp.WithString("app_id", mcp.Required()),
		mcp.WithString("deployment_id", mcp.Required()),
	), s.explain)

	s.addTool(mcp.NewTool("assembler_jndi",
		mcp.WithDescription("List JNDI names, or look one up when name is set."),
		mcp.WithString("scope", mcp.Description("internal (default), global or app")),
		mcp.WithString("app_id", mcp.Description("Application for the app scope")),
		mcp.WithString("prefix"),
		mcp.WithString("name"),
	), s.jndi)

	s.addTool(mcp.NewTool("assembler_resolve",
		mcp.WithDescription("Resolve an ejb reference as seen from a module of a deployed application."),
		mcp.WithString("app_id", mcp.Required()),
		mcp.WithString("module"),
		mcp.WithString("reference_name", mcp.Required()),
		mcp.WithString("link"),
		mcp.WithString("interface"),
		mcp.WithString("type", mcp.Description("LOCAL or REMOTE")),
	), s.resolve)

	s.addTool(mcp.NewTool("assembler_destroy",
		mcp.WithDescription("Undeploy an application."),
		mcp.WithString("app_id", mcp.Required()),
	), s.destroy)

	s.addTool(mcp.NewTool("assembler_failures",
		mcp.WithDescription("List remembered deployment failures, newest last, with fix hints."),
	), s.failures)

	s.addTool(mcp.NewTool("assembler_doctor",
		mcp.WithDescription("Find assembler error codes in a log excerpt and suggest fixes."),
		mcp.WithString("log", mcp.Required()),
	), func(_ context.Context, req mcp.CallToolRequest) (any, error) {
		return map[string]any{"diagnoses": diagnose(mcp.ParseString(req, "log", ""))}, nil
	})
}

func (s *Server) deployPath(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	path := mcp.ParseString(req, "path", "")
	if err := validateDescriptorPath(path); err != nil {
		return nil, err
	}
	ai, err := s.loader.LoadApp(path)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, ai)
}

func (s *Server) deployContent(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	name := "inline.json"
	if strings.EqualFold(mcp.ParseString(req, "format", "json"), "cue") {
		name = "inline.cue"
	}
	ai, err := s.loader.ReadApp(name, strings.NewReader(mcp.ParseString(req, "content", "")))
	if err != nil {
		return nil, err
	}
	return s.create(ctx, ai)
}

func (s *Server) create(ctx context.Context, ai *info.AppInfo) (any, error) {
	app, err := s.asm.CreateApplication(ctx, ai)
	if err != nil {
		return nil, err
	}
	var bindings []string
	for _, bb := range app.Bindings() {
		for _, n := range bb.JndiNames {
			bindings = append(bindings, n.Name)
		}
	}
	return map[string]any{
		"app_id":   app.ID(),
		"run_id":   app.RunID,
		"beans":    len(app.Beans()),
		"names":    bindings,
		"warnings": app.Warnings,
	}, nil
}

func (s *Server) listApps(context.Context, mcp.CallToolRequest) (any, error) {
	out := []map[string]any{}
	for _, app := range s.asm.Applications() {
		var beans []string
		for _, b := range app.Beans() {
			beans = append(beans, fmt.Sprintf("%s (%s) in %s", b.DeploymentID, b.Kind, b.ContainerID))
		}
		out = append(out, map[string]any{"app_id": app.ID(), "run_id": app.RunID, "beans": beans})
	}
	return out, nil
}

func (s *Server) app(req mcp.CallToolRequest) (*assembler.Application, error) {
	id := mcp.ParseString(req, "app_id", "")
	app, ok := s.asm.Application(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", assembler.ErrNoSuchApplication, id)
	}
	return app, nil
}

func (s *Server) explain(_ context.Context, req mcp.CallToolRequest) (any, error) {
	app, err := s.app(req)
	if err != nil {
		return nil, err
	}
	id := mcp.ParseString(req, "deployment_id", "")
	b, ok := app.Bean(id)
	if !ok {
		return nil, fmt.Errorf("no deployment %s in %s", id, app.ID())
	}
	return map[string]any{
		"deployment_id":          b.DeploymentID,
		"kind":                   b.Kind,
		"container":              b.ContainerID,
		"methods":                assembler.Explain(b),
		"callback_interceptors":  deployment.ClassNames(b.CallbackInterceptors()),
		"application_exceptions": b.ApplicationExceptions(),
		"references":             b.References(),
	}, nil
}

func (s *Server) jndi(_ context.Context, req mcp.CallToolRequest) (any, error) {
	var ctx *jndi.Context
	switch scope := mcp.ParseString(req, "scope", "internal"); scope {
	case "", "internal":
		ctx = s.asm.ContainerSystem().JNDIContext()
	case "global":
		ctx = s.asm.ContainerSystem().GlobalContext()
	case "app":
		app, err := s.app(req)
		if err != nil {
			return nil, err
		}
		ctx = app.Names()
	default:
		return nil, fmt.Errorf("unknown scope %q", scope)
	}
	if name := mcp.ParseString(req, "name", ""); name != "" {
		v, err := ctx.Lookup(name)
		if err != nil {
			return nil, err
		}
		return map[string]any{"name": name, "value": v}, nil
	}
	return ctx.List(mcp.ParseString(req, "prefix", "")), nil
}

func (s *Server) resolve(_ context.Context, req mcp.CallToolRequest) (any, error) {
	app, err := s.app(req)
	if err != nil {
		return nil, err
	}
	ref := info.EjbReferenceInfo{
		ReferenceName: mcp.ParseString(req, "reference_name", ""),
		Link:          mcp.ParseString(req, "link", ""),
		Interface:     mcp.ParseString(req, "interface", ""),
		Type:          info.RefType(strings.ToUpper(mcp.ParseString(req, "type", ""))),
	}
	id := app.Resolve(mcp.ParseString(req, "module", ""), ref)
	if id == "" {
		return nil, assembler.WrapDeploymentError(assembler.StageReferences, assembler.ErrCodeReferenceResolve,
			"resolve "+ref.ReferenceName, fmt.Errorf("no deployment matches"))
	}
	return map[string]string{"reference": ref.ReferenceName, "deployment_id": id}, nil
}

func (s *Server) destroy(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	id := mcp.ParseString(req, "app_id", "")
	if err := s.asm.DestroyApplication(ctx, id); err != nil {
		return nil, err
	}
	return map[string]string{"destroyed": id}, nil
}

func (s *Server) failures(context.Context, mcp.CallToolRequest) (any, error) {
	out := []map[string]any{}
	for _, f := range s.asm.Exceptions().All() {
		out = append(out, map[string]any{
			"app_id":  f.AppID,
			"run_id":  f.RunID,
			"code":    f.Code,
			"message": f.Message(),
			"hint":    assembler.Hint(f.Code),
			"at":      f.At,
		})
	}
	return out, nil
}

func (s *Server) registerResources() {
	s.srv.AddResource(mcp.NewResource(
		"assembler://applications",
		"Deployed applications",
		mcp.WithResourceDescription("Deployed applications with their beans."),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		apps, _ := s.listApps(ctx, mcp.CallToolRequest{})
		b, err := json.MarshalIndent(apps, "", "  ")
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(b),
		}}, nil
	})
}

func (s *Server) registerPrompts() {
	s.srv.AddPrompt(mcp.NewPrompt("assembler/diagnose-deployment",
		mcp.WithPromptDescription("Guided flow to find and fix why an application failed to deploy."),
		mcp.WithArgument("app_id", mcp.ArgumentDescription("Application that failed"), mcp.RequiredArgument()),
	), func(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		appID := strings.TrimSpace(req.Params.Arguments["app_id"])
		if appID == "" {
			return nil, fmt.Errorf("app_id is required")
		}
		text := fmt.Sprintf(
			"Application %s failed to deploy.\n"+
				"1) Call assembler_failures and find the entry for %s.\n"+
				"2) Read its code and hint; call assembler_doctor with the message when several codes appear.\n"+
				"3) For REFERENCE_RESOLVE_ERROR use assembler_apps and assembler_jndi to find the intended target.\n"+
				"4) Edit the descriptor and redeploy with assembler_deploy.\n",
			appID, appID,
		)
		return mcp.NewGetPromptResult(
			"Diagnose deployment "+appID,
			[]mcp.PromptMessage{mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text))},
		), nil
	})
}
