// Package http is the admin API of the assembler: deployed applications,
// the naming tree, remembered failures and a live event stream.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/strogmv/assembler/assembler"
	"github.com/strogmv/assembler/assembler/descriptor"
	"github.com/strogmv/assembler/assembler/info"
	"github.com/strogmv/assembler/assembler/jndi"
	"github.com/strogmv/assembler/internal/pkg/auth"
	"github.com/strogmv/assembler/internal/pkg/report"
	"github.com/strogmv/assembler/internal/port"
)

const maxDescriptorSize = 4 << 20

// headerAppID names the deployed application on deploy responses.
const headerAppID = "X-Application-ID"

var validate = validator.New()

// Server serves the admin API over one Assembler.
type Server struct {
	asm      *assembler.Assembler
	loader   *descriptor.Loader
	hub      *Hub
	reports  *report.Generator
	failures port.FailureRepository
	storage  port.DescriptorStorage
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	origins   []string
	tokenHash string
}

type Option func(*Server)

// WithFailureRepository lists failures from durable storage instead of the
// in-memory buffer.
func WithFailureRepository(r port.FailureRepository) Option {
	return func(s *Server) { s.failures = r }
}

// WithDescriptorStorage keeps deployed descriptors and enables deploying
// stored ones.
func WithDescriptorStorage(st port.DescriptorStorage) Option {
	return func(s *Server) { s.storage = st }
}

func WithGatherer(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// WithCORSOrigins sets the origins allowed for browsers and websocket
// clients.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithAdminTokenHash protects the API with a bcrypt-hashed bearer token.
func WithAdminTokenHash(hash string) Option { return func(s *Server) { s.tokenHash = hash } }

func NewServer(asm *assembler.Assembler, loader *descriptor.Loader, opts ...Option) *Server {
	s := &Server{
		asm:      asm,
		loader:   loader,
		reports:  report.NewGenerator(),
		gatherer: prometheus.DefaultGatherer,
		logger:   slog.Default(),
		origins:  []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.logger, s.origins)
	asm.AddListener(s.hub)
	return s
}

// Hub returns the event stream hub.
func (s *Server) Hub() *Hub { return s.hub }

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "applications": len(s.asm.Applications())})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(s.tokenHash))
		r.Get("/events", s.hub.ServeHTTP)

		r.Get("/apps", s.listApps)
		r.Post("/apps", s.deployApp)
		r.Route("/apps/{appID}", func(r chi.Router) {
			r.Get("/", s.getApp)
			r.Delete("/", s.destroyApp)
			r.Get("/beans/{deploymentID}", s.getBean)
			r.Post("/resolve", s.resolveRef)
			r.Get("/report", s.appReport)
		})

		r.Get("/containers", s.listContainers)
		r.Get("/jndi", s.listNames)
		r.Get("/jndi/lookup", s.lookupName)
		r.Get("/failures", s.listFailures)

		r.Get("/descriptors", s.listDescriptors)
		r.Delete("/descriptors", s.deleteDescriptor)
		r.Post("/descriptors/deploy", s.deployStored)
	})

	return otelhttp.NewHandler(r, "assembler.admin",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func (s *Server) listApps(w http.ResponseWriter, _ *http.Request) {
	apps := s.asm.Applications()
	out := make([]appSummary, 0, len(apps))
	for _, app := range apps {
		out = append(out, summarize(app))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) application(w http.ResponseWriter, r *http.Request) (*assembler.Application, bool) {
	id := chi.URLParam(r, "appID")
	app, ok := s.asm.Application(id)
	if !ok {
		p := newProblem(http.StatusNotFound, "no such application: "+id)
		p.Code = assembler.ErrCodeAppNotFound
		writeError(w, r, p)
	}
	return app, ok
}

func (s *Server) getApp(w http.ResponseWriter, r *http.Request) {
	if app, ok := s.application(w, r); ok {
		writeJSON(w, http.StatusOK, newAppView(app))
	}
}

func (s *Server) getBean(w http.ResponseWriter, r *http.Request) {
	app, ok := s.application(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "deploymentID")
	b, ok := app.Bean(id)
	if !ok {
		writeError(w, r, newProblem(http.StatusNotFound, "no such deployment: "+id))
		return
	}
	writeJSON(w, http.StatusOK, newBeanView(b, true))
}

// descriptorName picks the parse format from the Content-Type or the
// format query parameter.
func descriptorName(r *http.Request) string {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "cue":
		return "request.cue"
	case "json":
		return "request.json"
	}
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && strings.Contains(mt, "cue") {
		return "request.cue"
	}
	return "request.json"
}

func (s *Server) deployApp(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDescriptorSize))
	if err != nil {
		writeError(w, r, newProblem(http.StatusRequestEntityTooLarge, err.Error()))
		return
	}
	name := descriptorName(r)
	app, ok := s.deployDescriptor(w, r, name, body)
	if !ok {
		return
	}
	if s.storage != nil {
		key := "apps/" + app.ID() + path.Ext(name)
		if _, err := s.storage.Upload(r.Context(), key, bytes.NewReader(body), "text/plain"); err != nil {
			s.logger.Warn("descriptor not stored", slog.String("key", key), slog.Any("error", err))
		}
	}
	writeJSON(w, http.StatusCreated, newAppView(app))
}

func (s *Server) deployDescriptor(w http.ResponseWriter, r *http.Request, name string, body []byte) (*assembler.Application, bool) {
	ai, err := s.loader.ReadApp(name, bytes.NewReader(body))
	if err != nil {
		p := newProblem(http.StatusBadRequest, err.Error())
		p.Code = assembler.ErrCodeAppInvalid
		writeError(w, r, p)
		return nil, false
	}
	app, err := s.asm.CreateApplication(r.Context(), ai)
	if err != nil {
		writeError(w, r, problemFor(err))
		return nil, false
	}
	w.Header().Set(headerAppID, app.ID())
	return app, true
}

func (s *Server) destroyApp(w http.ResponseWriter, r *http.Request) {
	if err := s.asm.DestroyApplication(r.Context(), chi.URLParam(r, "appID")); err != nil {
		writeError(w, r, problemFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resolveRef(w http.ResponseWriter, r *http.Request) {
	app, ok := s.application(w, r)
	if !ok {
		return
	}
	var ref info.EjbReferenceInfo
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		writeError(w, r, newProblem(http.StatusBadRequest, "invalid reference: "+err.Error()))
		return
	}
	if err := validate.Struct(ref); err != nil {
		writeError(w, r, newProblem(http.StatusBadRequest, err.Error()))
		return
	}
	module := r.URL.Query().Get("module")
	id := app.Resolve(module, ref)
	if id == "" {
		p := newProblem(http.StatusNotFound, fmt.Sprintf("reference %s does not resolve from %q", ref.ReferenceName, module))
		p.Code = assembler.ErrCodeReferenceResolve
		writeError(w, r, p)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reference": ref.ReferenceName, "deploymentId": id})
}

func (s *Server) appReport(w http.ResponseWriter, r *http.Request) {
	app, ok := s.application(w, r)
	if !ok {
		return
	}
	failures, err := s.recentFailures(r, app.ID(), 10)
	if err != nil {
		writeError(w, r, newProblem(http.StatusInternalServerError, err.Error()))
		return
	}
	pdf, err := s.reports.GenerateDeploymentReport(report.FromApplication(app, failures))
	if err != nil {
		writeError(w, r, newProblem(http.StatusInternalServerError, err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", app.ID()+".pdf"))
	_, _ = w.Write(pdf)
}

func (s *Server) listContainers(w http.ResponseWriter, _ *http.Request) {
	var out []containerView
	for _, c := range s.asm.ContainerSystem().Containers() {
		v := containerView{ID: c.ID, Type: string(c.Type), Deployments: []string{}}
		for _, b := range c.Deployments() {
			v.Deployments = append(v.Deployments, b.DeploymentID)
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

// namingContext selects the context named by the scope query parameter:
// internal (default), global or app (with app=<id>).
func (s *Server) namingContext(w http.ResponseWriter, r *http.Request) (*jndi.Context, bool) {
	q := r.URL.Query()
	switch q.Get("scope") {
	case "", "internal":
		return s.asm.ContainerSystem().JNDIContext(), true
	case "global":
		return s.asm.ContainerSystem().GlobalContext(), true
	case "app":
		app, ok := s.asm.Application(q.Get("app"))
		if !ok {
			writeError(w, r, newProblem(http.StatusNotFound, "no such application: "+q.Get("app")))
			return nil, false
		}
		return app.Names(), true
	}
	writeError(w, r, newProblem(http.StatusBadRequest, "unknown scope "+q.Get("scope")))
	return nil, false
}

func (s *Server) listNames(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.namingContext(w, r)
	if !ok {
		return
	}
	names := ctx.List(r.URL.Query().Get("prefix"))
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) lookupName(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.namingContext(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	v, err := ctx.Lookup(name)
	switch {
	case errors.Is(err, jndi.ErrNameNotFound):
		writeError(w, r, newProblem(http.StatusNotFound, err.Error()))
		return
	case err != nil:
		writeError(w, r, newProblem(http.StatusBadRequest, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "value": v})
}

func (s *Server) recentFailures(r *http.Request, appID string, limit int) ([]assembler.DeploymentFailure, error) {
	if s.failures != nil {
		return s.failures.ListDeploymentFailures(r.Context(), appID, limit)
	}
	var out []assembler.DeploymentFailure
	all := s.asm.Exceptions().All()
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if appID == "" || all[i].AppID == appID {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *Server) listFailures(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, newProblem(http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	failures, err := s.recentFailures(r, r.URL.Query().Get("app"), limit)
	if err != nil {
		writeError(w, r, newProblem(http.StatusInternalServerError, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, failureViews(failures))
}

func (s *Server) requireStorage(w http.ResponseWriter, r *http.Request) bool {
	if s.storage == nil {
		writeError(w, r, newProblem(http.StatusNotImplemented, "descriptor storage is not configured"))
		return false
	}
	return true
}

func (s *Server) listDescriptors(w http.ResponseWriter, r *http.Request) {
	if !s.requireStorage(w, r) {
		return
	}
	keys, err := s.storage.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		writeError(w, r, newProblem(http.StatusBadGateway, err.Error()))
		return
	}
	type entry struct {
		Key string `json:"key"`
		URL string `json:"url,omitempty"`
	}
	out := make([]entry, 0, len(keys))
	for _, k := range keys {
		e := entry{Key: k}
		if url, err := s.storage.PresignGet(r.Context(), k, 15*time.Minute); err == nil {
			e.URL = url
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deployStored(w http.ResponseWriter, r *http.Request) {
	if !s.requireStorage(w, r) {
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, r, newProblem(http.StatusBadRequest, "key is required"))
		return
	}
	rc, err := s.storage.Download(r.Context(), key)
	if err != nil {
		writeError(w, r, newProblem(http.StatusNotFound, err.Error()))
		return
	}
	defer rc.Close()
	body, err := io.ReadAll(io.LimitReader(rc, maxDescriptorSize))
	if err != nil {
		writeError(w, r, newProblem(http.StatusBadGateway, err.Error()))
		return
	}
	app, ok := s.deployDescriptor(w, r, key, body)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, newAppView(app))
}

func (s *Server) deleteDescriptor(w http.ResponseWriter, r *http.Request) {
	if !s.requireStorage(w, r) {
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, r, newProblem(http.StatusBadRequest, "key is required"))
		return
	}
	if err := s.storage.Delete(r.Context(), key); err != nil {
		writeError(w, r, newProblem(http.StatusBadGateway, err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
