package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	adminDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "assembler",
		Name:      "admin_operation_duration_seconds",
		Help:      "Duration of admin API operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})

	adminOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assembler",
		Name:      "admin_operations_total",
		Help:      "Admin API operations by target application.",
	}, []string{"operation", "app", "status"})
)

// adminRoutes maps "METHOD pattern" to the assembler operation it drives.
var adminRoutes = map[string]string{
	"GET /healthz":                               "health",
	"GET /metrics":                               "metrics",
	"GET /api/events":                            "events",
	"GET /api/apps":                              "list_apps",
	"POST /api/apps":                             "deploy",
	"GET /api/apps/{appID}":                      "get_app",
	"DELETE /api/apps/{appID}":                   "destroy",
	"GET /api/apps/{appID}/beans/{deploymentID}": "get_bean",
	"POST /api/apps/{appID}/resolve":             "resolve",
	"GET /api/apps/{appID}/report":               "report",
	"GET /api/containers":                        "list_containers",
	"GET /api/jndi":                              "jndi_list",
	"GET /api/jndi/lookup":                       "jndi_lookup",
	"GET /api/failures":                          "list_failures",
	"GET /api/descriptors":                       "list_descriptors",
	"DELETE /api/descriptors":                    "delete_descriptor",
	"POST /api/descriptors/deploy":               "deploy_stored",
}

// operationName keeps label cardinality bounded to the known admin routes.
func operationName(method, pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	if p := strings.TrimSuffix(pattern, "/"); p != "" {
		pattern = p
	}
	if op, ok := adminRoutes[method+" "+pattern]; ok {
		return op
	}
	return "other"
}

// MetricsMiddleware records admin operations by name and target application.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		var pattern, app string
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			pattern = routeCtx.RoutePattern()
			app = routeCtx.URLParam("appID")
		}
		op := operationName(r.Method, pattern)
		// Deploy names its application in the body; the handler reports it back.
		if app == "" {
			app = ww.Header().Get(headerAppID)
		}
		// Only applications that exist get their own series.
		if ww.Status() >= http.StatusBadRequest {
			app = ""
		}

		status := strconv.Itoa(ww.Status())
		adminDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
		adminOperations.WithLabelValues(op, app, status).Inc()
	})
}
