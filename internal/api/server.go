// Package api serves conflict and OCR insight views to the staff UI.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/reconcile-cli/internal/conflict"
	"github.com/sells-group/reconcile-cli/internal/model"
	"github.com/sells-group/reconcile-cli/internal/ocrinsight"
)

// Collector gathers the sourced values of one application.
type Collector interface {
	Collect(ctx context.Context, applicationID string) (*model.CollectionResult, error)
}

// ObservationSource returns the raw OCR observations of one application.
type ObservationSource interface {
	OcrObservations(ctx context.Context, applicationID string) ([]model.OcrFieldObservation, error)
}

// ApplicationChecker reports whether an application exists.
type ApplicationChecker interface {
	ApplicationExists(ctx context.Context, applicationID string) (bool, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call. Engine and Scorer default
// to the built-in column registry and label weights.
type Deps struct {
	Collector    Collector
	Observations ObservationSource
	Applications ApplicationChecker
	Health       Pinger
	Engine       *conflict.Engine
	Scorer       ocrinsight.Scorer

	// EmptyOnMissing answers an unknown application with 200 and no
	// columns or groups instead of 404. The OCR endpoints check existence
	// only when Applications is set.
	EmptyOnMissing bool
}

// Options configures the router.
type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP handler with all routes and middleware.
func NewRouter(deps Deps, opts Options) http.Handler {
	h := newHandlers(deps)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/conflicts/demo", h.demoConflicts)
		r.Get("/conflicts/{applicationId}", h.conflicts)
		r.Get("/ai/ocr/{applicationId}/conflicts", h.ocrConflicts)
		r.Get("/ai/ocr/{applicationId}/groups", h.ocrGroups)
		r.Get("/ocr/insights", h.ocrInsights)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// requestLogger echoes the request id and logs one line per request with
// the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			zap.L().Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
