package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sells-group/reconcile-cli/internal/conflict"
	"github.com/sells-group/reconcile-cli/internal/model"
	"github.com/sells-group/reconcile-cli/internal/ocrinsight"
)

type handlers struct {
	deps Deps
}

func newHandlers(deps Deps) *handlers {
	if deps.Engine == nil {
		deps.Engine = conflict.NewEngine(nil)
	}
	if deps.Scorer == nil {
		deps.Scorer = ocrinsight.NewWeightScorer(nil, 0)
	}
	return &handlers{deps: deps}
}

type conflictsResponse struct {
	OK            bool                                  `json:"ok"`
	ApplicationID string                                `json:"applicationId,omitempty"`
	Columns       map[string]model.ColumnConflictRecord `json:"columns"`
	FailedSources []model.SourceType                    `json:"failedSources,omitempty"`
}

type ocrConflictsResponse struct {
	OK        bool                         `json:"ok"`
	Conflicts []ocrinsight.ScoredCollision `json:"conflicts"`
}

type ocrGroupsResponse struct {
	OK     bool             `json:"ok"`
	Groups []model.OcrGroup `json:"groups"`
}

type ocrInsightsResponse struct {
	OK         bool                   `json:"ok"`
	Groups     []model.OcrGroup       `json:"groups"`
	Collisions []model.LabelCollision `json:"collisions"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		if err := h.deps.Health.Ping(r.Context()); err != nil {
			zap.L().Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) demoConflicts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, conflictsResponse{
		OK:      true,
		Columns: h.deps.Engine.Build(conflict.DemoRecords()),
	})
}

func (h *handlers) conflicts(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimSpace(chi.URLParam(r, "applicationId"))
	if appID == "" {
		writeError(w, http.StatusBadRequest, "applicationId is required")
		return
	}
	if h.deps.Collector == nil {
		writeError(w, http.StatusServiceUnavailable, "value collection is not configured")
		return
	}

	res, err := h.deps.Collector.Collect(r.Context(), appID)
	if err != nil {
		logError(r, "collect values", appID, err)
		writeError(w, http.StatusInternalServerError, "failed to collect values")
		return
	}
	if !res.Found && !h.deps.EmptyOnMissing {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}

	writeJSON(w, http.StatusOK, conflictsResponse{
		OK:            true,
		ApplicationID: appID,
		Columns:       h.deps.Engine.Build(res.Values),
		FailedSources: res.FailedSources,
	})
}

// view loads the observations of an application and builds its insight view.
// It writes the error response itself and returns false on failure.
func (h *handlers) view(w http.ResponseWriter, r *http.Request, appID string) (model.OcrInsightView, bool) {
	if h.deps.Observations == nil {
		writeError(w, http.StatusServiceUnavailable, "ocr observations are not configured")
		return model.OcrInsightView{}, false
	}
	if h.deps.Applications != nil {
		exists, err := h.deps.Applications.ApplicationExists(r.Context(), appID)
		if err != nil {
			logError(r, "check application", appID, err)
			writeError(w, http.StatusInternalServerError, "failed to check application")
			return model.OcrInsightView{}, false
		}
		if !exists {
			if h.deps.EmptyOnMissing {
				return ocrinsight.BuildView(nil), true
			}
			writeError(w, http.StatusNotFound, "application not found")
			return model.OcrInsightView{}, false
		}
	}
	obs, err := h.deps.Observations.OcrObservations(r.Context(), appID)
	if err != nil {
		logError(r, "load ocr observations", appID, err)
		writeError(w, http.StatusInternalServerError, "failed to load ocr observations")
		return model.OcrInsightView{}, false
	}
	return ocrinsight.BuildView(obs), true
}

func (h *handlers) ocrConflicts(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimSpace(chi.URLParam(r, "applicationId"))
	view, ok := h.view(w, r, appID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ocrConflictsResponse{
		OK:        true,
		Conflicts: ocrinsight.ConflictList(view, h.deps.Scorer),
	})
}

func (h *handlers) ocrGroups(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimSpace(chi.URLParam(r, "applicationId"))
	view, ok := h.view(w, r, appID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ocrGroupsResponse{OK: true, Groups: view.Groups})
}

func (h *handlers) ocrInsights(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimSpace(r.URL.Query().Get("appId"))
	if appID == "" {
		writeError(w, http.StatusBadRequest, "appId is required")
		return
	}
	view, ok := h.view(w, r, appID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ocrInsightsResponse{OK: true, Groups: view.Groups, Collisions: view.Collisions})
}

func logError(r *http.Request, action, appID string, err error) {
	zap.L().Error(action+" failed",
		zap.String("application_id", appID),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
}

// writeJSON encodes v before writing the status so an encoding failure can
// still be answered with a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("encode response", zap.Error(err))
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{OK: false, Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{OK: false, Error: msg})
}
