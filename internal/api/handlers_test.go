package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/reconcile-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockCollector struct {
	result *model.CollectionResult
	err    error
	gotID  string
}

func (m *mockCollector) Collect(_ context.Context, applicationID string) (*model.CollectionResult, error) {
	m.gotID = applicationID
	return m.result, m.err
}

type mockObservations struct {
	obs []model.OcrFieldObservation
	err error
}

func (m *mockObservations) OcrObservations(context.Context, string) ([]model.OcrFieldObservation, error) {
	return m.obs, m.err
}

type appsFunc func(ctx context.Context, applicationID string) (bool, error)

func (f appsFunc) ApplicationExists(ctx context.Context, applicationID string) (bool, error) {
	return f(ctx, applicationID)
}

func onlyApp(id string) appsFunc {
	return func(_ context.Context, applicationID string) (bool, error) { return applicationID == id, nil }
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func found(values ...model.SourcedValue) *model.CollectionResult {
	return &model.CollectionResult{ApplicationID: "app-1", Found: true, Values: values, FailedSources: []model.SourceType{}}
}

func TestHealth(t *testing.T) {
	rec, body := do(t, NewRouter(Deps{}, Options{}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestHealth_BackendDown(t *testing.T) {
	h := NewRouter(Deps{Health: pingFunc(func(context.Context) error { return errors.New("down") })}, Options{})
	rec, body := do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", body["status"])
}

func TestConflicts(t *testing.T) {
	c := &mockCollector{result: found(
		model.SourcedValue{Column: "req_business_address", Value: model.Text("1234 Jasper Ave"), SourceType: model.SourceBanking, Label: "Bank Statement"},
		model.SourcedValue{Column: "req_business_address", Value: model.Text("1234 Jasper Avenue"), SourceType: model.SourceClient, Label: "Client Application"},
		model.SourcedValue{Column: "req_amount_requested", Value: model.Number(250000), SourceType: model.SourceClient, Label: "Client Application"},
	)}
	rec, body := do(t, NewRouter(Deps{Collector: c}, Options{}), http.MethodGet, "/api/conflicts/app-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "app-1", c.gotID)
	assert.Equal(t, true, body["ok"])

	cols := body["columns"].(map[string]any)
	require.Len(t, cols, 2)
	addr := cols["req_business_address"].(map[string]any)
	assert.Equal(t, true, addr["conflict"])
	assert.Equal(t, "Business Address", addr["title"])
	values := addr["values"].([]any)
	require.Len(t, values, 2)
	assert.Equal(t, "banking", values[0].(map[string]any)["sourceType"])

	amount := cols["req_amount_requested"].(map[string]any)
	assert.Equal(t, false, amount["conflict"])
	assert.Equal(t, 250000.0, amount["values"].([]any)[0].(map[string]any)["value"])
	assert.NotContains(t, body, "failedSources")
}

func TestConflicts_NonFiniteNumber(t *testing.T) {
	c := &mockCollector{result: found(
		model.SourcedValue{Column: "income_statement_net_income", Value: model.Number(math.NaN()), SourceType: model.SourceOCR, Label: "Taxes"},
		model.SourcedValue{Column: "req_business_address", Value: model.Text("1234 Jasper Ave"), SourceType: model.SourceClient, Label: "Client Application"},
	)}
	rec, body := do(t, NewRouter(Deps{Collector: c}, Options{}), http.MethodGet, "/api/conflicts/app-1")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, body)
	cols := body["columns"].(map[string]any)
	assert.Len(t, cols, 2)
	ni := cols["income_statement_net_income"].(map[string]any)
	vals := ni["values"].([]any)
	assert.Equal(t, "NaN", vals[0].(map[string]any)["value"])
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"x": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"ok": false, "error": "failed to encode response"}`, rec.Body.String())
}

func TestConflicts_FailedSources(t *testing.T) {
	res := found(model.SourcedValue{Column: "x", Value: model.Text("1"), SourceType: model.SourceClient})
	res.FailedSources = []model.SourceType{model.SourceBanking}

	rec, body := do(t, NewRouter(Deps{Collector: &mockCollector{result: res}}, Options{}), http.MethodGet, "/api/conflicts/app-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"banking"}, body["failedSources"])
}

func TestConflicts_NotFound(t *testing.T) {
	c := &mockCollector{result: &model.CollectionResult{ApplicationID: "nope", Values: []model.SourcedValue{}}}
	rec, body := do(t, NewRouter(Deps{Collector: c}, Options{}), http.MethodGet, "/api/conflicts/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "application not found", body["error"])
}

func TestConflicts_EmptyOnMissing(t *testing.T) {
	c := &mockCollector{result: &model.CollectionResult{ApplicationID: "nope", Values: []model.SourcedValue{}}}
	rec, body := do(t, NewRouter(Deps{Collector: c, EmptyOnMissing: true}, Options{}), http.MethodGet, "/api/conflicts/nope")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, map[string]any{}, body["columns"])
}

func TestConflicts_CollectorError(t *testing.T) {
	c := &mockCollector{err: errors.New("db down")}
	rec, body := do(t, NewRouter(Deps{Collector: c}, Options{}), http.MethodGet, "/api/conflicts/app-1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["ok"])
	assert.NotContains(t, body["error"], "db down")
}

func TestConflicts_NotConfigured(t *testing.T) {
	rec, _ := do(t, NewRouter(Deps{}, Options{}), http.MethodGet, "/api/conflicts/app-1")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestConflictsDemo(t *testing.T) {
	// The demo route must not reach the collector.
	c := &mockCollector{err: errors.New("should not be called")}
	rec, body := do(t, NewRouter(Deps{Collector: c}, Options{}), http.MethodGet, "/api/conflicts/demo")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, c.gotID)
	cols := body["columns"].(map[string]any)
	assert.Len(t, cols, 4)
	assert.Equal(t, true, cols["req_business_address"].(map[string]any)["conflict"])
	assert.Equal(t, true, cols["income_statement_net_income"].(map[string]any)["conflict"])
	assert.Equal(t, false, cols["req_business_legal_name"].(map[string]any)["conflict"])
}

func sinObservations() []model.OcrFieldObservation {
	return []model.OcrFieldObservation{
		{DocID: "d1", Group: model.GroupTaxes, Label: "SIN", Value: "123-456-789"},
		{DocID: "d2", Group: model.GroupContracts, Label: "SIN", Value: "123-456-789"},
		{DocID: "d3", Group: model.GroupTaxes, Label: "Legal Business Name", Value: "Acme Corp"},
		{DocID: "d4", Group: model.GroupTaxes, Label: "Legal Business Name", Value: "Acme Corporation"},
		{DocID: "d5", Group: "", Label: "Notes", Value: "n/a"},
	}
}

func TestOcrConflicts(t *testing.T) {
	h := NewRouter(Deps{Observations: &mockObservations{obs: sinObservations()}}, Options{})
	rec, body := do(t, h, http.MethodGet, "/api/ai/ocr/app-1/conflicts")

	require.Equal(t, http.StatusOK, rec.Code)
	conflicts := body["conflicts"].([]any)
	require.Len(t, conflicts, 2)

	first := conflicts[0].(map[string]any)
	assert.Equal(t, "Legal Business Name", first["label"])
	assert.Equal(t, true, first["conflict"])
	assert.Equal(t, false, first["crossGroup"])
	assert.InDelta(t, 0.8, first["severity"], 1e-9)
	assert.Equal(t, "high", first["level"])

	second := conflicts[1].(map[string]any)
	assert.Equal(t, "SIN", second["label"])
	assert.InDelta(t, 0.625, second["severity"], 1e-9)
	assert.Equal(t, "medium", second["level"])
	assert.Equal(t, []any{"d1", "d2"}, second["docIds"])
}

func TestOcrGroups(t *testing.T) {
	h := NewRouter(Deps{Observations: &mockObservations{obs: sinObservations()}}, Options{})
	rec, body := do(t, h, http.MethodGet, "/api/ai/ocr/app-1/groups")

	require.Equal(t, http.StatusOK, rec.Code)
	groups := body["groups"].([]any)
	require.Len(t, groups, 3)
	assert.Equal(t, model.GroupTaxes, groups[0].(map[string]any)["name"])
	assert.Len(t, groups[0].(map[string]any)["fields"], 3)
	assert.Equal(t, model.GroupUngrouped, groups[2].(map[string]any)["name"])
}

func TestOcrInsights(t *testing.T) {
	h := NewRouter(Deps{Observations: &mockObservations{obs: sinObservations()}}, Options{})
	rec, body := do(t, h, http.MethodGet, "/api/ocr/insights?appId=app-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["groups"], 3)
	assert.Len(t, body["collisions"], 2)
}

func TestOcrInsights_MissingAppID(t *testing.T) {
	h := NewRouter(Deps{Observations: &mockObservations{}}, Options{})
	rec, body := do(t, h, http.MethodGet, "/api/ocr/insights")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "appId is required", body["error"])
}

func TestOcrInsights_Empty(t *testing.T) {
	h := NewRouter(Deps{Observations: &mockObservations{}}, Options{})
	rec, body := do(t, h, http.MethodGet, "/api/ocr/insights?appId=app-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["groups"])
	assert.Equal(t, []any{}, body["collisions"])
}

func TestOcr_UnknownApplication(t *testing.T) {
	h := NewRouter(Deps{Observations: &mockObservations{obs: sinObservations()}, Applications: onlyApp("app-1")}, Options{})

	for _, path := range []string{"/api/ai/ocr/nope/conflicts", "/api/ai/ocr/nope/groups", "/api/ocr/insights?appId=nope"} {
		rec, body := do(t, h, http.MethodGet, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, false, body["ok"], path)
	}

	rec, body := do(t, h, http.MethodGet, "/api/ai/ocr/app-1/groups")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["groups"])
}

func TestOcr_UnknownApplicationEmpty(t *testing.T) {
	h := NewRouter(Deps{
		Observations:   &mockObservations{obs: sinObservations()},
		Applications:   onlyApp("app-1"),
		EmptyOnMissing: true,
	}, Options{})

	rec, body := do(t, h, http.MethodGet, "/api/ocr/insights?appId=nope")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Empty(t, body["groups"])
	assert.Empty(t, body["collisions"])
}

func TestOcr_ApplicationCheckError(t *testing.T) {
	apps := appsFunc(func(context.Context, string) (bool, error) { return false, errors.New("db down") })
	h := NewRouter(Deps{Observations: &mockObservations{}, Applications: apps}, Options{})

	rec, _ := do(t, h, http.MethodGet, "/api/ai/ocr/app-1/conflicts")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOcr_SourceError(t *testing.T) {
	h := NewRouter(Deps{Observations: &mockObservations{err: errors.New("timeout")}}, Options{})
	rec, body := do(t, h, http.MethodGet, "/api/ai/ocr/app-1/groups")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["ok"])
}

func TestUnknownRoute(t *testing.T) {
	rec, body := do(t, NewRouter(Deps{}, Options{}), http.MethodGet, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["ok"])
}

func TestMethodNotAllowed(t *testing.T) {
	rec, _ := do(t, NewRouter(Deps{}, Options{}), http.MethodPost, "/health")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	h := NewRouter(Deps{}, Options{CORSOrigins: []string{"https://staff.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://staff.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://staff.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type panicCollector struct{}

func (panicCollector) Collect(context.Context, string) (*model.CollectionResult, error) {
	panic("boom")
}

func TestRecoverer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/conflicts/app-1", nil)
	rec := httptest.NewRecorder()
	NewRouter(Deps{Collector: panicCollector{}}, Options{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
