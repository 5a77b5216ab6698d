package httpapi_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"carbonatlas/internal/adapters/httpapi"
	auditcore "carbonatlas/internal/audit/core"
	"carbonatlas/internal/infra/assets/memory"
	auditmem "carbonatlas/internal/infra/audit/memory"
	"carbonatlas/internal/state"
	"carbonatlas/internal/telemetry"
)

const (
	forestCSV  = "Country,ISO2,Indicator,F2006\nBrazil,BR,Carbon stocks,50\nChad,TD,Carbon stocks,\n"
	climateCSV = "Country,Indicator,F2006\nChad,Drought,1\n"
	geoJSON    = `{"type":"FeatureCollection","features":[]}`
)

type fixture struct {
	store   *state.Store
	source  *memory.Store
	handler *httpapi.Handler
	audit   *auditmem.Store
	reg     *prometheus.Registry
}

func setup(t *testing.T) fixture {
	t.Helper()
	src := memory.New()
	locs := state.DefaultLocations()
	src.PutString(locs.ForestCarbon, forestCSV)
	src.PutString(locs.ClimateDisaster, climateCSV)
	src.PutString(locs.Geo, geoJSON)

	reg := prometheus.NewRegistry()
	metrics, err := telemetry.NewPrometheus(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	rec := auditmem.New(10)
	store := state.New(src, state.WithMetrics(metrics), state.WithRecorder(rec))
	h := httpapi.NewHandler(store, httpapi.WithHistory(rec), httpapi.WithGatherer(reg))
	return fixture{store: store, source: src, handler: h, audit: rec, reg: reg}
}

func do(t *testing.T, h http.Handler, method, url, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestSelectionDefaultsAndChange(t *testing.T) {
	f := setup(t)

	resp := do(t, f.handler, http.MethodGet, "/api/v1/selection", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var sel state.Selection
	if err := json.NewDecoder(resp.Body).Decode(&sel); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sel.Year != 2006 || sel.States == nil || len(sel.States) != 0 {
		t.Fatalf("unexpected default selection %+v", sel)
	}

	resp = do(t, f.handler, http.MethodPut, "/api/v1/selection/year", `{"year": -12}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if f.store.SelectedYear() != -12 {
		t.Fatalf("expected year -12, got %d", f.store.SelectedYear())
	}
}

func TestChangeYearRejectsBadBodies(t *testing.T) {
	f := setup(t)
	for _, body := range []string{`{"year":"2010"}`, `{"year":2010.5}`, `{}`, `not json`} {
		resp := do(t, f.handler, http.MethodPut, "/api/v1/selection/year", body)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, resp.Code)
		}
	}
	if f.store.SelectedYear() != 2006 {
		t.Fatalf("selection changed by rejected request")
	}
}

func TestLoadThenServeDatasets(t *testing.T) {
	f := setup(t)

	resp := do(t, f.handler, http.MethodPost, "/api/v1/load", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("load status %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, f.handler, http.MethodGet, "/api/v1/datasets/forest-carbon", "")
	var table struct {
		Columns []string            `json:"columns"`
		Rows    []map[string]string `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		t.Fatalf("decode table: %v", err)
	}
	if len(table.Rows) != 2 || table.Rows[1]["F2006"] != "" || table.Columns[0] != "Country" {
		t.Fatalf("unexpected table %+v", table)
	}

	resp = do(t, f.handler, http.MethodGet, "/api/v1/datasets/climate-disaster", "", "Accept", "text/csv")
	if ct := resp.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected csv content type, got %s", ct)
	}
	if !strings.Contains(resp.Header().Get("Content-Disposition"), "climate-disaster-") {
		t.Fatalf("unexpected disposition %s", resp.Header().Get("Content-Disposition"))
	}
	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 || records[1][1] != "Drought" {
		t.Fatalf("unexpected csv %v", records)
	}

	resp = do(t, f.handler, http.MethodGet, "/api/v1/datasets/forest-carbon?format=xml", "")
	if resp.Code != http.StatusNotAcceptable {
		t.Fatalf("expected 406, got %d", resp.Code)
	}

	resp = do(t, f.handler, http.MethodGet, "/api/v1/datasets/geo", "")
	if resp.Header().Get("Content-Type") != "application/geo+json" || resp.Body.String() != geoJSON {
		t.Fatalf("unexpected geo response %s %q", resp.Header().Get("Content-Type"), resp.Body.String())
	}
}

func TestGeoBeforeLoadIsEmptyObject(t *testing.T) {
	f := setup(t)
	resp := do(t, f.handler, http.MethodGet, "/api/v1/datasets/geo", "")
	if resp.Body.String() != "{}" {
		t.Fatalf("expected empty object, got %q", resp.Body.String())
	}
}

func TestLoadFailureReturnsBadGatewayAndStatus(t *testing.T) {
	f := setup(t)
	f.source.FailGet(state.DefaultLocations().Geo, errors.New("dns failure"))

	resp := do(t, f.handler, http.MethodPost, "/api/v1/load", "")
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	var body struct {
		Error  string           `json:"error"`
		Report state.LoadReport `json:"report"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(body.Error, "dns failure") || len(body.Report.Outcomes) != 3 {
		t.Fatalf("unexpected body %+v", body)
	}

	resp = do(t, f.handler, http.MethodGet, "/api/v1/status", "")
	var status struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Fields["geo"] != "empty" || status.Fields["forest_carbon"] != "populated" {
		t.Fatalf("unexpected status %+v", status.Fields)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	f := setup(t)
	do(t, f.handler, http.MethodPost, "/api/v1/load", "")
	do(t, f.handler, http.MethodPost, "/api/v1/load", "")

	resp := do(t, f.handler, http.MethodGet, "/api/v1/load/history?limit=1", "")
	var body struct {
		Entries []auditcore.Entry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Entries) != 1 || body.Entries[0].ID != 2 || !body.Entries[0].OK {
		t.Fatalf("unexpected history %+v", body.Entries)
	}

	resp = do(t, f.handler, http.MethodGet, "/api/v1/load/history?limit=abc", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", resp.Code)
	}

	bare := httpapi.NewHandler(f.store)
	resp = do(t, bare, http.MethodGet, "/api/v1/load/history", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without recorder, got %d", resp.Code)
	}
	resp = do(t, bare, http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for metrics without gatherer, got %d", resp.Code)
	}
}

type failingHistory struct{}

func (failingHistory) History(context.Context, int) ([]auditcore.Entry, error) {
	return nil, errors.New("db down")
}

func TestHistoryErrorAndEmpty(t *testing.T) {
	f := setup(t)
	h := httpapi.NewHandler(f.store, httpapi.WithHistory(failingHistory{}))
	if resp := do(t, h, http.MethodGet, "/api/v1/load/history", ""); resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	resp := do(t, f.handler, http.MethodGet, "/api/v1/load/history", "")
	if strings.TrimSpace(resp.Body.String()) != `{"entries":[]}` {
		t.Fatalf("expected empty entries, got %s", resp.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := setup(t)
	do(t, f.handler, http.MethodPut, "/api/v1/selection/year", `{"year":2011}`)
	do(t, f.handler, http.MethodPost, "/api/v1/load", "")
	resp := do(t, f.handler, http.MethodGet, "/metrics", "")
	body := resp.Body.String()
	for _, want := range []string{
		"carbonatlas_selected_year 2011",
		`carbonatlas_load_total{resource="geo",status="success"} 1`,
		`carbonatlas_dataset_rows{resource="forest_carbon"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	f := setup(t)
	resp := do(t, f.handler, http.MethodGet, "/api/v1/nope", "")
	if resp.Code != http.StatusNotFound || !strings.Contains(resp.Body.String(), "error") {
		t.Fatalf("unexpected 404 response %d %s", resp.Code, resp.Body.String())
	}
	resp = do(t, f.handler, http.MethodDelete, "/api/v1/selection", "")
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}
