// Package httpapi serves the application state to UI collaborators over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	auditcore "carbonatlas/internal/audit/core"
	"carbonatlas/internal/dataset"
	"carbonatlas/internal/state"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
)

// Store is the state surface the handler reads and drives.
type Store interface {
	Selection() state.Selection
	ChangeSelectedYear(year int)
	ForestCarbon() dataset.Table
	ClimateDisaster() dataset.Table
	GeoData() dataset.GeoDocument
	Status() map[state.Resource]state.FieldStatus
	LoadData(ctx context.Context) (state.LoadReport, error)
}

// History lists recorded loads.
type History interface {
	History(ctx context.Context, limit int) ([]auditcore.Entry, error)
}

// Handler routes the /api/v1 endpoints and, optionally, /metrics.
type Handler struct {
	store   Store
	history History
	metrics http.Handler
	logger  *zap.Logger
	router  *httprouter.Router
}

// Option configures a Handler.
type Option func(*Handler)

// WithHistory enables GET /api/v1/load/history.
func WithHistory(h History) Option { return func(hd *Handler) { hd.history = h } }

// WithGatherer exposes g on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(hd *Handler) {
		if g != nil {
			hd.metrics = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
		}
	}
}

// WithLogger sets the logger used for failed loads and write errors.
func WithLogger(l *zap.Logger) Option {
	return func(hd *Handler) {
		if l != nil {
			hd.logger = l
		}
	}
}

// NewHandler constructs the HTTP handler for store.
func NewHandler(store Store, opts ...Option) *Handler {
	h := &Handler{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}

	r := httprouter.New()
	r.GET("/api/v1/selection", h.handleSelection)
	r.PUT("/api/v1/selection/year", h.handleChangeYear)
	r.GET("/api/v1/datasets/forest-carbon", h.handleTable(state.ResourceForestCarbon, store.ForestCarbon))
	r.GET("/api/v1/datasets/climate-disaster", h.handleTable(state.ResourceClimateDisaster, store.ClimateDisaster))
	r.GET("/api/v1/datasets/geo", h.handleGeo)
	r.GET("/api/v1/status", h.handleStatus)
	r.POST("/api/v1/load", h.handleLoad)
	r.GET("/api/v1/load/history", h.handleHistory)
	if h.metrics != nil {
		r.Handler(http.MethodGet, "/metrics", h.metrics)
	}
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) handleSelection(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, h.store.Selection())
}

func (h *Handler) handleChangeYear(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		Year *int `json:"year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode body: %v", err))
		return
	}
	if body.Year == nil {
		writeError(w, http.StatusBadRequest, "year is required")
		return
	}
	h.store.ChangeSelectedYear(*body.Year)
	writeJSON(w, http.StatusOK, h.store.Selection())
}

func (h *Handler) handleTable(res state.Resource, get func() dataset.Table) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		table := get()
		switch negotiateFormat(r) {
		case formatJSON:
			writeJSON(w, http.StatusOK, table)
		case formatCSV:
			h.streamCSV(w, res, table)
		default:
			writeError(w, http.StatusNotAcceptable, "unsupported format")
		}
	}
}

func (h *Handler) handleGeo(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.store.GeoData().Bytes()); err != nil {
		h.logger.Debug("write geo response", zap.Error(err))
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fields":    h.store.Status(),
		"selection": h.store.Selection(),
	})
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	report, err := h.store.LoadData(r.Context())
	if err != nil {
		h.logger.Warn("load request finished with failures", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "report": report})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "load history not configured")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := h.history.History(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []auditcore.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func negotiateFormat(r *http.Request) string {
	wanted := strings.ToLower(r.URL.Query().Get("format"))
	if wanted == "" {
		if strings.Contains(r.Header.Get("Accept"), "text/csv") {
			wanted = formatCSV
		} else {
			wanted = formatJSON
		}
	}
	switch wanted {
	case formatJSON, formatCSV:
		return wanted
	}
	return ""
}

func (h *Handler) streamCSV(w http.ResponseWriter, res state.Resource, table dataset.Table) {
	filename := fmt.Sprintf("%s-%s.csv", strings.ReplaceAll(string(res), "_", "-"), time.Now().UTC().Format("20060102T150405Z"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if err := table.WriteCSV(w); err != nil {
		h.logger.Debug("stream csv", zap.String("resource", string(res)), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
