// Package api serves stored providers and single-record processing over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provider-cli/internal/model"
	"github.com/sells-group/provider-cli/internal/report"
	"github.com/sells-group/provider-cli/internal/store"
)

// maxBodyBytes bounds a process request body.
const maxBodyBytes = 1 << 20

// Reader is the part of the store the API reads from.
type Reader interface {
	GetProvider(ctx context.Context, npi string) (*model.StoredProvider, error)
	ListProviders(ctx context.Context, filter store.ProviderFilter) ([]model.StoredProvider, error)
}

// Processor runs one record through the pipeline.
type Processor interface {
	ProcessProvider(ctx context.Context, in model.Provider) model.ProviderResult
}

type handler struct {
	reader Reader
	proc   Processor
}

// NewRouter builds the HTTP routes. allowedOrigins feeds the CORS policy.
func NewRouter(reader Reader, proc Processor, allowedOrigins []string) http.Handler {
	h := &handler{reader: reader, proc: proc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Route("/providers", func(r chi.Router) {
		r.Get("/", h.listProviders)
		r.Post("/process", h.processProvider)
		r.Get("/{npi}", h.getProvider)
	})
	r.Get("/report.csv", h.reportCSV)
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listProviders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	providers, err := h.reader.ListProviders(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list providers", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list providers failed")
		return
	}
	if providers == nil {
		providers = []model.StoredProvider{}
	}
	writeJSON(w, http.StatusOK, providers)
}

func (h *handler) getProvider(w http.ResponseWriter, r *http.Request) {
	npi := chi.URLParam(r, "npi")
	p, err := h.reader.GetProvider(r.Context(), npi)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "provider "+npi+" not found")
		return
	}
	if err != nil {
		zap.L().Error("api: get provider", zap.String("npi", npi), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get provider failed")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) processProvider(w http.ResponseWriter, r *http.Request) {
	var in model.Provider
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.NPI == "" && in.Name == "" {
		writeError(w, http.StatusBadRequest, "npi or name is required")
		return
	}

	writeJSON(w, http.StatusOK, h.proc.ProcessProvider(r.Context(), in))
}

func (h *handler) reportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	providers, err := h.reader.ListProviders(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="providers.csv"`)
	if err := report.WriteCSV(w, report.StoredRows(providers)); err != nil {
		zap.L().Error("api: write report", zap.Error(err))
	}
}

func parseFilter(r *http.Request) (store.ProviderFilter, error) {
	var f store.ProviderFilter
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		f.Status = model.FinalStatus(s)
		if !f.Status.Valid() {
			return f, eris.Errorf("unknown status %q", s)
		}
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			return f, eris.New("limit must be a positive integer")
		}
		f.Limit = n
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
