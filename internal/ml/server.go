package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/features"

	"github.com/rs/zerolog/log"
)

const (
	maxBodyBytes     = 64 << 20
	defaultRunsLimit = 50
)

// RunStore persists completed runs. Implementations must write a run and all of its
// predictions atomically.
type RunStore interface {
	SaveRun(run *RunResult) error
	GetRun(id string) (*RunResult, error)
	ListRuns(limit int) ([]RunResult, error)
	DeleteRun(id string) error
}

// SummaryFunc renders the report attached to a run in API responses.
type SummaryFunc func(preds []Prediction) any

// ServerConfig holds the HTTP serving options.
type ServerConfig struct {
	Port           int
	DefaultModel   common.ModelID
	MaxRecords     int
	RequestTimeout time.Duration
	Summarize      SummaryFunc
}

// ModelServer provides HTTP API for churn predictions
type ModelServer struct {
	runner   *Runner
	registry *Registry
	store    RunStore
	cfg      ServerConfig
	mux      *http.ServeMux
	server   *http.Server
}

// PredictRequest is an uploaded table in record form.
type PredictRequest struct {
	Model   string            `json:"model,omitempty"`
	Source  string            `json:"source,omitempty"`
	Records []features.Record `json:"records"`
}

// RunResponse is a run together with its report.
type RunResponse struct {
	*RunResult
	Summary any `json:"summary,omitempty"`
}

// ModelInfoResponse describes a loaded model.
type ModelInfoResponse struct {
	Model       common.ModelID `json:"model"`
	DisplayName string         `json:"display_name"`
	ArtifactInfo
	Features []string `json:"features"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewModelServer creates a new HTTP server for churn predictions. store may be nil,
// in which case runs are not persisted and the run history endpoints are not served.
func NewModelServer(runner *Runner, registry *Registry, store RunStore, cfg ServerConfig) *ModelServer {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = common.RandomForest
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	ms := &ModelServer{
		runner:   runner,
		registry: registry,
		store:    store,
		cfg:      cfg,
		mux:      http.NewServeMux(),
	}

	ms.mux.HandleFunc("POST /predict", ms.handlePredict)
	ms.mux.HandleFunc("GET /health", ms.handleHealth)
	ms.mux.HandleFunc("GET /models/{id}", ms.handleModelInfo)
	if store != nil {
		ms.mux.HandleFunc("GET /runs", ms.handleListRuns)
		ms.mux.HandleFunc("GET /runs/{id}", ms.handleGetRun)
		ms.mux.HandleFunc("DELETE /runs/{id}", ms.handleDeleteRun)
	}

	ms.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      ms.mux,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return ms
}

// Handle mounts an extra handler, e.g. the metrics endpoint. Call before Start.
func (ms *ModelServer) Handle(pattern string, h http.Handler) {
	ms.mux.Handle(pattern, h)
}

// Handler returns the server's routes.
func (ms *ModelServer) Handler() http.Handler {
	return ms.mux
}

// Start begins serving HTTP requests
func (ms *ModelServer) Start() error {
	log.Info().Str("addr", ms.server.Addr).Msg("starting prediction server")
	return ms.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (ms *ModelServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

func (ms *ModelServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	id := ms.cfg.DefaultModel
	if req.Model != "" {
		parsed, err := common.ParseModelID(req.Model)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		id = parsed
	}
	if ms.cfg.MaxRecords > 0 && len(req.Records) > ms.cfg.MaxRecords {
		respondError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("%d records exceed the limit of %d", len(req.Records), ms.cfg.MaxRecords))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ms.cfg.RequestTimeout)
	defer cancel()

	run, err := ms.runner.PredictRun(ctx, features.TableFromRecords(req.Records), id, req.Source)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	if ms.store != nil {
		if err := ms.store.SaveRun(run); err != nil {
			log.Error().Err(err).Str("run_id", run.ID).Msg("failed to persist run")
			respondError(w, http.StatusInternalServerError, "failed to persist run")
			return
		}
	}

	respondJSON(w, http.StatusOK, ms.response(run))
}

func (ms *ModelServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := ms.store.ListRuns(limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list runs")
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []RunResult{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func (ms *ModelServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := ms.store.GetRun(r.PathValue("id"))
	if errors.Is(err, ErrRunNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to read run")
		respondError(w, http.StatusInternalServerError, "failed to read run")
		return
	}
	respondJSON(w, http.StatusOK, ms.response(run))
}

func (ms *ModelServer) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := ms.store.DeleteRun(id)
	if errors.Is(err, ErrRunNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Str("run_id", id).Msg("failed to delete run")
		respondError(w, http.StatusInternalServerError, "failed to delete run")
		return
	}
	log.Info().Str("run_id", id).Msg("run deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (ms *ModelServer) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseModelID(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	info, err := ms.registry.Info(id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	schema, err := ms.registry.Schema(id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ModelInfoResponse{
		Model:        id,
		DisplayName:  id.DisplayName(),
		ArtifactInfo: info,
		Features:     schema,
	})
}

func (ms *ModelServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	models := make(map[string]string, len(common.ModelIDs))
	healthy := true
	for _, id := range common.ModelIDs {
		if _, err := ms.registry.Info(id); err != nil {
			models[id.String()] = err.Error()
			healthy = false
			continue
		}
		models[id.String()] = "ready"
	}

	status, state := http.StatusOK, "ok"
	if !healthy {
		status, state = http.StatusServiceUnavailable, "degraded"
	}
	respondJSON(w, status, map[string]any{
		"status": state,
		"models": models,
	})
}

func (ms *ModelServer) response(run *RunResult) RunResponse {
	resp := RunResponse{RunResult: run}
	if ms.cfg.Summarize != nil {
		resp.Summary = ms.cfg.Summarize(run.Predictions)
	}
	return resp
}

func statusFor(err error) int {
	var inErr *InputError
	var cfgErr *ConfigurationError
	switch {
	case errors.As(err, &inErr):
		return http.StatusBadRequest
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}
