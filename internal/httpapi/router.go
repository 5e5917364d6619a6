package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"reelsmith/internal/ledger"
	"reelsmith/internal/logging"
)

const defaultListLimit = 50

// RunReader is the read side of the run ledger.
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]ledger.Run, error)
	GetRun(ctx context.Context, id string) (ledger.Run, error)
	ListAssets(ctx context.Context, runID string) ([]ledger.AssetOutcome, error)
}

// RunDetail is a run plus its per-scene outcomes.
type RunDetail struct {
	ledger.Run
	Assets []ledger.AssetOutcome `json:"assets"`
}

type handlers struct {
	runs   RunReader
	logger *slog.Logger
}

// NewRouter builds the HTTP handler tree.
func NewRouter(runs RunReader, logger *slog.Logger) http.Handler {
	h := &handlers{runs: runs, logger: logging.NewComponentLogger(logger, "http-api")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/ping", h.ping)
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", h.listRuns)
		r.Get("/{id}", h.getRun)
	})
	return r
}

// logRequests writes one structured line per request once the handler returns.
func (h *handlers) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			h.logger.Info("http request",
				logging.String(logging.FieldEventType, "http_request"),
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Int("bytes", ww.BytesWritten()),
				logging.Duration("duration", time.Since(start)),
				logging.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (h *handlers) ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (h *handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("list runs failed", logging.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []ledger.Run{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *handlers) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("get run failed", logging.String("run_id", id), logging.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	assets, err := h.runs.ListAssets(r.Context(), id)
	if err != nil {
		h.logger.Error("list assets failed", logging.String("run_id", id), logging.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load run assets")
		return
	}
	if assets == nil {
		assets = []ledger.AssetOutcome{}
	}
	h.writeJSON(w, http.StatusOK, RunDetail{Run: run, Assets: assets})
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
