package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tour-planner/internal/models"
	"tour-planner/internal/tsp"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// RunListResponse represents the response for listing solve runs
type RunListResponse struct {
	Runs  []models.SolveRun `json:"runs"`
	Total int               `json:"total"`
}

// recordRun stores the outcome of a solve and returns its id. A failure to
// persist is logged and does not fail the request.
func (h *Handler) recordRun(ctx context.Context, kind models.SolveKind, size int, res *tsp.Result, solveErr error, start time.Time) string {
	if h.DB == nil {
		return ""
	}
	run := &models.SolveRun{
		Kind:       kind,
		Size:       size,
		Status:     tsp.Outcome(solveErr),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if solveErr != nil {
		run.Error = solveErr.Error()
	} else {
		// itineraries mix leg statuses and keep the "ok" outcome
		if kind != models.SolveKindItinerary {
			run.Status = res.Status.String()
		}
		run.Objective = res.Objective
		run.Sequence = res.Sequence
		run.Iterations = res.Iterations
	}

	// the request context may already be cancelled after a timeout
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	created, err := h.DB.SolveRuns().Create(saveCtx, run)
	if err != nil {
		log.Printf("[ERROR] Failed to record solve run: kind=%s err=%v", kind, err)
		return ""
	}
	return created.ID
}

// HandleListRuns handles GET /api/v1/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	kind := models.SolveKind(r.URL.Query().Get("kind"))
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.handleValidationError(w, "Invalid limit")
			return
		}
		limit = min(n, maxRunLimit)
	}

	log.Printf("[HTTP] GET /api/v1/runs: kind=%s limit=%d", kind, limit)
	runs, err := h.DB.SolveRuns().List(r.Context(), kind, limit)
	if err != nil {
		h.handleInternalError(w, err)
		return
	}
	if runs == nil {
		runs = []models.SolveRun{}
	}

	h.writeJSON(w, http.StatusOK, RunListResponse{Runs: runs, Total: len(runs)})
}

// HandleGetRun handles GET /api/v1/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	if id == "" || strings.Contains(id, "/") {
		h.handleValidationError(w, "Invalid run ID")
		return
	}

	log.Printf("[HTTP] GET /api/v1/runs/{id}: id=%s", id)
	run, err := h.DB.SolveRuns().GetByID(r.Context(), id)
	if err != nil {
		if h.checkNotFound(err) {
			h.handleNotFound(w, "Run not found")
			return
		}
		h.handleInternalError(w, err)
		return
	}
	if run == nil {
		h.handleNotFound(w, "Run not found")
		return
	}

	h.writeJSON(w, http.StatusOK, run)
}
