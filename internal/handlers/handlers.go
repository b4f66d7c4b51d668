package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tour-planner/internal/database"
	"tour-planner/internal/distance"
	"tour-planner/internal/geocoding"
	"tour-planner/internal/itinerary"
	"tour-planner/internal/matrix"
	"tour-planner/internal/tsp"
)

// TourSolver is the part of tsp.Solver the handlers use
type TourSolver interface {
	SolveTour(ctx context.Context, m *matrix.Matrix) (*tsp.Result, error)
	SolvePath(ctx context.Context, m *matrix.Matrix) (*tsp.Result, error)
	SolveWalk(ctx context.Context, m *matrix.Matrix) (*tsp.Result, error)
}

// Handler provides common handler utilities and dependencies
type Handler struct {
	DB           database.DataStore
	Geocoder     geocoding.Geocoder
	DistanceCalc distance.DistanceCalculator
	Solver       TourSolver
	Planner      *itinerary.Planner
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	h.writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// handleNotFound handles 404 errors
func (h *Handler) handleNotFound(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// handleValidationError handles 400 errors
func (h *Handler) handleValidationError(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(w http.ResponseWriter, err error) {
	log.Printf("[ERROR] Internal error: %v", err)
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An error occurred. Please try again.", nil)
}

// handleSolveError maps solver, provider and input errors to a status code.
// A cancelled or timed out solve is checked first so a partial result is
// never reported as a bad request.
func (h *Handler) handleSolveError(w http.ResponseWriter, err error) {
	var geoErr *geocoding.ErrGeocodingFailed
	var distErr *distance.ErrDistanceCalculationFailed
	switch {
	case errors.Is(err, tsp.ErrIncomplete):
		h.writeError(w, http.StatusGatewayTimeout, "INCOMPLETE", err.Error(), nil)
	case errors.Is(err, tsp.ErrMalformedMatrix), isMatrixError(err):
		h.writeError(w, http.StatusBadRequest, "MALFORMED_MATRIX", err.Error(), nil)
	case errors.Is(err, itinerary.ErrInvalidSegment):
		h.handleValidationError(w, err.Error())
	case errors.Is(err, tsp.ErrInfeasible):
		h.writeError(w, http.StatusUnprocessableEntity, "INFEASIBLE", err.Error(), nil)
	case errors.As(err, &geoErr):
		h.writeError(w, http.StatusUnprocessableEntity, "GEOCODING_FAILED", err.Error(), nil)
	case errors.As(err, &distErr):
		h.writeError(w, http.StatusBadGateway, "DISTANCE_FAILED", distErr.Reason, nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.writeError(w, http.StatusGatewayTimeout, "INCOMPLETE", err.Error(), nil)
	default:
		log.Printf("[ERROR] Solver error: %v", err)
		h.writeError(w, http.StatusInternalServerError, "SOLVER_ERROR", err.Error(), nil)
	}
}

func isMatrixError(err error) bool {
	return errors.Is(err, matrix.ErrEmpty) ||
		errors.Is(err, matrix.ErrNonSquare) ||
		errors.Is(err, matrix.ErrNegative) ||
		errors.Is(err, matrix.ErrFractional) ||
		errors.Is(err, matrix.ErrOutOfRange)
}

// checkNotFound checks if an error is a not found error
func (h *Handler) checkNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

// HandleHealthCheck handles GET /api/v1/health
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "connected"

	if err := h.DB.HealthCheck(r.Context()); err != nil {
		log.Printf("[ERROR] Health check failed: %v", err)
		status = "degraded"
		dbStatus = "error"
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":   status,
		"version":  "1.0.0",
		"database": dbStatus,
	})
}
