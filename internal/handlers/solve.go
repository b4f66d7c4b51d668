package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"tour-planner/internal/geocoding"
	"tour-planner/internal/itinerary"
	"tour-planner/internal/matrix"
	"tour-planner/internal/models"
	"tour-planner/internal/report"
	"tour-planner/internal/tsp"
)

const geocodeRetries = 3

// SolveRequest carries either a distance matrix or stops to build one from.
type SolveRequest struct {
	Matrix *matrix.Matrix `json:"matrix,omitempty"`
	Stops  []models.Stop  `json:"stops,omitempty"`
	// Names labels matrix rows; ignored when Stops is given.
	Names []string `json:"names,omitempty"`
}

// SolveResponse is the result of a tour, path or walk solve
type SolveResponse struct {
	RunID      string         `json:"run_id,omitempty"`
	Status     string         `json:"status"`
	Objective  int64          `json:"objective"`
	Sequence   []int          `json:"sequence"`
	Stops      []int          `json:"stops,omitempty"`
	Iterations int            `json:"iterations"`
	Report     *report.Report `json:"report"`
}

// MatrixResponse is a distance matrix built from stops
type MatrixResponse struct {
	Names  []string             `json:"names"`
	Points []models.Coordinates `json:"points"`
	Matrix *matrix.Matrix       `json:"matrix"`
	Known  int                  `json:"known"`
}

// ItineraryRequest splits a matrix into segments solved as open paths.
// Boundaries is a shorthand for consecutive segments.
type ItineraryRequest struct {
	SolveRequest
	Segments   []itinerary.Segment `json:"segments,omitempty"`
	Boundaries []int               `json:"boundaries,omitempty"`
}

// ItineraryResponse wraps a planned itinerary with its run id
type ItineraryResponse struct {
	RunID string `json:"run_id,omitempty"`
	*itinerary.Itinerary
}

type solveFunc func(ctx context.Context, m *matrix.Matrix) (*tsp.Result, error)

// HandleSolveTour handles POST /api/v1/tours
func (h *Handler) HandleSolveTour(w http.ResponseWriter, r *http.Request) {
	h.handleSolve(w, r, models.SolveKindTour, h.Solver.SolveTour, true)
}

// HandleSolvePath handles POST /api/v1/paths
func (h *Handler) HandleSolvePath(w http.ResponseWriter, r *http.Request) {
	h.handleSolve(w, r, models.SolveKindPath, h.Solver.SolvePath, false)
}

// HandleSolveWalk handles POST /api/v1/walks
func (h *Handler) HandleSolveWalk(w http.ResponseWriter, r *http.Request) {
	h.handleSolve(w, r, models.SolveKindWalk, h.Solver.SolveWalk, true)
}

func (h *Handler) handleSolve(w http.ResponseWriter, r *http.Request, kind models.SolveKind, solve solveFunc, closed bool) {
	route := fmt.Sprintf("POST /api/v1/%ss", kind)

	var req SolveRequest
	if !h.decode(w, r, route, &req) {
		return
	}

	m, names, err := h.resolveMatrix(r.Context(), &req)
	if err != nil {
		log.Printf("[HTTP] %s: matrix_error err=%v", route, err)
		h.handleSolveError(w, err)
		return
	}
	log.Printf("[HTTP] %s: n=%d", route, m.Size())

	start := time.Now()
	res, err := solve(r.Context(), m)
	runID := h.recordRun(r.Context(), kind, m.Size(), res, err, start)
	if err != nil {
		h.handleSolveError(w, err)
		return
	}

	rep, err := report.Build(m, res.Sequence, report.Options{Names: names, Closed: closed})
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, SolveResponse{
		RunID:      runID,
		Status:     res.Status.String(),
		Objective:  res.Objective,
		Sequence:   res.Sequence,
		Stops:      res.Stops,
		Iterations: res.Iterations,
		Report:     rep,
	})
}

// HandleBuildMatrix handles POST /api/v1/matrix
func (h *Handler) HandleBuildMatrix(w http.ResponseWriter, r *http.Request) {
	const route = "POST /api/v1/matrix"

	var req SolveRequest
	if !h.decode(w, r, route, &req) {
		return
	}
	if len(req.Stops) == 0 {
		h.handleValidationError(w, "At least one stop is required")
		return
	}

	points, err := geocoding.ResolveStops(r.Context(), h.Geocoder, req.Stops, geocodeRetries)
	if err != nil {
		h.handleSolveError(w, err)
		return
	}
	m, err := h.DistanceCalc.GetDistanceMatrix(r.Context(), points)
	if err != nil {
		h.handleSolveError(w, err)
		return
	}

	log.Printf("[HTTP] %s: points=%d known=%d", route, len(points), m.KnownCount())
	h.writeJSON(w, http.StatusOK, MatrixResponse{
		Names:  stopNames(req.Stops),
		Points: points,
		Matrix: m,
		Known:  m.KnownCount(),
	})
}

// HandlePlanItinerary handles POST /api/v1/itineraries
func (h *Handler) HandlePlanItinerary(w http.ResponseWriter, r *http.Request) {
	const route = "POST /api/v1/itineraries"

	var req ItineraryRequest
	if !h.decode(w, r, route, &req) {
		return
	}

	m, names, err := h.resolveMatrix(r.Context(), &req.SolveRequest)
	if err != nil {
		h.handleSolveError(w, err)
		return
	}

	segments := req.Segments
	if len(segments) == 0 {
		segments = itinerary.Split(m.Size(), req.Boundaries...)
	}
	log.Printf("[HTTP] %s: n=%d segments=%d", route, m.Size(), len(segments))

	start := time.Now()
	it, err := h.Planner.Plan(r.Context(), m, segments, names)
	var res *tsp.Result
	if err == nil {
		res = &tsp.Result{Sequence: it.Path, Objective: it.Report.Total}
		for _, leg := range it.Legs {
			res.Iterations += leg.Iterations
		}
	}
	runID := h.recordRun(r.Context(), models.SolveKindItinerary, m.Size(), res, err, start)
	if err != nil {
		h.handleSolveError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ItineraryResponse{RunID: runID, Itinerary: it})
}

// decode reads a JSON body; it writes the error response and returns false
// on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, route string, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Printf("[HTTP] %s: invalid_json err=%v", route, err)
		if isMatrixError(err) {
			h.writeError(w, http.StatusBadRequest, "MALFORMED_MATRIX", err.Error(), nil)
			return false
		}
		h.handleValidationError(w, "Invalid request body")
		return false
	}
	return true
}

// resolveMatrix returns the request matrix, or builds one from its stops.
func (h *Handler) resolveMatrix(ctx context.Context, req *SolveRequest) (*matrix.Matrix, []string, error) {
	switch {
	case req.Matrix != nil:
		if err := req.Matrix.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", tsp.ErrMalformedMatrix, err)
		}
		if req.Names != nil && len(req.Names) != req.Matrix.Size() {
			return nil, nil, fmt.Errorf("%w: %d names for %d nodes", tsp.ErrMalformedMatrix, len(req.Names), req.Matrix.Size())
		}
		return req.Matrix, req.Names, nil
	case len(req.Stops) > 0:
		if h.DistanceCalc == nil {
			return nil, nil, errors.New("no distance provider configured")
		}
		points, err := geocoding.ResolveStops(ctx, h.Geocoder, req.Stops, geocodeRetries)
		if err != nil {
			return nil, nil, err
		}
		m, err := h.DistanceCalc.GetDistanceMatrix(ctx, points)
		if err != nil {
			return nil, nil, err
		}
		return m, stopNames(req.Stops), nil
	default:
		return nil, nil, fmt.Errorf("%w: request needs a matrix or stops", tsp.ErrMalformedMatrix)
	}
}

func stopNames(stops []models.Stop) []string {
	names := make([]string, len(stops))
	for i := range stops {
		names[i] = stops[i].ShortName()
	}
	return names
}
