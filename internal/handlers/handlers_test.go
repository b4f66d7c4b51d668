package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-planner/internal/database"
	"tour-planner/internal/geocoding"
	"tour-planner/internal/ilp"
	"tour-planner/internal/itinerary"
	"tour-planner/internal/matrix"
	"tour-planner/internal/models"
	"tour-planner/internal/testutil"
	"tour-planner/internal/tsp"
)

type mockGeocoder struct{}

func (m *mockGeocoder) Geocode(ctx context.Context, address string) (*geocoding.GeocodingResult, error) {
	return &geocoding.GeocodingResult{
		Coords:      models.Coordinates{Lat: 40.7128, Lng: -74.0060},
		DisplayName: address,
	}, nil
}

func (m *mockGeocoder) GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*geocoding.GeocodingResult, error) {
	return m.Geocode(ctx, address)
}

func (m *mockGeocoder) Search(ctx context.Context, query string, limit int) ([]geocoding.GeocodingResult, error) {
	r, _ := m.Geocode(ctx, query)
	return []geocoding.GeocodingResult{*r}, nil
}

// stubSolver fails every solve with err
type stubSolver struct{ err error }

func (s *stubSolver) SolveTour(ctx context.Context, m *matrix.Matrix) (*tsp.Result, error) {
	return nil, s.err
}
func (s *stubSolver) SolvePath(ctx context.Context, m *matrix.Matrix) (*tsp.Result, error) {
	return nil, s.err
}
func (s *stubSolver) SolveWalk(ctx context.Context, m *matrix.Matrix) (*tsp.Result, error) {
	return nil, s.err
}

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()
	db, err := database.NewJSONStore(filepath.Join(t.TempDir(), "runs.json"), testutil.NewMockDistanceCache())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	solver := tsp.NewSolver(ilp.NewBranchAndBound(0), tsp.Options{WarmStart: true})
	return &Handler{
		DB:           db,
		Geocoder:     &mockGeocoder{},
		DistanceCalc: testutil.NewMockDistanceCalculator(),
		Solver:       solver,
		Planner:      itinerary.NewPlanner(solver, 2),
	}
}

// lineRows is n nodes on a line, 10 apart.
func lineRows(n int) [][]int64 {
	rows := make([][]int64, n)
	for i := range rows {
		rows[i] = make([]int64, n)
		for j := range rows[i] {
			d := int64(i - j)
			if d < 0 {
				d = -d
			}
			rows[i][j] = d * 10
		}
	}
	return rows
}

func post(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHandleSolveTour(t *testing.T) {
	h := setupTestHandler(t)

	w := post(t, h.HandleSolveTour, "/api/v1/tours", map[string]interface{}{
		"matrix": lineRows(4),
		"names":  []string{"A", "B", "C", "D"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp SolveResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "optimal", resp.Status)
	assert.Equal(t, int64(60), resp.Objective)
	assert.Len(t, resp.Sequence, 4)
	assert.Equal(t, 0, resp.Sequence[0])
	require.NotNil(t, resp.Report)
	assert.Equal(t, int64(60), resp.Report.Total)
	assert.True(t, resp.Report.Closed)
	assert.Equal(t, "A", resp.Report.Names[0])
	require.NotEmpty(t, resp.RunID)

	run, err := h.DB.SolveRuns().GetByID(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.SolveKindTour, run.Kind)
	assert.Equal(t, 4, run.Size)
	assert.Equal(t, int64(60), run.Objective)
}

func TestHandleSolvePath(t *testing.T) {
	h := setupTestHandler(t)

	w := post(t, h.HandleSolvePath, "/api/v1/paths", map[string]interface{}{"matrix": lineRows(4)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp SolveResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, int64(30), resp.Objective)
	assert.False(t, resp.Report.Closed)
	assert.Len(t, resp.Report.Legs, 3)
}

func TestHandleSolveWalk(t *testing.T) {
	h := setupTestHandler(t)

	w := post(t, h.HandleSolveWalk, "/api/v1/walks", map[string]interface{}{
		"matrix": [][]int64{{0, 10, -1}, {10, 0, 10}, {-1, 10, 0}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp SolveResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, int64(40), resp.Objective)
	assert.Len(t, resp.Sequence, 4, "node 1 is passed twice")
	assert.Len(t, resp.Stops, 3)
	assert.True(t, resp.Report.Complete())
	assert.Equal(t, int64(40), resp.Report.Total)
}

func TestHandleSolveTour_FromStops(t *testing.T) {
	h := setupTestHandler(t)

	w := post(t, h.HandleSolveTour, "/api/v1/tours", map[string]interface{}{
		"stops": []models.Stop{
			{Name: "Origin, Somewhere", Lat: 0, Lng: 0.001},
			{Name: "North", Lat: 0.01, Lng: 0.001},
			{Name: "By address", Address: "1 Main St"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp SolveResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Origin", resp.Report.Names[0])
	assert.Len(t, resp.Sequence, 3)
}

func TestHandleSolveTour_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"invalid json", "{", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"no input", map[string]interface{}{}, http.StatusBadRequest, "MALFORMED_MATRIX"},
		{"empty matrix", `{"matrix": []}`, http.StatusBadRequest, "MALFORMED_MATRIX"},
		{"non-square", `{"matrix": [[0, 1], [1]]}`, http.StatusBadRequest, "MALFORMED_MATRIX"},
		{"fractional", `{"matrix": [[0, 1.5], [1, 0]]}`, http.StatusBadRequest, "MALFORMED_MATRIX"},
		{"disconnected", `{"matrix": [[0, -1], [-1, 0]]}`, http.StatusBadRequest, "MALFORMED_MATRIX"},
		{"names mismatch", `{"matrix": [[0, 1], [1, 0]], "names": ["a"]}`, http.StatusBadRequest, "MALFORMED_MATRIX"},
		{"infeasible", `{"matrix": [[0, 1, 1], [1, 0, -1], [1, -1, 0]]}`, http.StatusUnprocessableEntity, "INFEASIBLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupTestHandler(t)
			w := post(t, h.HandleSolveTour, "/api/v1/tours", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decodeError(t, w).Error.Code)
		})
	}
}

func TestHandleSolveTour_BackendErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"incomplete", fmt.Errorf("%w: deadline exceeded", tsp.ErrIncomplete), http.StatusGatewayTimeout, "INCOMPLETE"},
		{"solver", fmt.Errorf("%w: not a permutation", tsp.ErrSolver), http.StatusInternalServerError, "SOLVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupTestHandler(t)
			h.Solver = &stubSolver{err: tt.err}

			w := post(t, h.HandleSolveTour, "/api/v1/tours", map[string]interface{}{"matrix": lineRows(3)})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error.Code)

			// failed solves are recorded too
			runs, err := h.DB.SolveRuns().List(context.Background(), models.SolveKindTour, 10)
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, tsp.Outcome(tt.err), runs[0].Status)
			assert.NotEmpty(t, runs[0].Error)
		})
	}
}

func TestHandleBuildMatrix(t *testing.T) {
	h := setupTestHandler(t)
	calc := testutil.NewMockDistanceCalculator()
	a := models.Coordinates{Lat: 0.001, Lng: 0.001}
	b := models.Coordinates{Lat: 0.011, Lng: 0.001}
	calc.SetUnroutable(b, a)
	h.DistanceCalc = calc

	w := post(t, h.HandleBuildMatrix, "/api/v1/matrix", map[string]interface{}{
		"stops": []models.Stop{{Name: "A", Lat: a.Lat, Lng: a.Lng}, {Name: "B", Lat: b.Lat, Lng: b.Lng}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Names  []string  `json:"names"`
		Matrix [][]*int64 `json:"matrix"`
		Known  int       `json:"known"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, []string{"A", "B"}, resp.Names)
	assert.Equal(t, 3, resp.Known)
	require.NotNil(t, resp.Matrix[0][1])
	assert.Equal(t, int64(1110), *resp.Matrix[0][1])
	assert.Nil(t, resp.Matrix[1][0])
}

func TestHandleBuildMatrix_NoStops(t *testing.T) {
	h := setupTestHandler(t)
	w := post(t, h.HandleBuildMatrix, "/api/v1/matrix", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePlanItinerary(t *testing.T) {
	h := setupTestHandler(t)

	w := post(t, h.HandlePlanItinerary, "/api/v1/itineraries", map[string]interface{}{
		"matrix":     lineRows(6),
		"boundaries": []int{3},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ItineraryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Itinerary)
	assert.Len(t, resp.Legs, 2)
	assert.Len(t, resp.Path, 6)
	assert.NotEmpty(t, resp.RunID)
}

func TestHandlePlanItinerary_BadSegments(t *testing.T) {
	h := setupTestHandler(t)

	w := post(t, h.HandlePlanItinerary, "/api/v1/itineraries", map[string]interface{}{
		"matrix":   lineRows(4),
		"segments": []itinerary.Segment{{From: 0, To: 3}, {From: 2, To: 4}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Error.Code)
}

func TestHandleRuns(t *testing.T) {
	h := setupTestHandler(t)
	for i := 0; i < 3; i++ {
		w := post(t, h.HandleSolvePath, "/api/v1/paths", map[string]interface{}{"matrix": lineRows(3)})
		require.Equal(t, http.StatusOK, w.Code)
	}
	post(t, h.HandleSolveTour, "/api/v1/tours", map[string]interface{}{"matrix": lineRows(3)})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs?kind=path&limit=2", nil)
	w := httptest.NewRecorder()
	h.HandleListRuns(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var list RunListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Equal(t, 2, list.Total)
	assert.Equal(t, models.SolveKindPath, list.Runs[0].Kind)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+list.Runs[0].ID, nil)
	w = httptest.NewRecorder()
	h.HandleGetRun(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var run models.SolveRun
	require.NoError(t, json.NewDecoder(w.Body).Decode(&run))
	assert.Equal(t, list.Runs[0].ID, run.ID)
	assert.Equal(t, int64(20), run.Objective)
}

func TestHandleRuns_Errors(t *testing.T) {
	h := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/does-not-exist", nil)
	w := httptest.NewRecorder()
	h.HandleGetRun(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Error.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=zero", nil)
	w = httptest.NewRecorder()
	h.HandleListRuns(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHealthCheck(t *testing.T) {
	h := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h.HandleHealthCheck(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestHandleAddressSearch(t *testing.T) {
	h := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/address-search?address=Lanzhou", nil)
	w := httptest.NewRecorder()
	h.HandleAddressSearch(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var results []geocoding.GeocodingResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&results))
	require.Len(t, results, 1)
	assert.Equal(t, "Lanzhou", results[0].DisplayName)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/address-search?address=ab", nil)
	w = httptest.NewRecorder()
	h.HandleAddressSearch(w, req)
	assert.Equal(t, "[]\n", w.Body.String())
}
