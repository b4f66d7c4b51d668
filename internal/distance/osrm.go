package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"tour-planner/internal/archive"
	"tour-planner/internal/database"
	"tour-planner/internal/models"
)

const defaultOSRMBaseURL = "https://router.project-osrm.org"

type osrmFetcher struct {
	baseURL    string
	httpClient *http.Client
}

// Unroutable pairs come back as null.
type osrmTableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// NewOSRMCalculator creates a new OSRM distance calculator with caching.
// arch may be nil to skip archiving responses.
func NewOSRMCalculator(cache database.DistanceCacheRepository, arch *archive.Archive, opts Options) DistanceCalculator {
	opts = opts.withDefaults()
	base := opts.BaseURL
	if base == "" {
		base = defaultOSRMBaseURL
	}
	f := &osrmFetcher{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
	return newMatrixService(f, cache, arch, opts)
}

func (f *osrmFetcher) name() string { return "osrm" }

// fetch sends origins then destinations as one coordinate list and selects
// them with the sources and destinations parameters.
func (f *osrmFetcher) fetch(ctx context.Context, origins, destinations []models.Coordinates) ([][]*element, []byte, error) {
	coords := make([]string, 0, len(origins)+len(destinations))
	sources := make([]string, len(origins))
	dests := make([]string, len(destinations))
	for i, p := range origins {
		coords = append(coords, fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat))
		sources[i] = strconv.Itoa(i)
	}
	for i, p := range destinations {
		coords = append(coords, fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat))
		dests[i] = strconv.Itoa(len(origins) + i)
	}

	queryURL := fmt.Sprintf("%s/table/v1/driving/%s?annotations=distance,duration&sources=%s&destinations=%s",
		f.baseURL, strings.Join(coords, ";"), strings.Join(sources, ";"), strings.Join(dests, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		log.Printf("[ERROR] Failed to create OSRM request: origins=%d err=%v", len(origins), err)
		return nil, nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] OSRM API request failed: origins=%d destinations=%d err=%v", len(origins), len(destinations), err)
		return nil, nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[ERROR] OSRM API error: status=%d body=%s", resp.StatusCode, string(body))
		return nil, nil, &ErrDistanceCalculationFailed{
			Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var osrmResp osrmTableResponse
	if err := json.Unmarshal(body, &osrmResp); err != nil {
		log.Printf("[ERROR] Failed to decode OSRM response: err=%v", err)
		return nil, nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}
	if osrmResp.Code != "Ok" {
		log.Printf("[ERROR] OSRM returned error code: code=%s message=%s", osrmResp.Code, osrmResp.Message)
		return nil, nil, &ErrDistanceCalculationFailed{Reason: fmt.Sprintf("OSRM error: %s", osrmResp.Code)}
	}

	rows := make([][]*element, len(osrmResp.Distances))
	for i, row := range osrmResp.Distances {
		rows[i] = make([]*element, len(row))
		for j, d := range row {
			if d == nil {
				continue
			}
			el := &element{DistanceMeters: *d}
			if i < len(osrmResp.Durations) && j < len(osrmResp.Durations[i]) && osrmResp.Durations[i][j] != nil {
				el.DurationSecs = *osrmResp.Durations[i][j]
			}
			rows[i][j] = el
		}
	}
	return rows, body, nil
}
