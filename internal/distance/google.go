package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"tour-planner/internal/archive"
	"tour-planner/internal/database"
	"tour-planner/internal/models"
)

const defaultGoogleBaseURL = "https://maps.googleapis.com"

type googleFetcher struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type googleMatrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// NewGoogleCalculator creates a distance calculator backed by the Google
// Distance Matrix API. arch may be nil to skip archiving responses.
func NewGoogleCalculator(apiKey string, cache database.DistanceCacheRepository, arch *archive.Archive, opts Options) DistanceCalculator {
	opts = opts.withDefaults()
	base := opts.BaseURL
	if base == "" {
		base = defaultGoogleBaseURL
	}
	f := &googleFetcher{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
	return newMatrixService(f, cache, arch, opts)
}

func (f *googleFetcher) name() string { return "google" }

// joinLatLng formats points as lat,lng|lat,lng.
func joinLatLng(points []models.Coordinates) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
	}
	return strings.Join(parts, "|")
}

func (f *googleFetcher) fetch(ctx context.Context, origins, destinations []models.Coordinates) ([][]*element, []byte, error) {
	q := url.Values{}
	q.Set("origins", joinLatLng(origins))
	q.Set("destinations", joinLatLng(destinations))
	q.Set("key", f.apiKey)
	queryURL := f.baseURL + "/maps/api/distancematrix/json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] Google API request failed: origins=%d destinations=%d err=%v", len(origins), len(destinations), err)
		return nil, nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[ERROR] Google API error: status=%d body=%s", resp.StatusCode, string(body))
		return nil, nil, &ErrDistanceCalculationFailed{
			Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var gr googleMatrixResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}
	if gr.Status != "OK" {
		log.Printf("[ERROR] Google returned error status: status=%s message=%s", gr.Status, gr.ErrorMessage)
		return nil, nil, &ErrDistanceCalculationFailed{Reason: fmt.Sprintf("Google error: %s %s", gr.Status, gr.ErrorMessage)}
	}

	rows := make([][]*element, len(gr.Rows))
	for i, row := range gr.Rows {
		rows[i] = make([]*element, len(row.Elements))
		for j, el := range row.Elements {
			if el.Status != "OK" {
				continue
			}
			rows[i][j] = &element{DistanceMeters: el.Distance.Value, DurationSecs: el.Duration.Value}
		}
	}
	return rows, body, nil
}
