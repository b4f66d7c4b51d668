// Package geocoding resolves stop addresses to coordinates.
package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"tour-planner/internal/models"
)

const userAgent = "TourPlanner/1.0"

// GeocodingResult contains the result of a geocoding operation
type GeocodingResult struct {
	Coords      models.Coordinates
	DisplayName string
}

// Geocoder provides address-to-coordinates conversion
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodingResult, error)
	GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*GeocodingResult, error)
	Search(ctx context.Context, query string, limit int) ([]GeocodingResult, error)
}

// ErrGeocodingFailed is returned when an address cannot be geocoded
type ErrGeocodingFailed struct {
	Address string
	Reason  string
}

func (e *ErrGeocodingFailed) Error() string {
	return fmt.Sprintf("geocoding failed for address: %s - %s", e.Address, e.Reason)
}

type nominatimGeocoder struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	baseBackoff time.Duration
}

type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimGeocoder creates a Nominatim geocoder limited to one request
// per second, the public instance's usage policy.
func NewNominatimGeocoder(baseURL string) Geocoder {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	return &nominatimGeocoder{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
		baseBackoff: time.Second,
	}
}

// search performs one rate limited /search request.
func (g *nominatimGeocoder) search(ctx context.Context, query string, limit int) ([]nominatimResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(limit))
	queryURL := g.baseURL + "/search?" + q.Encode()
	log.Printf("[GEOCODING] Request: query=%s limit=%d", query, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: query, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] Geocoding API request failed: query=%s err=%v", query, err)
		return nil, &ErrGeocodingFailed{Address: query, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[ERROR] Geocoding API error: query=%s status=%d body=%s", query, resp.StatusCode, string(body))
		return nil, &ErrGeocodingFailed{
			Address: query,
			Reason:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		log.Printf("[ERROR] Failed to decode geocoding response: query=%s err=%v", query, err)
		return nil, &ErrGeocodingFailed{Address: query, Reason: err.Error()}
	}
	return results, nil
}

func parseResult(r nominatimResponse) (*GeocodingResult, string) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, "invalid latitude"
	}
	lng, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, "invalid longitude"
	}
	return &GeocodingResult{
		Coords:      models.Coordinates{Lat: lat, Lng: lng},
		DisplayName: r.DisplayName,
	}, ""
}

func (g *nominatimGeocoder) Geocode(ctx context.Context, address string) (*GeocodingResult, error) {
	results, err := g.search(ctx, address, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		log.Printf("[ERROR] No geocoding results found: address=%s", address)
		return nil, &ErrGeocodingFailed{Address: address, Reason: "no results found"}
	}

	result, reason := parseResult(results[0])
	if result == nil {
		log.Printf("[ERROR] Invalid geocoding response: address=%s reason=%s", address, reason)
		return nil, &ErrGeocodingFailed{Address: address, Reason: reason}
	}
	log.Printf("[GEOCODING] Response: address=%s lat=%.6f lng=%.6f display_name=%s", address, result.Coords.Lat, result.Coords.Lng, result.DisplayName)
	return result, nil
}

func (g *nominatimGeocoder) GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*GeocodingResult, error) {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		result, err := g.Geocode(ctx, address)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if i < maxRetries-1 {
			backoff := g.baseBackoff << uint(i)
			log.Printf("[GEOCODING] Retry %d/%d: address=%s backoff=%v err=%v", i+1, maxRetries, address, backoff, err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	log.Printf("[ERROR] Geocoding failed after %d retries: address=%s err=%v", maxRetries, address, lastErr)
	return nil, lastErr
}

func (g *nominatimGeocoder) Search(ctx context.Context, query string, limit int) ([]GeocodingResult, error) {
	results, err := g.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	out := make([]GeocodingResult, 0, len(results))
	for _, r := range results {
		result, reason := parseResult(r)
		if result == nil {
			log.Printf("[ERROR] Skipping search result: query=%s reason=%s", query, reason)
			continue
		}
		out = append(out, *result)
	}
	return out, nil
}

// ResolveStops returns the coordinates of every stop, geocoding those that
// only carry an address. Resolved coordinates are written back to stops.
func ResolveStops(ctx context.Context, g Geocoder, stops []models.Stop, maxRetries int) ([]models.Coordinates, error) {
	points := make([]models.Coordinates, len(stops))
	for i := range stops {
		s := &stops[i]
		if !s.HasCoords() {
			if s.Address == "" {
				return nil, &ErrGeocodingFailed{Address: s.Name, Reason: "stop has neither coordinates nor address"}
			}
			if g == nil {
				return nil, &ErrGeocodingFailed{Address: s.Address, Reason: "no geocoder configured"}
			}
			result, err := g.GeocodeWithRetry(ctx, s.Address, maxRetries)
			if err != nil {
				return nil, fmt.Errorf("stop %d (%s): %w", i, s.Name, err)
			}
			s.Lat, s.Lng = result.Coords.Lat, result.Coords.Lng
			if s.Name == "" {
				s.Name = result.DisplayName
			}
		}
		points[i] = s.GetCoords()
	}
	return points, nil
}
