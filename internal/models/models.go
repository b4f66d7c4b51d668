package models

import (
	"math"
	"time"
)

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RoundCoordinate rounds a coordinate to 5 decimal places (~1m precision)
func RoundCoordinate(v float64) float64 {
	return math.Round(v*100000) / 100000
}

// Stop represents a place to be visited
type Stop struct {
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// GetCoords returns the coordinates of the stop
func (s *Stop) GetCoords() Coordinates {
	return Coordinates{Lat: s.Lat, Lng: s.Lng}
}

// HasCoords reports whether the stop has been geocoded
func (s *Stop) HasCoords() bool {
	return s.Lat != 0 || s.Lng != 0
}

// ShortName returns the part of the name before the first comma
// ("Lanzhou, China" -> "Lanzhou")
func (s *Stop) ShortName() string {
	for i, r := range s.Name {
		if r == ',' {
			return s.Name[:i]
		}
	}
	return s.Name
}

// DistanceCacheEntry represents a cached distance lookup
type DistanceCacheEntry struct {
	Origin         Coordinates `json:"origin"`
	Destination    Coordinates `json:"destination"`
	DistanceMeters float64     `json:"distance_meters"`
	DurationSecs   float64     `json:"duration_secs"`
}

// SolveKind identifies which solver produced a run
type SolveKind string

const (
	SolveKindTour      SolveKind = "tour"
	SolveKindPath      SolveKind = "path"
	SolveKindWalk      SolveKind = "walk"
	SolveKindItinerary SolveKind = "itinerary"
)

// SolveRun is a persisted record of one solve request
type SolveRun struct {
	ID         string    `json:"id"`
	Kind       SolveKind `json:"kind"`
	Size       int       `json:"size"`
	Status     string    `json:"status"`
	Objective  int64     `json:"objective"`
	Sequence   []int     `json:"sequence"`
	Iterations int       `json:"iterations"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
