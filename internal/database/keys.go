package database

import (
	"fmt"

	"tour-planner/internal/models"
)

// CacheKey creates a unique key for a coordinate pair. Coordinates are
// rounded to 5 decimal places so nearby duplicates share an entry.
func CacheKey(origin, dest models.Coordinates) string {
	return fmt.Sprintf("%.5f,%.5f->%.5f,%.5f",
		models.RoundCoordinate(origin.Lat), models.RoundCoordinate(origin.Lng),
		models.RoundCoordinate(dest.Lat), models.RoundCoordinate(dest.Lng))
}

// coordsMatch checks if two coordinates are equal (rounded to 5 decimal places)
func coordsMatch(a, b models.Coordinates) bool {
	return models.RoundCoordinate(a.Lat) == models.RoundCoordinate(b.Lat) &&
		models.RoundCoordinate(a.Lng) == models.RoundCoordinate(b.Lng)
}
