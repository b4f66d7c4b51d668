// Package archive keeps raw distance provider responses and assembled
// matrices for debugging and offline replay.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"tour-planner/internal/matrix"
)

// ErrNotFound is returned by Get for a missing object
var ErrNotFound = errors.New("archive: object not found")

const timestampLayout = "2006-01-02T15-04-05.000000"

// Backend stores named blobs.
type Backend interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	// List returns the names starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Archive names and writes provider artifacts to a Backend.
type Archive struct {
	backend Backend
	now     func() time.Time
}

// New creates an Archive over backend.
func New(backend Backend) *Archive {
	return &Archive{backend: backend, now: time.Now}
}

// ResponseName is response-{i0}_{i1}x{j0}_{j1}-{timestamp}.json, with
// inclusive row and column bounds of the requested block.
func ResponseName(i0, i1, j0, j1 int, at time.Time) string {
	return fmt.Sprintf("response-%d_%dx%d_%d-%s.json", i0, i1, j0, j1, at.UTC().Format(timestampLayout))
}

// MatrixName is matrix-{timestamp}.json.
func MatrixName(at time.Time) string {
	return fmt.Sprintf("matrix-%s.json", at.UTC().Format(timestampLayout))
}

// SaveResponse stores the raw body returned for rows i0..i1 and columns j0..j1.
func (a *Archive) SaveResponse(ctx context.Context, i0, i1, j0, j1 int, raw []byte) (string, error) {
	name := ResponseName(i0, i1, j0, j1, a.now())
	if err := a.backend.Put(ctx, name, raw); err != nil {
		return "", fmt.Errorf("failed to archive response %s: %w", name, err)
	}
	return name, nil
}

// SaveMatrix stores m in the JSON matrix format.
func (a *Archive) SaveMatrix(ctx context.Context, m *matrix.Matrix) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode matrix: %w", err)
	}
	name := MatrixName(a.now())
	if err := a.backend.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("failed to archive matrix %s: %w", name, err)
	}
	log.Printf("[ARCHIVE] Saved matrix: name=%s size=%d", name, m.Size())
	return name, nil
}

// LoadMatrix reads a matrix saved by SaveMatrix.
func (a *Archive) LoadMatrix(ctx context.Context, name string) (*matrix.Matrix, error) {
	data, err := a.backend.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	var m matrix.Matrix
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode matrix %s: %w", name, err)
	}
	return &m, nil
}

// LatestMatrix returns the name of the newest archived matrix.
func (a *Archive) LatestMatrix(ctx context.Context) (string, error) {
	names, err := a.backend.List(ctx, "matrix-")
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNotFound
	}
	// Timestamps sort lexically.
	return names[len(names)-1], nil
}
