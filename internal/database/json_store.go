package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tour-planner/internal/models"
)

// JSONData represents the structure of the JSON file
type JSONData struct {
	Runs []models.SolveRun `json:"runs"`
}

// JSONStore is a JSON file-based data store. Solve runs live in one file,
// distances in whatever cache it was given.
type JSONStore struct {
	filePath string
	data     *JSONData
	mu       sync.RWMutex

	solveRunRepository      SolveRunRepository
	distanceCacheRepository DistanceCacheRepository
}

func (s *JSONStore) SolveRuns() SolveRunRepository          { return s.solveRunRepository }
func (s *JSONStore) DistanceCache() DistanceCacheRepository { return s.distanceCacheRepository }

// NewJSONStore opens the data file at filePath, creating it if needed. An
// empty path uses ~/.tour-planner/runs.json.
func NewJSONStore(filePath string, distanceCache DistanceCacheRepository) (*JSONStore, error) {
	if filePath == "" {
		var err error
		filePath, err = GetDataFilePath()
		if err != nil {
			return nil, err
		}
	}
	log.Printf("Using JSON data file: %s", filePath)

	store := &JSONStore{
		filePath: filePath,
		data:     &JSONData{},
	}
	if err := store.load(); err != nil {
		return nil, err
	}

	store.solveRunRepository = &jsonSolveRunRepository{store: store}
	store.distanceCacheRepository = distanceCache
	return store, nil
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.data = &JSONData{Runs: []models.SolveRun{}}
		return s.saveUnlocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}

	if err := json.Unmarshal(data, s.data); err != nil {
		return fmt.Errorf("failed to parse data file: %w", err)
	}
	if s.data.Runs == nil {
		s.data.Runs = []models.SolveRun{}
	}
	return nil
}

func (s *JSONStore) saveUnlocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp data file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp data file: %w", err)
	}
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) HealthCheck(ctx context.Context) error {
	_, err := os.Stat(s.filePath)
	return err
}

type jsonSolveRunRepository struct {
	store *JSONStore
}

func (r *jsonSolveRunRepository) Create(ctx context.Context, run *models.SolveRun) (*models.SolveRun, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	created := *run
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.Sequence = append([]int(nil), run.Sequence...)

	r.store.data.Runs = append(r.store.data.Runs, created)
	if err := r.store.saveUnlocked(); err != nil {
		r.store.data.Runs = r.store.data.Runs[:len(r.store.data.Runs)-1]
		return nil, err
	}
	return &created, nil
}

func (r *jsonSolveRunRepository) GetByID(ctx context.Context, id string) (*models.SolveRun, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, run := range r.store.data.Runs {
		if run.ID == id {
			found := run
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *jsonSolveRunRepository) List(ctx context.Context, kind models.SolveKind, limit int) ([]models.SolveRun, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	runs := []models.SolveRun{}
	for _, run := range r.store.data.Runs {
		if kind == "" || run.Kind == kind {
			runs = append(runs, run)
		}
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
