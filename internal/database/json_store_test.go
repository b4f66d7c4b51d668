package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tour-planner/internal/models"
)

func TestJSONStore_SolveRuns(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFileDistanceCache(filepath.Join(dir, "distances.json"))
	if err != nil {
		t.Fatal(err)
	}
	store, err := NewJSONStore(filepath.Join(dir, "runs.json"), cache)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.HealthCheck(ctx); err != nil {
		t.Errorf("health check failed: %v", err)
	}
	if store.DistanceCache() != cache {
		t.Error("expected store to expose the given cache")
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tour, err := store.SolveRuns().Create(ctx, &models.SolveRun{Kind: models.SolveKindTour, Size: 3, Sequence: []int{0, 2, 1}, CreatedAt: base})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tour.ID == "" {
		t.Error("expected generated ID")
	}
	if _, err := store.SolveRuns().Create(ctx, &models.SolveRun{Kind: models.SolveKindPath, CreatedAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.SolveRuns().GetByID(ctx, tour.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Sequence) != 3 || got.Sequence[1] != 2 {
		t.Errorf("unexpected sequence %v", got.Sequence)
	}

	all, err := store.SolveRuns().List(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Kind != models.SolveKindPath {
		t.Errorf("expected newest first, got %+v", all)
	}

	tours, err := store.SolveRuns().List(ctx, models.SolveKindTour, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tours) != 1 || tours[0].ID != tour.ID {
		t.Errorf("expected only the tour run, got %+v", tours)
	}

	reopened, err := NewJSONStore(filepath.Join(dir, "runs.json"), cache)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reopened.SolveRuns().GetByID(ctx, tour.ID); err != nil {
		t.Errorf("expected run to persist: %v", err)
	}
	if _, err := reopened.SolveRuns().GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
