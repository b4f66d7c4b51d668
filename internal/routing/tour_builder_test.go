package routing

import (
	"context"
	"errors"
	"testing"

	"tour-planner/internal/matrix"
)

func mustMatrix(t *testing.T, rows [][]int64) *matrix.Matrix {
	t.Helper()
	m, err := matrix.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	return m
}

func TestBuildTour_SingleNode(t *testing.T) {
	m := mustMatrix(t, [][]int64{{0}})

	tour, err := NewTwoOptBuilder(0).BuildTour(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tour.Order) != 1 || tour.Order[0] != 0 || tour.Cost != 0 {
		t.Errorf("expected trivial tour, got %+v", tour)
	}
}

func TestBuildTour_FourCities(t *testing.T) {
	m := mustMatrix(t, [][]int64{
		{0, 10, 15, 20},
		{10, 0, 35, 25},
		{15, 35, 0, 30},
		{20, 25, 30, 0},
	})

	tour, err := NewTwoOptBuilder(0).BuildTour(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tour.Order[0] != 0 {
		t.Errorf("expected tour to start at 0, got %v", tour.Order)
	}
	if len(tour.Order) != 4 {
		t.Fatalf("expected 4 stops, got %v", tour.Order)
	}
	cost, ok := tourCost(m, tour.Order)
	if !ok || cost != tour.Cost {
		t.Errorf("reported cost %d does not match order cost %d", tour.Cost, cost)
	}
	// Optimal is 80; 2-opt reaches it on this instance.
	if tour.Cost != 80 {
		t.Errorf("expected cost 80, got %d", tour.Cost)
	}
}

func TestBuildTour_TwoOptUncrossesTour(t *testing.T) {
	// Square corners 0,1,2,3 in ring order; nearest neighbor from 0 is lured
	// across the diagonal by a cheap 0→2 edge.
	m := mustMatrix(t, [][]int64{
		{0, 10, 9, 10},
		{10, 0, 10, 50},
		{50, 10, 0, 10},
		{10, 50, 10, 0},
	})

	nn := nearestNeighbor(m, 0)
	nnCost, _ := tourCost(m, nn)

	tour, err := NewTwoOptBuilder(0).BuildTour(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tour.Cost > nnCost {
		t.Errorf("2-opt made tour worse: %d > %d", tour.Cost, nnCost)
	}
	if tour.Cost != 40 {
		t.Errorf("expected ring cost 40, got %d (order %v)", tour.Cost, tour.Order)
	}
}

func TestBuildTour_SkipsUnknownEdges(t *testing.T) {
	m := mustMatrix(t, [][]int64{
		{0, 1, -1},
		{-1, 0, 1},
		{1, -1, 0},
	})

	tour, err := NewTwoOptBuilder(0).BuildTour(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{0, 1, 2}
	for k := range want {
		if tour.Order[k] != want[k] {
			t.Fatalf("expected %v, got %v", want, tour.Order)
		}
	}
	if tour.Cost != 3 {
		t.Errorf("expected cost 3, got %d", tour.Cost)
	}
}

func TestBuildTour_NoTour(t *testing.T) {
	m := mustMatrix(t, [][]int64{
		{0, 1, -1},
		{1, 0, -1},
		{-1, -1, 0},
	})

	_, err := NewTwoOptBuilder(0).BuildTour(context.Background(), m)
	var rf *ErrRoutingFailed
	if !errors.As(err, &rf) {
		t.Fatalf("expected ErrRoutingFailed, got %v", err)
	}
}

func TestBuildTour_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := mustMatrix(t, [][]int64{
		{0, 1, 2},
		{1, 0, 1},
		{2, 1, 0},
	})

	if _, err := NewTwoOptBuilder(0).BuildTour(ctx, m); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSuccessors(t *testing.T) {
	succ := Successors([]int{0, 2, 3, 1})
	want := []int{2, 0, 3, 1}
	for i := range want {
		if succ[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, succ)
		}
	}
}

func TestRotateToZero(t *testing.T) {
	got := rotateToZero([]int{2, 3, 0, 1})
	want := []int{0, 1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
