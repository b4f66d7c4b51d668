package tsp

import (
	"errors"
)

var (
	// ErrInfeasible is returned when no Hamiltonian cycle exists over the known edges
	ErrInfeasible = errors.New("tsp: infeasible")

	// ErrSolver is returned when the integer program backend fails or returns
	// something that is not a permutation
	ErrSolver = errors.New("tsp: solver error")

	// ErrMalformedMatrix is returned for an empty, non-square or disconnected matrix
	ErrMalformedMatrix = errors.New("tsp: malformed matrix")

	// ErrIncomplete is returned when a solve is cancelled, times out or hits
	// its iteration cap before reaching a single tour
	ErrIncomplete = errors.New("tsp: incomplete")
)

// Outcome names the result of a solve for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrIncomplete):
		return "incomplete"
	case errors.Is(err, ErrMalformedMatrix):
		return "malformed"
	case errors.Is(err, ErrInfeasible):
		return "infeasible"
	default:
		return "solver_error"
	}
}
