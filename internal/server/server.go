package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tour-planner/internal/config"
	"tour-planner/internal/database"
	"tour-planner/internal/geocoding"
	"tour-planner/internal/handlers"
	"tour-planner/internal/ilp"
	"tour-planner/internal/itinerary"
	"tour-planner/internal/metrics"
	"tour-planner/internal/tsp"
)

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	db         database.DataStore
	closers    []io.Closer
	listener   net.Listener
	addr       string
}

// New creates and initializes a new server (does not start it)
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	metrics.RegisterDefault()

	db, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize data store: %w", err)
	}

	cache, cacheCloser, err := openDistanceCache(ctx, cfg, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize distance cache: %w", err)
	}
	var closers []io.Closer
	if cacheCloser != nil {
		closers = append(closers, cacheCloser)
	}

	arch, err := openArchive(cfg)
	if err != nil {
		closeAll(db, closers)
		return nil, fmt.Errorf("failed to initialize archive: %w", err)
	}

	calc, err := newCalculator(cfg, cache, arch)
	if err != nil {
		closeAll(db, closers)
		return nil, err
	}

	solver := tsp.NewSolver(ilp.NewBranchAndBound(cfg.Solver.MaxNodes), tsp.Options{
		Timeout:       cfg.Solver.Timeout,
		MaxIterations: cfg.Solver.MaxIterations,
		WarmStart:     cfg.Solver.WarmStart,
	})

	handler := &handlers.Handler{
		DB:           db,
		Geocoder:     geocoding.NewNominatimGeocoder(""),
		DistanceCalc: calc,
		Solver:       solver,
		Planner:      itinerary.NewPlanner(solver, cfg.Solver.Concurrency),
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      loggingMiddleware(corsMiddleware(setupRoutes(handler))),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Solver.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		db:         db,
		closers:    closers,
		addr:       cfg.Server.Addr,
	}, nil
}

func closeAll(db database.DataStore, closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	errs = append(errs, db.Close())
	return errors.Join(errs...)
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	log.Printf("Starting server on %s", actualAddr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return closeAll(s.db, s.closers)
}

// allow wraps h so that other methods get 405
func allow(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// setupRoutes configures all HTTP routes
func setupRoutes(handler *handlers.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", allow(http.MethodGet, handler.HandleHealthCheck))
	mux.HandleFunc("/api/v1/tours", allow(http.MethodPost, handler.HandleSolveTour))
	mux.HandleFunc("/api/v1/paths", allow(http.MethodPost, handler.HandleSolvePath))
	mux.HandleFunc("/api/v1/walks", allow(http.MethodPost, handler.HandleSolveWalk))
	mux.HandleFunc("/api/v1/matrix", allow(http.MethodPost, handler.HandleBuildMatrix))
	mux.HandleFunc("/api/v1/itineraries", allow(http.MethodPost, handler.HandlePlanItinerary))
	mux.HandleFunc("/api/v1/address-search", allow(http.MethodGet, handler.HandleAddressSearch))
	mux.HandleFunc("/api/v1/runs", allow(http.MethodGet, handler.HandleListRuns))

	mux.HandleFunc("/api/v1/runs/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/runs/" {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		allow(http.MethodGet, handler.HandleGetRun)(w, r)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return mux
}

// routeLabel collapses ids so request metrics keep a bounded label set
func routeLabel(path string) string {
	if strings.HasPrefix(path, "/api/v1/runs/") {
		return "/api/v1/runs/{id}"
	}
	if strings.HasPrefix(path, "/api/") || path == "/metrics" {
		return path
	}
	return "other"
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		status := strconv.Itoa(lrw.statusCode)
		path := routeLabel(r.URL.Path)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(duration.Seconds())
		log.Printf("[HTTP] %s %s %d %v", r.Method, r.URL.Path, lrw.statusCode, duration)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Only allow localhost origins
		if origin == "" ||
			strings.HasPrefix(origin, "http://localhost:") ||
			strings.HasPrefix(origin, "http://127.0.0.1:") {
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
