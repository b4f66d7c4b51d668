package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tour-planner/internal/config"
	"tour-planner/internal/geocoding"
	"tour-planner/internal/ilp"
	"tour-planner/internal/itinerary"
	"tour-planner/internal/matrix"
	"tour-planner/internal/models"
	"tour-planner/internal/report"
	"tour-planner/internal/server"
	"tour-planner/internal/tsp"
)

type options struct {
	configPath string
	mode       string
	matrixPath string
	stopsPath  string
	namesPath  string
	tsplib     bool
	split      string
	reverse    string
	scale      int64
	timeout    time.Duration
	maxIter    int
	warm       bool
	out        string
	saveMatrix string
}

func main() {
	if err := run(); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(exitCode(err))
	}
}

func parseFlags() *options {
	o := &options{}
	flag.StringVar(&o.configPath, "config", "", "path to config.yaml")
	flag.StringVar(&o.mode, "mode", "tour", "tour, path, walk or itinerary")
	flag.StringVar(&o.matrixPath, "matrix", "", "distance matrix file (JSON rows, or TSPLIB with -tsplib or a .tsp extension)")
	flag.StringVar(&o.stopsPath, "stops", "", "JSON stop list; distances are fetched from the configured provider")
	flag.StringVar(&o.namesPath, "names", "", "stop names, one per line or a JSON array")
	flag.BoolVar(&o.tsplib, "tsplib", false, "read -matrix as TSPLIB")
	flag.StringVar(&o.split, "split", "", "itinerary segment boundaries, e.g. 6,14")
	flag.StringVar(&o.reverse, "reverse", "", "itinerary segments to travel backwards, e.g. 1")
	flag.Int64Var(&o.scale, "scale", 1, "divide every distance by this factor before solving")
	flag.DurationVar(&o.timeout, "timeout", 0, "solve time limit (default from config)")
	flag.IntVar(&o.maxIter, "max-iterations", 0, "subtour elimination rounds (default from config)")
	flag.BoolVar(&o.warm, "warm", true, "seed the solver with a heuristic tour")
	flag.StringVar(&o.out, "out", "", "write the result as JSON to this file")
	flag.StringVar(&o.saveMatrix, "save-matrix", "", "write the fetched or scaled matrix to this file")
	flag.Parse()
	return o
}

func run() error {
	o := parseFlags()

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if o.timeout > 0 {
		cfg.Solver.Timeout = o.timeout
	}
	if o.maxIter > 0 {
		cfg.Solver.MaxIterations = o.maxIter
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, names, err := loadInput(ctx, cfg, o)
	if err != nil {
		return err
	}
	if o.scale > 1 {
		if m, err = m.Scale(o.scale); err != nil {
			return err
		}
	}
	if o.saveMatrix != "" {
		if err := matrix.Save(o.saveMatrix, m); err != nil {
			return fmt.Errorf("failed to save matrix: %w", err)
		}
	}
	log.Printf("[SOLVER] %d stops, %d known distances, mode=%s", m.Size(), m.KnownCount(), o.mode)

	solver := tsp.NewSolver(ilp.NewBranchAndBound(cfg.Solver.MaxNodes), tsp.Options{
		Timeout:       cfg.Solver.Timeout,
		MaxIterations: cfg.Solver.MaxIterations,
		WarmStart:     o.warm,
	})

	start := time.Now()
	var result any
	switch o.mode {
	case "tour", "path", "walk":
		res, rep, err := solve(ctx, solver, o.mode, m, names)
		if err != nil {
			return err
		}
		fmt.Printf("Status: %s  Iterations: %d  Objective: %d\n\n", res.Status, res.Iterations, res.Objective)
		if err := rep.WriteTable(os.Stdout); err != nil {
			return err
		}
		result = struct {
			*tsp.Result
			Report *report.Report `json:"report"`
		}{res, rep}
	case "itinerary":
		segs, err := segments(m.Size(), o.split, o.reverse)
		if err != nil {
			return err
		}
		it, err := itinerary.NewPlanner(solver, cfg.Solver.Concurrency).Plan(ctx, m, segs, names)
		if err != nil {
			return err
		}
		for _, leg := range it.Legs {
			fmt.Printf("Segment [%d,%d) reverse=%t objective=%d\n", leg.Segment.From, leg.Segment.To, leg.Segment.Reverse, leg.Objective)
		}
		fmt.Println()
		if err := it.Report.WriteTable(os.Stdout); err != nil {
			return err
		}
		result = it
	default:
		return fmt.Errorf("unknown mode %q", o.mode)
	}
	log.Printf("[TIMING] Solve took %v", time.Since(start))

	if o.out != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.out, data, 0644); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}
	return nil
}

func solve(ctx context.Context, s *tsp.Solver, mode string, m *matrix.Matrix, names []string) (*tsp.Result, *report.Report, error) {
	var (
		res *tsp.Result
		err error
	)
	switch mode {
	case "tour":
		res, err = s.SolveTour(ctx, m)
	case "path":
		res, err = s.SolvePath(ctx, m)
	default:
		res, err = s.SolveWalk(ctx, m)
	}
	if err != nil {
		return nil, nil, err
	}
	rep, err := report.Build(m, res.Sequence, report.Options{Names: names, Closed: mode != "path"})
	if err != nil {
		return nil, nil, err
	}
	return res, rep, nil
}

// loadInput reads the matrix from a file, or builds it from a stop list
// through the configured distance provider.
func loadInput(ctx context.Context, cfg *config.Config, o *options) (*matrix.Matrix, []string, error) {
	var names []string
	if o.namesPath != "" {
		n, err := readNames(o.namesPath)
		if err != nil {
			return nil, nil, err
		}
		names = n
	}

	switch {
	case o.matrixPath != "" && o.stopsPath != "":
		return nil, nil, errors.New("-matrix and -stops are mutually exclusive")
	case o.matrixPath != "":
		m, err := readMatrix(o.matrixPath, o.tsplib)
		if err != nil {
			return nil, nil, err
		}
		return m, names, nil
	case o.stopsPath != "":
		return matrixFromStops(ctx, cfg, o.stopsPath, names)
	default:
		return nil, nil, errors.New("one of -matrix or -stops is required")
	}
}

func readMatrix(path string, tsplib bool) (*matrix.Matrix, error) {
	if !tsplib && !strings.EqualFold(filepath.Ext(path), ".tsp") {
		return matrix.Load(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return matrix.ParseTSPLIB(f)
}

func matrixFromStops(ctx context.Context, cfg *config.Config, path string, names []string) (*matrix.Matrix, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var stops []models.Stop
	if err := json.Unmarshal(data, &stops); err != nil {
		return nil, nil, fmt.Errorf("failed to parse stops: %w", err)
	}

	points, err := geocoding.ResolveStops(ctx, geocoding.NewNominatimGeocoder(""), stops, 3)
	if err != nil {
		return nil, nil, err
	}

	calc, closer, err := server.OpenCalculator(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	m, err := calc.GetDistanceMatrix(ctx, points)
	if err != nil {
		return nil, nil, err
	}
	if names == nil {
		for _, s := range stops {
			names = append(names, s.Name)
		}
	}
	return m, names, nil
}

// readNames accepts a JSON string array or one name per line.
func readNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return nil, fmt.Errorf("failed to parse names: %w", err)
		}
		return names, nil
	}

	var names []string
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			names = append(names, line)
		}
	}
	return names, sc.Err()
}

func segments(n int, split, reverse string) ([]itinerary.Segment, error) {
	bounds, err := intList(split)
	if err != nil {
		return nil, fmt.Errorf("-split: %w", err)
	}
	rev, err := intList(reverse)
	if err != nil {
		return nil, fmt.Errorf("-reverse: %w", err)
	}
	segs := itinerary.Split(n, bounds...)
	for _, i := range rev {
		if i < 0 || i >= len(segs) {
			return nil, fmt.Errorf("-reverse: no segment %d", i)
		}
		segs[i].Reverse = true
	}
	return segs, nil
}

func intList(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func exitCode(err error) int {
	switch tsp.Outcome(err) {
	case "infeasible":
		return 2
	case "incomplete":
		return 3
	default:
		return 1
	}
}
