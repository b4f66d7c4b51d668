package distance

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"tour-planner/internal/archive"
	"tour-planner/internal/database"
	"tour-planner/internal/matrix"
	"tour-planner/internal/metrics"
	"tour-planner/internal/models"
)

// element is one routed origin/destination pair. A nil element means the
// provider had no route for the pair.
type element struct {
	DistanceMeters float64
	DurationSecs   float64
}

// blockFetcher requests one block of origins × destinations from a provider.
// It returns the parsed rows alongside the raw response body.
type blockFetcher interface {
	name() string
	fetch(ctx context.Context, origins, destinations []models.Coordinates) ([][]*element, []byte, error)
}

// matrixService implements DistanceCalculator over any blockFetcher.
type matrixService struct {
	fetcher     blockFetcher
	cache       database.DistanceCacheRepository
	archive     *archive.Archive
	step        int
	concurrency int
	limiter     *rate.Limiter
}

func newMatrixService(fetcher blockFetcher, cache database.DistanceCacheRepository, arch *archive.Archive, opts Options) *matrixService {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &matrixService{
		fetcher:     fetcher,
		cache:       cache,
		archive:     arch,
		step:        opts.Step,
		concurrency: opts.Concurrency,
		limiter:     rate.NewLimiter(limit, 1),
	}
}

func samePoint(a, b models.Coordinates) bool {
	return models.RoundCoordinate(a.Lat) == models.RoundCoordinate(b.Lat) &&
		models.RoundCoordinate(a.Lng) == models.RoundCoordinate(b.Lng)
}

func (s *matrixService) GetDistance(ctx context.Context, origin, dest models.Coordinates) (*DistanceResult, error) {
	if samePoint(origin, dest) {
		return &DistanceResult{}, nil
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, origin, dest)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return &DistanceResult{DistanceMeters: cached.DistanceMeters, DurationSecs: cached.DurationSecs}, nil
		}
	}

	rows, _, err := s.fetchBlock(ctx, []models.Coordinates{origin}, []models.Coordinates{dest})
	if err != nil {
		return nil, err
	}
	el := rows[0][0]
	if el == nil {
		return nil, &ErrDistanceCalculationFailed{Origin: origin, Dest: dest, Reason: "no route between points"}
	}
	if s.cache != nil {
		entry := models.DistanceCacheEntry{Origin: origin, Destination: dest, DistanceMeters: el.DistanceMeters, DurationSecs: el.DurationSecs}
		if err := s.cache.Set(ctx, &entry); err != nil {
			return nil, err
		}
	}
	log.Printf("[DISTANCE] Distance calculated: provider=%s origin=(%.6f,%.6f) dest=(%.6f,%.6f) distance=%.0f",
		s.fetcher.name(), origin.Lat, origin.Lng, dest.Lat, dest.Lng, el.DistanceMeters)
	return &DistanceResult{DistanceMeters: el.DistanceMeters, DurationSecs: el.DurationSecs}, nil
}

func (s *matrixService) GetDistanceMatrix(ctx context.Context, points []models.Coordinates) (*matrix.Matrix, error) {
	n := len(points)
	m, err := matrix.New(n)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return m, nil
	}
	start := time.Now()

	missing := make([]bool, n*n)
	var pairs []database.CoordinatePair
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || samePoint(points[i], points[j]) {
				_ = m.Set(i, j, 0)
				continue
			}
			missing[i*n+j] = true
			pairs = append(pairs, database.CoordinatePair{Origin: points[i], Dest: points[j]})
		}
	}

	if s.cache != nil && len(pairs) > 0 {
		cached, err := s.cache.GetBatch(ctx, pairs)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if !missing[i*n+j] {
					continue
				}
				if entry, ok := cached[database.CacheKey(points[i], points[j])]; ok && entry != nil {
					_ = m.Set(i, j, meters(entry.DistanceMeters))
					missing[i*n+j] = false
				}
			}
		}
	}

	blocks, err := Partition(n, s.step)
	if err != nil {
		return nil, err
	}
	var pending []Block
	missingCount := 0
	for _, b := range blocks {
		c := countMissing(missing, n, b)
		if c > 0 {
			pending = append(pending, b)
			missingCount += c
		}
	}

	if len(pending) == 0 {
		log.Printf("[DISTANCE] Distance matrix all cached: points=%d", n)
		return m, nil
	}

	log.Printf("[DISTANCE] Distance matrix request: provider=%s points=%d missing=%d blocks=%d/%d",
		s.fetcher.name(), n, missingCount, len(pending), len(blocks))

	var (
		mu      sync.Mutex
		entries []models.DistanceCacheEntry
		failed  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, b := range pending {
		g.Go(func() error {
			rows, raw, err := s.fetchBlock(gctx, points[b.RowFrom:b.RowTo], points[b.ColFrom:b.ColTo])
			if err != nil {
				return fmt.Errorf("block %s: %w", b, err)
			}
			if s.archive != nil {
				if _, err := s.archive.SaveResponse(gctx, b.RowFrom, b.RowTo-1, b.ColFrom, b.ColTo-1, raw); err != nil {
					log.Printf("[ERROR] Failed to archive response: block=%s err=%v", b, err)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			for r := 0; r < b.Rows(); r++ {
				for c := 0; c < b.Cols(); c++ {
					i, j := b.RowFrom+r, b.ColFrom+c
					if !missing[i*n+j] {
						continue
					}
					el := rows[r][c]
					if el == nil {
						failed++
						continue
					}
					_ = m.Set(i, j, meters(el.DistanceMeters))
					entries = append(entries, models.DistanceCacheEntry{
						Origin:         points[i],
						Destination:    points[j],
						DistanceMeters: el.DistanceMeters,
						DurationSecs:   el.DurationSecs,
					})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("[ERROR] Distance matrix failed: provider=%s points=%d err=%v", s.fetcher.name(), n, err)
		return nil, err
	}

	if s.cache != nil && len(entries) > 0 {
		if err := s.cache.SetBatch(ctx, entries); err != nil {
			return nil, err
		}
	}
	if s.archive != nil {
		if _, err := s.archive.SaveMatrix(ctx, m); err != nil {
			log.Printf("[ERROR] Failed to archive matrix: points=%d err=%v", n, err)
		}
	}

	log.Printf("[TIMING] Distance matrix: provider=%s points=%d requests=%d fetched=%d unknown=%d duration=%v",
		s.fetcher.name(), n, len(pending), len(entries), failed, time.Since(start))
	return m, nil
}

func (s *matrixService) fetchBlock(ctx context.Context, origins, destinations []models.Coordinates) ([][]*element, []byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	rows, raw, err := s.fetcher.fetch(ctx, origins, destinations)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(s.fetcher.name(), "error").Inc()
		return nil, nil, err
	}
	if len(rows) != len(origins) {
		metrics.ProviderRequests.WithLabelValues(s.fetcher.name(), "error").Inc()
		return nil, nil, &ErrDistanceCalculationFailed{
			Reason: fmt.Sprintf("%s returned %d rows, want %d", s.fetcher.name(), len(rows), len(origins)),
		}
	}
	for r, row := range rows {
		if len(row) != len(destinations) {
			metrics.ProviderRequests.WithLabelValues(s.fetcher.name(), "error").Inc()
			return nil, nil, &ErrDistanceCalculationFailed{
				Reason: fmt.Sprintf("%s returned %d columns in row %d, want %d", s.fetcher.name(), len(row), r, len(destinations)),
			}
		}
	}
	metrics.ProviderRequests.WithLabelValues(s.fetcher.name(), "ok").Inc()
	return rows, raw, nil
}

func countMissing(missing []bool, n int, b Block) int {
	c := 0
	for i := b.RowFrom; i < b.RowTo; i++ {
		for j := b.ColFrom; j < b.ColTo; j++ {
			if missing[i*n+j] {
				c++
			}
		}
	}
	return c
}

func meters(d float64) int64 {
	return int64(math.Round(d))
}
