package server

import (
	"context"
	"fmt"
	"io"
	"log"

	"tour-planner/internal/archive"
	"tour-planner/internal/config"
	"tour-planner/internal/database"
	"tour-planner/internal/distance"
	"tour-planner/internal/sqlite"
)

// openStore opens the solve run store selected by cfg.Store.
func openStore(cfg *config.Config) (database.DataStore, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		log.Printf("Initializing SQLite store...")
		return sqlite.New(cfg.Store.Path)
	default:
		log.Printf("Initializing JSON store...")
		cache, err := openFileCache(cfg)
		if err != nil {
			return nil, err
		}
		return database.NewJSONStore(cfg.Store.Path, cache)
	}
}

func openFileCache(cfg *config.Config) (database.DistanceCacheRepository, error) {
	if cfg.Cache.Backend != "file" {
		return nil, nil
	}
	return database.NewFileDistanceCache(cfg.Cache.Path)
}

// openDistanceCache returns the cache selected by cfg.Cache, wrapped in an
// LRU layer when configured. The returned closer is non-nil when the cache
// holds a connection of its own.
func openDistanceCache(ctx context.Context, cfg *config.Config, store database.DataStore) (database.DistanceCacheRepository, io.Closer, error) {
	var (
		cache  database.DistanceCacheRepository
		closer io.Closer
	)
	switch cfg.Cache.Backend {
	case "none":
		log.Printf("Distance cache disabled")
		return nil, nil, nil
	case "redis":
		rc, err := database.NewRedisDistanceCache(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, err
		}
		cache, closer = rc, rc
	case "sqlite":
		if s, ok := store.(*sqlite.Store); ok {
			cache = s.DistanceCache()
			break
		}
		s, err := sqlite.New(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		cache, closer = s.DistanceCache(), s
	default:
		if store != nil {
			cache = store.DistanceCache()
		}
		if cache == nil {
			fc, err := database.NewFileDistanceCache(cfg.Cache.Path)
			if err != nil {
				return nil, nil, err
			}
			cache = fc
		}
	}
	log.Printf("Distance cache backend: %s", cfg.Cache.Backend)

	if cfg.Cache.LRUSize > 0 {
		lru, err := database.NewLRUDistanceCache(cache, cfg.Cache.LRUSize)
		if err != nil {
			if closer != nil {
				closer.Close()
			}
			return nil, nil, err
		}
		cache = lru
	}
	return cache, closer, nil
}

// openArchive returns nil when archiving is disabled.
func openArchive(cfg *config.Config) (*archive.Archive, error) {
	switch cfg.Archive.Backend {
	case "dir":
		dir := cfg.Archive.Dir
		if dir == "" {
			d, err := database.GetArchiveDir()
			if err != nil {
				return nil, err
			}
			dir = d
		}
		b, err := archive.NewDirBackend(dir)
		if err != nil {
			return nil, err
		}
		log.Printf("Archiving provider responses to %s", dir)
		return archive.New(b), nil
	case "s3":
		b, err := archive.NewS3Backend(cfg.Archive.S3())
		if err != nil {
			return nil, err
		}
		log.Printf("Archiving provider responses to bucket %s", cfg.Archive.Bucket)
		return archive.New(b), nil
	default:
		return nil, nil
	}
}

// newCalculator returns the distance provider selected by cfg.Distance.
func newCalculator(cfg *config.Config, cache database.DistanceCacheRepository, arch *archive.Archive) (distance.DistanceCalculator, error) {
	switch cfg.Distance.Provider {
	case "google":
		return distance.NewGoogleCalculator(cfg.Distance.APIKey, cache, arch, cfg.Distance.Options()), nil
	case "osrm":
		return distance.NewOSRMCalculator(cache, arch, cfg.Distance.Options()), nil
	default:
		return nil, fmt.Errorf("unknown distance provider %q", cfg.Distance.Provider)
	}
}

// OpenCalculator builds the configured distance provider without a solve
// run store, for command line use. closer is nil when nothing needs closing.
func OpenCalculator(ctx context.Context, cfg *config.Config) (distance.DistanceCalculator, io.Closer, error) {
	cache, closer, err := openDistanceCache(ctx, cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	arch, err := openArchive(cfg)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, err
	}
	calc, err := newCalculator(cfg, cache, arch)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, err
	}
	return calc, closer, nil
}
