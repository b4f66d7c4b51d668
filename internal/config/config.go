// Package config loads settings from config.yaml, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tour-planner/internal/archive"
	"tour-planner/internal/database"
	"tour-planner/internal/distance"
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Solver   SolverConfig   `yaml:"solver"`
	Distance DistanceConfig `yaml:"distance"`
	Cache    CacheConfig    `yaml:"cache"`
	Store    StoreConfig    `yaml:"store"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type SolverConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	MaxIterations int           `yaml:"max_iterations"`
	// MaxNodes bounds the branch-and-bound search per integer program
	MaxNodes  int  `yaml:"max_nodes"`
	WarmStart bool `yaml:"warm_start"`
	// Concurrency bounds segments solved at once by the itinerary planner
	Concurrency int `yaml:"concurrency"`
}

type DistanceConfig struct {
	// Provider is "osrm" or "google"
	Provider          string        `yaml:"provider"`
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Step              int           `yaml:"step"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// Options converts the settings for the distance package.
func (d DistanceConfig) Options() distance.Options {
	return distance.Options{
		BaseURL:           d.BaseURL,
		Step:              d.Step,
		Concurrency:       d.Concurrency,
		RequestsPerSecond: d.RequestsPerSecond,
		Timeout:           d.Timeout,
	}
}

type CacheConfig struct {
	// Backend is "file", "sqlite", "redis" or "none"
	Backend  string        `yaml:"backend"`
	Path     string        `yaml:"path"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
	// LRUSize puts an in-memory layer of this many entries in front; 0 disables it
	LRUSize int `yaml:"lru_size"`
}

type StoreConfig struct {
	// Backend is "json" or "sqlite"
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type ArchiveConfig struct {
	// Backend is "dir", "s3" or "none"
	Backend   string `yaml:"backend"`
	Dir       string `yaml:"dir"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// S3 converts the settings for archive.NewS3Backend.
func (a ArchiveConfig) S3() archive.S3Config {
	return archive.S3Config{
		Endpoint:  a.Endpoint,
		Region:    a.Region,
		AccessKey: a.AccessKey,
		SecretKey: a.SecretKey,
		Bucket:    a.Bucket,
		Prefix:    a.Prefix,
		UseSSL:    a.UseSSL,
	}
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	d := distance.DefaultOptions()
	return &Config{
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
		Solver: SolverConfig{
			Timeout:       2 * time.Minute,
			MaxIterations: 1000,
			MaxNodes:      100000,
			WarmStart:     true,
			Concurrency:   4,
		},
		Distance: DistanceConfig{
			Provider:          "osrm",
			Step:              d.Step,
			Concurrency:       d.Concurrency,
			RequestsPerSecond: d.RequestsPerSecond,
			Timeout:           d.Timeout,
		},
		Cache:   CacheConfig{Backend: "file", TTL: 30 * 24 * time.Hour, LRUSize: 10000},
		Store:   StoreConfig{Backend: "json"},
		Archive: ArchiveConfig{Backend: "none", Region: "us-east-1", Bucket: "tour-planner", UseSSL: true},
	}
}

// Load reads the .env file if present, then path, then the environment.
// An empty path means ~/.tour-planner/config.yaml, which may be missing;
// an explicit path must exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := database.GetConfigFilePath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "SERVER_ADDR")
	setString(&c.Distance.APIKey, "GOOGLE_MAPS_API_KEY")

	setString(&c.Distance.Provider, "TOURPLAN_DISTANCE_PROVIDER")
	setString(&c.Distance.BaseURL, "TOURPLAN_DISTANCE_BASE_URL")
	setString(&c.Cache.Backend, "TOURPLAN_CACHE_BACKEND")
	setString(&c.Cache.Path, "TOURPLAN_CACHE_PATH")
	setString(&c.Cache.RedisURL, "TOURPLAN_REDIS_URL")
	setString(&c.Store.Backend, "TOURPLAN_STORE_BACKEND")
	setString(&c.Store.Path, "TOURPLAN_STORE_PATH")
	setString(&c.Archive.Backend, "TOURPLAN_ARCHIVE_BACKEND")
	setString(&c.Archive.Dir, "TOURPLAN_ARCHIVE_DIR")
	setString(&c.Archive.Endpoint, "TOURPLAN_ARCHIVE_S3_ENDPOINT")
	setString(&c.Archive.AccessKey, "TOURPLAN_ARCHIVE_S3_ACCESS_KEY")
	setString(&c.Archive.SecretKey, "TOURPLAN_ARCHIVE_S3_SECRET_KEY")
	setString(&c.Archive.Bucket, "TOURPLAN_ARCHIVE_S3_BUCKET")

	if err := setInt(&c.Distance.Step, "TOURPLAN_DISTANCE_STEP"); err != nil {
		return err
	}
	if err := setInt(&c.Solver.MaxIterations, "TOURPLAN_SOLVER_MAX_ITERATIONS"); err != nil {
		return err
	}
	if err := setInt(&c.Solver.MaxNodes, "TOURPLAN_SOLVER_MAX_NODES"); err != nil {
		return err
	}
	if err := setDuration(&c.Solver.Timeout, "TOURPLAN_SOLVER_TIMEOUT"); err != nil {
		return err
	}
	return setBool(&c.Archive.UseSSL, "TOURPLAN_ARCHIVE_S3_USE_SSL")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, ErrInvalidConfig)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, ErrInvalidConfig)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, ErrInvalidConfig)
	}
	*dst = b
	return nil
}

// Validate rejects settings the solver or the provider cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Solver.MaxIterations < 0 || c.Solver.MaxNodes < 0 || c.Solver.Timeout < 0 {
		errs = append(errs, errors.New("solver limits must not be negative"))
	}
	if err := distance.ValidateStep(c.Distance.Step); err != nil {
		errs = append(errs, err)
	}
	switch c.Distance.Provider {
	case "osrm":
	case "google":
		if c.Distance.APIKey == "" {
			errs = append(errs, errors.New("google provider requires an API key"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown distance provider %q", c.Distance.Provider))
	}
	switch c.Cache.Backend {
	case "file", "sqlite", "none":
	case "redis":
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("redis cache requires redis_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Cache.LRUSize < 0 {
		errs = append(errs, errors.New("lru_size must not be negative"))
	}
	switch c.Store.Backend {
	case "json", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	switch c.Archive.Backend {
	case "none", "dir":
	case "s3":
		if c.Archive.Endpoint == "" || c.Archive.Bucket == "" {
			errs = append(errs, errors.New("s3 archive requires endpoint and bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown archive backend %q", c.Archive.Backend))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
