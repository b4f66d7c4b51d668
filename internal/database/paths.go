package database

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppDirName        = ".tour-planner"
	DataFileName      = "runs.json"
	CacheDirName      = "cache"
	ArchiveDirName    = "backup"
	DistanceCacheFile = "distances.json"
	SQLiteDBFileName  = "data.db"
	ConfigFileName    = "config.yaml"
)

// GetAppDir returns ~/.tour-planner, creating it if needed
func GetAppDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	appDir := filepath.Join(homeDir, AppDirName)
	if err := os.MkdirAll(appDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create app directory: %w", err)
	}

	return appDir, nil
}

// appSubdir returns ~/.tour-planner/<name>, creating it if needed
func appSubdir(name string) (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(appDir, name)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", name, err)
	}
	return dir, nil
}

// GetDataFilePath returns ~/.tour-planner/runs.json
func GetDataFilePath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, DataFileName), nil
}

// GetCacheDir returns ~/.tour-planner/cache, creating it if needed
func GetCacheDir() (string, error) {
	return appSubdir(CacheDirName)
}

// GetArchiveDir returns ~/.tour-planner/backup, creating it if needed
func GetArchiveDir() (string, error) {
	return appSubdir(ArchiveDirName)
}

// GetDistanceCachePath returns ~/.tour-planner/cache/distances.json
func GetDistanceCachePath() (string, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, DistanceCacheFile), nil
}

// GetDefaultDBPath returns the default SQLite database path: ~/.tour-planner/data.db
func GetDefaultDBPath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, SQLiteDBFileName), nil
}

// GetConfigFilePath returns ~/.tour-planner/config.yaml
func GetConfigFilePath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, ConfigFileName), nil
}
