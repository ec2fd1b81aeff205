package store

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Driver names a Store backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverS3         Driver = "s3"
	DriverSQLite     Driver = "sqlite"
)

// SQLiteConfig configures the sqlite driver.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Config selects and configures a driver.
type Config struct {
	Driver Driver       `yaml:"driver"`
	Root   string       `yaml:"root"` // fs driver directory
	S3     S3Config     `yaml:"s3"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// FromEnv overlays the CITYSTATE_* environment variables on cfg:
//
//	CITYSTATE_STORE_DRIVER: fs|memory|s3|sqlite
//	CITYSTATE_CACHE_DIR:    fs driver directory
//	CITYSTATE_S3_BUCKET, CITYSTATE_S3_REGION, CITYSTATE_S3_ENDPOINT, CITYSTATE_S3_PREFIX
//	CITYSTATE_S3_PATH_STYLE=true|false
//	CITYSTATE_SQLITE_PATH
func FromEnv(cfg Config) Config {
	set := func(dst *string, name string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("CITYSTATE_STORE_DRIVER"); v != "" {
		cfg.Driver = Driver(v)
	}
	set(&cfg.Root, "CITYSTATE_CACHE_DIR")
	set(&cfg.S3.Bucket, "CITYSTATE_S3_BUCKET")
	set(&cfg.S3.Region, "CITYSTATE_S3_REGION")
	set(&cfg.S3.Endpoint, "CITYSTATE_S3_ENDPOINT")
	set(&cfg.S3.Prefix, "CITYSTATE_S3_PREFIX")
	if v := os.Getenv("CITYSTATE_S3_PATH_STYLE"); v != "" {
		cfg.S3.PathStyle = strings.EqualFold(v, "true")
	}
	set(&cfg.SQLite.Path, "CITYSTATE_SQLITE_PATH")
	return cfg
}

// Open builds the Store selected by cfg.Driver (default fs).
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFS(cfg.Root), nil
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverSQLite:
		return NewSQLite(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
