package citystate

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/andreiashu/citystate/internal/store"
)

// FileConfig is the YAML configuration document read by LoadConfigFile:
//
//	data_dir: /var/lib/citystate
//	default_country: US
//	license_key: xxxx
//	store:
//	  driver: s3
//	  s3:
//	    bucket: geo-cache
//	    region: eu-west-1
type FileConfig struct {
	DataDir        string       `yaml:"data_dir"`
	CacheDir       string       `yaml:"cache_dir"`
	SourceFile     string       `yaml:"source_file"`
	RepairFile     string       `yaml:"repair_file"`
	DefaultCountry string       `yaml:"default_country"`
	LicenseKey     string       `yaml:"license_key"`
	SourceURL      string       `yaml:"source_url"`
	Store          store.Config `yaml:"store"`
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (FileConfig, error) {
	var cfg FileConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("opening config %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config %s: %w", path, err)
	}
	return cfg, nil
}

// Options turns the document into Resolver options, opening the configured
// cache store. Empty fields keep their defaults. An explicit source_url wins
// over license_key.
func (fc FileConfig) Options(ctx context.Context) ([]Option, error) {
	var opts []Option
	if fc.DataDir != "" {
		opts = append(opts, WithDataDir(fc.DataDir))
	}
	if fc.CacheDir != "" {
		opts = append(opts, WithCacheDir(fc.CacheDir))
	}
	if fc.SourceFile != "" {
		opts = append(opts, WithSourceFile(fc.SourceFile))
	}
	if fc.RepairFile != "" {
		opts = append(opts, WithRepairFile(fc.RepairFile))
	}
	if fc.DefaultCountry != "" {
		opts = append(opts, WithDefaultCountry(fc.DefaultCountry))
	}
	switch {
	case fc.SourceURL != "":
		opts = append(opts, WithSourceURL(fc.SourceURL))
	case fc.LicenseKey != "":
		opts = append(opts, WithLicenseKey(fc.LicenseKey))
	}

	sc := fc.Store
	if sc.Root == "" {
		sc.Root = fc.CacheDir
	}
	if sc.Root == "" {
		sc.Root = defaultCacheDir
	}
	s, err := store.Open(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("opening cache store: %w", err)
	}
	opts = append(opts, WithStore(s))
	return opts, nil
}
