// Package citystate lists countries, their states and the cities in them from
// a MaxMind GeoLite2 City Locations CSV.
//
// The CSV is large, so it is never held in memory. The first query for a
// country scans it once and writes two small per-country tables (states and
// cities) to a cache store; later queries, including those from new
// processes, read only the tables.
//
// Example:
//
//	r := citystate.New(citystate.WithDataDir("/var/lib/geo"))
//	for _, name := range r.Cities("US", "Texas") {
//	    fmt.Println(name)
//	}
package citystate

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/andreiashu/citystate/internal/store"
)

// Defaults used when an option is not supplied.
const (
	DefaultSourceFile  = "GeoLite2-City-Locations-en.csv"
	DefaultRepairFile  = "states-replace.yml"
	DefaultCountryCode = "US"
	defaultDataDir     = "./citystate-data"
	defaultCacheDir    = "./citystate-cache"
)

// Logger receives warnings about swallowed errors. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Config contains configuration options for a Resolver.
type Config struct {
	DataDir        string      // Directory holding the raw CSV and the repair table
	CacheDir       string      // Directory for cache files when no Store is given
	SourceFile     string      // Raw CSV file name, relative to DataDir unless absolute
	RepairFile     string      // State-code repair table, relative to DataDir unless absolute
	DefaultCountry string      // Country used when none was ever given and no cache exists
	SourceURL      string      // Archive URL used by Update; empty skips the download
	Store          store.Store // Cache backend (default: filesystem under CacheDir)
	Fetcher        Fetcher     // Downloads the raw CSV (default: HTTPFetcher when SourceURL is set)
	Logger         Logger
}

// Option is a functional option for configuring a Resolver.
type Option func(*Config)

// WithDataDir sets the directory holding the raw CSV and repair table.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.DataDir = dir
	}
}

// WithCacheDir sets the directory for cache files.
func WithCacheDir(dir string) Option {
	return func(c *Config) {
		c.CacheDir = dir
	}
}

// WithSourceFile overrides the raw CSV file name.
func WithSourceFile(name string) Option {
	return func(c *Config) {
		c.SourceFile = name
	}
}

// WithRepairFile overrides the state-code repair table file name.
func WithRepairFile(name string) Option {
	return func(c *Config) {
		c.RepairFile = name
	}
}

// WithDefaultCountry sets the fallback country code.
func WithDefaultCountry(code string) Option {
	return func(c *Config) {
		c.DefaultCountry = code
	}
}

// WithSourceURL sets the archive URL downloaded by Update.
func WithSourceURL(url string) Option {
	return func(c *Config) {
		c.SourceURL = url
	}
}

// WithLicenseKey sets the source URL to the GeoLite2 City CSV permalink for key.
func WithLicenseKey(key string) Option {
	return func(c *Config) {
		c.SourceURL = LicenseURL(key)
	}
}

// WithStore replaces the filesystem cache store.
func WithStore(s store.Store) Option {
	return func(c *Config) {
		c.Store = s
	}
}

// WithFetcher replaces the HTTP downloader used by Update.
func WithFetcher(f Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

// WithLogger sets the warning logger. A nil logger discards warnings.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		if l == nil {
			l = nopLogger{}
		}
		c.Logger = l
	}
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// defaultConfig returns the default configuration.
func defaultConfig() *Config {
	return &Config{
		DataDir:        defaultDataDir,
		CacheDir:       defaultCacheDir,
		SourceFile:     DefaultSourceFile,
		RepairFile:     DefaultRepairFile,
		DefaultCountry: DefaultCountryCode,
		Logger:         log.Default(),
	}
}

// Resolver answers country, state and city queries. It owns the in-memory
// tables loaded from the cache store; they live until Update clears them.
// Safe for concurrent use.
type Resolver struct {
	config *Config
	store  store.Store
	log    Logger

	mu        sync.Mutex
	countries []Country                      // nil until loaded
	states    map[string]map[string]string   // country -> state code -> state name
	cities    map[string]map[string][]string // country -> state code -> city names
	current   string                         // country used when none is given
}

// New creates a Resolver. Nothing is read until the first query.
func New(opts ...Option) *Resolver {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Store == nil {
		cfg.Store = store.NewFS(cfg.CacheDir)
	}
	if cfg.Fetcher == nil && cfg.SourceURL != "" {
		cfg.Fetcher = &HTTPFetcher{URL: cfg.SourceURL}
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	return &Resolver{
		config: cfg,
		store:  cfg.Store,
		log:    cfg.Logger,
		states: make(map[string]map[string]string),
		cities: make(map[string]map[string][]string),
	}
}

// Countries returns every country name, ordered by country code.
// It never fails; problems are logged and yield an empty slice.
func (r *Resolver) Countries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.countryIndex(context.Background())
	if err != nil {
		r.log.Printf("warning: countries: %v", err)
		return []string{}
	}
	names := make([]string, len(idx))
	for i, c := range idx {
		names[i] = c.Name
	}
	return names
}

// States returns the state names of country, ordered by state code.
func (r *Resolver) States(country string) []string {
	if isBlank(country) {
		return []string{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	table, err := r.statesFor(context.Background(), country)
	if err != nil {
		r.log.Printf("warning: states %q: %v", country, err)
		return []string{}
	}
	return stateNames(table)
}

// Cities returns city names. With a state name it returns that state's cities;
// with a blank state it returns the cities of the whole country.
func (r *Resolver) Cities(country, state string) []string {
	if isBlank(country) {
		return []string{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx := context.Background()
	var (
		list []string
		err  error
	)
	if isBlank(state) {
		list, err = r.countryCities(ctx, country)
	} else {
		list, err = r.stateCities(ctx, country, state)
	}
	if err != nil {
		r.log.Printf("warning: cities %q/%q: %v", country, state, err)
		return []string{}
	}
	if list == nil {
		return []string{}
	}
	return list
}

// stateCities resolves a state name to its code and returns the code's cities.
func (r *Resolver) stateCities(ctx context.Context, country, stateName string) ([]string, error) {
	table, err := r.statesFor(ctx, country)
	if err != nil {
		return nil, err
	}
	code, ok := stateCode(table, stateName)
	if !ok {
		return nil, nil
	}
	return r.citiesFor(ctx, code, country)
}

// countryCities returns the rows keyed directly by the country code (city
// states and territories without subdivisions) or, when there are none, the
// union of every state's cities.
func (r *Resolver) countryCities(ctx context.Context, country string) ([]string, error) {
	direct, err := r.citiesFor(ctx, country, country)
	if err != nil {
		return nil, err
	}
	if len(direct) > 0 {
		return direct, nil
	}

	table, err := r.statesFor(ctx, country)
	if err != nil {
		return nil, err
	}
	var all []string
	for _, code := range sortedKeys(table) {
		list, err := r.citiesFor(ctx, code, country)
		if err != nil {
			return nil, err
		}
		all = append(all, list...)
	}
	return uniq(all), nil
}

// Lookup walks the hierarchy by code: no country gives country names, no
// state gives the country's state names, otherwise the cities of stateCode.
func (r *Resolver) Lookup(country, stateCode string) []string {
	if isBlank(country) {
		return r.Countries()
	}
	if isBlank(stateCode) {
		return r.States(country)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.citiesFor(context.Background(), stateCode, country)
	if err != nil {
		r.log.Printf("warning: lookup %q/%q: %v", country, stateCode, err)
		return []string{}
	}
	if list == nil {
		return []string{}
	}
	return list
}

// Close releases the cache store when it holds resources, such as the
// database handle of the sqlite driver. The Resolver must not be used after.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// CurrentCountry returns the country used when a cache query names none.
func (r *Resolver) CurrentCountry() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentCountry(context.Background())
}

// SetCurrentCountry overrides the current country.
func (r *Resolver) SetCurrentCountry(country string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = normalizeCode(country)
}

// sourcePath returns the location of the raw CSV.
func (r *Resolver) sourcePath() string {
	return r.dataPath(r.config.SourceFile)
}

func (r *Resolver) repairPath() string {
	return r.dataPath(r.config.RepairFile)
}

func (r *Resolver) dataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(r.config.DataDir, name)
}

// isBlank is the single emptiness test used at every input boundary.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// normalizeCode upper-cases country and state codes used as keys.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func stripQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}

// stateCode returns the first code, in code order, whose name is name.
func stateCode(table map[string]string, name string) (string, bool) {
	for _, code := range sortedKeys(table) {
		if table[code] == name {
			return code, true
		}
	}
	return "", false
}

func stateNames(table map[string]string) []string {
	names := make([]string, 0, len(table))
	for _, code := range sortedKeys(table) {
		names = append(names, table[code])
	}
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// uniq removes duplicates keeping the first occurrence of each name.
func uniq(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
