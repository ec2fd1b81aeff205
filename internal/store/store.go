// Package store persists the derived cache files (country index, per-country
// state and city tables) behind a small key-addressed interface.
//
// A Key is the pair (kind, country). Key.Path is the only place that turns a
// key into a storage name, and ParseKey is its inverse, so every driver agrees
// on names regardless of platform path rules or the caller's casing.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies which derived table a cache file holds.
type Kind string

const (
	KindCountries Kind = "countries"
	KindStates    Kind = "states"
	KindCities    Kind = "cities"
)

// fileExt is appended to every storage name.
const fileExt = ".yml"

// ErrNotFound is returned by Get when no cache file exists for a key.
var ErrNotFound = errors.New("cache file not found")

// Key addresses one cache file. Country is ignored for KindCountries.
type Key struct {
	Kind    Kind
	Country string
}

// CountriesKey is the key of the country index.
func CountriesKey() Key { return Key{Kind: KindCountries} }

// StatesKey is the key of a country's state table.
func StatesKey(country string) Key { return Key{Kind: KindStates, Country: country} }

// CitiesKey is the key of a country's city table.
func CitiesKey(country string) Key { return Key{Kind: KindCities, Country: country} }

// Path returns the storage name for k, e.g. "states.us.yml" or "countries.yml".
// Country codes are lowercased so "US" and "us" share one file.
func (k Key) Path() string {
	if k.Kind == KindCountries {
		return string(KindCountries) + fileExt
	}
	return string(k.Kind) + "." + strings.ToLower(strings.TrimSpace(k.Country)) + fileExt
}

// Validate reports whether k can be turned into a safe storage name.
func (k Key) Validate() error {
	switch k.Kind {
	case KindCountries:
		return nil
	case KindStates, KindCities:
	default:
		return fmt.Errorf("unknown cache kind %q", k.Kind)
	}
	c := strings.TrimSpace(k.Country)
	if c == "" {
		return fmt.Errorf("empty country for %s cache", k.Kind)
	}
	if strings.ContainsAny(c, `/\.`) {
		return fmt.Errorf("invalid country %q", c)
	}
	return nil
}

// ParseKey is the inverse of Key.Path. The returned country is uppercase.
func ParseKey(name string) (Key, bool) {
	if !strings.HasSuffix(name, fileExt) {
		return Key{}, false
	}
	base := strings.TrimSuffix(name, fileExt)
	if base == string(KindCountries) {
		return CountriesKey(), true
	}
	kind, country, ok := strings.Cut(base, ".")
	if !ok || country == "" || strings.Contains(country, ".") {
		return Key{}, false
	}
	switch Kind(kind) {
	case KindStates, KindCities:
		return Key{Kind: Kind(kind), Country: strings.ToUpper(country)}, true
	}
	return Key{}, false
}

// Store is implemented by every cache backend.
type Store interface {
	// Get returns the content for key, or an error wrapping ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)
	// Put replaces the content for key.
	Put(ctx context.Context, key Key, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error
	// List returns the keys of the given kind ordered by Path.
	List(ctx context.Context, kind Kind) ([]Key, error)
}

// filterKeys keeps the parsable names of the requested kind, in input order.
func filterKeys(names []string, kind Kind) []Key {
	var keys []Key
	for _, n := range names {
		k, ok := ParseKey(n)
		if ok && k.Kind == kind {
			keys = append(keys, k)
		}
	}
	return keys
}
