package citystate

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/andreiashu/citystate/internal/store"
)

// Country is one entry of the country index.
type Country struct {
	Code string // ISO 3166-1 alpha-2 code, uppercase
	Name string
}

// countryIndex returns the cached index, loading it from the store or
// deriving it from the raw CSV on first use. Callers hold r.mu.
func (r *Resolver) countryIndex(ctx context.Context) ([]Country, error) {
	if r.countries != nil {
		return r.countries, nil
	}

	b, err := r.store.Get(ctx, store.CountriesKey())
	switch {
	case err == nil:
		idx, err := decodeCountries(b)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", store.CountriesKey().Path(), err)
		}
		r.countries = idx
		return idx, nil
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, err
	}

	if !r.sourceExists() {
		r.countries = []Country{}
		return r.countries, nil
	}
	table, err := r.deriveCountries(ctx)
	if err != nil {
		return nil, err
	}
	idx := make([]Country, 0, len(table))
	for _, code := range sortedKeys(table) {
		idx = append(idx, Country{Code: code, Name: table[code]})
	}
	r.countries = idx
	return idx, nil
}

// decodeCountries reads a stored index keeping the file's entry order.
// Indexes written by deriveCountries are already sorted by code.
func decodeCountries(b []byte) ([]Country, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	idx := []Country{}
	if len(doc.Content) == 0 {
		return idx, nil
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: country index is not a mapping", m.Line)
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		var code, name string
		if err := m.Content[i].Decode(&code); err != nil {
			return nil, err
		}
		if err := m.Content[i+1].Decode(&name); err != nil {
			return nil, err
		}
		idx = append(idx, Country{Code: normalizeCode(code), Name: name})
	}
	return idx, nil
}

// deriveCountries scans the raw CSV once, keeping the first name seen for
// each code, and persists the result.
func (r *Resolver) deriveCountries(ctx context.Context) (map[string]string, error) {
	table := make(map[string]string)
	err := r.scanSource(func(row RawRow) {
		if isBlank(row.Country) || isBlank(row.CountryName) {
			return
		}
		code := normalizeCode(row.Country)
		if _, ok := table[code]; ok {
			return
		}
		table[code] = stripQuotes(row.CountryName)
	})
	if err != nil {
		return nil, fmt.Errorf("deriving country index: %w", err)
	}
	if err := saveTable(ctx, r.store, store.CountriesKey(), table); err != nil {
		r.log.Printf("warning: failed to store country index: %v", err)
	}
	return table, nil
}

// loadTable decodes the YAML cache file at key.
func loadTable[T any](ctx context.Context, s store.Store, key store.Key) (T, error) {
	var v T
	b, err := s.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if err := yaml.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decoding %s: %w", key.Path(), err)
	}
	return v, nil
}

// saveTable writes v as a YAML cache file. Map keys come out sorted.
func saveTable(ctx context.Context, s store.Store, key store.Key, v any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key.Path(), err)
	}
	return s.Put(ctx, key, b)
}
