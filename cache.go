package citystate

import (
	"context"
	"errors"
	"fmt"

	"github.com/andreiashu/citystate/internal/store"
)

// All methods in this file expect the caller to hold r.mu.

// statesFor returns the state table of country and makes it the current
// country. A table that cannot be loaded or derived is remembered as empty
// so the raw CSV is scanned at most once per country per process.
func (r *Resolver) statesFor(ctx context.Context, country string) (map[string]string, error) {
	country = normalizeCode(country)
	if isBlank(country) {
		return map[string]string{}, nil
	}
	r.current = country

	if table, ok := r.states[country]; ok {
		return table, nil
	}

	table, err := loadOrInstall[map[string]string](ctx, r, store.StatesKey(country))
	if err != nil {
		r.states[country] = map[string]string{}
		return r.states[country], err
	}
	if table == nil {
		table = map[string]string{}
	}
	r.states[country] = table
	return table, nil
}

// citiesFor returns the cities of stateCode in country, or in the current
// country when country is blank. A state missing from the table yields nil.
func (r *Resolver) citiesFor(ctx context.Context, stateCode, country string) ([]string, error) {
	if !isBlank(country) {
		r.current = normalizeCode(country)
	}
	country = r.currentCountry(ctx)
	stateCode = normalizeCode(stateCode)

	table, ok := r.cities[country]
	if !ok {
		loaded, err := loadOrInstall[map[string][]string](ctx, r, store.CitiesKey(country))
		if err != nil {
			r.cities[country] = map[string][]string{}
			return nil, err
		}
		// Tables written by older installs may still hold duplicates.
		table = make(map[string][]string, len(loaded))
		for code, list := range loaded {
			table[normalizeCode(code)] = uniq(list)
		}
		r.cities[country] = table
	}

	list, ok := table[stateCode]
	if !ok {
		return nil, nil
	}
	return append([]string(nil), list...), nil
}

// loadOrInstall loads the table at key, installing the key's country first
// when the table is missing and the raw CSV is available.
func loadOrInstall[T any](ctx context.Context, r *Resolver, key store.Key) (T, error) {
	table, err := loadTable[T](ctx, r.store, key)
	if !errors.Is(err, store.ErrNotFound) {
		return table, err
	}
	if !r.sourceExists() {
		return table, fmt.Errorf("%s: %w", key.Path(), ErrMissingCache)
	}
	if ierr := r.install(ctx, key.Country); ierr != nil {
		return table, fmt.Errorf("%s: %w: %v", key.Path(), ErrMissingCache, ierr)
	}
	table, err = loadTable[T](ctx, r.store, key)
	if errors.Is(err, store.ErrNotFound) {
		return table, fmt.Errorf("%s: %w", key.Path(), ErrMissingCache)
	}
	return table, err
}

// currentCountry returns the country used by city lookups that name none:
// the last explicit country, else the last installed city table by name,
// else the default country, which is installed when the raw CSV exists.
func (r *Resolver) currentCountry(ctx context.Context) string {
	if r.current != "" {
		return r.current
	}

	keys, err := r.store.List(ctx, store.KindCities)
	if err != nil {
		r.log.Printf("warning: listing city caches: %v", err)
	}
	if len(keys) > 0 {
		r.current = keys[len(keys)-1].Country
		return r.current
	}

	r.current = normalizeCode(r.config.DefaultCountry)
	if r.sourceExists() {
		if err := r.install(ctx, r.current); err != nil {
			r.log.Printf("warning: installing default country %s: %v", r.current, err)
		}
	}
	return r.current
}
