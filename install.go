package citystate

import (
	"context"
	"fmt"
	"sort"

	"github.com/andreiashu/citystate/internal/store"
)

// Install derives and stores the state and city tables of country from the
// raw CSV, replacing any existing tables. It reports whether it succeeded.
func (r *Resolver) Install(ctx context.Context, country string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.install(ctx, country); err != nil {
		r.log.Printf("warning: install %q: %v", country, err)
		return false
	}
	return true
}

// Installed returns the codes of every country that has a state table.
func (r *Resolver) Installed(ctx context.Context) ([]string, error) {
	keys, err := r.store.List(ctx, store.KindStates)
	if err != nil {
		return nil, err
	}
	codes := make([]string, len(keys))
	for i, k := range keys {
		codes[i] = k.Country
	}
	return codes, nil
}

// install scans the raw CSV for one country. Callers hold r.mu.
func (r *Resolver) install(ctx context.Context, country string) error {
	country = normalizeCode(country)
	if isBlank(country) {
		return fmt.Errorf("install: empty country code")
	}
	if !r.sourceExists() {
		return fmt.Errorf("install %s: %w", country, ErrMissingSource)
	}

	repair, err := loadRepairTable(r.repairPath(), country)
	if err != nil {
		// The table is optional; rows it would have fixed fall back to the name.
		r.log.Printf("warning: %v", err)
	}

	states, cities, err := deriveTables(country, repair, r.scanSource)
	if err != nil {
		return fmt.Errorf("install %s: %w", country, err)
	}

	if err := saveTable(ctx, r.store, store.StatesKey(country), states); err != nil {
		return fmt.Errorf("install %s: %w", country, err)
	}
	if err := saveTable(ctx, r.store, store.CitiesKey(country), cities); err != nil {
		return fmt.Errorf("install %s: %w", country, err)
	}

	// The store now holds the only authoritative copy.
	delete(r.states, country)
	delete(r.cities, country)
	return nil
}

// deriveTables builds the state and city tables for country from the rows
// produced by scan.
func deriveTables(country string, repair repairTable, scan func(func(RawRow)) error) (map[string]string, map[string][]string, error) {
	states := make(map[string]string)
	cities := make(map[string][]string)

	err := scan(func(row RawRow) {
		if normalizeCode(row.Country) != country || !row.Usable() {
			return
		}

		code := row.State
		name := stripQuotes(row.StateName)
		if isBlank(code) {
			code = repair.code(name)
		}
		if isBlank(code) {
			code = name
		}
		if isBlank(name) {
			name = repair.name(code)
		}
		code = normalizeCode(stripQuotes(code))

		city := stripQuotes(row.City)
		if isBlank(code) || isBlank(city) {
			return
		}

		if _, ok := states[code]; !ok {
			states[code] = name
		}
		cities[code] = append(cities[code], city)
	})
	if err != nil {
		return nil, nil, err
	}

	for code, list := range cities {
		sort.Strings(list)
		cities[code] = uniqSorted(list)
	}
	return states, cities, nil
}

// uniqSorted drops adjacent duplicates from a sorted list in place.
func uniqSorted(list []string) []string {
	if len(list) < 2 {
		return list
	}
	out := list[:1]
	for _, s := range list[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
