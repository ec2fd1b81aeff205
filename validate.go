package citystate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/andreiashu/citystate/internal/store"
)

// Validate reads every installed country's tables straight from the store and
// checks their integrity: each city list belongs to a known state code, is
// sorted and holds no duplicates or blank names. It returns nil when no
// country is installed.
func (r *Resolver) Validate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, err := r.store.List(ctx, store.KindStates)
	if err != nil {
		return fmt.Errorf("listing installed countries: %w", err)
	}

	var errs []error
	for _, k := range keys {
		if err := r.validateCountry(ctx, k.Country); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Resolver) validateCountry(ctx context.Context, country string) error {
	states, err := loadTable[map[string]string](ctx, r.store, store.StatesKey(country))
	if err != nil {
		return fmt.Errorf("%s: states: %w", country, err)
	}
	cities, err := loadTable[map[string][]string](ctx, r.store, store.CitiesKey(country))
	if err != nil {
		return fmt.Errorf("%s: cities: %w", country, err)
	}

	var errs []error
	for _, code := range sortedKeys(states) {
		if isBlank(code) {
			errs = append(errs, fmt.Errorf("%s: blank state code", country))
		}
	}
	for _, code := range sortedKeys(cities) {
		list := cities[code]
		if _, ok := states[code]; !ok {
			errs = append(errs, fmt.Errorf("%s/%s: cities for unknown state", country, code))
		}
		if !sort.StringsAreSorted(list) {
			errs = append(errs, fmt.Errorf("%s/%s: city list not sorted", country, code))
		}
		if len(uniq(list)) != len(list) {
			errs = append(errs, fmt.Errorf("%s/%s: duplicate cities", country, code))
		}
		for _, city := range list {
			if isBlank(city) {
				errs = append(errs, fmt.Errorf("%s/%s: blank city name", country, code))
				break
			}
		}
	}
	return errors.Join(errs...)
}
