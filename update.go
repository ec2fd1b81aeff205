package citystate

import (
	"context"

	"github.com/andreiashu/citystate/internal/store"
)

// Update refreshes the raw CSV (when a source URL or fetcher is configured),
// re-installs every country that already has a state table, then drops all
// in-memory tables and the stored country index so they are rebuilt on next
// use. It reports whether every step succeeded.
func (r *Resolver) Update(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.Fetcher != nil {
		if err := r.config.Fetcher.Fetch(ctx, r.sourcePath()); err != nil {
			r.log.Printf("warning: update: %v", err)
			return false
		}
	}

	ok := true
	keys, err := r.store.List(ctx, store.KindStates)
	if err != nil {
		r.log.Printf("warning: update: listing installed countries: %v", err)
		ok = false
	}
	for _, k := range keys {
		if err := r.install(ctx, k.Country); err != nil {
			r.log.Printf("warning: update: %v", err)
			ok = false
		}
	}

	r.countries = nil
	r.states = make(map[string]map[string]string)
	r.cities = make(map[string]map[string][]string)
	if err := r.store.Delete(ctx, store.CountriesKey()); err != nil {
		r.log.Printf("warning: update: removing country index: %v", err)
		ok = false
	}
	return ok
}
