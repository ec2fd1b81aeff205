package citystate

import "errors"

var (
	// ErrMissingSource is returned when installation needs the raw CSV and it is absent.
	ErrMissingSource = errors.New("raw source file not found")
	// ErrMissingCache is returned when a country has no cache file and none can be derived.
	ErrMissingCache = errors.New("no cache available")
	// ErrFetch wraps every download or extraction failure of the raw source archive.
	ErrFetch = errors.New("fetching raw source failed")
)
