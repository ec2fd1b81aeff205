package citystate

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Column positions in the GeoLite2 City Locations CSV.
const (
	colID          = 0
	colCountry     = 4
	colCountryName = 5
	colState       = 6
	colStateName   = 7
	colCity        = 10
)

// headerID is the first column of the CSV header line.
const headerID = "geoname_id"

// maxLineSize bounds a single CSV line; real lines are a few hundred bytes.
const maxLineSize = 1 << 20

// RawRow is one line of the raw CSV, decoded by column position.
type RawRow struct {
	Country     string
	CountryName string
	State       string
	StateName   string
	City        string
}

// Usable reports whether the row names a city and at least one state field.
func (r RawRow) Usable() bool {
	return !isBlank(r.City) && (!isBlank(r.State) || !isBlank(r.StateName))
}

// decodeRow splits line on literal commas; quoted commas are not special.
// Missing columns decode as empty strings. The header line returns false.
func decodeRow(line string) (RawRow, bool) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	field := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}
	if field(colID) == headerID {
		return RawRow{}, false
	}
	return RawRow{
		Country:     field(colCountry),
		CountryName: field(colCountryName),
		State:       field(colState),
		StateName:   field(colStateName),
		City:        field(colCity),
	}, true
}

// sourceExists reports whether the raw CSV is present.
func (r *Resolver) sourceExists() bool {
	fi, err := os.Stat(r.sourcePath())
	return err == nil && !fi.IsDir()
}

// scanSource streams every decodable row of the raw CSV to fn.
func (r *Resolver) scanSource(fn func(RawRow)) error {
	path := r.sourcePath()
	fi, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrMissingSource)
	}
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer fi.Close()

	scanner := bufio.NewScanner(fi)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	scanner.Split(bufio.ScanLines)

	for scanner.Scan() {
		row, ok := decodeRow(scanner.Text())
		if !ok {
			continue
		}
		fn(row)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}
