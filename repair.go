package citystate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// repairTable recovers a missing state code from the state's full name, and
// the full name from the code, for one country.
// The file maps country code -> state code -> state name:
//
//	US:
//	  TX: Texas
//	  CA: California
type repairTable struct {
	names map[string]string // code -> name
	codes map[string]string // name -> code
}

// code returns the canonical code for a state name, or "".
func (t repairTable) code(name string) string {
	return t.codes[name]
}

// name returns the full name for a state code, or "".
func (t repairTable) name(code string) string {
	return t.names[normalizeCode(code)]
}

// loadRepairTable reads the repair entries for country. A missing file is
// an empty table.
func loadRepairTable(path, country string) (repairTable, error) {
	t := repairTable{names: map[string]string{}, codes: map[string]string{}}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("reading repair table: %w", err)
	}

	var all map[string]map[string]string
	if err := yaml.Unmarshal(b, &all); err != nil {
		return t, fmt.Errorf("decoding repair table %s: %w", path, err)
	}

	country = normalizeCode(country)
	var divisions map[string]string
	for cc, d := range all {
		if normalizeCode(cc) == country {
			divisions = d
			break
		}
	}

	// Sorted so that when two codes share a name the lowest code wins.
	for _, code := range sortedKeys(divisions) {
		name := divisions[code]
		code = normalizeCode(code)
		t.names[code] = name
		if _, dup := t.codes[name]; !dup && name != "" {
			t.codes[name] = code
		}
	}
	return t, nil
}
