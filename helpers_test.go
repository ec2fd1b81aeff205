package citystate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const csvHeader = "geoname_id,locale_code,continent_code,continent_name,country_iso_code,country_name," +
	"subdivision_1_iso_code,subdivision_1_name,subdivision_2_iso_code,subdivision_2_name," +
	"city_name,metro_code,time_zone,is_in_european_union"

// csvRow renders one GeoLite2 City Locations line.
func csvRow(id int, country, countryName, state, stateName, city string) string {
	return fmt.Sprintf("%d,en,XX,Somewhere,%s,%s,%s,%s,,,%s,,Etc/UTC,0",
		id, country, countryName, state, stateName, city)
}

// fixtureRows covers the cases the installer has to handle: duplicates,
// state codes recovered from the repair table, names used as codes,
// quoted names, unusable rows, country-level pseudo states.
var fixtureRows = []string{
	csvHeader,
	csvRow(1, "US", "United States", "CA", "California", "Los Angeles"),
	csvRow(2, "US", "United States", "CA", "California", "San Diego"),
	csvRow(3, "US", "United States", "CA", "California", "Los Angeles"),
	csvRow(4, "US", "United States", "", "Texas", "Austin"),
	csvRow(5, "US", "United States", "NY", "", "Buffalo"),
	csvRow(6, "US", "United States", "", "Ohio", "Columbus"),
	csvRow(7, "US", "United States", "ID", `"Idaho"`, `"Coeur d'Alene"`),
	csvRow(8, "US", "United States", "", "", "Nowhere"),
	csvRow(9, "US", "United States", "CA", "California", ""),
	csvRow(10, "FR", "France", "IDF", "Ile-de-France", "Versailles"),
	csvRow(11, "FR", "France", "IDF", "Ile-de-France", "Paris"),
	csvRow(12, "FR", "France", "ARA", "Auvergne-Rhone-Alpes", "Lyon"),
	csvRow(13, "FR", "France", "ARA", "Auvergne-Rhone-Alpes", "Paris"),
	csvRow(14, "sg", "Singapore", "SG", "Singapore", "Singapore"),
	csvRow(15, "SG", "Singapore", "01", "Central", "Queenstown"),
	csvRow(16, "BQ", `"Bonaire"`, "", "", ""),
	csvRow(17, "XX", "", "AA", "Nowhere", "Lost"),
	csvRow(18, "US", "United States of America", "TX", "Texas", "Dallas"),
	"short,line",
}

const fixtureRepair = `US:
  TX: Texas
  NY: New York
FR:
  IDF: Paris Region
`

// writeFixture creates a data directory holding the raw CSV and repair table.
func writeFixture(dir string, rows []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	src := filepath.Join(dir, DefaultSourceFile)
	if err := os.WriteFile(src, []byte(strings.Join(rows, "\n")+"\n"), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, DefaultRepairFile), []byte(fixtureRepair), 0o644)
}

// recordLogger collects warnings for assertions.
type recordLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordLogger) Printf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *recordLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}
