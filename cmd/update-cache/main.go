// Command update-cache rebuilds the citystate cache tables from raw data.
//
// Usage:
//
//	go run ./cmd/update-cache [country...]
//
// This reads ./citystate-data/GeoLite2-City-Locations-en.csv and writes to
// ./citystate-cache/. With no arguments every installed country is rebuilt;
// when none is installed yet, the default country is. Set
// CITYSTATE_LICENSE_KEY to download a fresh CSV first.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/andreiashu/citystate"
)

func main() {
	ctx := context.Background()

	var opts []citystate.Option
	if key := os.Getenv("CITYSTATE_LICENSE_KEY"); key != "" {
		opts = append(opts, citystate.WithLicenseKey(key))
	}
	r := citystate.New(opts...)

	countries := os.Args[1:]
	if len(countries) == 0 {
		fmt.Println("Rebuilding installed countries from raw data...")
		if !r.Update(ctx) {
			fmt.Fprintln(os.Stderr, "Error: update failed")
			os.Exit(1)
		}
		installed, err := r.Installed(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(installed) > 0 {
			fmt.Printf("Rebuilt %d countries.\n", len(installed))
		} else {
			countries = []string{r.CurrentCountry()}
		}
	}

	for _, cc := range countries {
		fmt.Printf("Installing %s...\n", cc)
		if !r.Install(ctx, cc) {
			fmt.Fprintf(os.Stderr, "Error: install %s failed\n", cc)
			os.Exit(1)
		}
	}

	fmt.Println("Validating cache...")
	if err := r.Validate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed:\n%v\n", err)
		os.Exit(1)
	}
	fmt.Println("Cache rebuilt successfully.")
}
