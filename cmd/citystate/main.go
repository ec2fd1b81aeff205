// Command citystate lists countries, states and cities from a GeoLite2 City
// Locations CSV.
//
// Usage:
//
//	citystate countries
//	citystate states US
//	citystate cities US Texas
//	citystate lookup US TX
//	citystate install US FR
//	citystate update --license-key xxxx
//	citystate validate
//
// Settings come from --config (YAML), then the CITYSTATE_* environment
// variables, then flags.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andreiashu/citystate"
	"github.com/andreiashu/citystate/internal/store"
)

type rootOptions struct {
	configPath string
	dataDir    string
	cacheDir   string
	driver     string
	licenseKey string
	jsonOut    bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	root := &cobra.Command{
		Use:          "citystate",
		Short:        "Country, state and city lists from GeoLite2 City Locations",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&opts.dataDir, "data-dir", "", "Directory holding the raw CSV and states-replace.yml")
	pf.StringVar(&opts.cacheDir, "cache-dir", "", "Directory for cache files (fs store)")
	pf.StringVar(&opts.driver, "store", "", "Cache store: fs, memory, s3 or sqlite")
	pf.StringVar(&opts.licenseKey, "license-key", "", "MaxMind license key used by update")
	pf.BoolVar(&opts.jsonOut, "json", false, "Print results as a JSON array")

	root.AddCommand(
		newCountriesCmd(&opts),
		newStatesCmd(&opts),
		newCitiesCmd(&opts),
		newLookupCmd(&opts),
		newInstallCmd(&opts),
		newInstalledCmd(&opts),
		newUpdateCmd(&opts),
		newValidateCmd(&opts),
	)
	return root
}

func newCountriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "List country names",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, r *citystate.Resolver, args []string) error {
			return opts.print(cmd.OutOrStdout(), r.Countries())
		}),
	}
}

func newStatesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "states <country>",
		Short: "List the state names of a country",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, r *citystate.Resolver, args []string) error {
			return opts.print(cmd.OutOrStdout(), r.States(args[0]))
		}),
	}
}

func newCitiesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cities <country> [state name]",
		Short: "List the cities of a state, or of the whole country",
		Args:  cobra.MinimumNArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, r *citystate.Resolver, args []string) error {
			// Unquoted multi-word names arrive as separate args.
			state := strings.Join(args[1:], " ")
			return opts.print(cmd.OutOrStdout(), r.Cities(args[0], state))
		}),
	}
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup [country] [state code]",
		Short: "Walk the hierarchy by code",
		Args:  cobra.MaximumNArgs(2),
		RunE: opts.run(func(cmd *cobra.Command, r *citystate.Resolver, args []string) error {
			var country, state string
			if len(args) > 0 {
				country = args[0]
			}
			if len(args) > 1 {
				state = args[1]
			}
			return opts.print(cmd.OutOrStdout(), r.Lookup(country, state))
		}),
	}
}

func newInstallCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install <country>...",
		Short: "Build the cache tables of one or more countries",
		Args:  cobra.MinimumNArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, r *citystate.Resolver, args []string) error {
			var failed []string
			for _, cc := range args {
				if !r.Install(cmd.Context(), cc) {
					failed = append(failed, cc)
					continue
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "installed %s\n", strings.ToUpper(cc))
			}
			if len(failed) > 0 {
				return fmt.Errorf("install failed for %s", strings.Join(failed, ", "))
			}
			return nil
		}),
	}
}

func newInstalledCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "installed",
		Short: "List the countries that have cache tables",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, r *citystate.Resolver, args []string) error {
			codes, err := r.Installed(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing installed countries: %w", err)
			}
			return opts.print(cmd.OutOrStdout(), codes)
		}),
	}
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Download a fresh CSV (when configured) and rebuild installed countries",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, r *citystate.Resolver, args []string) error {
			if !r.Update(cmd.Context()) {
				return fmt.Errorf("update did not complete; see warnings above")
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "update complete")
			return nil
		}),
	}
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the integrity of every installed country's tables",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, r *citystate.Resolver, args []string) error {
			if err := r.Validate(cmd.Context()); err != nil {
				return fmt.Errorf("cache validation failed:\n%w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "cache OK")
			return nil
		}),
	}
}

// run opens the resolver for one command and closes it afterwards.
func (o *rootOptions) run(fn func(cmd *cobra.Command, r *citystate.Resolver, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		r, err := o.resolver(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := r.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing cache store: %w", cerr)
			}
		}()
		return fn(cmd, r, args)
	}
}

// resolver layers the config file, environment and flags, in that order.
func (o *rootOptions) resolver(cmd *cobra.Command) (*citystate.Resolver, error) {
	var fc citystate.FileConfig
	if o.configPath != "" {
		var err error
		if fc, err = citystate.LoadConfigFile(o.configPath); err != nil {
			return nil, err
		}
	}

	fc.Store = store.FromEnv(fc.Store)
	if v := os.Getenv("CITYSTATE_DATA_DIR"); v != "" {
		fc.DataDir = v
	}
	if v := os.Getenv("CITYSTATE_LICENSE_KEY"); v != "" {
		fc.LicenseKey = v
	}

	if o.dataDir != "" {
		fc.DataDir = o.dataDir
	}
	if o.cacheDir != "" {
		fc.CacheDir = o.cacheDir
		fc.Store.Root = o.cacheDir
	}
	if o.driver != "" {
		fc.Store.Driver = store.Driver(o.driver)
	}
	if o.licenseKey != "" {
		fc.LicenseKey = o.licenseKey
		fc.SourceURL = ""
	}

	opts, err := fc.Options(cmd.Context())
	if err != nil {
		return nil, err
	}
	logger := log.New(cmd.ErrOrStderr(), "citystate: ", 0)
	return citystate.New(append(opts, citystate.WithLogger(logger))...), nil
}

func (o *rootOptions) print(w io.Writer, list []string) error {
	if o.jsonOut {
		enc := json.NewEncoder(w)
		return enc.Encode(list)
	}
	for _, s := range list {
		if _, err := fmt.Fprintln(w, s); err != nil {
			return err
		}
	}
	return nil
}
