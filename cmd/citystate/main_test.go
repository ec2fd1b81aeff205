package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `geoname_id,locale_code,continent_code,continent_name,country_iso_code,country_name,subdivision_1_iso_code,subdivision_1_name,subdivision_2_iso_code,subdivision_2_name,city_name,metro_code,time_zone,is_in_european_union
1,en,NA,North America,US,United States,CA,California,,,Los Angeles,,America/Los_Angeles,0
2,en,NA,North America,US,United States,CA,California,,,Los Angeles,,America/Los_Angeles,0
3,en,NA,North America,US,United States,,Texas,,,Austin,,America/Chicago,0
4,en,NA,North America,US,United States,NY,New York,,,Buffalo,,America/New_York,0
5,en,EU,Europe,FR,France,IDF,Ile-de-France,,,Paris,,Europe/Paris,1
`

const testRepair = "US:\n  TX: Texas\n"

func setup(t *testing.T) (dataDir, cacheDir string) {
	t.Helper()
	for _, name := range []string{
		"CITYSTATE_STORE_DRIVER", "CITYSTATE_CACHE_DIR", "CITYSTATE_SQLITE_PATH",
		"CITYSTATE_DATA_DIR", "CITYSTATE_LICENSE_KEY",
	} {
		t.Setenv(name, "")
	}
	dataDir = t.TempDir()
	cacheDir = filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "GeoLite2-City-Locations-en.csv"), []byte(testCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "states-replace.yml"), []byte(testRepair), 0o644))
	return dataDir, cacheDir
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestCommands(t *testing.T) {
	dataDir, cacheDir := setup(t)
	dirs := []string{"--data-dir", dataDir, "--cache-dir", cacheDir}

	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"countries"}, []string{"France", "United States"}},
		{[]string{"states", "us"}, []string{"California", "New York", "Texas"}},
		{[]string{"cities", "US", "Texas"}, []string{"Austin"}},
		{[]string{"cities", "US", "New", "York"}, []string{"Buffalo"}},
		{[]string{"cities", "FR"}, []string{"Paris"}},
		{[]string{"lookup", "US", "CA"}, []string{"Los Angeles"}},
		{[]string{"lookup", "US"}, []string{"California", "New York", "Texas"}},
		{[]string{"installed"}, []string{"FR", "US"}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, _, err := run(t, append(tt.args, dirs...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, lines(out))
		})
	}
}

func TestJSONOutput(t *testing.T) {
	dataDir, cacheDir := setup(t)
	out, _, err := run(t, "states", "US", "--json", "--data-dir", dataDir, "--cache-dir", cacheDir)
	require.NoError(t, err)

	var got []string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"California", "New York", "Texas"}, got)

	out, _, err = run(t, "cities", "US", "Nowhere", "--json", "--data-dir", dataDir, "--cache-dir", cacheDir)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestInstallAndUpdate(t *testing.T) {
	dataDir, cacheDir := setup(t)
	dirs := []string{"--data-dir", dataDir, "--cache-dir", cacheDir}

	_, stderr, err := run(t, append([]string{"install", "us", "fr"}, dirs...)...)
	require.NoError(t, err)
	assert.Contains(t, stderr, "installed US")
	assert.FileExists(t, filepath.Join(cacheDir, "states.us.yml"))
	assert.FileExists(t, filepath.Join(cacheDir, "cities.fr.yml"))

	_, _, err = run(t, append([]string{"update"}, dirs...)...)
	require.NoError(t, err)

	_, stderr, err = run(t, append([]string{"validate"}, dirs...)...)
	require.NoError(t, err)
	assert.Contains(t, stderr, "cache OK")
	assert.NoFileExists(t, filepath.Join(cacheDir, "countries.yml"))
	assert.FileExists(t, filepath.Join(cacheDir, "states.us.yml"))
}

func TestInstallWithoutSource(t *testing.T) {
	_, cacheDir := setup(t)
	_, _, err := run(t, "install", "US", "--data-dir", t.TempDir(), "--cache-dir", cacheDir)
	assert.ErrorContains(t, err, "install failed for US")
}

func TestConfigFileAndEnv(t *testing.T) {
	dataDir, _ := setup(t)
	cfg := filepath.Join(t.TempDir(), "citystate.yml")
	require.NoError(t, os.WriteFile(cfg, []byte("data_dir: /nonexistent\nstore:\n  driver: memory\n"), 0o644))

	out, _, err := run(t, "countries", "--config", cfg)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))

	t.Setenv("CITYSTATE_DATA_DIR", dataDir)
	out, _, err = run(t, "lookup", "US", "TX", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"Austin"}, lines(out))

	sqlitePath := filepath.Join(t.TempDir(), "cache.db")
	t.Setenv("CITYSTATE_SQLITE_PATH", sqlitePath)
	out, _, err = run(t, "cities", "US", "California", "--config", cfg, "--store", "sqlite")
	require.NoError(t, err)
	assert.Equal(t, []string{"Los Angeles"}, lines(out))
	assert.FileExists(t, sqlitePath)

	// The previous command released its handle; a new one reads the same tables.
	out, _, err = run(t, "installed", "--config", cfg, "--store", "sqlite")
	require.NoError(t, err)
	assert.Equal(t, []string{"US"}, lines(out))
}

func TestBadInvocations(t *testing.T) {
	setup(t)
	_, _, err := run(t, "states")
	assert.Error(t, err)

	_, _, err = run(t, "countries", "--store", "redis")
	assert.ErrorContains(t, err, "redis")

	_, _, err = run(t, "countries", "--config", filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
