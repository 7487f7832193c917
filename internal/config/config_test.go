package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenenazirov/table-seating/internal/registry"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{"PORT", "TABLE_CAPACITIES", "INVOICE_DIR", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	for _, key := range []string{"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "RATE_LIMIT_MUTATION_RPS", "RATE_LIMIT_MUTATION_BURST"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.Port)
	if diff := cmp.Diff(registry.DefaultCapacities(), cfg.TableCapacities); diff != "" {
		t.Errorf("table capacities mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 10*time.Second, cfg.ShutdownGracePeriod)
	assert.Equal(t, "Rechnungen", cfg.InvoiceDir)
	assert.Equal(t, defaultRateLimitRPS, cfg.RateLimitRPS)
	assert.Equal(t, defaultRateLimitBurst, cfg.RateLimitBurst)
	assert.Equal(t, defaultMutationRateLimitRPS, cfg.MutationRateLimitRPS)
	assert.Equal(t, defaultMutationRateLimitBurst, cfg.MutationRateLimitBurst)
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("TABLE_CAPACITIES", "10, 20 , 0")
	t.Setenv("INVOICE_DIR", "/tmp/rechnungen")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RATE_LIMIT_RPS", "0")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_MUTATION_RPS", "2")
	t.Setenv("RATE_LIMIT_MUTATION_BURST", "0")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	if diff := cmp.Diff([]int{10, 20, 0}, cfg.TableCapacities); diff != "" {
		t.Errorf("table capacities mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "/tmp/rechnungen", cfg.InvoiceDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Zero(t, cfg.RateLimitRPS)
	assert.Equal(t, 3, cfg.RateLimitBurst)
	assert.Equal(t, 2.0, cfg.MutationRateLimitRPS)
	assert.Zero(t, cfg.MutationRateLimitBurst)
}

func TestLoadInvalidEnvironment(t *testing.T) {
	for _, raw := range []string{"18,x", "18,,12"} {
		t.Run(raw, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("TABLE_CAPACITIES", raw)

			_, err := Load(nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("TABLE_CAPACITIES", "1,2,3")

	path := writeYAML(t, `
port: "7100"
tables: [4, 5]
log_level: warn
shutdown_grace_period: 2s
enable_request_logging: false
rate_limit:
  rps: 5
  burst: 10
  mutation_rps: 1
  mutation_burst: 4
`)

	port := "7200"
	cfg, err := Load(&CLIOverrides{ConfigFile: path, Port: &port})
	require.NoError(t, err)

	assert.Equal(t, "7200", cfg.Port, "CLI port should win")
	if diff := cmp.Diff([]int{4, 5}, cfg.TableCapacities); diff != "" {
		t.Errorf("YAML tables should beat env (-want +got):\n%s", diff)
	}
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.ShutdownGracePeriod)
	assert.False(t, cfg.EnableRequestLogging)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.Equal(t, 1.0, cfg.MutationRateLimitRPS)
	assert.Equal(t, 4, cfg.MutationRateLimitBurst)

	tables := "9,9"
	cfg, err = Load(&CLIOverrides{ConfigFile: path, TablesStr: &tables})
	require.NoError(t, err)
	if diff := cmp.Diff([]int{9, 9}, cfg.TableCapacities); diff != "" {
		t.Errorf("CLI tables should win (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	clearEnv(t)

	cases := map[string]string{
		"bad duration":           "idle_timeout: soon\n",
		"negative table":         "tables: [18, -1]\n",
		"bad log level":          "log_level: loud\n",
		"not yaml":               "port: [\n",
		"negative mutation rate": "rate_limit:\n  mutation_rps: -1\n",
	}
	for name, content := range cases {
		path := writeYAML(t, content)
		_, err := Load(&CLIOverrides{ConfigFile: path})
		assert.Error(t, err, name)
	}

	_, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err, "missing config file")
}

func TestLoadRejectsGapInCLITables(t *testing.T) {
	clearEnv(t)

	tables := "18,,12"
	_, err := Load(&CLIOverrides{TablesStr: &tables})
	assert.ErrorContains(t, err, "table 2 has no capacity")
}

func TestParseCapacities(t *testing.T) {
	t.Parallel()

	valid := []struct {
		raw  string
		want []int
	}{
		{raw: "18, 0,24", want: []int{18, 0, 24}},
		{raw: "18,12,", want: []int{18, 12}},
		{raw: " 7 ", want: []int{7}},
	}
	for _, tc := range valid {
		got, err := parseCapacities(tc.raw)
		require.NoError(t, err, "input %q", tc.raw)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("parseCapacities(%q) mismatch (-want +got):\n%s", tc.raw, diff)
		}
	}

	invalid := map[string]string{
		"":        "empty string",
		" , ":     "only separators",
		"1,a":     "invalid integer",
		"1,-2":    "negative capacity",
		"18,,12":  "gap shifts later table numbers",
		",18":     "leading gap",
		"18,12,,": "double trailing comma",
	}
	for raw, reason := range invalid {
		_, err := parseCapacities(raw)
		assert.Error(t, err, "%s: %q", reason, raw)
	}
}
