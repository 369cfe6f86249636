package config

import (
	"TrafficParser/internal/model"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(LoadOptions{LookupEnv: noEnv})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sqlite:///traffic_data.db", cfg.Database.URL)
	assert.Equal(t, "./pcap_files", cfg.Parse.PcapDir)
	assert.Equal(t, 1000, cfg.Parse.BatchSize)
	assert.Equal(t, 10000, cfg.Parse.MaxFramesPerFile)
	assert.Equal(t, "./traffic_export.json", cfg.Export.Output)
	assert.True(t, cfg.Export.Statistics)
	assert.False(t, cfg.UploadEnabled())
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(LoadOptions{File: "../../configs/config.yaml", LookupEnv: noEnv})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Default().Database, cfg.Database)
	assert.Equal(t, Default().Parse, cfg.Parse)
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
database:
  url: "sqlite:///from-yaml.db"
parse:
  batch_size: 50
  pcap_dir: "/yaml/pcaps"
log:
  level: "debug"
`), 0o644))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("BATCH_SIZE=25\nPCAP_DIRECTORY=/dotenv/pcaps\nS3_USE_SSL=true\n"), 0o644))

	cfg, err := Load(LoadOptions{
		File:      yamlPath,
		EnvFile:   envPath,
		LookupEnv: envOf(map[string]string{"PCAP_DIRECTORY": "/env/pcaps"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "sqlite:///from-yaml.db", cfg.Database.URL, "yaml overrides defaults")
	assert.Equal(t, 25, cfg.Parse.BatchSize, ".env overrides yaml")
	assert.Equal(t, "/env/pcaps", cfg.Parse.PcapDir, "process env overrides .env")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.ObjectStorage.UseSSL)
	assert.Equal(t, "./traffic_export.json", cfg.Export.Output, "unset keys keep defaults")
}

func TestDotenvDoesNotTouchProcessEnv(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("TRAFFIC_PARSER_TEST_ONLY=1\n"), 0o644))

	_, err := Load(LoadOptions{EnvFile: envPath, LookupEnv: noEnv})
	require.NoError(t, err)
	_, set := os.LookupEnv("TRAFFIC_PARSER_TEST_ONLY")
	assert.False(t, set)
}

func TestMissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), ".env"), LookupEnv: noEnv})
	assert.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "missing.yaml"), LookupEnv: noEnv})
	assert.ErrorIs(t, err, model.ErrConfiguration)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("parse: [unclosed"), 0o644))
	_, err = Load(LoadOptions{File: bad, LookupEnv: noEnv})
	assert.ErrorIs(t, err, model.ErrConfiguration)

	_, err = Load(LoadOptions{LookupEnv: envOf(map[string]string{"BATCH_SIZE": "many"})})
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"zero batch":     func(c *Config) { c.Parse.BatchSize = 0 },
		"negative cap":   func(c *Config) { c.Parse.MaxFramesPerFile = -1 },
		"empty database": func(c *Config) { c.Database.URL = " " },
		"empty output":   func(c *Config) { c.Export.Output = "" },
		"bad log level":  func(c *Config) { c.Log.Level = "chatty" },
		"nats subject":   func(c *Config) { c.NATS.URL = "nats://localhost:4222"; c.NATS.Subject = "" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), model.ErrConfiguration)
		})
	}
}
