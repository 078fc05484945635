package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.1, cfg.CropFraction)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 95, cfg.JPEGQuality)
	assert.Equal(t, "test", cfg.Test.Dir)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpusprep.yaml")
	doc := `
source_root: /raw
crop_fraction: 0.2
workers: 4
test:
  count: 12
storage:
  driver: s3
  s3:
    bucket: corpora
    path_style: true
ledger:
  driver: memory
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "/raw", cfg.SourceRoot)
	assert.Equal(t, "data", cfg.TargetRoot, "unset keys keep defaults")
	assert.Equal(t, 0.2, cfg.CropFraction)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 12, cfg.Test.Count)
	assert.Equal(t, ".jpg", cfg.Test.Ext)
	assert.Equal(t, "corpora", cfg.Storage.S3.Bucket)
	assert.True(t, cfg.Storage.S3.PathStyle)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	_, err := Load(missing, false)
	require.Error(t, err)
	cfg, err := Load(missing, true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestUnmarshalRejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	require.Error(t, Unmarshal([]byte("crop_fractoin: 0.3\n"), &cfg))
	require.NoError(t, Unmarshal(nil, &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CORPUSPREP_TARGET_ROOT":   "/out",
		"CORPUSPREP_CROP_FRACTION": "0.25",
		"CORPUSPREP_WORKERS":       "8",
		"CORPUSPREP_S3_PATH_STYLE": "TRUE",
		"CORPUSPREP_LEDGER_DRIVER": "postgres",
		"CORPUSPREP_POSTGRES_DSN":  "postgres://localhost/corpus",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, "/out", cfg.TargetRoot)
	assert.Equal(t, 0.25, cfg.CropFraction)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.Storage.S3.PathStyle)
	assert.Equal(t, "postgres", cfg.Ledger.Driver)
	require.NoError(t, cfg.Validate())

	bad := Default()
	err := bad.ApplyEnv(func(k string) string {
		if k == "CORPUSPREP_WORKERS" {
			return "many"
		}
		return ""
	})
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero fraction":    func(c *Config) { c.CropFraction = 0 },
		"half fraction":    func(c *Config) { c.CropFraction = 0.5 },
		"no workers":       func(c *Config) { c.Workers = 0 },
		"quality":          func(c *Config) { c.JPEGQuality = 101 },
		"ext":              func(c *Config) { c.Test.Ext = "jpg" },
		"storage driver":   func(c *Config) { c.Storage.Driver = "ftp" },
		"s3 bucket":        func(c *Config) { c.Storage.Driver = "s3" },
		"ledger driver":    func(c *Config) { c.Ledger.Driver = "redis" },
		"postgres dsn":     func(c *Config) { c.Ledger.Driver = "postgres" },
		"empty target":     func(c *Config) { c.TargetRoot = "" },
		"negative count":   func(c *Config) { c.Test.Count = -1 },
		"empty sqlitepath": func(c *Config) { c.Ledger.SQLitePath = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}
