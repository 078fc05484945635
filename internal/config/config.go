// Package config loads pipeline settings from YAML, environment and flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config is invalid")

// Config is the full pipeline configuration.
type Config struct {
	SourceRoot   string  `yaml:"source_root"`
	TargetRoot   string  `yaml:"target_root"`
	CropFraction float64 `yaml:"crop_fraction"`
	Workers      int     `yaml:"workers"`
	JPEGQuality  int     `yaml:"jpeg_quality"`

	Test    TestConfig    `yaml:"test"`
	Storage StorageConfig `yaml:"storage"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// TestConfig describes the raw test corpus: <source>/<dir>/<id><ext>.
// Count > 0 selects id-range normalization over ids 1..Count.
type TestConfig struct {
	Dir   string `yaml:"dir"`
	Count int    `yaml:"count"`
	Ext   string `yaml:"ext"`
}

type StorageConfig struct {
	Driver string   `yaml:"driver"` // fs|s3|memory
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

type LedgerConfig struct {
	Driver      string `yaml:"driver"` // memory|sqlite|postgres
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		SourceRoot:   "input",
		TargetRoot:   "data",
		CropFraction: 0.1,
		Workers:      1,
		JPEGQuality:  95,
		Test:         TestConfig{Dir: "test", Ext: ".jpg"},
		Storage:      StorageConfig{Driver: "fs"},
		Ledger:       LedgerConfig{Driver: "sqlite", SQLitePath: "corpusprep.db"},
		Log:          LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults. A missing path is not an error when
// optional is set.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Unmarshal decodes YAML into cfg, rejecting unknown keys. An empty
// document leaves cfg untouched.
func Unmarshal(buf []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from CORPUSPREP_* variables.
//
//	CORPUSPREP_SOURCE_ROOT, CORPUSPREP_TARGET_ROOT, CORPUSPREP_CROP_FRACTION,
//	CORPUSPREP_WORKERS, CORPUSPREP_STORAGE_DRIVER, CORPUSPREP_S3_BUCKET,
//	CORPUSPREP_S3_REGION, CORPUSPREP_S3_ENDPOINT, CORPUSPREP_S3_PATH_STYLE,
//	CORPUSPREP_LEDGER_DRIVER, CORPUSPREP_SQLITE_PATH, CORPUSPREP_POSTGRES_DSN,
//	CORPUSPREP_METRICS_TEXTFILE, CORPUSPREP_LOG_LEVEL
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"CORPUSPREP_SOURCE_ROOT":      &c.SourceRoot,
		"CORPUSPREP_TARGET_ROOT":      &c.TargetRoot,
		"CORPUSPREP_STORAGE_DRIVER":   &c.Storage.Driver,
		"CORPUSPREP_S3_BUCKET":        &c.Storage.S3.Bucket,
		"CORPUSPREP_S3_REGION":        &c.Storage.S3.Region,
		"CORPUSPREP_S3_ENDPOINT":      &c.Storage.S3.Endpoint,
		"CORPUSPREP_LEDGER_DRIVER":    &c.Ledger.Driver,
		"CORPUSPREP_SQLITE_PATH":      &c.Ledger.SQLitePath,
		"CORPUSPREP_POSTGRES_DSN":     &c.Ledger.PostgresDSN,
		"CORPUSPREP_METRICS_TEXTFILE": &c.Metrics.Textfile,
		"CORPUSPREP_LOG_LEVEL":        &c.Log.Level,
	}
	for name, dst := range str {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}
	if v := getenv("CORPUSPREP_CROP_FRACTION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: CORPUSPREP_CROP_FRACTION: %v", ErrInvalid, err)
		}
		c.CropFraction = f
	}
	if v := getenv("CORPUSPREP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: CORPUSPREP_WORKERS: %v", ErrInvalid, err)
		}
		c.Workers = n
	}
	if v := getenv("CORPUSPREP_S3_PATH_STYLE"); v != "" {
		c.Storage.S3.PathStyle = strings.EqualFold(v, "true")
	}
	return nil
}

// Validate checks value ranges and driver names.
func (c Config) Validate() error {
	var errs []error
	if c.SourceRoot == "" {
		errs = append(errs, errors.New("source_root is empty"))
	}
	if c.TargetRoot == "" {
		errs = append(errs, errors.New("target_root is empty"))
	}
	if !(c.CropFraction > 0 && c.CropFraction < 0.5) {
		errs = append(errs, fmt.Errorf("crop_fraction %v outside (0, 0.5)", c.CropFraction))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers %d < 1", c.Workers))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg_quality %d outside [1, 100]", c.JPEGQuality))
	}
	if c.Test.Dir == "" {
		errs = append(errs, errors.New("test.dir is empty"))
	}
	if c.Test.Count < 0 {
		errs = append(errs, fmt.Errorf("test.count %d < 0", c.Test.Count))
	}
	if c.Test.Ext != "" && !strings.HasPrefix(c.Test.Ext, ".") {
		errs = append(errs, fmt.Errorf("test.ext %q must start with '.'", c.Test.Ext))
	}
	switch c.Storage.Driver {
	case "fs", "memory":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch c.Ledger.Driver {
	case "memory":
	case "sqlite":
		if c.Ledger.SQLitePath == "" {
			errs = append(errs, errors.New("ledger.sqlite_path is required for the sqlite driver"))
		}
	case "postgres":
		if c.Ledger.PostgresDSN == "" {
			errs = append(errs, errors.New("ledger.postgres_dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ledger driver %q", c.Ledger.Driver))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
