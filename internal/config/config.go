// Package config loads ledgerflow configuration from YAML.
//
// A file is checked twice: against the embedded CUE schema (types, enums,
// unknown keys) and then by Validate for cross-field rules the schema does
// not express, such as a sqlite driver needing a path.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ledgerflow/internal/compute"
	"github.com/roach88/ledgerflow/internal/index"
	"github.com/roach88/ledgerflow/internal/ledger"
	"github.com/roach88/ledgerflow/internal/store"
)

//go:embed schema.cue
var schemaSource string

// Compute backend names.
const (
	BackendPlaceholder = "placeholder"
	BackendFailing     = "failing"
)

// Config is the root configuration document.
type Config struct {
	Ledger    Ledger  `yaml:"ledger"`
	Compute   Compute `yaml:"compute"`
	CacheSize *int    `yaml:"cache_size,omitempty"`
	IndexKey  string  `yaml:"index_key,omitempty"`
	LogLevel  string  `yaml:"log_level,omitempty"`
}

// Ledger selects the ledger backend.
type Ledger struct {
	Driver   string `yaml:"driver,omitempty"`
	Path     string `yaml:"path,omitempty"`
	DSN      string `yaml:"dsn,omitempty"`
	ReadOnly bool   `yaml:"read_only,omitempty"`
	S3       S3     `yaml:"s3,omitempty"`
}

// S3 configures the s3 driver.
type S3 struct {
	Region          string `yaml:"region,omitempty"`
	Bucket          string `yaml:"bucket,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	PathStyle       bool   `yaml:"path_style,omitempty"`
}

// Compute selects the compute backend.
type Compute struct {
	Backend    string `yaml:"backend,omitempty"`
	FailReason string `yaml:"fail_reason,omitempty"`
}

// Default returns the configuration used when no file is given:
// in-memory ledger, placeholder backend.
func Default() *Config {
	size := store.DefaultCacheSize
	return &Config{
		Ledger:    Ledger{Driver: string(ledger.DriverMemory)},
		Compute:   Compute{Backend: BackendPlaceholder},
		CacheSize: &size,
		IndexKey:  index.DefaultKey,
		LogLevel:  "info",
	}
}

// Load reads a configuration file. Fields absent from the file keep their
// Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	if err := checkSchema(data); err != nil {
		return nil, err
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// checkSchema unifies the document with #Config.
func checkSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	v := schema.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}

// Validate checks cross-field rules.
func (c *Config) Validate() error {
	switch ledger.Driver(c.Ledger.Driver) {
	case ledger.DriverMemory, "":
	case ledger.DriverSQLite, ledger.DriverPebble:
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger.path is required for driver %q", c.Ledger.Driver)
		}
	case ledger.DriverPostgres:
	case ledger.DriverS3:
		if c.Ledger.S3.Bucket == "" {
			return fmt.Errorf("ledger.s3.bucket is required for driver %q", c.Ledger.Driver)
		}
	default:
		return fmt.Errorf("unknown ledger driver %q", c.Ledger.Driver)
	}

	switch c.Compute.Backend {
	case BackendPlaceholder, BackendFailing, "":
	default:
		return fmt.Errorf("unknown compute backend %q", c.Compute.Backend)
	}

	if c.CacheSize != nil && *c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// LedgerOptions converts the ledger section for ledger.Open.
func (c *Config) LedgerOptions() ledger.Options {
	return ledger.Options{
		Driver:   ledger.Driver(c.Ledger.Driver),
		Path:     c.Ledger.Path,
		DSN:      c.Ledger.DSN,
		ReadOnly: c.Ledger.ReadOnly,
		S3: ledger.S3Config{
			Region:          c.Ledger.S3.Region,
			Bucket:          c.Ledger.S3.Bucket,
			Prefix:          c.Ledger.S3.Prefix,
			Endpoint:        c.Ledger.S3.Endpoint,
			AccessKeyID:     c.Ledger.S3.AccessKeyID,
			SecretAccessKey: c.Ledger.S3.SecretAccessKey,
			PathStyle:       c.Ledger.S3.PathStyle,
		},
	}
}

// Backend constructs the configured compute backend.
func (c *Config) Backend() (compute.Backend, error) {
	switch c.Compute.Backend {
	case BackendPlaceholder, "":
		return compute.Placeholder{}, nil
	case BackendFailing:
		return compute.Failing{Reason: c.Compute.FailReason}, nil
	default:
		return nil, fmt.Errorf("unknown compute backend %q", c.Compute.Backend)
	}
}

// StoreOptions returns the store options implied by the config.
func (c *Config) StoreOptions() []store.Option {
	var opts []store.Option
	if c.CacheSize != nil {
		opts = append(opts, store.WithCacheSize(*c.CacheSize))
	}
	if c.IndexKey != "" {
		opts = append(opts, store.WithIndexKey(c.IndexKey))
	}
	return opts
}

// Level parses LogLevel. Empty means info.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return lvl, nil
}
