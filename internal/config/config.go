// Package config loads process configuration for the taskcore binaries.
//
// Values are layered, lowest priority first:
//  1. built-in defaults
//  2. an optional YAML file
//  3. TASKCORE_* environment variables
//
// The merged result is validated before it is returned.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"taskcore/internal/blob"
	"taskcore/internal/core"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the merged process configuration.
type Config struct {
	Environment string        `yaml:"environment" validate:"oneof=development production test"`
	LogLevel    string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	Storage     StorageConfig `yaml:"storage"`
	Blob        BlobConfig    `yaml:"blob"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Tracing     TracingConfig `yaml:"tracing"`
}

// StorageConfig selects the persistent store.
type StorageConfig struct {
	Driver      string `yaml:"driver" validate:"oneof=memory sqlite postgres"`
	SQLitePath  string `yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
	PostgresDSN string `yaml:"postgres_dsn" validate:"required_if=Driver postgres"`
}

// BlobConfig selects where snapshot exports are written. S3 credentials come
// from the standard AWS chain.
type BlobConfig struct {
	Driver      string `yaml:"driver" validate:"oneof=fs memory s3"`
	FSRoot      string `yaml:"fs_root" validate:"required_if=Driver fs"`
	S3Bucket    string `yaml:"s3_bucket" validate:"required_if=Driver s3"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint" validate:"omitempty,url"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// MetricsConfig names the Prometheus namespace operation metrics live under.
type MetricsConfig struct {
	Namespace string `yaml:"namespace" validate:"required"`
}

// TracingConfig toggles OpenTelemetry spans around service operations.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Storage:     StorageConfig{Driver: string(core.StorageSQLite), SQLitePath: "taskcore.db"},
		Blob:        BlobConfig{Driver: string(blob.DriverFilesystem), FSRoot: "snapshots"},
		Metrics:     MetricsConfig{Namespace: "taskcore"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"TASKCORE_ENV":               &c.Environment,
		"TASKCORE_LOG_LEVEL":         &c.LogLevel,
		"TASKCORE_STORAGE_DRIVER":    &c.Storage.Driver,
		"TASKCORE_SQLITE_PATH":       &c.Storage.SQLitePath,
		"TASKCORE_POSTGRES_DSN":      &c.Storage.PostgresDSN,
		"TASKCORE_BLOB_DRIVER":       &c.Blob.Driver,
		"TASKCORE_BLOB_FS_ROOT":      &c.Blob.FSRoot,
		"TASKCORE_BLOB_S3_BUCKET":    &c.Blob.S3Bucket,
		"TASKCORE_BLOB_S3_REGION":    &c.Blob.S3Region,
		"TASKCORE_BLOB_S3_ENDPOINT":  &c.Blob.S3Endpoint,
		"TASKCORE_METRICS_NAMESPACE": &c.Metrics.Namespace,
	}
	for name, dst := range strs {
		if val, ok := lookup(name); ok && val != "" {
			*dst = strings.TrimSpace(val)
		}
	}
	bools := map[string]*bool{
		"TASKCORE_BLOB_S3_PATH_STYLE": &c.Blob.S3PathStyle,
		"TASKCORE_TRACING_ENABLED":    &c.Tracing.Enabled,
	}
	for name, dst := range bools {
		val, ok := lookup(name)
		if !ok || val == "" {
			continue
		}
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = parsed
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the merged configuration and reports every failing field
// by its YAML path.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// StorageOptions maps the storage section onto core.OpenStore options.
func (c *Config) StorageOptions() core.StorageOptions {
	return core.StorageOptions{
		Driver:      core.StorageDriver(c.Storage.Driver),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// BlobOptions maps the blob section onto blob.Open options.
func (c *Config) BlobOptions() blob.Options {
	return blob.Options{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.FSRoot,
		S3: blob.S3Options{
			Bucket:    c.Blob.S3Bucket,
			Region:    c.Blob.S3Region,
			Endpoint:  c.Blob.S3Endpoint,
			PathStyle: c.Blob.S3PathStyle,
		},
	}
}
