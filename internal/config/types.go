// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/fnpack/internal/envstore"
)

const (
	// StoreBackendS3 reads environment files from AWS S3.
	StoreBackendS3 StoreBackend = envstore.BackendS3
	// StoreBackendMinIO reads environment files from an S3-compatible server.
	StoreBackendMinIO StoreBackend = envstore.BackendMinIO
	// StoreBackendDir reads environment files from a local directory tree.
	StoreBackendDir StoreBackend = envstore.BackendDir

	// DefaultArchiveName is the archive file name used when none is configured.
	DefaultArchiveName = "package.zip"
)

var (
	// ErrInvalidStoreBackend is returned when a StoreBackend value is not recognized.
	ErrInvalidStoreBackend = errors.New("invalid store backend")
	// ErrInvalidStoreConfig is the sentinel error wrapped by InvalidStoreConfigError.
	ErrInvalidStoreConfig = errors.New("invalid store config")
	// ErrInvalidArchiveName is returned when the archive name is not a bare file name.
	ErrInvalidArchiveName = errors.New("invalid archive name")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// StoreBackend selects where stage environment files are fetched from.
	StoreBackend string

	// InvalidStoreBackendError is returned when a StoreBackend value is not recognized.
	// It wraps ErrInvalidStoreBackend for errors.Is() compatibility.
	InvalidStoreBackendError struct {
		Value StoreBackend
	}

	// InvalidStoreConfigError wraps the field errors of a StoreConfig.
	InvalidStoreConfigError struct {
		FieldErrors []error
	}

	// InvalidArchiveNameError is returned when the archive name contains a path separator.
	InvalidArchiveNameError struct {
		Value string
	}

	// InvalidConfigError wraps the field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Store configures the environment file store
		Store StoreConfig `json:"store" mapstructure:"store"`
		// Build configures build directories and archives
		Build BuildConfig `json:"build" mapstructure:"build"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// StoreConfig configures the environment file store.
	StoreConfig struct {
		// Backend is "s3", "minio" or "dir"
		Backend StoreBackend `json:"backend" mapstructure:"backend"`
		// KeyTemplate lays out object keys; {project} and {stage} are substituted
		KeyTemplate string `json:"key_template" mapstructure:"key_template"`
		// Region overrides the AWS region
		Region string `json:"region" mapstructure:"region"`
		// Endpoint is the server address for the minio backend, or an S3 endpoint override
		Endpoint string `json:"endpoint" mapstructure:"endpoint"`
		// AccessKey and SecretKey are static credentials for the minio backend
		AccessKey string `json:"access_key" mapstructure:"access_key"`
		SecretKey string `json:"secret_key" mapstructure:"secret_key"`
		// UseSSL enables TLS for the minio backend
		UseSSL bool `json:"use_ssl" mapstructure:"use_ssl"`
		// Dir is the root of the dir backend: <dir>/<bucket>/<key>
		Dir string `json:"dir" mapstructure:"dir"`
	}

	// BuildConfig configures build directories and archives.
	BuildConfig struct {
		// TempDir is where build directories are created (system temp dir when empty)
		TempDir string `json:"temp_dir" mapstructure:"temp_dir"`
		// ArchiveName is the archive file name inside the build directory
		ArchiveName string `json:"archive_name" mapstructure:"archive_name"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and failure guides
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// String returns the string representation of the StoreBackend.
func (b StoreBackend) String() string { return string(b) }

// IsValid returns whether the StoreBackend is one of the defined backends.
func (b StoreBackend) IsValid() (bool, []error) {
	switch b {
	case StoreBackendS3, StoreBackendMinIO, StoreBackendDir:
		return true, nil
	default:
		return false, []error{&InvalidStoreBackendError{Value: b}}
	}
}

// Error implements the error interface.
func (e *InvalidStoreBackendError) Error() string {
	return fmt.Sprintf("invalid store backend %q (valid: s3, minio, dir)", e.Value)
}

// Unwrap returns ErrInvalidStoreBackend for errors.Is() compatibility.
func (e *InvalidStoreBackendError) Unwrap() error { return ErrInvalidStoreBackend }

// IsValid returns whether the StoreConfig has valid fields. The backend
// must be known, the key template must vary by stage, and the minio and
// dir backends need their endpoint and directory respectively.
func (c StoreConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Backend.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if err := envstore.KeyTemplate(c.KeyTemplate).Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Backend {
	case StoreBackendMinIO:
		if strings.TrimSpace(c.Endpoint) == "" {
			errs = append(errs, envstore.ErrMissingEndpoint)
		}
	case StoreBackendDir:
		if strings.TrimSpace(c.Dir) == "" {
			errs = append(errs, envstore.ErrMissingDir)
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidStoreConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidStoreConfigError.
func (e *InvalidStoreConfigError) Error() string {
	return fmt.Sprintf("invalid store config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidStoreConfig for errors.Is() compatibility.
func (e *InvalidStoreConfigError) Unwrap() error { return ErrInvalidStoreConfig }

// EnvStore converts the store settings into envstore options.
func (c StoreConfig) EnvStore() envstore.Config {
	return envstore.Config{
		Backend:     string(c.Backend),
		KeyTemplate: envstore.KeyTemplate(c.KeyTemplate),
		Region:      c.Region,
		Endpoint:    c.Endpoint,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		UseSSL:      c.UseSSL,
		Dir:         c.Dir,
	}
}

// IsValid returns whether the BuildConfig has valid fields.
func (c BuildConfig) IsValid() (bool, []error) {
	if c.ArchiveName == "" {
		return true, nil
	}
	if strings.ContainsAny(c.ArchiveName, `/\`) || c.ArchiveName == "." || c.ArchiveName == ".." {
		return false, []error{&InvalidArchiveNameError{Value: c.ArchiveName}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidArchiveNameError) Error() string {
	return fmt.Sprintf("invalid archive name %q: must be a file name without directories", e.Value)
}

// Unwrap returns ErrInvalidArchiveName for errors.Is() compatibility.
func (e *InvalidArchiveNameError) Unwrap() error { return ErrInvalidArchiveName }

// IsValid returns whether the Config has valid fields.
// UI has only bool fields and needs no validation.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Store.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Build.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:     StoreBackendS3,
			KeyTemplate: string(envstore.DefaultKeyTemplate),
			UseSSL:      true,
		},
		Build: BuildConfig{
			TempDir:     "", // Will use os.TempDir() if empty
			ArchiveName: DefaultArchiveName,
		},
		UI: UIConfig{
			Verbose: false,
		},
	}
}
