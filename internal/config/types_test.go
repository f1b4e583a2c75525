// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"

	"github.com/invowk/fnpack/internal/envstore"
)

func TestStoreBackend_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		backend StoreBackend
		want    bool
	}{
		{StoreBackendS3, true},
		{StoreBackendMinIO, true},
		{StoreBackendDir, true},
		{"", false},
		{"gcs", false},
		{"S3", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.backend.IsValid()
			if isValid != tt.want {
				t.Errorf("StoreBackend(%q).IsValid() = %v, want %v", tt.backend, isValid, tt.want)
			}
			if !tt.want {
				if len(errs) == 0 {
					t.Fatalf("StoreBackend(%q).IsValid() returned no errors, want error", tt.backend)
				}
				if !errors.Is(errs[0], ErrInvalidStoreBackend) {
					t.Errorf("error should wrap ErrInvalidStoreBackend, got: %v", errs[0])
				}
			} else if len(errs) > 0 {
				t.Errorf("StoreBackend(%q).IsValid() returned unexpected errors: %v", tt.backend, errs)
			}
		})
	}
}

func TestStoreConfig_IsValid(t *testing.T) {
	t.Parallel()

	base := DefaultConfig().Store

	tests := []struct {
		name   string
		modify func(*StoreConfig)
		want   bool
	}{
		{"defaults", func(*StoreConfig) {}, true},
		{"minio with endpoint", func(c *StoreConfig) { c.Backend = StoreBackendMinIO; c.Endpoint = "localhost:9000" }, true},
		{"minio without endpoint", func(c *StoreConfig) { c.Backend = StoreBackendMinIO }, false},
		{"dir with root", func(c *StoreConfig) { c.Backend = StoreBackendDir; c.Dir = "/srv/env" }, true},
		{"dir without root", func(c *StoreConfig) { c.Backend = StoreBackendDir; c.Dir = "  " }, false},
		{"template without stage", func(c *StoreConfig) { c.KeyTemplate = "envVars/{project}/.env" }, false},
		{"unknown backend", func(c *StoreConfig) { c.Backend = "ftp" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.modify(&cfg)
			isValid, errs := cfg.IsValid()
			if isValid != tt.want {
				t.Errorf("IsValid() = %v, want %v (errs = %v)", isValid, tt.want, errs)
			}
			if !tt.want && (len(errs) != 1 || !errors.Is(errs[0], ErrInvalidStoreConfig)) {
				t.Errorf("errors = %v, want one InvalidStoreConfigError", errs)
			}
		})
	}
}

func TestBuildConfig_IsValid(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]bool{
		"":               true,
		"package.zip":    true,
		"users-show.zip": true,
		"out/pkg.zip":    false,
		`out\pkg.zip`:    false,
		"..":             false,
	} {
		isValid, errs := BuildConfig{ArchiveName: name}.IsValid()
		if isValid != want {
			t.Errorf("BuildConfig{ArchiveName: %q}.IsValid() = %v, want %v", name, isValid, want)
		}
		if !want && !errors.Is(errs[0], ErrInvalidArchiveName) {
			t.Errorf("error should wrap ErrInvalidArchiveName, got: %v", errs[0])
		}
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	if ok, errs := DefaultConfig().IsValid(); !ok {
		t.Fatalf("DefaultConfig().IsValid() = false: %v", errs)
	}

	cfg := DefaultConfig()
	cfg.Store.Backend = "ftp"
	cfg.Build.ArchiveName = "a/b.zip"
	ok, errs := cfg.IsValid()
	if ok {
		t.Fatal("IsValid() = true, want false")
	}
	var cfgErr *InvalidConfigError
	if !errors.As(errs[0], &cfgErr) || len(cfgErr.FieldErrors) != 2 {
		t.Errorf("errors = %v, want an InvalidConfigError with 2 field errors", errs)
	}
}

func TestStoreConfig_EnvStore(t *testing.T) {
	t.Parallel()

	got := StoreConfig{
		Backend:     StoreBackendMinIO,
		KeyTemplate: "{project}/{stage}.env",
		Endpoint:    "localhost:9000",
		AccessKey:   "ak",
		SecretKey:   "sk",
		UseSSL:      true,
	}.EnvStore()

	want := envstore.Config{
		Backend:     envstore.BackendMinIO,
		KeyTemplate: "{project}/{stage}.env",
		Endpoint:    "localhost:9000",
		AccessKey:   "ak",
		SecretKey:   "sk",
		UseSSL:      true,
	}
	if got != want {
		t.Errorf("EnvStore() = %+v, want %+v", got, want)
	}
}
