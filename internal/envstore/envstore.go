// SPDX-License-Identifier: MPL-2.0

package envstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultKeyTemplate is the object key layout used when none is configured.
const DefaultKeyTemplate KeyTemplate = "envVars/{project}/{stage}/.env"

// Backend names.
const (
	BackendS3    = "s3"
	BackendMinIO = "minio"
	BackendDir   = "dir"
)

var (
	// ErrNotFound is returned when the environment object does not exist.
	ErrNotFound = errors.New("environment file not found")
	// ErrUnknownBackend is returned by New for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown environment store backend")
	// ErrInvalidKeyTemplate is returned for a template that cannot address
	// per-stage objects.
	ErrInvalidKeyTemplate = errors.New("invalid key template")
)

type (
	// KeyTemplate renders object keys. The placeholders {project} and
	// {stage} are replaced with the deployment target's values.
	KeyTemplate string

	// Store fetches environment files.
	Store interface {
		Fetch(ctx context.Context, bucket, project, stage string) ([]byte, error)
	}

	// Config selects and configures a backend.
	Config struct {
		Backend     string
		KeyTemplate KeyTemplate
		Region      string
		Endpoint    string
		AccessKey   string
		SecretKey   string
		UseSSL      bool
		Dir         string
	}

	// NotFoundError names the missing object.
	NotFoundError struct {
		Bucket string
		Key    string
	}
)

// Key renders the object key for project and stage.
func (t KeyTemplate) Key(project, stage string) string {
	tmpl := t
	if tmpl == "" {
		tmpl = DefaultKeyTemplate
	}
	return strings.NewReplacer("{project}", project, "{stage}", stage).Replace(string(tmpl))
}

// Validate checks that the template is a relative key that varies by stage.
func (t KeyTemplate) Validate() error {
	if t == "" {
		return nil
	}
	s := string(t)
	if strings.HasPrefix(s, "/") {
		return fmt.Errorf("%w: %q must not start with /", ErrInvalidKeyTemplate, s)
	}
	if !strings.Contains(s, "{stage}") {
		return fmt.Errorf("%w: %q has no {stage} placeholder", ErrInvalidKeyTemplate, s)
	}
	return nil
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("s3://%s/%s: %v", e.Bucket, e.Key, ErrNotFound)
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// New returns the backend selected by cfg.Backend (S3 when empty).
func New(ctx context.Context, cfg Config) (Store, error) {
	if err := cfg.KeyTemplate.Validate(); err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendS3:
		store, err := NewS3(ctx, S3Options{Region: cfg.Region, Endpoint: cfg.Endpoint, KeyTemplate: cfg.KeyTemplate})
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendMinIO:
		store, err := NewMinIO(MinIOOptions{
			Endpoint:    cfg.Endpoint,
			AccessKey:   cfg.AccessKey,
			SecretKey:   cfg.SecretKey,
			UseSSL:      cfg.UseSSL,
			Region:      cfg.Region,
			KeyTemplate: cfg.KeyTemplate,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendDir:
		store, err := NewDir(cfg.Dir, cfg.KeyTemplate)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s, %s, %s)", ErrUnknownBackend, cfg.Backend, BackendS3, BackendMinIO, BackendDir)
	}
}
