// SPDX-License-Identifier: MPL-2.0

package envstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrMissingEndpoint is returned by NewMinIO without an endpoint.
var ErrMissingEndpoint = errors.New("minio endpoint is required")

type (
	// MinIOOptions configures a MinIOStore.
	MinIOOptions struct {
		// Endpoint is host:port of the server, without scheme.
		Endpoint    string
		AccessKey   string
		SecretKey   string
		UseSSL      bool
		Region      string
		KeyTemplate KeyTemplate
	}

	// MinIOStore reads environment files from an S3-compatible server.
	MinIOStore struct {
		client *minio.Client
		keys   KeyTemplate
	}
)

// NewMinIO returns a MinIOStore using static credentials.
func NewMinIO(opts MinIOOptions) (*MinIOStore, error) {
	if opts.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:    opts.UseSSL,
		Region:    opts.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIOStore{client: client, keys: opts.KeyTemplate}, nil
}

// Fetch downloads the environment file of project and stage from bucket.
func (s *MinIOStore) Fetch(ctx context.Context, bucket, project, stage string) ([]byte, error) {
	key := s.keys.Key(project, stage)
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap(err, bucket, key)
	}
	defer func() { _ = obj.Close() }() // Read-only object; close error non-critical

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrap(err, bucket, key)
	}
	return data, nil
}

func (s *MinIOStore) wrap(err error, bucket, key string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return &NotFoundError{Bucket: bucket, Key: key}
	}
	return fmt.Errorf("get %s/%s from %s: %w", bucket, key, s.client.EndpointURL().Host, err)
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
