// SPDX-License-Identifier: MPL-2.0

package envstore

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/invowk/fnpack/internal/testutil"
)

const (
	minioImage    = "minio/minio:latest"
	minioUser     = "fnpack"
	minioPassword = "fnpack-secret"
)

// checkTestcontainersAvailable reports whether a container provider can be
// reached. Provider detection can panic when no engine is installed.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

func startMinIO(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        minioImage,
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPassword,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping MinIO integration test: cannot start container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := testcontainers.TerminateContainer(container); termErr != nil {
			t.Logf("warning: terminate minio container: %v", termErr)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	if err != nil {
		t.Fatalf("minio endpoint: %v", err)
	}
	return endpoint
}

func TestMinIOStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping MinIO integration test: testcontainers provider not available")
	}

	sem := testutil.ContainerSemaphore()
	sem <- struct{}{}
	defer func() { <-sem }()

	endpoint := startMinIO(t)
	ctx := t.Context()

	admin, err := minio.New(endpoint, &minio.Options{Creds: credentials.NewStaticV4(minioUser, minioPassword, "")})
	if err != nil {
		t.Fatal(err)
	}
	if err := admin.MakeBucket(ctx, "jaws-bucket", minio.MakeBucketOptions{}); err != nil {
		t.Fatal(err)
	}
	env := []byte("TABLE=users-dev\n")
	if _, err := admin.PutObject(ctx, "jaws-bucket", "envVars/acme/dev/.env", bytes.NewReader(env), int64(len(env)), minio.PutObjectOptions{}); err != nil {
		t.Fatal(err)
	}

	store, err := NewMinIO(MinIOOptions{Endpoint: endpoint, AccessKey: minioUser, SecretKey: minioPassword})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("existing object", func(t *testing.T) {
		data, err := store.Fetch(ctx, "jaws-bucket", "acme", "dev")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !bytes.Equal(data, env) {
			t.Errorf("Fetch() = %q, want %q", data, env)
		}
	})

	t.Run("missing stage", func(t *testing.T) {
		if _, err := store.Fetch(ctx, "jaws-bucket", "acme", "prod"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Fetch() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("missing bucket", func(t *testing.T) {
		if _, err := store.Fetch(ctx, "other-bucket", "acme", "dev"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Fetch() error = %v, want ErrNotFound", err)
		}
	})
}
