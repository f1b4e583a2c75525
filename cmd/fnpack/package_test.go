// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/invowk/fnpack/internal/config"
	"github.com/invowk/fnpack/internal/envstore"
	"github.com/invowk/fnpack/internal/issue"
	"github.com/invowk/fnpack/internal/testutil"
	"github.com/invowk/fnpack/pkg/packager"
	"github.com/invowk/fnpack/pkg/types"
)

const rawDescriptor = `{
	"name": "orders",
	"cloudFormation": {"lambda": {"Type": "AWS::Lambda::Function", "Properties": {"Runtime": "nodejs", "Handler": "index.handler"}}},
	"package": {"excludePatterns": ["^tmp"]}
}`

type (
	staticConfig struct {
		cfg *config.Config
		err error
	}

	// mapStore serves environment files keyed by bucket/project/stage and
	// records the store configuration it was opened with.
	mapStore struct {
		mu      sync.Mutex
		objects map[string]string
		opened  []envstore.Config
	}
)

func (s *staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	cfg := *s.cfg
	return &cfg, nil
}

func (s *mapStore) open(_ context.Context, cfg envstore.Config) (envstore.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, cfg)
	return s, nil
}

func (s *mapStore) Fetch(_ context.Context, bucket, project, stage string) ([]byte, error) {
	data, ok := s.objects[bucket+"/"+project+"/"+stage]
	if !ok {
		return nil, &envstore.NotFoundError{Bucket: bucket, Key: project + "/" + stage}
	}
	return []byte(data), nil
}

// newTestApp returns an App with captured output, a fixed configuration and
// an in-memory store.
func newTestApp(t *testing.T, store *mapStore) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Build.TempDir = t.TempDir()

	var stdout, stderr bytes.Buffer
	app, err := NewApp(Dependencies{
		Config:    &staticConfig{cfg: cfg},
		OpenStore: store.open,
		Stdout:    &stdout,
		Stderr:    &stderr,
	})
	if err != nil {
		t.Fatalf("NewApp() failed: %v", err)
	}
	return app, &stdout, &stderr
}

func executeRoot(t *testing.T, app *App, args ...string) error {
	t.Helper()
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(t.Context())
}

func writeProject(t *testing.T) (descriptorPath string) {
	t.Helper()
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"awsm.json":     rawDescriptor,
		"index.js":      "exports.handler = () => require('./lib/a');",
		"lib/a.js":      "module.exports = 1;",
		"tmp/cache.txt": "skip me",
	})
	return filepath.Join(root, "awsm.json")
}

func TestPackageCommand(t *testing.T) {
	t.Parallel()

	store := &mapStore{objects: map[string]string{"jaws/acme/dev": "KEY=value\n"}}
	app, stdout, _ := newTestApp(t, store)
	descPath := writeProject(t)
	out := filepath.Join(t.TempDir(), "dist", "orders.zip")

	err := executeRoot(t, app, "package", descPath,
		"--bucket", "jaws", "--project", "acme", "--stage", "dev",
		"--region", "eu-west-1", "--output", out)
	if err != nil {
		t.Fatalf("package failed: %v", err)
	}

	if !strings.Contains(stdout.String(), "Package created") || !strings.Contains(stdout.String(), out) {
		t.Errorf("stdout = %q, want success with archive path", stdout.String())
	}

	names := testutil.ZipNames(testutil.ReadZip(t, out))
	for _, want := range []string{".env", "awsm.json", "index.js", "lib/a.js"} {
		if !slices.Contains(names, want) {
			t.Errorf("archive entries %v missing %q", names, want)
		}
	}
	if slices.Contains(names, "tmp/cache.txt") {
		t.Errorf("archive entries %v contain an excluded path", names)
	}

	if len(store.opened) != 1 || store.opened[0].Region != "eu-west-1" {
		t.Errorf("store opened with %+v, want region eu-west-1", store.opened)
	}
}

func TestPackageCommand_Failures(t *testing.T) {
	t.Parallel()

	t.Run("missing environment file", func(t *testing.T) {
		t.Parallel()

		app, stdout, stderr := newTestApp(t, &mapStore{})
		err := executeRoot(t, app, "package", writeProject(t), "--bucket", "jaws", "--project", "acme", "--stage", "prod")

		var exitErr *ExitError
		if !errors.As(err, &exitErr) || exitErr.Code != types.ExitFailure {
			t.Fatalf("error = %v, want ExitError with code 1", err)
		}
		if !errors.Is(err, packager.ErrEnvironmentFetchFailed) || !errors.Is(err, envstore.ErrNotFound) {
			t.Errorf("error = %v, want environment fetch failure wrapping ErrNotFound", err)
		}
		if !strings.Contains(stderr.String(), "failed to fetch environment file") {
			t.Errorf("stderr = %q", stderr.String())
		}
		if stdout.Len() != 0 {
			t.Errorf("stdout = %q, want empty", stdout.String())
		}
	})

	t.Run("config error", func(t *testing.T) {
		t.Parallel()

		var stderr bytes.Buffer
		cfgErr := issue.New(issue.ConfigLoadFailedId, "load configuration").Wrap(errors.New("boom"))
		app, err := NewApp(Dependencies{
			Config:    &staticConfig{err: cfgErr},
			OpenStore: (&mapStore{}).open,
			Stdout:    &bytes.Buffer{},
			Stderr:    &stderr,
		})
		if err != nil {
			t.Fatal(err)
		}

		err = executeRoot(t, app, "package", writeProject(t), "--bucket", "b", "--project", "p", "--stage", "s")
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("error = %v, want ExitError", err)
		}
		if !strings.Contains(stderr.String(), "failed to load configuration: boom") {
			t.Errorf("stderr = %q", stderr.String())
		}
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()

		var stderr bytes.Buffer
		cfg := config.DefaultConfig()
		app, err := NewApp(Dependencies{
			Config: &staticConfig{cfg: cfg},
			OpenStore: func(context.Context, envstore.Config) (envstore.Store, error) {
				return nil, envstore.ErrMissingDir
			},
			Stdout: &bytes.Buffer{},
			Stderr: &stderr,
		})
		if err != nil {
			t.Fatal(err)
		}

		err = executeRoot(t, app, "package", writeProject(t), "--bucket", "b", "--project", "p", "--stage", "s")
		if !errors.Is(err, envstore.ErrMissingDir) {
			t.Fatalf("error = %v, want ErrMissingDir", err)
		}
		if !strings.Contains(stderr.String(), "failed to open environment store") {
			t.Errorf("stderr = %q", stderr.String())
		}
	})
}

func TestNewPackageRequest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	descPath := filepath.Join(dir, "fn", "awsm.json")

	req, err := newPackageRequest(descPath, &packageFlagValues{
		bucket: "b", project: "p", stage: "s", region: "us-east-1",
	})
	if err != nil {
		t.Fatalf("newPackageRequest() error = %v", err)
	}
	if req.ProjectRoot != filepath.Join(dir, "fn") {
		t.Errorf("ProjectRoot = %q, want descriptor directory", req.ProjectRoot)
	}
	if req.Output != "" {
		t.Errorf("Output = %q, want empty", req.Output)
	}
	want := packager.Target{Region: "us-east-1", Bucket: "b", Project: "p", Stage: "s"}
	if req.Target != want {
		t.Errorf("Target = %+v, want %+v", req.Target, want)
	}

	req, err = newPackageRequest(descPath, &packageFlagValues{projectRoot: dir, output: "out.zip"})
	if err != nil {
		t.Fatal(err)
	}
	if req.ProjectRoot != dir {
		t.Errorf("ProjectRoot = %q, want %q", req.ProjectRoot, dir)
	}
	if !filepath.IsAbs(req.Output) || filepath.Base(req.Output) != "out.zip" {
		t.Errorf("Output = %q, want absolute out.zip", req.Output)
	}
}

func TestProjectRelative(t *testing.T) {
	t.Parallel()

	root := filepath.Join(string(filepath.Separator), "work", "fn")
	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(root, "dist", "fn.zip"), "dist/fn.zip"},
		{filepath.Join(root, "fn.zip"), "fn.zip"},
		{filepath.Join(string(filepath.Separator), "work", "other.zip"), ""},
		{filepath.Join(string(filepath.Separator), "work", "fn-other", "x.zip"), ""},
	}
	for _, tt := range tests {
		if got := projectRelative(root, tt.path); got != tt.want {
			t.Errorf("projectRelative(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
