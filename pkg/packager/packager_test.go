// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/invowk/fnpack/internal/testutil"
	"github.com/invowk/fnpack/pkg/descriptor"
)

const lambdaBlock = `"cloudFormation": {"lambda": {"Type": "AWS::Lambda::Function", "Properties": {"Runtime": "nodejs", "Handler": "app.main"}}}`

// writeDescriptor writes a JSON descriptor outside the project tree.
func writeDescriptor(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "awsm.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestPackager(t *testing.T, tempDir string) *Packager {
	t.Helper()
	p, err := New(Options{TempDir: tempDir, Store: newMemStore("STAGE=dev\n")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNew_RequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}); !errors.Is(err, ErrNoEnvironmentStore) {
		t.Errorf("New() error = %v, want ErrNoEnvironmentStore", err)
	}
}

func TestPackager_RawExample(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	testutil.WriteTree(t, project, map[string]string{"lib/a.js": "a", "lib/b.js": "b"})
	descPath := writeDescriptor(t, `{
		"name": "app",
		`+lambdaBlock+`,
		"package": {"optimize": {"builder": null, "includePaths": ["lib/"]}}
	}`)

	tempDir := t.TempDir()
	art, err := newTestPackager(t, tempDir).Package(t.Context(), Request{
		DescriptorPath: descPath,
		ProjectRoot:    project,
		Target:         devTarget(),
	})
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}

	want := []string{"lib/a.js", "lib/b.js", ".env"}
	if !slices.Equal(art.Entries, want) {
		t.Errorf("Artifact.Entries = %v, want %v", art.Entries, want)
	}
	if got := testutil.ZipNames(testutil.ReadZip(t, art.ArchivePath)); !slices.Equal(got, want) {
		t.Errorf("archive entries = %v, want %v", got, want)
	}

	if art.DescriptorPath != descPath {
		t.Errorf("DescriptorPath = %q, want %q", art.DescriptorPath, descPath)
	}
	if filepath.Dir(art.ArchivePath) != art.BuildDir || filepath.Base(art.ArchivePath) != DefaultArchiveName {
		t.Errorf("ArchivePath = %q, want %s inside %s", art.ArchivePath, DefaultArchiveName, art.BuildDir)
	}
	if !strings.HasPrefix(filepath.Base(art.BuildDir), "app@") {
		t.Errorf("BuildDir = %q, want app@<ms>", art.BuildDir)
	}
}

func TestPackager_ExcludesAndOutput(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	testutil.WriteTree(t, project, map[string]string{
		"app.js":                    "exports.main = () => 1;",
		"node_modules/dep/index.js": "dep",
		"test/app_test.js":          "test",
	})
	descPath := writeDescriptor(t, `{
		`+lambdaBlock+`,
		"package": {"excludePatterns": ["^node_modules$", "^test"]}
	}`)

	output := filepath.Join(t.TempDir(), "dist", "fn.zip")
	art, err := newTestPackager(t, t.TempDir()).Package(t.Context(), Request{
		DescriptorPath: descPath,
		ProjectRoot:    project,
		Target:         devTarget(),
		Output:         output,
	})
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}
	if art.ArchivePath != output {
		t.Errorf("ArchivePath = %q, want %q", art.ArchivePath, output)
	}

	entries := testutil.ReadZip(t, output)
	if got := testutil.ZipNames(entries); !slices.Equal(got, []string{".env", "app.js"}) {
		t.Errorf("archive entries = %v, want [.env app.js]", got)
	}
	if entries[0].Data != "STAGE=dev\n" {
		t.Errorf(".env = %q", entries[0].Data)
	}
}

func TestPackager_Idempotent(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	testutil.WriteTree(t, project, map[string]string{
		"app.js":      "exports.main = () => require('./lib/x');",
		"lib/x.js":    "module.exports = 1;",
		"lib/y/z.js":  "z",
		"config.json": "{}",
	})
	descPath := writeDescriptor(t, "{"+lambdaBlock+"}")

	p := newTestPackager(t, t.TempDir())
	req := Request{DescriptorPath: descPath, ProjectRoot: project, Target: devTarget()}

	first, err := p.Package(t.Context(), req)
	if err != nil {
		t.Fatalf("first Package() error = %v", err)
	}
	second, err := p.Package(t.Context(), req)
	if err != nil {
		t.Fatalf("second Package() error = %v", err)
	}

	if first.BuildDir == second.BuildDir {
		t.Error("runs shared a build directory")
	}
	if !slices.Equal(first.Entries, second.Entries) {
		t.Errorf("entries differ: %v vs %v", first.Entries, second.Entries)
	}

	a, _ := os.ReadFile(first.ArchivePath)
	b, _ := os.ReadFile(second.ArchivePath)
	if !bytes.Equal(a, b) {
		t.Error("archives differ between identical runs")
	}
}

func TestPackager_Bundled(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	testutil.WriteTree(t, project, map[string]string{
		"users/show/index.js": `const db = require("../../lib/db"); exports.handler = () => db.find();`,
		"lib/db.js":           `exports.find = () => "DB_MARKER";`,
		"native/addon.node":   "binary",
	})
	descPath := writeDescriptor(t, `{
		"cloudFormation": {"lambda": {"Type": "AWS::Lambda::Function", "Properties": {"Runtime": "nodejs", "Handler": "users/show/index.handler"}}},
		"package": {"optimize": {"builder": "esbuild", "minify": true, "includePaths": ["native"]}}
	}`)

	art, err := newTestPackager(t, t.TempDir()).Package(t.Context(), Request{
		DescriptorPath: descPath,
		ProjectRoot:    project,
		Target:         devTarget(),
	})
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}

	entries := testutil.ReadZip(t, art.ArchivePath)
	want := []string{"users/show/index.js", ".env", "native/addon.node"}
	if got := testutil.ZipNames(entries); !slices.Equal(got, want) {
		t.Fatalf("archive entries = %v, want %v", got, want)
	}
	if !strings.Contains(entries[0].Data, "DB_MARKER") {
		t.Errorf("handler entry is not the bundle:\n%s", entries[0].Data)
	}
}

func TestPackager_FailsBeforeBuildDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name:    "missing deployment block",
			body:    `{"name": "fn", "package": {}}`,
			wantErr: descriptor.ErrMissingDeploymentMetadata,
		},
		{
			name:    "incomplete deployment block",
			body:    `{"cloudFormation": {"lambda": {"Type": "AWS::Lambda::Function"}}}`,
			wantErr: descriptor.ErrIncompleteDeploymentMetadata,
		},
		{
			name:    "unsupported builder",
			body:    `{` + lambdaBlock + `, "package": {"optimize": {"builder": "webpack"}}}`,
			wantErr: ErrUnsupportedBuilder,
		},
		{
			name:    "invalid exclude pattern",
			body:    `{` + lambdaBlock + `, "package": {"excludePatterns": ["(unclosed"]}}`,
			wantErr: ErrInvalidExcludePattern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			project := t.TempDir()
			testutil.WriteTree(t, project, map[string]string{"app.js": "x"})
			tempDir := t.TempDir()

			_, err := newTestPackager(t, tempDir).Package(t.Context(), Request{
				DescriptorPath: writeDescriptor(t, tt.body),
				ProjectRoot:    project,
				Target:         devTarget(),
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Package() error = %v, want %v", err, tt.wantErr)
			}
			if entries, _ := os.ReadDir(tempDir); len(entries) != 0 {
				t.Errorf("build directory created: %v", entries)
			}
		})
	}
}
