// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/invowk/fnpack/internal/testutil"
)

func entryNames(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func TestIncludeResolver_Resolve(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		".env":                  "E=1",
		"index.js":              "index",
		"lib/b.js":              "b",
		"lib/a.js":              "a",
		"lib/zz/deep.js":        "deep",
		"lib/.DS_Store":         "junk",
		"lib/._a.js":            "junk",
		"lib/THUMBS.DB":         "junk",
		"lib/Desktop.ini":       "junk",
		"lib/._meta/x.js":       "junk",
		"bin/native/addon.node": "bin",
	})

	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{
			name:  "single file keeps declared name",
			paths: []string{"index.js"},
			want:  []string{"index.js"},
		},
		{
			name:  "directory prefixes base name, subdirectories first",
			paths: []string{"lib/"},
			want:  []string{"lib/zz/deep.js", "lib/a.js", "lib/b.js"},
		},
		{
			name:  "nested directory uses its own base name",
			paths: []string{"bin/native"},
			want:  []string{"native/addon.node"},
		},
		{
			name:  "declaration order is preserved",
			paths: []string{"index.js", "bin/native", "./lib/a.js"},
			want:  []string{"index.js", "native/addon.node", "lib/a.js"},
		},
		{
			name:  "dot includes the whole tree without a prefix",
			paths: []string{"."},
			want: []string{
				"bin/native/addon.node",
				"lib/zz/deep.js", "lib/a.js", "lib/b.js",
				".env", "index.js",
			},
		},
	}

	r := NewIncludeResolver(DefaultIgnore, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			entries, err := r.Resolve(root, tt.paths)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got := entryNames(entries); !slices.Equal(got, tt.want) {
				t.Errorf("Resolve() names = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIncludeResolver_Content(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"lib/a.js": "module.exports = 'a';"})

	entries, err := NewIncludeResolver(DefaultIgnore, nil).Resolve(root, []string{"lib"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(entries) != 1 || string(entries[0].Data) != "module.exports = 'a';" {
		t.Errorf("Resolve() = %+v", entries)
	}
}

func TestIncludeResolver_NotFound(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"index.js": "x"})

	_, err := NewIncludeResolver(DefaultIgnore, nil).Resolve(root, []string{"index.js", "assets"})
	if !errors.Is(err, ErrIncludePathNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrIncludePathNotFound", err)
	}
	var notFound *IncludePathNotFoundError
	if !errors.As(err, &notFound) || notFound.Path != "assets" {
		t.Errorf("IncludePathNotFoundError = %+v, want path assets", notFound)
	}
}

func TestIncludeResolver_RejectsPathsOutsideRoot(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	root := filepath.Join(parent, "fn")
	testutil.WriteTree(t, parent, map[string]string{
		"secrets/key.pem": "private",
		"fn/index.js":     "x",
		"fn/lib/a.js":     "a",
	})

	for _, declared := range []string{"../secrets", "lib/../../secrets", ".."} {
		t.Run(declared, func(t *testing.T) {
			t.Parallel()
			entries, err := NewIncludeResolver(DefaultIgnore, nil).Resolve(root, []string{"index.js", declared})
			if !errors.Is(err, ErrIncludePathNotFound) {
				t.Fatalf("Resolve() = %+v, %v, want ErrIncludePathNotFound", entries, err)
			}
			var notFound *IncludePathNotFoundError
			if !errors.As(err, &notFound) || notFound.Path != declared {
				t.Errorf("IncludePathNotFoundError = %+v, want path %q", notFound, declared)
			}
		})
	}

	entries, err := NewIncludeResolver(DefaultIgnore, nil).Resolve(root, []string{"lib/../index.js"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "index.js" {
		t.Errorf("Resolve() = %+v, want index.js", entries)
	}
}

func TestIncludeResolver_SkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on Windows")
	}
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"lib/real.js": "real"})
	if err := os.Symlink("real.js", filepath.Join(root, "lib", "link.js")); err != nil {
		t.Fatal(err)
	}

	entries, err := NewIncludeResolver(DefaultIgnore, nil).Resolve(root, []string{"lib", "lib/link.js"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := entryNames(entries); !slices.Equal(got, []string{"lib/real.js"}) {
		t.Errorf("Resolve() names = %v, want [lib/real.js]", got)
	}
}
