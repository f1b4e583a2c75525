// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/zip"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestWriteTreeReadTree(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	files := map[string]string{
		"index.js":        "exports.handler = () => 1;",
		"lib/a.js":        "a",
		"lib/nested/b.js": "b",
	}
	WriteTree(t, root, files)

	got := ReadTree(t, root)
	if !maps.Equal(got, files) {
		t.Errorf("ReadTree() = %v, want %v", got, files)
	}
}

func TestReadZip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, name := range []string{"b.txt", "a.txt"} {
		w, createErr := zw.Create(name)
		if createErr != nil {
			t.Fatal(createErr)
		}
		if _, writeErr := w.Write([]byte("content of " + name)); writeErr != nil {
			t.Fatal(writeErr)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	entries := ReadZip(t, path)
	if names := ZipNames(entries); !slices.Equal(names, []string{"b.txt", "a.txt"}) {
		t.Errorf("ZipNames() = %v, want archive order [b.txt a.txt]", names)
	}
	if entries[1].Data != "content of a.txt" {
		t.Errorf("entry data = %q", entries[1].Data)
	}
}
