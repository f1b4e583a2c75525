// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// ZipEntry is one file read back from an archive.
type ZipEntry struct {
	Name   string
	Data   string
	Method uint16
	Mode   fs.FileMode
}

// WriteTree creates files under root. Keys are forward-slash relative paths;
// parent directories are created as needed.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

// ReadTree returns the regular files below root keyed by forward-slash
// relative path.
func ReadTree(t testing.TB, root string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to read tree %s: %v", root, err)
	}
	return files
}

// ReadZip returns the entries of the archive at path in archive order.
func ReadZip(t testing.TB, path string) []ZipEntry {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open archive %s: %v", path, err)
	}
	defer DeferClose(t, r)()

	entries := make([]ZipEntry, 0, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("failed to read entry %s: %v", f.Name, err)
		}
		entries = append(entries, ZipEntry{Name: f.Name, Data: string(data), Method: f.Method, Mode: f.Mode()})
	}
	return entries
}

// ZipNames returns the entry names of entries.
func ZipNames(entries []ZipEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
