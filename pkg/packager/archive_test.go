// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"archive/zip"
	"bytes"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/invowk/fnpack/internal/testutil"
)

func TestArchiveBuilder_Write(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "out", "package.zip")
	entries := []Entry{
		{Name: "lib/a.js", Data: []byte("a")},
		{Name: "lib/b.js", Data: []byte("b")},
		{Name: ".env", Data: []byte("E=1")},
	}

	size, err := NewArchiveBuilder(nil).Write(entries, dest)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("archive not written: %v", err)
	}
	if info.Size() != size {
		t.Errorf("Write() size = %d, file size = %d", size, info.Size())
	}

	got := testutil.ReadZip(t, dest)
	if names := testutil.ZipNames(got); !slices.Equal(names, []string{"lib/a.js", "lib/b.js", ".env"}) {
		t.Errorf("entry names = %v", names)
	}
	for _, e := range got {
		if e.Method != zip.Deflate {
			t.Errorf("%s method = %d, want Deflate", e.Name, e.Method)
		}
		if e.Mode.Perm() != 0o644 {
			t.Errorf("%s mode = %v, want 0644", e.Name, e.Mode)
		}
	}
	if got[2].Data != "E=1" {
		t.Errorf(".env content = %q", got[2].Data)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(dest), ".fnpack-archive-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestArchiveBuilder_Deterministic(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{Name: "index.js", Data: bytes.Repeat([]byte("exports.handler = 1;\n"), 100)},
		{Name: ".env", Data: []byte("E=1")},
	}

	b := NewArchiveBuilder(nil)
	first, err := b.Build(entries)
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.Build(entries)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("identical entries produced different archives")
	}
}

func TestArchiveBuilder_DuplicateNames(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "package.zip")
	entries := []Entry{
		{Name: "index.js", Data: []byte("bundled")},
		{Name: ".env", Data: []byte("E=1")},
		{Name: "./index.js", Data: []byte("raw")},
	}
	if _, err := NewArchiveBuilder(nil).Write(entries, dest); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got := testutil.ReadZip(t, dest)
	if names := testutil.ZipNames(got); !slices.Equal(names, []string{"index.js", ".env"}) {
		t.Fatalf("entry names = %v, want [index.js .env]", names)
	}
	if got[0].Data != "raw" {
		t.Errorf("index.js = %q, want last content raw", got[0].Data)
	}
}

func TestArchiveBuilder_InvalidNames(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "/etc/passwd", "../escape.js", "lib/../../x", "."} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := NewArchiveBuilder(nil).Build([]Entry{{Name: name, Data: []byte("x")}})
			if !errors.Is(err, ErrInvalidEntryName) {
				t.Errorf("Build(%q) error = %v, want ErrInvalidEntryName", name, err)
			}
		})
	}
}

func TestArchiveBuilder_TooLarge(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 64*1024)
	if _, err := rand.Read(payload); err != nil {
		t.Fatal(err)
	}
	entries := []Entry{{Name: "blob.bin", Data: payload}}

	unlimited := &ArchiveBuilder{limit: 1 << 40, logger: orDiscard(nil)}
	data, err := unlimited.Build(entries)
	if err != nil {
		t.Fatal(err)
	}
	size := int64(len(data))

	tests := []struct {
		name    string
		limit   int64
		wantErr bool
	}{
		{"below limit", size + 1, false},
		{"exactly at limit", size, true},
		{"above limit", size - 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dest := filepath.Join(t.TempDir(), "package.zip")
			b := &ArchiveBuilder{limit: tt.limit, logger: orDiscard(nil)}

			_, err := b.Write(entries, dest)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Write() error = %v", err)
				}
				return
			}

			var tooLarge *ArchiveTooLargeError
			if !errors.As(err, &tooLarge) {
				t.Fatalf("Write() error = %v, want *ArchiveTooLargeError", err)
			}
			if tooLarge.Size != size || tooLarge.Limit != tt.limit {
				t.Errorf("ArchiveTooLargeError = %+v, want size %d limit %d", tooLarge, size, tt.limit)
			}
			if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
				t.Errorf("archive written despite size failure: %v", statErr)
			}
		})
	}
}

func TestMaxArchiveSize(t *testing.T) {
	t.Parallel()

	if MaxArchiveSize != 50*1024*1024 {
		t.Errorf("MaxArchiveSize = %d, want 50 MiB", MaxArchiveSize)
	}
	if NewArchiveBuilder(nil).limit != MaxArchiveSize {
		t.Error("NewArchiveBuilder does not enforce MaxArchiveSize")
	}
}
