// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/flate"
)

// MaxArchiveSize is the deployment ceiling. Archives must be strictly
// smaller than this many bytes.
const MaxArchiveSize int64 = 52_428_800

// archiveModTime is stamped on every entry so identical inputs produce
// identical archives. It is the earliest time a zip header can encode.
var archiveModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// ArchiveBuilder compresses compression entries into a zip archive.
type ArchiveBuilder struct {
	limit  int64
	logger *log.Logger
}

// NewArchiveBuilder returns an ArchiveBuilder enforcing MaxArchiveSize.
func NewArchiveBuilder(logger *log.Logger) *ArchiveBuilder {
	return &ArchiveBuilder{limit: MaxArchiveSize, logger: orDiscard(logger)}
}

// Build compresses entries in memory and returns the archive bytes. Entry
// names are normalized to forward slashes; a repeated name keeps the
// position of its first occurrence and the content of its last.
func (b *ArchiveBuilder) Build(entries []Entry) ([]byte, error) {
	merged, err := mergeEntries(entries)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})

	for _, e := range merged {
		header := &zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: archiveModTime,
		}
		header.SetMode(0o644)

		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create archive entry %s: %w", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("failed to write archive entry %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	if size := int64(buf.Len()); size >= b.limit {
		return nil, &ArchiveTooLargeError{Size: size, Limit: b.limit}
	}
	return buf.Bytes(), nil
}

// Write builds the archive and writes it to dest. Nothing is written at dest
// when building fails, and a failed write leaves no partial file behind.
func (b *ArchiveBuilder) Write(entries []Entry, dest string) (size int64, err error) {
	data, err := b.Build(entries)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".fnpack-archive-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp archive: %w", err)
	}
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, fmt.Errorf("failed to set archive permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, fmt.Errorf("failed to move archive into place: %w", err)
	}
	renamed = true

	b.logger.Info("compressed code written", "path", dest, "bytes", len(data))
	return int64(len(data)), nil
}

// mergeEntries validates and normalizes entry names and collapses repeats.
func mergeEntries(entries []Entry) ([]Entry, error) {
	index := make(map[string]int, len(entries))
	merged := make([]Entry, 0, len(entries))
	for _, e := range entries {
		name, err := normalizeEntryName(e.Name)
		if err != nil {
			return nil, err
		}
		if i, seen := index[name]; seen {
			merged[i].Data = e.Data
			continue
		}
		index[name] = len(merged)
		merged = append(merged, Entry{Name: name, Data: e.Data})
	}
	return merged, nil
}

func normalizeEntryName(name string) (string, error) {
	slashed := strings.ReplaceAll(name, `\`, "/")
	if slashed == "" || path.IsAbs(slashed) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", &InvalidEntryNameError{Name: name}
	}
	cleaned := path.Clean(slashed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", &InvalidEntryNameError{Name: name}
	}
	return cleaned, nil
}
