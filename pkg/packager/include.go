// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
)

// DefaultIgnore lists housekeeping files never shipped from an included
// directory. Patterns are doublestar globs matched case-insensitively
// against each entry's base name.
var DefaultIgnore = []string{".DS_Store", "._*", "Thumbs.db", "desktop.ini"}

var errOutsideRoot = errors.New("path leaves the project root")

type (
	// Entry is a compression entry: an archive-relative name and its content.
	Entry struct {
		Name string
		Data []byte
	}

	// IncludeResolver expands declared include paths into compression entries.
	IncludeResolver struct {
		ignore []string
		logger *log.Logger
	}
)

// NewIncludeResolver returns a resolver skipping entries whose base name
// matches one of the ignore globs.
func NewIncludeResolver(ignore []string, logger *log.Logger) *IncludeResolver {
	lowered := make([]string, len(ignore))
	for i, p := range ignore {
		lowered[i] = strings.ToLower(p)
	}
	return &IncludeResolver{ignore: lowered, logger: orDiscard(logger)}
}

// Resolve expands paths, each relative to root, in declaration order. A file
// yields one entry named after the declared path. A directory yields one
// entry per regular file below it, named `<directory base name>/<relative
// path>`; subdirectories are visited before sibling files, each level in
// lexical order. Symlinks are skipped.
func (r *IncludeResolver) Resolve(root string, paths []string) ([]Entry, error) {
	var entries []Entry
	for _, p := range paths {
		declared := path.Clean(filepath.ToSlash(p))
		if declared == ".." || strings.HasPrefix(declared, "../") {
			return nil, &IncludePathNotFoundError{Path: p, Err: errOutsideRoot}
		}
		full := filepath.Join(root, filepath.FromSlash(declared))

		info, err := os.Lstat(full)
		if err != nil {
			return nil, &IncludePathNotFoundError{Path: p, Err: err}
		}

		switch {
		case info.Mode().IsRegular():
			data, err := os.ReadFile(full)
			if err != nil {
				return nil, &IncludePathNotFoundError{Path: p, Err: err}
			}
			r.logger.Debug("including", "path", declared)
			entries = append(entries, Entry{Name: declared, Data: data})
		case info.IsDir():
			prefix := path.Base(declared)
			if prefix == "." || prefix == "/" {
				prefix = ""
			}
			dirEntries, err := r.walk(full, prefix)
			if err != nil {
				return nil, &IncludePathNotFoundError{Path: p, Err: err}
			}
			entries = append(entries, dirEntries...)
		default:
			r.logger.Warn("skipping include path that is neither a file nor a directory", "path", declared, "mode", info.Mode().String())
		}
	}
	return entries, nil
}

// walk enumerates dir recursively, subdirectories first.
func (r *IncludeResolver) walk(dir, prefix string) ([]Entry, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var dirs, files []fs.DirEntry
	for _, c := range children {
		if r.ignored(c.Name()) {
			continue
		}
		if c.IsDir() {
			dirs = append(dirs, c)
		} else {
			files = append(files, c)
		}
	}

	var entries []Entry
	for _, d := range dirs {
		sub, err := r.walk(filepath.Join(dir, d.Name()), path.Join(prefix, d.Name()))
		if err != nil {
			return nil, err
		}
		entries = append(entries, sub...)
	}
	for _, f := range files {
		if !f.Type().IsRegular() {
			continue
		}
		name := path.Join(prefix, f.Name())
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		r.logger.Debug("including", "path", name)
		entries = append(entries, Entry{Name: name, Data: data})
	}
	return entries, nil
}

func (r *IncludeResolver) ignored(name string) bool {
	lower := strings.ToLower(name)
	for _, pat := range r.ignore {
		if matched, err := doublestar.Match(pat, lower); err == nil && matched {
			return true
		}
	}
	return false
}
