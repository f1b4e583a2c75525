// SPDX-License-Identifier: MPL-2.0

package envstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingDir is returned by NewDir without a root directory.
var ErrMissingDir = errors.New("environment store directory is required")

// DirStore reads environment files from <root>/<bucket>/<key>.
type DirStore struct {
	root string
	keys KeyTemplate
}

// NewDir returns a DirStore rooted at root.
func NewDir(root string, keys KeyTemplate) (*DirStore, error) {
	if root == "" {
		return nil, ErrMissingDir
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &DirStore{root: abs, keys: keys}, nil
}

// Fetch reads the environment file of project and stage from bucket.
func (s *DirStore) Fetch(ctx context.Context, bucket, project, stage string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := s.keys.Key(project, stage)
	path := filepath.Join(s.root, filepath.FromSlash(bucket), filepath.FromSlash(key))
	if rel, err := filepath.Rel(s.root, path); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("object %s/%s escapes store root %s", bucket, key, s.root)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Bucket: bucket, Key: key}
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
