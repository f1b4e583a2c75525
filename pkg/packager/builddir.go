// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/fnpack/pkg/types"
)

// EnvFileName is the name of the environment file written into the build
// directory and shipped at the archive root.
const EnvFileName = ".env"

// maxBuildDirAttempts bounds the timestamp bumps when a build directory name
// is already taken.
const maxBuildDirAttempts = 1000

type (
	// EnvironmentStore fetches the environment file of a deployment target.
	// Implementations return an error wrapping a not-found sentinel when the
	// object does not exist.
	EnvironmentStore interface {
		Fetch(ctx context.Context, bucket, project, stage string) ([]byte, error)
	}

	// Target identifies where a function is deployed.
	Target struct {
		Region  string
		Bucket  string
		Project string
		Stage   string
	}

	// BuildDirectory is a per-run staging directory.
	BuildDirectory struct {
		// Path is the absolute path of the directory.
		Path string
		// CreatedAt is the timestamp encoded in the directory name.
		CreatedAt time.Time
	}

	// Assembler materializes build directories.
	Assembler struct {
		tempRoot string
		store    EnvironmentStore
		logger   *log.Logger
		now      func() time.Time
	}
)

// NewAssembler returns an Assembler that creates build directories under
// tempRoot (the system temp directory when empty).
func NewAssembler(tempRoot string, store EnvironmentStore, logger *log.Logger) *Assembler {
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	return &Assembler{
		tempRoot: tempRoot,
		store:    store,
		logger:   orDiscard(logger),
		now:      time.Now,
	}
}

// Assemble creates a fresh build directory for name, copies projectRoot into
// it minus the entries matcher excludes, then writes the target's
// environment file into it.
func (a *Assembler) Assemble(ctx context.Context, name types.FunctionName, projectRoot string, matcher *ExclusionMatcher, target Target) (*BuildDirectory, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, &ProjectCopyFailedError{ProjectRoot: projectRoot, Err: err}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ProjectCopyFailedError{ProjectRoot: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &ProjectCopyFailedError{ProjectRoot: root, Err: fmt.Errorf("%s is not a directory", root)}
	}

	dir, err := a.create(name)
	if err != nil {
		return nil, &ProjectCopyFailedError{ProjectRoot: root, Err: err}
	}
	a.logger.Info("saving in build directory", "function", name, "path", dir.Path)

	a.logger.Debug("copying", "from", root, "to", dir.Path)
	if err := a.copyTree(root, dir.Path, name, matcher); err != nil {
		return nil, &ProjectCopyFailedError{ProjectRoot: root, BuildDir: dir.Path, Err: err}
	}

	if err := a.injectEnvironment(ctx, dir.Path, target); err != nil {
		return nil, err
	}

	return dir, nil
}

// create makes the directory `<temp root>/<name>@<unix ms>` with an exclusive
// Mkdir, advancing the timestamp by a millisecond while the name is taken.
func (a *Assembler) create(name types.FunctionName) (*BuildDirectory, error) {
	if err := os.MkdirAll(a.tempRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create temp root: %w", err)
	}
	root, err := filepath.Abs(a.tempRoot)
	if err != nil {
		return nil, err
	}

	ts := a.now()
	for range maxBuildDirAttempts {
		path := filepath.Join(root, fmt.Sprintf("%s@%d", name, ts.UnixMilli()))
		err := os.Mkdir(path, 0o755)
		if err == nil {
			return &BuildDirectory{Path: path, CreatedAt: ts}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create build directory: %w", err)
		}
		ts = ts.Add(time.Millisecond)
	}
	return nil, fmt.Errorf("create build directory for %s: %d names already taken", name, maxBuildDirAttempts)
}

// copyTree copies src into dst. Excluded entries (and the subtree of an
// excluded directory) are skipped. When the temp root lies inside src it is
// skipped whole, so earlier build directories never reach the copy; a temp
// root equal to src skips its `<name>@<ms>` children instead.
// Symlinks are recreated as symlinks.
func (a *Assembler) copyTree(src, dst string, name types.FunctionName, matcher *ExclusionMatcher) error {
	tempRoot := filepath.Dir(dst)
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == src {
			return nil
		}
		if path == dst || path == tempRoot {
			a.logger.Debug("skipping build directories", "path", path)
			return filepath.SkipDir
		}
		if d.IsDir() && tempRoot == src && isBuildDirName(d.Name(), name) {
			a.logger.Debug("skipping earlier build directory", "path", path)
			return filepath.SkipDir
		}

		if rel, pattern, excluded := matcher.Excluded(src, path); excluded {
			a.logger.Info("excluding", "path", rel, "pattern", pattern)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("failed to read symlink %s: %w", path, err)
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			a.logger.Debug("skipping special file", "path", filepath.ToSlash(rel))
			return nil
		}
	})
}

// isBuildDirName reports whether base has the `<name>@<unix ms>` form of a
// build directory of name.
func isBuildDirName(base string, name types.FunctionName) bool {
	ms, ok := strings.CutPrefix(base, string(name)+"@")
	if !ok || ms == "" {
		return false
	}
	_, err := strconv.ParseInt(ms, 10, 64)
	return err == nil
}

func (a *Assembler) injectEnvironment(ctx context.Context, dir string, target Target) error {
	a.logger.Debug("fetching environment", "region", target.Region, "bucket", target.Bucket,
		"project", target.Project, "stage", target.Stage)

	data, err := a.store.Fetch(ctx, target.Bucket, target.Project, target.Stage)
	if err != nil {
		return &EnvironmentFetchFailedError{Bucket: target.Bucket, Project: target.Project, Stage: target.Stage, Err: err}
	}

	envPath := filepath.Join(dir, EnvFileName)
	if err := os.WriteFile(envPath, data, 0o600); err != nil {
		return &ProjectCopyFailedError{BuildDir: dir, Err: fmt.Errorf("write %s: %w", EnvFileName, err)}
	}
	return nil
}

func copyFile(src, dst string, perm fs.FileMode) (err error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() { _ = srcFile.Close() }() // Read-only file; close error non-critical

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o600)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if closeErr := dstFile.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", closeErr)
		}
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return nil
}
