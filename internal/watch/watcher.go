// SPDX-License-Identifier: MPL-2.0

// Package watch repackages a function when its project tree changes.
//
// A Watcher registers every directory under the project root with fsnotify,
// drops events for paths that can never reach the archive (VCS metadata,
// editor swap files, excluded paths, the build directory root) and invokes a
// callback once the tree has been quiet for the debounce period. Events
// within the window are coalesced so one rebuild covers the whole burst.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

// defaultIgnores are doublestar patterns, relative to the project root, that
// never trigger a rebuild.
var defaultIgnores = []string{
	"**/.git/**",
	"**/.hg/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
	"**/._*",
	"**/Thumbs.db",
	"**/.fnpack-archive-*",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// ProjectRoot is the directory tree to watch.
		ProjectRoot string

		// Ignore are extra doublestar patterns merged with the defaults.
		Ignore []string

		// Skip reports whether a project-relative, slash-separated path is
		// irrelevant to the archive (for example, it matches an exclude
		// pattern). Nil skips nothing.
		Skip func(rel string) bool

		// SkipDirs are absolute directories that are never watched, such as
		// a build directory root that lies inside the project.
		SkipDirs []string

		// Debounce is the quiet period before OnChange fires. Zero or
		// negative values fall back to 500ms.
		Debounce time.Duration

		// OnChange receives the sorted, deduplicated project-relative paths
		// that changed. A nil callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error

		// Logger receives watch diagnostics. Nil discards them.
		Logger *log.Logger
	}

	// Watcher monitors a project tree. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		skipDirs []string
		logger   *log.Logger
		debounce time.Duration
		root     string
		started  atomic.Bool
	}
)

// New validates cfg, creates the fsnotify watcher and registers every
// directory under the project root that is not ignored.
func New(cfg Config) (*Watcher, error) {
	if cfg.ProjectRoot == "" {
		return nil, errors.New("watch: project root is required")
	}
	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve project root: %w", err)
	}

	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q: %w", pat, doublestar.ErrBadPattern)
		}
	}

	skipDirs := make([]string, 0, len(cfg.SkipDirs))
	for _, dir := range cfg.SkipDirs {
		abs, absErr := filepath.Abs(dir)
		if absErr != nil {
			return nil, fmt.Errorf("watch: resolve skipped directory: %w", absErr)
		}
		skipDirs = append(skipDirs, abs)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		skipDirs: skipDirs,
		logger:   logger,
		debounce: debounce,
		root:     root,
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("close watcher after init failure", "err", closeErr)
		}
		return nil, err
	}

	return w, nil
}

// Run processes filesystem events until ctx is canceled. It returns nil on
// cancellation and an error when the watcher breaks (for example, the
// inotify watch limit is exhausted).
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire runs on the timer goroutine. A rebuild still in progress defers
	// the pending set to the next debounce window instead of overlapping.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("rebuild still running, deferring changes")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("rebuild failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("close watcher", "err", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed unexpectedly")
			}

			rel, relevant := w.relevant(evt.Name)
			if !relevant {
				continue
			}

			// Newly created directories are watched too.
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			w.logger.Debug("change", "path", rel, "op", evt.Op.String())

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed unexpectedly")
			}
			if isExhausted(err) {
				return fmt.Errorf("watch: %w", err)
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// relevant maps an event path to its project-relative form and reports
// whether a change there can affect the archive.
func (w *Watcher) relevant(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if w.inSkippedDir(path) || w.isIgnored(rel) {
		return "", false
	}
	if w.cfg.Skip != nil && w.cfg.Skip(rel) {
		return "", false
	}
	return rel, true
}

// addDirectories registers every directory under the root that is not
// ignored. Unreadable directories are logged and skipped.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.root, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn("not watching inaccessible path", "path", path, "err", walkDirErr)
			return nil //nolint:nilerr // skip inaccessible paths
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && !w.watchableDir(path) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk project tree: %w", walkErr)
	}
	return nil
}

func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || !w.watchableDir(path) {
		return
	}
	if addErr := w.fsw.Add(path); addErr != nil {
		w.logger.Warn("watch new directory", "path", path, "err", addErr)
	}
}

func (w *Watcher) watchableDir(path string) bool {
	if w.inSkippedDir(path) {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if w.isIgnored(rel) || w.isIgnored(rel+"/") {
		return false
	}
	return w.cfg.Skip == nil || !w.cfg.Skip(rel)
}

func (w *Watcher) inSkippedDir(path string) bool {
	for _, dir := range w.skipDirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) isIgnored(rel string) bool {
	for _, pat := range w.ignores {
		if matched, matchErr := doublestar.Match(pat, rel); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}
