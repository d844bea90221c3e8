// Package watch rebuilds a project when its sources change and, optionally,
// on a fixed interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/noise/internal/logfields"
)

// DefaultDebounce is the quiet window between the last change and a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// BuildFunc runs one build.
type BuildFunc func(ctx context.Context) error

// Options configure a Watcher.
type Options struct {
	// Trees are watched recursively.
	Trees []string
	// Files are watched individually through their parent directory.
	Files []string
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// Every schedules an additional periodic rebuild when positive.
	Every time.Duration
}

// Watcher serializes rebuilds triggered by file events and by the scheduler.
type Watcher struct {
	build BuildFunc
	opts  Options

	fsw       *fsnotify.Watcher
	scheduler gocron.Scheduler
	files     map[string]bool

	buildMu sync.Mutex
	mu      sync.Mutex
	timer   *time.Timer
	builds  int
}

// New creates a watcher; nothing is watched until Run.
func New(build BuildFunc, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	w := &Watcher{build: build, opts: opts, files: map[string]bool{}}
	for _, f := range opts.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		w.files[abs] = true
	}
	return w, nil
}

// Run performs an initial build, then rebuilds on change until ctx is done.
// Build failures are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	w.fsw = fsw
	defer func() {
		if err := fsw.Close(); err != nil {
			slog.Debug("Closing file watcher", logfields.Error(err))
		}
	}()
	if err := w.addWatches(); err != nil {
		return err
	}

	if w.opts.Every > 0 {
		if err := w.startScheduler(ctx); err != nil {
			return err
		}
		defer func() {
			if err := w.scheduler.Shutdown(); err != nil {
				slog.Warn("Scheduler shutdown", logfields.Error(err))
			}
		}()
	}

	w.Rebuild(ctx, "initial")
	slog.Info("Watching for changes",
		slog.Any("trees", w.opts.Trees),
		slog.Duration("debounce", w.opts.Debounce),
		slog.Duration("every", w.opts.Every))

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// Rebuild runs one build now. Concurrent calls wait for each other.
func (w *Watcher) Rebuild(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	w.buildMu.Lock()
	defer w.buildMu.Unlock()
	slog.Info("Rebuilding", slog.String("reason", reason))
	if err := w.build(ctx); err != nil {
		slog.Error("Rebuild failed", slog.String("reason", reason), logfields.Error(err))
	}
	w.mu.Lock()
	w.builds++
	w.mu.Unlock()
}

// Builds returns the number of builds run so far.
func (w *Watcher) Builds() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.builds
}

func (w *Watcher) startScheduler(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if _, err := s.NewJob(
		gocron.DurationJob(w.opts.Every),
		gocron.NewTask(func() { w.Rebuild(ctx, "schedule") }),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to create periodic rebuild job: %w", err)
	}
	w.scheduler = s
	s.Start()
	return nil
}

func (w *Watcher) addWatches() error {
	for _, root := range w.opts.Trees {
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Skipping missing watch root", logfields.Path(root))
			continue
		}
		if err := w.addTree(root); err != nil {
			return err
		}
	}
	dirs := map[string]bool{}
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for d := range dirs {
		if err := w.fsw.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && ignoredName(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}
	if !w.relevant(abs) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
			if err := w.addTree(abs); err != nil {
				slog.Warn("Watching new directory", logfields.Path(abs), logfields.Error(err))
			}
		}
	}
	slog.Debug("Change detected", logfields.Path(abs), slog.String("op", ev.Op.String()))
	w.trigger(ctx)
}

// relevant reports whether a change at abs should cause a rebuild.
func (w *Watcher) relevant(abs string) bool {
	if w.files[abs] {
		return true
	}
	if ignoredName(filepath.Base(abs)) {
		return false
	}
	for _, root := range w.opts.Trees {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if abs == rootAbs || strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) trigger(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() { w.Rebuild(ctx, "change") })
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// ignoredName matches hidden, swap and editor backup files.
func ignoredName(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") ||
		strings.HasSuffix(name, ".tmp")
}
