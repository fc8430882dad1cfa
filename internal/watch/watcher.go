// Package watch re-runs a build when project sources change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ShayCichocki/velveeva/internal/build"
	"github.com/ShayCichocki/velveeva/internal/state"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 300 * time.Millisecond

// Matcher reports whether a slash-separated path relative to the watch
// root should be ignored.
type Matcher interface {
	Match(rel string) bool
}

// Option configures a Watcher.
type Option func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	ignore   Matcher
	exclude  []string
	onError  func(error)
}

// WithDebounce sets the quiet period before a change batch is delivered.
func WithDebounce(d time.Duration) Option {
	return func(o *watchOptions) { o.debounce = d }
}

// WithIgnore drops changes whose relative path matches m.
func WithIgnore(m Matcher) Option {
	return func(o *watchOptions) { o.ignore = m }
}

// WithExclude never watches dirs or anything below them.
func WithExclude(dirs ...string) Option {
	return func(o *watchOptions) { o.exclude = append(o.exclude, dirs...) }
}

// WithErrorHandler receives watcher errors. They are dropped by default.
func WithErrorHandler(fn func(error)) Option {
	return func(o *watchOptions) { o.onError = fn }
}

// Watcher watches directory trees and delivers debounced change batches.
type Watcher struct {
	root    string
	opts    watchOptions
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	watched []string
}

// New creates a Watcher rooted at root that watches dirs recursively.
// Directories that do not exist are skipped.
func New(root string, dirs []string, opts ...Option) (*Watcher, error) {
	o := watchOptions{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}
	for i, d := range o.exclude {
		o.exclude[i] = absUnder(root, d)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{root: root, opts: o, watcher: fw}
	for _, d := range dirs {
		if err := w.addTree(absUnder(root, d)); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// ForEnvironment watches the source, globals, templates and partials
// directories of env, excluding its output and temp directories and the
// history directory.
func ForEnvironment(env *build.Environment, opts ...Option) (*Watcher, error) {
	dirs := []string{env.SourcePath(), env.GlobalsPath(), env.TemplatesPath(), env.PartialsPath()}
	exclude := WithExclude(env.OutputPath(), env.TempPath(), filepath.Join(env.Root, state.DirName))
	return New(env.Root, dirs, append([]Option{exclude}, opts...)...)
}

// Watched returns the watched directories, sorted.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := append([]string(nil), w.watched...)
	sort.Strings(out)
	return out
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run delivers batches of changed paths, relative to the root and sorted,
// to onChange until ctx is done. onChange runs on the Run goroutine, so
// changes made while it runs arrive in the next batch.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string)) error {
	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.handle(event, pending) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.opts.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.opts.onError != nil {
				w.opts.onError(err)
			}

		case <-fire:
			fire = nil
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			onChange(changed)
		}
	}
}

// handle records event in pending and reports whether it counts as a change.
func (w *Watcher) handle(event fsnotify.Event, pending map[string]struct{}) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	if w.excluded(name) || w.ignored(name) {
		return false
	}

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if err := w.addTree(name); err != nil && w.opts.onError != nil {
				w.opts.onError(err)
			}
			// Files written before the new directory was watched.
			filepath.WalkDir(name, func(p string, d fs.DirEntry, err error) error {
				if err == nil && !d.IsDir() && !w.ignored(p) {
					pending[w.rel(p)] = struct{}{}
				}
				return nil
			})
		}
	}

	pending[w.rel(name)] = struct{}{}
	return true
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.excluded(p) || (p != dir && w.ignored(p)) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		w.mu.Lock()
		w.watched = append(w.watched, p)
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) excluded(p string) bool {
	for _, ex := range w.opts.exclude {
		if p == ex || strings.HasPrefix(p, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) ignored(p string) bool {
	return w.opts.ignore != nil && w.opts.ignore.Match(w.rel(p))
}

func (w *Watcher) rel(p string) string {
	r, err := filepath.Rel(w.root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(r)
}

func absUnder(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
