package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"flagfold/internal/logging"
	"flagfold/source"
)

const defaultDebounce = 100 * time.Millisecond

type driver struct {
	cfg source.Config

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

func New() source.Adapter { return &driver{} }

func (d *driver) Configure(c source.Config) error {
	if len(c.Roots) == 0 {
		return errors.New("fs-source: no roots")
	}
	if c.Debounce <= 0 {
		c.Debounce = defaultDebounce
	}
	d.cfg = c
	return nil
}

// Run emits every matching file under the roots in lexical order, then
// keeps emitting changed files until ctx is done when watching.
func (d *driver) Run(ctx context.Context, emit source.EmitFunc) error {
	for _, root := range d.cfg.Roots {
		if err := d.walk(ctx, root, emit); err != nil {
			return err
		}
	}
	if !d.cfg.Watch {
		return nil
	}
	return d.watch(ctx, emit)
}

func (d *driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.watcher != nil {
		err := d.watcher.Close()
		d.watcher = nil
		return err
	}
	return nil
}

func (d *driver) match(path string) bool {
	return strings.HasSuffix(path, d.cfg.Suffix)
}

func (d *driver) walk(ctx context.Context, root string, emit source.EmitFunc) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("fs-source: %w", err)
	}
	if !info.IsDir() {
		return d.emitFile(root, root, emit)
	}
	return filepath.WalkDir(root, func(path string, e iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || !d.match(path) {
			return nil
		}
		return d.emitFile(root, path, emit)
	})
}

func (d *driver) emitFile(root, path string, emit source.EmitFunc) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("fs-source: %w", err)
	}
	return emit(source.Unit{Path: path, Rel: rel(root, path), Data: data})
}

// rel is path relative to root; a file root maps to its base name.
func rel(root, path string) string {
	if root == path {
		return filepath.Base(path)
	}
	r, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.Base(path)
	}
	return r
}

func (d *driver) watch(ctx context.Context, emit source.EmitFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fs-source: watch: %w", err)
	}
	d.mu.Lock()
	d.watcher = w
	d.mu.Unlock()
	defer d.Close()

	for _, root := range d.cfg.Roots {
		if err := addWatchTree(w, root); err != nil {
			return fmt.Errorf("fs-source: watch %s: %w", root, err)
		}
	}
	log := logging.L().With("source", "fs")
	log.Info("watching", "roots", d.cfg.Roots)

	pending := map[string]bool{}
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addWatchTree(w, ev.Name)
					continue
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !d.match(ev.Name) || !d.covered(ev.Name) {
				continue
			}
			pending[ev.Name] = true
			if timer == nil {
				timer = time.NewTimer(d.cfg.Debounce)
			} else {
				timer.Reset(d.cfg.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			for _, p := range paths {
				if err := d.emitFile(d.rootOf(p), p, emit); err != nil {
					log.Warn("skipping changed file", "path", p, "err", err)
				}
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "err", err)
		}
	}
}

// rootOf is the longest root containing path, or path itself for file roots.
func (d *driver) rootOf(path string) string {
	best := ""
	for _, r := range d.cfg.Roots {
		if r == path {
			return path
		}
		if strings.HasPrefix(path, r+string(filepath.Separator)) && len(r) > len(best) {
			best = r
		}
	}
	if best == "" {
		return path
	}
	return best
}

// covered rejects siblings of file roots that share the watched directory.
func (d *driver) covered(path string) bool {
	for _, r := range d.cfg.Roots {
		if r == path || strings.HasPrefix(path, r+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func addWatchTree(w *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, e iofs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if e.IsDir() {
			_ = w.Add(path)
		}
		return nil
	})
}

func init() {
	source.Register("fs", New)
}
