package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadOptions selects the sources whose changes restart the server.
type ReloadOptions struct {
	Root  string
	Dirs  []string
	Exts  []string
	Delay time.Duration

	// Skip holds absolute directories never watched, such as the runtime
	// environment.
	Skip []string
}

func (o *ReloadOptions) matches(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if len(o.Exts) == 0 {
		return true
	}
	return slices.Contains(o.Exts, filepath.Ext(base))
}

func (o *ReloadOptions) skipped(dir string) bool {
	base := filepath.Base(dir)
	if base != "." && strings.HasPrefix(base, ".") {
		return true
	}
	if base == "vendor" || base == "node_modules" || base == "testdata" {
		return true
	}
	return slices.Contains(o.Skip, dir)
}

// watch adds dir and every directory below it to w.
func (o *ReloadOptions) watch(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && o.skipped(path) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (l *ProcessLauncher) launchWithReload(ctx context.Context, env []string) error {
	opts := l.Reload

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range opts.Dirs {
		full := dir
		if !filepath.IsAbs(full) {
			full = filepath.Join(opts.Root, dir)
		}
		if err := opts.watch(watcher, full); err != nil {
			return err
		}
	}
	l.logger.Info().
		Strs("dirs", opts.Dirs).
		Strs("exts", opts.Exts).
		Msg("watching sources for changes")

	p, err := l.start(env)
	if err != nil {
		return err
	}
	exited := p.exited

	debounce := time.NewTimer(opts.Delay)
	debounce.Stop()
	var changed string

	for {
		select {
		case <-ctx.Done():
			return l.stop(p)

		case <-exited:
			exited = nil
			event := l.logger.Warn()
			if p.err != nil {
				event = event.Err(p.err)
			}
			event.Msg("server exited, waiting for changes")

		case ev, ok := <-watcher.Events:
			if !ok {
				return l.stop(p)
			}
			if ev.Has(fsnotify.Create) {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if err := opts.watch(watcher, ev.Name); err != nil {
						l.logger.Warn().Err(err).Msg("failed to watch new directory")
					}
					continue
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !opts.matches(ev.Name) {
				continue
			}
			changed = ev.Name
			debounce.Reset(opts.Delay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return l.stop(p)
			}
			l.logger.Warn().Err(err).Msg("file watcher error")

		case <-debounce.C:
			rel, relErr := filepath.Rel(opts.Root, changed)
			if relErr != nil {
				rel = changed
			}
			l.logger.Info().Str("file", rel).Msg("change detected, reloading server")

			if l.Rebuild != nil {
				if err := l.Rebuild(ctx, env); err != nil {
					l.logger.Error().Err(err).Msg("rebuild failed, keeping the running server")
					continue
				}
			}

			if err := l.stop(p); err != nil {
				return err
			}
			if p, err = l.start(env); err != nil {
				return err
			}
			exited = p.exited
		}
	}
}
