package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"qabot/internal/port"
)

// FSNotifyWatcher reports changes to dataset files. It watches directories
// rather than files, since editors often replace a file instead of writing it.
type FSNotifyWatcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	match      func(path string) bool
	debounce   time.Duration
}

func NewFSNotifyWatcher(extensions []string, debounce time.Duration) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if len(extensions) == 0 {
		extensions = []string{".csv"}
	}
	return &FSNotifyWatcher{
		watcher:    w,
		extensions: extensions,
		debounce:   debounce,
	}, nil
}

// WithFilter replaces the extension check: only files match accepts produce
// events. Call it before Watch.
func (w *FSNotifyWatcher) WithFilter(match func(path string) bool) *FSNotifyWatcher {
	w.match = match
	return w
}

// Watch emits one event per burst of changes to accepted files. A directory
// in paths is watched itself, a file through its parent. Directories created
// later under a watched one are added as they appear.
func (w *FSNotifyWatcher) Watch(ctx context.Context, paths []string) (<-chan port.FileEvent, error) {
	dirs := make(map[string]struct{})
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			dirs[p] = struct{}{}
			continue
		}
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return nil, err
		}
	}

	events := make(chan port.FileEvent, 16)

	go func() {
		defer close(events)

		var pending *port.FileEvent
		var timer <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Create) && isDir(event.Name) {
					if err := w.watcher.Add(event.Name); err != nil {
						slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
				if !w.accepts(event.Name) {
					continue
				}
				op := opName(event.Op)
				if op == "" {
					continue
				}
				pending = &port.FileEvent{Path: event.Name, Op: op}
				if w.debounce <= 0 {
					timer = closedTimer()
				} else {
					timer = time.After(w.debounce)
				}
			case <-timer:
				timer = nil
				if pending == nil {
					continue
				}
				select {
				case events <- *pending:
				case <-ctx.Done():
					return
				}
				pending = nil
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("file watcher error", "error", err)
			}
		}
	}()

	return events, nil
}

func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *FSNotifyWatcher) accepts(path string) bool {
	if w.match != nil {
		return w.match(path)
	}
	ext := filepath.Ext(path)
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	}
	return ""
}

func closedTimer() <-chan time.Time {
	c := make(chan time.Time)
	close(c)
	return c
}
