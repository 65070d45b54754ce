// Copyright (c) 2020 Siemens AG
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
//
// Author(s): Jonas Plum

// Package watch processes evidence dropped into an intake directory.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// DefaultSettle is the quiet period after the last write before a file is
// handed over.
const DefaultSettle = 2 * time.Second

// Handler processes one settled intake path.
type Handler func(ctx context.Context, path string) error

// Watcher watches a single intake directory, non-recursively.
type Watcher struct {
	dir    string
	settle time.Duration
	logger *slog.Logger
}

// New creates a watcher for dir. A zero settle uses DefaultSettle.
func New(dir string, settle time.Duration, logger *slog.Logger) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{dir: dir, settle: settle, logger: logger}
}

// Run calls handle for every file or directory created in or written to the
// intake directory once it has been quiet for the settle period. Paths are
// handled one at a time, in the loop goroutine. Hidden names are ignored.
// Run returns nil when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", w.dir)
	}
	w.logger.Info("watching intake directory", "path", w.dir, "settle", w.settle)

	pending := map[string]time.Time{}
	ticker := time.NewTicker(w.settle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("intake watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				pending[event.Name] = time.Now()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(pending, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("intake watcher error", "error", err)

		case now := <-ticker.C:
			for _, path := range settled(pending, now, w.settle) {
				delete(pending, path)
				w.logger.Info("intake settled", "path", path)
				if err := handle(ctx, path); err != nil {
					w.logger.Error("intake failed", "path", path, "error", err)
				}
				if ctx.Err() != nil {
					return nil
				}
			}
		}
	}
}

func settled(pending map[string]time.Time, now time.Time, settle time.Duration) []string {
	var paths []string
	for path, last := range pending {
		if now.Sub(last) >= settle {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}
