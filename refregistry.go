package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gamma-omg/pwnaudit/prefilter"
	"github.com/gamma-omg/pwnaudit/sortedfile"
)

var errNotLoaded = errors.New("reference file is not loaded")

type PrefilterConfig struct {
	Enabled   bool
	PrefixLen int
	Seed      uint64
}

// ReferenceRegistry serves ad-hoc lookups against the reference file and
// reopens it when the file on disk is replaced.
type ReferenceRegistry struct {
	log              *slog.Logger
	path             string
	mergeEventsDelay time.Duration
	prefilter        PrefilterConfig

	mu       sync.Mutex
	file     *os.File
	cursor   *sortedfile.LineCursor
	filter   *prefilter.Set
	lookups  int
	filtered int
}

func (rr *ReferenceRegistry) Load() error {
	f, err := os.Open(rr.path)
	if err != nil {
		return fmt.Errorf("failed to open reference file: %w", err)
	}

	cursor, err := sortedfile.NewLineCursor(f)
	if err != nil {
		f.Close()
		return err
	}

	var filter *prefilter.Set
	if rr.prefilter.Enabled {
		start := time.Now()
		filter, err = prefilter.Build(io.NewSectionReader(f, 0, cursor.Size()), rr.prefilter.PrefixLen, rr.prefilter.Seed)
		if err != nil {
			f.Close()
			return fmt.Errorf("failed to build prefilter: %w", err)
		}

		rr.log.Info("prefilter built",
			slog.Int("keys", filter.Keys()),
			slog.Int("partitions", filter.Partitions()),
			slog.Duration("elapsed", time.Since(start)))
	}

	rr.mu.Lock()
	old := rr.file
	rr.file = f
	rr.cursor = cursor
	rr.filter = filter
	rr.mu.Unlock()

	if old != nil {
		old.Close()
	}

	rr.log.Info("reference file loaded", slog.String("path", rr.path), slog.Int64("size", cursor.Size()))
	return nil
}

func (rr *ReferenceRegistry) Lookup(ctx context.Context, hash string) (sortedfile.Result, error) {
	if err := ctx.Err(); err != nil {
		return sortedfile.NotFound, err
	}

	hash = strings.ToUpper(strings.TrimSpace(hash))

	rr.mu.Lock()
	defer rr.mu.Unlock()

	if rr.cursor == nil {
		return sortedfile.NotFound, errNotLoaded
	}

	rr.lookups++
	if rr.filter != nil && !rr.filter.MayContain(hash) {
		rr.filtered++
		return sortedfile.NotFound, nil
	}

	return sortedfile.BinarySearch(rr.cursor, hash)
}

func (rr *ReferenceRegistry) Close() error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if rr.file == nil {
		return nil
	}

	err := rr.file.Close()
	rr.file = nil
	rr.cursor = nil
	rr.filter = nil
	rr.log.Info("reference file closed", slog.Int("lookups", rr.lookups), slog.Int("filtered", rr.filtered))

	return err
}

// Watch reloads the reference file once writes to it have been quiet for
// mergeEventsDelay. It returns after the watcher is set up.
func (rr *ReferenceRegistry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	err = watcher.Add(filepath.Dir(rr.path))
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch reference directory: %w", err)
	}

	go rr.watchLoop(ctx, watcher)
	return nil
}

func (rr *ReferenceRegistry) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	name := filepath.Base(rr.path)
	reload := make(chan struct{}, 1)
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if timer == nil {
				timer = time.AfterFunc(rr.mergeEventsDelay, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(rr.mergeEventsDelay)
			}

		case <-reload:
			err := rr.Load()
			if err != nil {
				rr.log.Error("failed to reload reference file", slog.String("error", err.Error()))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			rr.log.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}
