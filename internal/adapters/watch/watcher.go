// Package watch reruns the pipeline when an export file changes on disk.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const DefaultDebounce = 2 * time.Second

// Watcher monitors the directories holding the configured exports. Editors and
// exporters often write in bursts or replace files by rename, so events are
// coalesced and only events naming a watched file count.
type Watcher struct {
	targets  map[string]struct{}
	dirs     []string
	debounce time.Duration
	run      func(ctx context.Context) error

	done chan struct{}
	once sync.Once
}

func New(paths []string, debounce time.Duration, run func(ctx context.Context) error) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{targets: map[string]struct{}{}, debounce: debounce, run: run, done: make(chan struct{})}
	seen := map[string]struct{}{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		w.targets[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if _, ok := seen[dir]; !ok {
			seen[dir] = struct{}{}
			w.dirs = append(w.dirs, dir)
		}
	}
	return w
}

// Start registers the watches and returns; events are handled until ctx ends.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, d := range w.dirs {
		if err := fw.Add(d); err != nil {
			fw.Close()
			return err
		}
	}
	log.Info().Strs("dirs", w.dirs).Dur("debounce", w.debounce).Msg("watching exports")
	go w.loop(ctx, fw)
	return nil
}

// Done is closed once the event loop has exited.
func (w *Watcher) Done() <-chan struct{} { return w.done }

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.once.Do(func() { close(w.done) })
	defer fw.Close()

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-fw.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !w.watched(evt.Name) {
				continue
			}
			log.Debug().Str("file", evt.Name).Str("op", evt.Op.String()).Msg("export changed")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			start := time.Now()
			if err := w.run(ctx); err != nil {
				log.Error().Err(err).Msg("rerun failed; previous artifacts kept")
				continue
			}
			log.Info().Dur("took", time.Since(start)).Msg("rerun published")
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) watched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		abs = filepath.Clean(name)
	}
	_, ok := w.targets[abs]
	return ok
}
