// Package watcher re-runs work when pedigree files change on disk.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long a file must stay quiet before a change fires
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a set of files for changes
type Watcher struct {
	paths    []string
	onChange func(path string)
	debounce time.Duration
	log      logrus.FieldLogger
}

// New creates a watcher calling onChange with the absolute path of each
// changed file. Calls never overlap: changes seen while onChange is running
// are coalesced into one more call per file once it returns.
func New(paths []string, onChange func(path string)) *Watcher {
	return &Watcher{
		paths:    paths,
		onChange: onChange,
		debounce: DefaultDebounce,
		log:      logrus.StandardLogger(),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// WithLogger sets the logger
func (w *Watcher) WithLogger(log logrus.FieldLogger) *Watcher {
	w.log = log.WithField("component", "watcher")
	return w
}

// Watch blocks until ctx is cancelled or the fsnotify watcher fails.
//
// Directories are watched rather than files so that editors which replace a
// file on save are still seen.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	files := make(map[string]bool, len(w.paths))
	dirs := make(map[string]bool)
	for _, path := range w.paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := fw.Add(dir); err != nil {
				return err
			}
			dirs[dir] = true
		}
		files[abs] = true
		w.log.WithField("path", abs).Info("Watching for changes")
	}

	d := newDispatcher(w)
	runCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.run(runCtx)
	}()
	defer func() {
		stop()
		d.stopTimers()
		wg.Wait()
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !files[abs] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			d.touch(abs)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Watcher error")

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// dispatcher debounces changes per file and runs onChange for them from a
// single goroutine
type dispatcher struct {
	w    *Watcher
	wake chan struct{}

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]bool
	order   []string
}

func newDispatcher(w *Watcher) *dispatcher {
	return &dispatcher{
		w:       w,
		wake:    make(chan struct{}, 1),
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]bool),
	}
}

// touch restarts the debounce timer for path
func (d *dispatcher) touch(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[path]; ok {
		t.Reset(d.w.debounce)
		return
	}
	d.timers[path] = time.AfterFunc(d.w.debounce, func() { d.fire(path) })
}

func (d *dispatcher) fire(path string) {
	d.mu.Lock()
	if !d.pending[path] {
		d.pending[path] = true
		d.order = append(d.order, path)
	}
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) take() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	paths := d.order
	d.order = nil
	clear(d.pending)
	return paths
}

func (d *dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		}
		for _, path := range d.take() {
			if ctx.Err() != nil {
				return
			}
			d.w.log.WithField("path", path).Info("File changed")
			d.w.onChange(path)
		}
	}
}

func (d *dispatcher) stopTimers() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.timers {
		t.Stop()
	}
}
