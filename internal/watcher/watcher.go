package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"kratio/internal/logging"
	"kratio/internal/textsource"

	"github.com/fsnotify/fsnotify"
)

const (
	DefaultDebounce     = 100 * time.Millisecond
	defaultRenameWindow = 50 * time.Millisecond
)

var ErrBackendClosed = errors.New("watch backend closed unexpectedly")

// New creates an idle Watcher.
func New(options Options) *Watcher {
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	extensions := options.Extensions
	if extensions == nil {
		extensions = textsource.NewExtensionSet(textsource.DefaultExtensions...)
	}
	debounce := options.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	renameWindow := options.RenameWindow
	if renameWindow <= 0 {
		renameWindow = defaultRenameWindow
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}
	return &Watcher{
		logger:       logger.With(map[string]string{"component": "watcher"}),
		extensions:   extensions,
		debounce:     debounce,
		renameWindow: renameWindow,
		now:          now,
	}
}

// Start watches path and delivers accepted changes to handler. A directory is
// watched recursively; a file is watched through its parent directory and
// only changes to that file are delivered. Any running session is stopped first.
func (watcher *Watcher) Start(path string, handler Handler) error {
	if handler == nil {
		return errors.New("handler is nil")
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &PathNotFoundError{Path: path}
		}
		return err
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher.Stop()

	current := &session{
		handler: handler,
		events:  make(chan fsnotify.Event, 64),
		errors:  make(chan error, 4),
		fatal:   make(chan error, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if info.IsDir() {
		current.root = absolute
		current.recursive = true
	} else {
		current.root = filepath.Dir(absolute)
		current.target = absolute
	}

	backend, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	current.backend = backend
	watcher.activeWatches.Store(0)

	if err := watcher.addWatch(current, current.root); err != nil {
		_ = backend.Close()
		return err
	}
	if current.recursive {
		watcher.addRecursiveWatches(current, current.root)
	}

	watcher.mutex.Lock()
	watcher.session = current
	watcher.lastErr = nil
	watcher.lastProcessed = time.Time{}
	watcher.mutex.Unlock()

	current.group.Add(2)
	go watcher.forward(current)
	go watcher.run(current)

	watcher.logger.Info("watching", map[string]string{
		"path":      absolute,
		"recursive": strconv.FormatBool(current.recursive),
		"debounce":  watcher.debounce.String(),
	})
	return nil
}

// StartContext is Start plus a Stop once ctx ends.
func (watcher *Watcher) StartContext(ctx context.Context, path string, handler Handler) error {
	if err := watcher.Start(path, handler); err != nil {
		return err
	}
	done := watcher.Done()
	go func() {
		select {
		case <-ctx.Done():
			watcher.stopSession(done)
		case <-done:
		}
	}()
	return nil
}

// Stop ends the current session and waits for its goroutines to exit. A
// Stop racing another Stop, a context stop or a backend failure waits for
// the same shutdown. It is a no-op when idle. Stop must not be called from a
// Handler.
func (watcher *Watcher) Stop() {
	watcher.mutex.Lock()
	current := watcher.session
	owner := current != nil
	if owner {
		watcher.session = nil
		watcher.stopping = current
	} else {
		current = watcher.stopping
	}
	watcher.mutex.Unlock()
	if current == nil {
		return
	}
	current.shutdown()
	if !owner {
		return
	}
	watcher.mutex.Lock()
	if watcher.stopping == current {
		watcher.stopping = nil
	}
	watcher.mutex.Unlock()
	watcher.activeWatches.Store(0)
	watcher.logger.Info("watch stopped", map[string]string{"path": current.root})
}

// Close is Stop for io.Closer.
func (watcher *Watcher) Close() error {
	watcher.Stop()
	return nil
}

// Watching reports whether a session is active.
func (watcher *Watcher) Watching() bool {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.session != nil
}

// Done is closed when the current session ends, by Stop or a backend failure.
// When idle it returns a closed channel.
func (watcher *Watcher) Done() <-chan struct{} {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	if watcher.session == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return watcher.session.done
}

// Err reports the failure that ended the last session, if any.
func (watcher *Watcher) Err() error {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.lastErr
}

// Metrics reports current watcher counters.
func (watcher *Watcher) Metrics() Metrics {
	return Metrics{
		Watching:          watcher.Watching(),
		ActiveWatches:     int(watcher.activeWatches.Load()),
		Accepted:          watcher.accepted.Load(),
		DroppedDirectory:  watcher.droppedDirectory.Load(),
		DroppedDebounce:   watcher.droppedDebounce.Load(),
		DroppedTarget:     watcher.droppedTarget.Load(),
		DroppedExtension:  watcher.droppedExtension.Load(),
		IgnoredOperations: watcher.ignoredOps.Load(),
		BackendErrors:     watcher.backendErrors.Load(),
	}
}

// stopSession stops the session owning done, leaving any newer session alone.
func (watcher *Watcher) stopSession(done <-chan struct{}) {
	watcher.mutex.Lock()
	current := watcher.session
	if current == nil || current.done != done {
		watcher.mutex.Unlock()
		return
	}
	watcher.mutex.Unlock()
	watcher.Stop()
}

func (watcher *Watcher) fail(current *session, err error) {
	watcher.mutex.Lock()
	if watcher.session != current {
		watcher.mutex.Unlock()
		return
	}
	watcher.session = nil
	watcher.stopping = current
	watcher.lastErr = err
	watcher.mutex.Unlock()

	watcher.logger.Error("watch failed", map[string]string{
		"path":  current.root,
		"error": err.Error(),
	})
	current.shutdown()
	watcher.mutex.Lock()
	if watcher.stopping == current {
		watcher.stopping = nil
	}
	watcher.mutex.Unlock()
	watcher.activeWatches.Store(0)
}

func (current *session) shutdown() {
	current.stopOnce.Do(func() {
		close(current.stop)
		_ = current.backend.Close()
		current.group.Wait()
		close(current.done)
	})
}

func (current *session) stopping() bool {
	select {
	case <-current.stop:
		return true
	default:
		return false
	}
}

func (watcher *Watcher) forward(current *session) {
	defer current.group.Done()
	backend := current.backend
	for {
		select {
		case event, ok := <-backend.Events:
			if !ok {
				watcher.backendClosed(current)
				return
			}
			select {
			case current.events <- event:
			case <-current.stop:
				return
			}
		case err, ok := <-backend.Errors:
			if !ok {
				watcher.backendClosed(current)
				return
			}
			select {
			case current.errors <- err:
			case <-current.stop:
				return
			}
		case <-current.stop:
			return
		}
	}
}

func (watcher *Watcher) backendClosed(current *session) {
	if current.stopping() {
		return
	}
	select {
	case current.fatal <- ErrBackendClosed:
	default:
	}
}

func (watcher *Watcher) run(current *session) {
	defer current.group.Done()
	for {
		select {
		case event := <-current.events:
			watcher.dispatch(current, event)
		case err := <-current.errors:
			watcher.backendErrors.Add(1)
			watcher.logger.Warn("watcher error", map[string]string{"error": err.Error()})
		case err := <-current.fatal:
			// fail waits for this goroutine, so it has to run elsewhere.
			go watcher.fail(current, err)
			return
		case <-current.stop:
			return
		}
	}
}
