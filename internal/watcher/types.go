package watcher

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"kratio/internal/logging"
	"kratio/internal/textsource"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind classifies an fsnotify event after rename pairing.
type ChangeKind int

const (
	ChangeIgnored ChangeKind = iota
	ChangeModified
	ChangeCreated
	ChangeMoved
)

func (kind ChangeKind) String() string {
	switch kind {
	case ChangeModified:
		return "modified"
	case ChangeCreated:
		return "created"
	case ChangeMoved:
		return "moved"
	default:
		return "ignored"
	}
}

// ChangeEvent is one classified filesystem event. For moves, Path is the
// destination.
type ChangeEvent struct {
	Path string
	Kind ChangeKind
	Time time.Time
}

// Handler receives the path of every accepted change.
type Handler interface {
	HandleChange(path string)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(path string)

func (fn HandlerFunc) HandleChange(path string) {
	fn(path)
}

// PathNotFoundError is returned by Start when the watched path does not exist.
type PathNotFoundError struct {
	Path string
}

func (err *PathNotFoundError) Error() string {
	return fmt.Sprintf("path not found: %s", err.Path)
}

// Options controls watcher behavior.
type Options struct {
	Logger *logging.Logger
	// Extensions restricts accepted paths; nil uses textsource.DefaultExtensions.
	Extensions textsource.ExtensionSet
	Debounce   time.Duration
	// RenameWindow bounds how long after a Rename a Create is treated as its
	// destination.
	RenameWindow time.Duration
	Now          func() time.Time
}

// Metrics is a point-in-time snapshot of watcher counters.
type Metrics struct {
	Watching          bool
	ActiveWatches     int
	Accepted          uint64
	DroppedDirectory  uint64
	DroppedDebounce   uint64
	DroppedTarget     uint64
	DroppedExtension  uint64
	IgnoredOperations uint64
	BackendErrors     uint64
}

// Watcher is the fsnotify-backed change watcher.
type Watcher struct {
	mutex   sync.Mutex
	session *session
	lastErr error

	logger       *logging.Logger
	extensions   textsource.ExtensionSet
	debounce     time.Duration
	renameWindow time.Duration
	now          func() time.Time

	// stopping is a detached session whose shutdown is still in progress.
	stopping *session

	// lastProcessed is only touched by the dispatch goroutine of the current session.
	lastProcessed time.Time

	accepted         atomic.Uint64
	droppedDirectory atomic.Uint64
	droppedDebounce  atomic.Uint64
	droppedTarget    atomic.Uint64
	droppedExtension atomic.Uint64
	ignoredOps       atomic.Uint64
	backendErrors    atomic.Uint64
	activeWatches    atomic.Int64
}

type session struct {
	backend   *fsnotify.Watcher
	handler   Handler
	root      string
	target    string
	recursive bool

	events chan fsnotify.Event
	errors chan error
	fatal  chan error
	stop   chan struct{}
	done   chan struct{}

	stopOnce sync.Once
	group    sync.WaitGroup

	renamePending bool
	renamedAt     time.Time
}
