package event

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"kratio/internal/logging"
)

const (
	defaultSubscriberBufferSize = 128
	defaultDropWarningThreshold = 0.01
	defaultDropWarningInterval  = 30 * time.Second
	defaultBusName              = "event_bus"
)

// Recorder receives bus counters; *metrics.Registry satisfies it.
type Recorder interface {
	IncEventPublished(bus string)
	IncEventDropped(bus string)
	SetSubscribers(bus string, count int)
}

type BusOptions struct {
	Name                 string
	SubscriberBufferSize int
	// MaxSubscribers caps live subscriptions; extra subscribers get a
	// closed channel. Zero means no cap.
	MaxSubscribers       int
	DropWarningThreshold float64
	DropWarningInterval  time.Duration
	HistorySize          int
	Recorder             Recorder
	Logger               *logging.Logger
}

// Bus fans published values out to subscribers without blocking the
// publisher. A full subscriber misses the value.
type Bus[T any] struct {
	options BusOptions

	mu      sync.Mutex
	subs    map[uint64]chan T
	lastID  uint64
	closed  bool
	history *ring[T]

	published atomic.Int64
	dropped   atomic.Int64
	warnedAt  atomic.Int64
}

// NewBus returns an open bus that closes itself when ctx ends.
func NewBus[T any](ctx context.Context, opts BusOptions) *Bus[T] {
	if opts.Name == "" {
		opts.Name = defaultBusName
	}
	if opts.SubscriberBufferSize <= 0 {
		opts.SubscriberBufferSize = defaultSubscriberBufferSize
	}
	if opts.DropWarningThreshold <= 0 {
		opts.DropWarningThreshold = defaultDropWarningThreshold
	}
	if opts.DropWarningInterval <= 0 {
		opts.DropWarningInterval = defaultDropWarningInterval
	}
	bus := &Bus[T]{
		options: opts,
		subs:    make(map[uint64]chan T),
		history: newRing[T](opts.HistorySize),
	}
	if ctx != nil && ctx.Done() != nil {
		context.AfterFunc(ctx, bus.Close)
	}
	return bus
}

// Subscribe returns a channel of future values and a cancel func that closes it.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	if b == nil {
		return closedChannel[T](), func() {}
	}

	b.mu.Lock()
	if b.closed || (b.options.MaxSubscribers > 0 && len(b.subs) >= b.options.MaxSubscribers) {
		b.mu.Unlock()
		return closedChannel[T](), func() {}
	}
	b.lastID++
	id := b.lastID
	ch := make(chan T, b.options.SubscriberBufferSize)
	b.subs[id] = ch
	count := len(b.subs)
	b.mu.Unlock()

	b.reportSubscribers(count)
	var once sync.Once
	return ch, func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

// Publish records value in the history and offers it to every subscriber.
func (b *Bus[T]) Publish(value T) {
	if b == nil {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.history.push(value)
	b.published.Add(1)
	b.record(Recorder.IncEventPublished)
	// Sends stay under the lock so unsubscribe cannot close a channel
	// mid-send.
	for _, ch := range b.subs {
		select {
		case ch <- value:
		default:
			b.dropped.Add(1)
			b.record(Recorder.IncEventDropped)
		}
	}
	b.mu.Unlock()

	b.warnOnDrops()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus[T]) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.mu.Unlock()
	b.reportSubscribers(0)
}

// DumpHistory returns a copy of the stored history, oldest first.
func (b *Bus[T]) DumpHistory() []T {
	return b.ReplayLast(0)
}

// ReplayLast returns up to count of the most recent values, oldest first.
func (b *Bus[T]) ReplayLast(count int) []T {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.last(count)
}

func (b *Bus[T]) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus[T]) unsubscribe(id uint64) {
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(ch)
	}
	count := len(b.subs)
	b.mu.Unlock()
	if ok {
		b.reportSubscribers(count)
	}
}

func (b *Bus[T]) record(inc func(Recorder, string)) {
	if b.options.Recorder != nil {
		inc(b.options.Recorder, b.options.Name)
	}
}

func (b *Bus[T]) reportSubscribers(count int) {
	if b.options.Recorder != nil {
		b.options.Recorder.SetSubscribers(b.options.Name, count)
	}
}

// warnOnDrops logs at most once per DropWarningInterval while the share of
// dropped deliveries stays above DropWarningThreshold.
func (b *Bus[T]) warnOnDrops() {
	dropped := b.dropped.Load()
	if dropped == 0 {
		return
	}
	published := b.published.Load()
	rate := float64(dropped) / float64(published)
	if rate < b.options.DropWarningThreshold {
		return
	}
	now := time.Now().UnixNano()
	previous := b.warnedAt.Load()
	if previous != 0 && time.Duration(now-previous) < b.options.DropWarningInterval {
		return
	}
	if !b.warnedAt.CompareAndSwap(previous, now) {
		return
	}
	b.options.Logger.Warn("event bus dropping events", map[string]string{
		"bus":       b.options.Name,
		"rate":      strconv.FormatFloat(rate*100, 'f', 2, 64),
		"dropped":   strconv.FormatInt(dropped, 10),
		"published": strconv.FormatInt(published, 10),
	})
}

func closedChannel[T any]() chan T {
	ch := make(chan T)
	close(ch)
	return ch
}
