package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/kafka"
)

// Publisher is the subset of kafka.Producer the collector needs.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers injection events and flushes them to Kafka when the
// batch is full or the flush interval elapses. Track never blocks and is
// safe to call concurrently with Close.
type Collector struct {
	publisher     Publisher
	eventCh       chan InjectionEvent
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}

	// mu guards eventCh against a send racing its close.
	mu      sync.RWMutex
	closed  bool
	started bool

	dropped atomic.Int64
	onDrop  func(reason string)
}

// Drop reasons passed to the OnDrop hook.
const (
	DropBufferFull = "buffer_full"
	DropClosed     = "closed"
)

// NewCollector creates a Collector with room for bufferSize pending events.
func NewCollector(publisher Publisher, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan InjectionEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the flush loop. It returns immediately; the loop exits
// when ctx is cancelled or Close is called, flushing what is buffered.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(context.Background(), batch)
					return
				}
				batch = append(batch, kafka.Event{Key: event.Mode, Value: event})
				if len(batch) >= c.batchSize {
					batch = c.flush(ctx, batch)
				}
			case <-ticker.C:
				batch = c.flush(ctx, batch)
			case <-ctx.Done():
				batch = c.drain(batch)
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.flush(flushCtx, batch)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// OnDrop registers fn to be called with the reason whenever an event is
// discarded. It must be set before the collector is shared.
func (c *Collector) OnDrop(fn func(reason string)) {
	c.onDrop = fn
}

// Dropped reports how many events have been discarded so far.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Track queues an event. Events are dropped when the buffer is full or
// the collector has been closed.
func (c *Collector) Track(event InjectionEvent) {
	if event.Type == "" {
		event.Type = EventInjection
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.drop(DropClosed)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.drop(DropBufferFull)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

func (c *Collector) drop(reason string) {
	c.dropped.Add(1)
	if c.onDrop != nil {
		c.onDrop(reason)
	}
}

// Close stops accepting events and waits for the final flush. Later
// calls to Track are counted as drops.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
		if !c.started {
			close(c.done)
		}
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) drain(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, kafka.Event{Key: event.Mode, Value: event})
		default:
			return batch
		}
	}
}

// flush publishes batch and returns a fresh buffer. Failed batches
// are dropped; analytics are best effort.
func (c *Collector) flush(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 {
		return batch
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("analytics flush failed", "batch_size", len(batch), "error", err)
	} else {
		c.logger.Debug("analytics batch flushed", "events", len(batch))
	}
	return make([]kafka.Event, 0, c.batchSize)
}
