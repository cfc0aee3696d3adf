package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/kafka"
)

// Sink receives flushed batches. *kafka.Producer and *Aggregator both
// satisfy it.
type Sink interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type CollectorOptions struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// Collector buffers events and flushes them to a Sink when a batch fills up
// or the flush interval passes. Tracking never blocks: when the buffer is
// full the event is dropped.
type Collector struct {
	sink          Sink
	eventCh       chan kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewCollector(sink Sink, opts CollectorOptions) *Collector {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 10000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 2 * time.Second
	}
	return &Collector{
		sink:          sink,
		eventCh:       make(chan kafka.Event, opts.BufferSize),
		batchSize:     opts.BatchSize,
		flushInterval: opts.FlushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start runs the flush loop in the background until ctx is cancelled or
// Close is called. Pending events are flushed on the way out.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := c.sink.PublishBatch(ctx, batch); err != nil {
			c.failed.Add(int64(len(batch)))
			c.logger.Error("failed to publish analytics batch", "count", len(batch), "error", err)
		}
		batch = make([]kafka.Event, 0, c.batchSize)
	}
	finalFlush := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		flush(flushCtx)
	}

	for {
		select {
		case ev, ok := <-c.eventCh:
			if !ok {
				finalFlush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= c.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
		drain:
			for {
				select {
				case ev, ok := <-c.eventCh:
					if !ok {
						break drain
					}
					batch = append(batch, ev)
				default:
					break drain
				}
			}
			finalFlush()
			return
		}
	}
}

func (c *Collector) TrackSearch(e SearchEvent) {
	if e.Type == "" {
		e.Type = searchType(e)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	c.track(kafka.Event{Key: "search", Value: e})
}

func (c *Collector) TrackView(e ViewEvent) {
	e.Type = EventView
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	c.track(kafka.Event{Key: e.Code, Value: e})
}

func (c *Collector) track(ev kafka.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- ev:
	default:
		if c.dropped.Add(1)%1000 == 1 {
			c.logger.Warn("analytics event dropped (buffer full)", "dropped_total", c.dropped.Load())
		}
	}
}

// Close stops accepting events and waits for the final flush. Start must
// have been called.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

// Dropped and Failed count events lost to a full buffer or a failed publish.
func (c *Collector) Dropped() int64 { return c.dropped.Load() }
func (c *Collector) Failed() int64  { return c.failed.Load() }
