package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"simtrack/pkg/model"
)

// Analyzer consumes one sample pair. Errors are logged and do not stop draining.
type Analyzer[T model.Sample] func(ctx context.Context, pair model.Pair[T]) error

// Differ pairs each incoming sample with its predecessor and hands the pairs
// to a single consumer in arrival order. The FIFO is unbounded.
type Differ[T model.Sample] struct {
	name     string
	analyzer Analyzer[T]

	mu      sync.Mutex
	current T
	seen    bool
	pending []model.Pair[T]
	notify  chan struct{}
	running bool
}

// New creates a Differ for one sample category.
func New[T model.Sample](name string, analyzer Analyzer[T]) *Differ[T] {
	return &Differ[T]{
		name:     name,
		analyzer: analyzer,
		pending:  make([]model.Pair[T], 0, 16),
		notify:   make(chan struct{}, 1),
	}
}

// Name returns the category name used in logs.
func (d *Differ[T]) Name() string {
	return d.name
}

// Enqueue pairs s with the previously enqueued sample and appends the pair.
// The first sample is paired with itself so diffs report no change.
func (d *Differ[T]) Enqueue(s T) {
	d.mu.Lock()
	old := d.current
	if !d.seen {
		old = s
		d.seen = true
	}
	d.current = s
	d.pending = append(d.pending, model.Pair[T]{Old: old, New: s})
	n := len(d.pending)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}

	if n > 0 && n%100 == 0 {
		slog.Warn("Queue: consumer falling behind", "queue", d.name, "length", n)
	}
}

// Len is the number of pairs waiting to be analyzed.
func (d *Differ[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Current returns the most recently enqueued sample.
func (d *Differ[T]) Current() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current, d.seen
}

// Reset forgets the current sample so the next one pairs with itself.
// Pending pairs are kept.
func (d *Differ[T]) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero T
	d.current = zero
	d.seen = false
}

func (d *Differ[T]) pop() (model.Pair[T], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return model.Pair[T]{}, false
	}
	p := d.pending[0]
	var zero model.Pair[T]
	d.pending[0] = zero
	d.pending = d.pending[1:]
	if len(d.pending) == 0 {
		// Release the backing array once drained.
		d.pending = make([]model.Pair[T], 0, 16)
	}
	return p, true
}

// Drain analyzes queued pairs until the queue is empty or ctx is done.
// Cancellation is only checked between pairs. Returns the number processed.
func (d *Differ[T]) Drain(ctx context.Context) int {
	count := 0
	for {
		if ctx.Err() != nil {
			return count
		}
		p, ok := d.pop()
		if !ok {
			return count
		}
		d.process(ctx, p)
		count++
	}
}

func (d *Differ[T]) process(ctx context.Context, p model.Pair[T]) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Queue: analyzer panicked", "queue", d.name, "panic", fmt.Sprint(r))
		}
	}()
	// Analysis of a dequeued pair always runs to completion.
	if err := d.analyzer(context.WithoutCancel(ctx), p); err != nil {
		slog.Error("Queue: analyzer failed", "queue", d.name, "error", err)
	}
}

// Run is the single consumer loop. It returns when ctx is cancelled.
func (d *Differ[T]) Run(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		slog.Warn("Queue: consumer already running", "queue", d.name)
		return
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	slog.Debug("Queue: consumer started", "queue", d.name)
	for {
		d.Drain(ctx)
		select {
		case <-ctx.Done():
			slog.Debug("Queue: consumer stopped", "queue", d.name, "pending", d.Len())
			return
		case <-d.notify:
		}
	}
}
