package events

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Get once the queue is closed and empty.
var ErrQueueClosed = errors.New("event queue closed")

// Queue is an unbounded FIFO with many producers and one consumer. Put never
// blocks: the ring doubles its capacity when it reaches 70% full.
type Queue struct {
	mu       sync.Mutex
	notify   chan struct{}
	buf      []Event
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Stats
	totalPut    int64
	totalGet    int64
	resizeCount int
}

// NewQueue creates a queue with the given initial capacity.
func NewQueue(initialCapacity int) *Queue {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &Queue{
		notify:   make(chan struct{}, 1),
		buf:      make([]Event, initialCapacity),
		capacity: initialCapacity,
	}
}

// Put appends an event. Returns false if the queue is closed.
func (q *Queue) Put(e Event) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}

	threshold := (q.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.tail] = e
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalPut++
	q.mu.Unlock()

	q.wake()
	return true
}

// Get removes the oldest event, blocking until one is available, the queue
// is closed and drained, or ctx is done.
func (q *Queue) Get(ctx context.Context) (Event, error) {
	for {
		q.mu.Lock()
		if q.count > 0 {
			e := q.popLocked()
			q.mu.Unlock()
			return e, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

// TryGet removes the oldest event without blocking.
func (q *Queue) TryGet() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil, false
	}
	return q.popLocked(), true
}

// Close stops accepting events. Remaining events can still be read.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the current ring capacity.
func (q *Queue) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// Stats returns queue statistics.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Count:       q.count,
		Capacity:    q.capacity,
		TotalPut:    q.totalPut,
		TotalGet:    q.totalGet,
		ResizeCount: q.resizeCount,
	}
}

// QueueStats contains queue statistics.
type QueueStats struct {
	Count       int
	Capacity    int
	TotalPut    int64
	TotalGet    int64
	ResizeCount int
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// popLocked must be called with the lock held and count > 0.
func (q *Queue) popLocked() Event {
	e := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % q.capacity
	q.count--
	q.totalGet++
	return e
}

// grow doubles the ring capacity. Must be called with lock held.
func (q *Queue) grow() {
	newCapacity := q.capacity * 2
	newBuf := make([]Event, newCapacity)

	if q.count > 0 {
		if q.head < q.tail {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			// Wrapped: [head...end) + [0...tail)
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}

	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.capacity = newCapacity
	q.resizeCount++
}
