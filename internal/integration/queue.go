package integration

import (
	"context"
	"sync"
)

// request is one command waiting for a document worker.
type request struct {
	ctx     context.Context
	command string
	docID   string
	done    chan error // buffered, size 1
}

// commandQueue is a thread-safe FIFO of requests for one document.
//
// Exec enqueues from any goroutine while the document's worker dequeues.
// The queue uses a channel for signaling so the worker can wait on it and
// on shutdown in one select.
type commandQueue struct {
	mu       sync.Mutex
	requests []*request
	closed   bool
	signal   chan struct{} // Signals request availability (buffered, size 1)
	stopped  chan struct{} // Closed by the worker when it exits
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		requests: make([]*request, 0, 4),
		signal:   make(chan struct{}, 1),
		stopped:  make(chan struct{}),
	}
}

// Enqueue adds a request to the back of the queue.
// Returns false if the queue is closed.
func (q *commandQueue) Enqueue(r *request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.requests = append(q.requests, r)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front request without blocking.
func (q *commandQueue) TryDequeue() (*request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return nil, false
	}
	r := q.requests[0]
	q.requests[0] = nil
	if len(q.requests) == 1 {
		q.requests = q.requests[:0]
	} else {
		q.requests = q.requests[1:]
	}
	return r, true
}

// Wait returns a channel that signals when requests may be available. It
// is closed by Close.
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Closed reports whether Close has been called.
func (q *commandQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops further enqueues and wakes the worker.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
