// Package internal provides a lock-free Multi-Producer Single-Consumer
// (MPSC) queue carrying engine log lines.
//
// The queue decouples the embedded engine's logging callbacks from the
// store that processes them: engine-internal threads push lines and return
// immediately, a single consumer goroutine classifies and forwards them.
// Nothing on the consumer side can ever call back into the engine from
// within a logging callback, which is the reentrancy hazard this design
// removes.
//
// Features and Guarantees:
//
//   - Lock-Free: atomic operations for high throughput and low latency even under high contention
//   - Unbounded Size: the queue can grow to any size as needed, limited only by available memory
//   - Small Footprint: minimal memory overhead per item (two pointers per item)
//   - Thread-Safe writes: Allows any number of goroutines to safely Push() concurrently
//   - Single Consumer: Designed for a single goroutine to consume lines (via the Recv() channel).
//   - No Strict FIFO Guarantee: Under concurrent Push() operations, the exact ordering of lines
//     is determined by which producer completes its operation first, not by which producer
//     started first.
package internal

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Severity classifies a log line by the sink method it arrived through.
type Severity uint8

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Line is one log line emitted by the embedded engine.
type Line struct {
	Level Severity
	Text  string
}

// lineNode represents a single element in the queue
type lineNode struct {
	value *Line
	next  atomic.Pointer[lineNode]
}

// LineQueue is a lock-free multi-producer single-consumer queue of log
// lines. Implementation uses a linked list of nodes with atomic operations
// for concurrent push operations without locks
type LineQueue struct {
	head     atomic.Pointer[lineNode]
	tail     atomic.Pointer[lineNode]
	out      chan *Line
	consumer sync.WaitGroup
	closed   atomic.Bool // atomic flag

	// Condition variable for efficient waiting
	mu   sync.Mutex
	cond *sync.Cond
}

// NewLineQueue creates a new lock-free multi-producer single-consumer queue
func NewLineQueue() *LineQueue {
	// Create a sentinel node (dummy node at the beginning)
	sentinel := &lineNode{}

	q := &LineQueue{
		out: make(chan *Line),
	}

	// Initialize condition variable
	q.cond = sync.NewCond(&q.mu)

	// Set the initial head and tail to the sentinel node
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// Push adds a line to the queue.
// Returns true if the line was added, or false if the queue is closed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *LineQueue) Push(value *Line) bool {

	if value == nil {
		return false
	}

	if q.closed.Load() {
		return false
	}

	newNode := &lineNode{value: value}

	var tailNode *lineNode
	var backoff uint8 = 0

	for {
		tailNode = q.tail.Load()

		// try to atomically append our node to the current tail
		next := tailNode.next.Load()
		if next == nil {
			// the tail has no next node yet, try to append our node
			if tailNode.next.CompareAndSwap(nil, newNode) {
				/*
				 Successfully appended, now try to update tail
				 Note: CAS may fail if another producer helps update tail,
				 but that's okay - tail will still be updated eventually
				*/
				q.tail.CompareAndSwap(tailNode, newNode)

				// Signal the consumer that new data is available
				q.cond.Signal()

				return true
			}
		} else {
			// help update the tail pointer if another producer has already appended a node but hasn't updated the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		/*
		 Implement exponential backoff strategy to handle contention
		  - At low contention (<10 retries): Use CPU spinning to avoid thread scheduling overhead
		  - At higher contention: Yield the processor to allow other goroutines to make progress
		  - Backoff increases exponentially with each retry, reducing the "thundering herd" problem where all goroutines retry simultaneously after failure
		*/

		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// consume continuously sends lines from the linked list to the output channel and frees memory
func (q *LineQueue) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	for {
		// Process all available lines in the queue
		hasItems := false

		// Try to process lines
		for {
			head := q.head.Load()
			next := head.next.Load()

			if next == nil {
				break // No more lines available
			}

			hasItems = true

			// Capture value before updating pointers
			value := next.value

			// move head pointer (free up memory)
			q.head.Store(next)

			// Send the value to the consumer
			q.out <- value

			// help go gc - safe to clear after sending
			next.value = nil
		}

		// Exit if closed and no more lines
		if !hasItems && q.closed.Load() {
			return
		}

		// If no lines were processed, wait for signal
		if !hasItems {
			q.mu.Lock()
			// Double-check condition after acquiring lock
			head := q.head.Load()
			if head.next.Load() == nil && !q.closed.Load() {
				// Wait for signal (releases lock while waiting)
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// Recv returns a receive-only channel for consuming from the queue.
// This allows the queue to be used with the '<-' operator in select statements.
func (q *LineQueue) Recv() <-chan *Line {
	return q.out
}

// Close closes the queue, preventing further writes.
// Any lines already in the queue will still be delivered to the consumer.
func (q *LineQueue) Close() {
	q.closed.Store(true)

	// Wake up the consumer if it's waiting
	q.cond.Signal()
}

// IsClosed returns true if the queue is closed.
func (q *LineQueue) IsClosed() bool {
	return q.closed.Load()
}

// Len returns an approximate count of the number of lines in the queue.
// This is O(n) and should only be used for debugging.
func (q *LineQueue) Len() int {
	count := 0
	current := q.head.Load()

	for {
		next := current.next.Load()
		if next == nil {
			break
		}
		count++
		current = next
	}

	return count
}
