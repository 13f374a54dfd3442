package buffers

import "sync"

// DefaultRingCapacity is the fixed capacity of a session's output ring
// buffer: 2 MiB.
const DefaultRingCapacity = 2 * 1024 * 1024

// OutputRingBuffer is a fixed-capacity circular byte buffer. Writes beyond
// capacity overwrite the oldest bytes. Safe for one writer and many readers
// under its own mutex.
type OutputRingBuffer struct {
	mu          sync.Mutex
	data        []byte
	writePos    int
	totalWritten uint64
}

// NewOutputRingBuffer allocates a ring buffer of the given capacity.
func NewOutputRingBuffer(capacity int) *OutputRingBuffer {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &OutputRingBuffer{data: make([]byte, capacity)}
}

// Write appends bytes to the ring, wrapping and overwriting the oldest data
// as needed. Wrap-around uses bulk copies, never byte-by-byte.
func (r *OutputRingBuffer) Write(b []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeLocked(b)
}

func (r *OutputRingBuffer) writeLocked(b []byte) {
	cap := len(r.data)
	if cap == 0 {
		return
	}
	if len(b) >= cap {
		// only the trailing `cap` bytes can possibly survive; write them as
		// a fresh buffer starting at position 0.
		copy(r.data, b[len(b)-cap:])
		r.writePos = 0
		r.totalWritten += uint64(len(b))
		return
	}

	firstChunk := cap - r.writePos
	if firstChunk > len(b) {
		firstChunk = len(b)
	}
	copy(r.data[r.writePos:], b[:firstChunk])
	remaining := b[firstChunk:]
	if len(remaining) > 0 {
		copy(r.data, remaining)
	}
	r.writePos = (r.writePos + len(b)) % cap
	r.totalWritten += uint64(len(b))
}

// ReadLast returns the most recently written min(limit, available) bytes and
// the monotonic total-written counter, so callers can detect loss.
func (r *OutputRingBuffer) ReadLast(limit int) ([]byte, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cap := len(r.data)
	available := int(r.totalWritten)
	if available > cap {
		available = cap
	}
	n := limit
	if n > available {
		n = available
	}
	if n <= 0 {
		return nil, r.totalWritten
	}

	start := (r.writePos - n + cap) % cap
	out := make([]byte, n)
	if start+n <= cap {
		copy(out, r.data[start:start+n])
	} else {
		firstLen := cap - start
		copy(out, r.data[start:])
		copy(out[firstLen:], r.data[:n-firstLen])
	}
	return out, r.totalWritten
}

// TotalWritten returns the monotonic count of bytes ever written.
func (r *OutputRingBuffer) TotalWritten() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalWritten
}
