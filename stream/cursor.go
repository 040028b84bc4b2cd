package stream

import (
	"sync"
)

// Cursor tracks the sequence state of one frame stream. The first frame
// may carry any sequence number; each later frame must carry the next one,
// and nothing may follow a final frame.
type Cursor struct {
	mu sync.RWMutex

	started bool
	lastSeq uint64
	lastSum [32]byte
	hasSum  bool
	frames  int
	final   bool
}

// NewCursor creates a cursor for a new stream.
func NewCursor() *Cursor {
	return &Cursor{}
}

// Process checks frame against the stream state and records it.
// Returns a SequenceError if:
//   - The stream already ended with a final frame
//   - Sequence number is a duplicate or goes backwards
//   - Sequence number skips ahead (gap)
func (c *Cursor) Process(frame *Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.final {
		return &SequenceError{Expected: c.lastSeq, Got: frame.Seq, Reason: "frame after final frame"}
	}
	if c.started {
		switch {
		case frame.Seq <= c.lastSeq:
			return &SequenceError{Expected: c.lastSeq + 1, Got: frame.Seq, Reason: "sequence not monotonic"}
		case frame.Seq != c.lastSeq+1:
			return &SequenceError{Expected: c.lastSeq + 1, Got: frame.Seq, Reason: "sequence gap"}
		}
	}

	c.started = true
	c.lastSeq = frame.Seq
	c.frames++
	if frame.Sum != nil {
		c.lastSum = *frame.Sum
		c.hasSum = true
	} else {
		c.hasSum = false
	}
	if frame.Final {
		c.final = true
	}
	return nil
}

// LastSeq returns the sequence number of the last accepted frame.
func (c *Cursor) LastSeq() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSeq
}

// LastSum returns the digest of the last accepted frame, if it had one.
func (c *Cursor) LastSum() ([32]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSum, c.hasSum
}

// Frames returns the number of accepted frames.
func (c *Cursor) Frames() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frames
}

// Final reports whether the stream has ended.
func (c *Cursor) Final() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.final
}

// Reset forgets all state.
func (c *Cursor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	c.lastSeq = 0
	c.lastSum = [32]byte{}
	c.hasSum = false
	c.frames = 0
	c.final = false
}
