package mqtt

// ringBuffer is a fixed-capacity FIFO holding inbound messages between
// loop ticks. Not safe for concurrent use — caller must synchronize.
type ringBuffer struct {
	buf      []Message
	capacity int
	head     int // next write position
	count    int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		buf:      make([]Message, capacity),
		capacity: capacity,
	}
}

// push appends a message, overwriting the oldest when full. It returns
// true if a message was dropped.
func (r *ringBuffer) push(msg Message) bool {
	dropped := false
	if r.count == r.capacity {
		// Overwrite oldest: head is already pointing at it
		dropped = true
	} else {
		r.count++
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	return dropped
}

// drainAll returns buffered messages oldest-first and empties the buffer.
func (r *ringBuffer) drainAll() []Message {
	if r.count == 0 {
		return nil
	}

	result := make([]Message, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}
