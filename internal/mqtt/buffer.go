package mqtt

// DefaultBufferSize is how many messages are kept while the broker is away.
const DefaultBufferSize = 256

// bufferedMsg is a serialized message waiting for the broker to come back.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the newest capacity messages, oldest first on drain.
// Not safe for concurrent use.
type ringBuffer struct {
	buf     []bufferedMsg
	head    int // next write position
	count   int
	dropped int // overwritten since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	r.buf[r.head] = msg
	r.head = (r.head + 1) % len(r.buf)
	if r.count == len(r.buf) {
		r.dropped++
		return
	}
	r.count++
}

// drainAll empties the buffer and reports how many messages were lost to
// overflow since the previous drain.
func (r *ringBuffer) drainAll() ([]bufferedMsg, int) {
	dropped := r.dropped
	r.dropped = 0
	if r.count == 0 {
		return nil, dropped
	}

	out := make([]bufferedMsg, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := range out {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	r.count = 0
	r.head = 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
