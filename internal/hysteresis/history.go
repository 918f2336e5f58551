package hysteresis

// History is a fixed-size ring of the last commanded angle deltas.
type History struct {
	buf  []float64
	head int // index of the next write, i.e. the oldest entry
}

func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{buf: make([]float64, size)}
}

func (h *History) Len() int { return len(h.buf) }

// Push records delta as the newest entry, dropping the oldest.
func (h *History) Push(delta float64) {
	h.buf[h.head] = delta
	h.head = (h.head + 1) % len(h.buf)
}

// Newest returns a copy ordered most recent first.
func (h *History) Newest() []float64 {
	n := len(h.buf)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = h.buf[(h.head-1-i+n)%n]
	}
	return out
}

// Reset zeroes every entry and keeps the size.
func (h *History) Reset() {
	for i := range h.buf {
		h.buf[i] = 0
	}
	h.head = 0
}
