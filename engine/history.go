package engine

import (
	"math"
	"sync"

	"github.com/ftahirops/xwake/model"
)

// History is a ring buffer of recent readings for charts and the API.
type History struct {
	buf  []model.Reading
	head int
	size int
	cap  int
	mu   sync.RWMutex
}

// NewHistory creates a ring buffer with the given capacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		buf: make([]model.Reading, capacity),
		cap: capacity,
	}
}

// Push adds a reading to the ring buffer.
func (h *History) Push(r model.Reading) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.head] = r
	h.head = (h.head + 1) % h.cap
	if h.size < h.cap {
		h.size++
	}
}

// Len returns the number of readings stored.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Latest returns a copy of the most recent reading.
func (h *History) Latest() *model.Reading {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.size == 0 {
		return nil
	}
	idx := (h.head - 1 + h.cap) % h.cap
	r := h.buf[idx] // copy
	return &r
}

// Get returns a copy of the reading at position i (0 = oldest in buffer).
func (h *History) Get(i int) *model.Reading {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= h.size {
		return nil
	}
	idx := (h.head - h.size + i + h.cap) % h.cap
	r := h.buf[idx] // copy
	return &r
}

// Recent returns up to n readings, oldest first.
func (h *History) Recent(n int) []model.Reading {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > h.size {
		n = h.size
	}
	out := make([]model.Reading, 0, n)
	for i := h.size - n; i < h.size; i++ {
		out = append(out, h.buf[(h.head-h.size+i+h.cap)%h.cap])
	}
	return out
}

// EARSeries returns the EAR of the last n readings, oldest first.
// Ticks without a valid sample are NaN so charts can show the gap.
func (h *History) EARSeries(n int) []float64 {
	recent := h.Recent(n)
	out := make([]float64, len(recent))
	for i, r := range recent {
		out[i] = math.NaN()
		if r.EARValid {
			out[i] = r.EAR
		}
	}
	return out
}
