package console

import (
	"sync"
	"time"
)

// Entry is one executed console command.
type Entry struct {
	Seq     int
	Input   string
	Result  string
	Err     error
	Took    time.Duration
	Created time.Time
}

// History keeps the most recent entries up to a limit; the oldest is evicted
// first. A limit of zero or less keeps everything.
type History struct {
	mu      sync.Mutex
	limit   int
	seq     int
	entries []Entry
}

func NewHistory(limit int) *History {
	return &History{limit: limit}
}

func (h *History) SetLimit(limit int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.limit = limit
	h.trim()
}

// Add records an entry and returns it with its sequence number filled in.
func (h *History) Add(input, result string, err error, took time.Duration) Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	e := Entry{Seq: h.seq, Input: input, Result: result, Err: err, Took: took, Created: time.Now()}
	h.entries = append(h.entries, e)
	h.trim()
	return e
}

func (h *History) trim() {
	if h.limit > 0 && len(h.entries) > h.limit {
		// evict oldest
		h.entries = append([]Entry(nil), h.entries[len(h.entries)-h.limit:]...)
	}
}

// Entries returns the retained entries, newest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	for i, e := range h.entries {
		out[len(out)-1-i] = e
	}
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
