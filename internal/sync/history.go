package sync

import (
	gosync "sync"
	"time"
)

// historyCapacity bounds the in-memory run log.
const historyCapacity = 100

// HistoryEntry summarizes one completed sync run.
type HistoryEntry struct {
	StartedAt  time.Time
	Duration   time.Duration
	Operations int
	Succeeded  int
	Failed     int
	Skipped    int
	DryRun     bool
	RolledBack bool
	Success    bool
}

// History keeps the most recent sync runs, oldest first. It is safe
// for concurrent use and drops the oldest entry once full.
type History struct {
	mu      gosync.Mutex
	entries []HistoryEntry
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Add(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	if len(h.entries) > historyCapacity {
		h.entries = h.entries[len(h.entries)-historyCapacity:]
	}
}

// Entries returns a copy of the recorded runs, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// LastRun returns the most recent entry, or false when no run has
// been recorded.
func (h *History) LastRun() (HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
