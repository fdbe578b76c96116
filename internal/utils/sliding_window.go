package utils

import (
	"sync"
	"time"
)

// SlidingWindow counts hits per key over a trailing window.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   map[string][]time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window, hits: make(map[string][]time.Time)}
}

// Add records a hit for key and returns the hits still inside the window.
func (w *SlidingWindow) Add(key string, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	hits := append(w.prune(key, now), now)
	w.hits[key] = hits
	return len(hits)
}

func (w *SlidingWindow) Count(key string, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.prune(key, now))
}

// prune drops expired hits and forgets keys left empty. Callers hold mu.
func (w *SlidingWindow) prune(key string, now time.Time) []time.Time {
	hits := w.hits[key]
	cutoff := now.Add(-w.window)
	idx := 0
	for _, hit := range hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	hits = hits[idx:]
	if len(hits) == 0 {
		delete(w.hits, key)
		return nil
	}
	w.hits[key] = hits
	return hits
}
