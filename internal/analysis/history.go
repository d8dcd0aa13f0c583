package analysis

import (
	"sync"
	"time"

	"drc_online/internal/models"
)

// DefaultHistoryPoints keeps five minutes of sweeps at a one second interval.
const DefaultHistoryPoints = 300

// History is the bounded rolling buffer of per-sweep summaries used for
// charting and period analysis. One writer (the orchestrator's poll loop)
// appends; readers take immutable snapshots. Oldest entries are evicted
// first once capacity is reached.
type History struct {
	mu       sync.RWMutex
	points   []models.HistoryPoint
	capacity int
}

// NewHistory returns an empty history. Non-positive capacity falls back to
// DefaultHistoryPoints.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryPoints
	}
	return &History{
		points:   make([]models.HistoryPoint, 0, capacity),
		capacity: capacity,
	}
}

// Push appends the summary of one sweep, evicting the oldest entry when the
// buffer is full. Timestamps are expected non-decreasing; the caller is the
// single writer.
func (h *History) Push(ts time.Time, s models.SweepSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := models.HistoryPoint{
		Timestamp: ts,
		S11AvgDB:  s.S11AvgDB,
		S11MaxDB:  s.S11MaxDB,
		S11MinDB:  s.S11MinDB,
		S21AvgDB:  s.S21AvgDB,
		S21MaxDB:  s.S21MaxDB,
		S21MinDB:  s.S21MinDB,
	}
	if len(h.points) >= h.capacity {
		// shift instead of reallocating; capacity is small and fixed
		copy(h.points, h.points[1:])
		h.points[len(h.points)-1] = p
		return
	}
	h.points = append(h.points, p)
}

// Snapshot returns a copy of the buffer, oldest first, with SecondsAgo
// precomputed against now. The copy is never mutated by later pushes, so
// analysis may run concurrently with the poll loop.
func (h *History) Snapshot(now time.Time) []models.HistoryPoint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.HistoryPoint, len(h.points))
	copy(out, h.points)
	for i := range out {
		out[i].SecondsAgo = now.Sub(out[i].Timestamp).Seconds()
	}
	return out
}

// Len reports the current number of buffered points.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.points)
}

// Capacity reports the configured bound.
func (h *History) Capacity() int { return h.capacity }
