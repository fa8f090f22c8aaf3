package metrics

import "sync"

// DefaultRecentCapacity bounds the registry's global recent buffer.
const DefaultRecentCapacity = 1000

// Registry owns the per-operation aggregators for one instrumentation
// scope plus a bounded buffer of the most recent records across all
// operations. Aggregators are created lazily on first observation of a
// name and live until Reset.
type Registry struct {
	mu         sync.RWMutex
	windowSize int
	recentCap  int

	aggregators map[string]*Aggregator

	// Recent records as a ring: recent[recentNext] is the oldest slot
	// once the ring has wrapped.
	recent     []Record
	recentNext int
}

// NewRegistry creates a Registry. windowSize bounds each operation's
// percentile window and recentCapacity bounds the global recent buffer;
// zero or negative values select the package defaults.
func NewRegistry(windowSize, recentCapacity int) *Registry {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if recentCapacity <= 0 {
		recentCapacity = DefaultRecentCapacity
	}
	return &Registry{
		windowSize:  windowSize,
		recentCap:   recentCapacity,
		aggregators: make(map[string]*Aggregator),
		recent:      make([]Record, 0, recentCapacity),
	}
}

// Record routes rec to its operation's aggregator, creating the
// aggregator on first sight, and appends rec to the recent buffer with
// FIFO eviction at capacity.
func (r *Registry) Record(rec Record) {
	agg := r.aggregator(rec.Operation)
	agg.add(rec.DurationMS, rec.Success, rec.ErrorType)

	r.mu.Lock()
	if len(r.recent) < r.recentCap {
		r.recent = append(r.recent, rec)
	} else {
		r.recent[r.recentNext] = rec
		r.recentNext = (r.recentNext + 1) % r.recentCap
	}
	r.mu.Unlock()
}

func (r *Registry) aggregator(operation string) *Aggregator {
	r.mu.RLock()
	agg, ok := r.aggregators[operation]
	r.mu.RUnlock()
	if ok {
		return agg
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if agg, ok = r.aggregators[operation]; ok {
		return agg
	}
	agg = newAggregator(operation, r.windowSize)
	r.aggregators[operation] = agg
	return agg
}

// SnapshotAll returns one stats snapshot per operation observed since
// the last reset. Each snapshot is internally consistent; the map as a
// whole is not a cross-operation atomic view.
func (r *Registry) SnapshotAll() map[string]OperationStats {
	r.mu.RLock()
	aggs := make([]*Aggregator, 0, len(r.aggregators))
	for _, agg := range r.aggregators {
		aggs = append(aggs, agg)
	}
	r.mu.RUnlock()

	out := make(map[string]OperationStats, len(aggs))
	for _, agg := range aggs {
		stats := agg.Snapshot()
		out[stats.Operation] = stats
	}
	return out
}

// Recent returns up to limit of the most recently recorded records,
// newest first. A non-positive limit returns everything buffered.
func (r *Registry) Recent(limit int) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.recent)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Record, 0, limit)
	// Walk backwards from the newest slot.
	idx := r.recentNext - 1
	if len(r.recent) < r.recentCap {
		idx = len(r.recent) - 1
	}
	for i := 0; i < limit; i++ {
		if idx < 0 {
			idx = n - 1
		}
		out = append(out, r.recent[idx])
		idx--
	}
	return out
}

// Operations returns the number of distinct operations observed.
func (r *Registry) Operations() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.aggregators)
}

// RecentLen returns the number of buffered recent records.
func (r *Registry) RecentLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.recent)
}

// Reset discards all aggregators and the recent buffer. Observers never
// see a partially cleared registry: both are swapped under one write
// lock.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aggregators = make(map[string]*Aggregator)
	r.recent = make([]Record, 0, r.recentCap)
	r.recentNext = 0
}
