// Package metrics provides real-time aggregation of operation latency
// and outcome measurements under bounded memory.
//
// # Records
//
// A [Record] is an immutable snapshot of one completed execution:
// timing, success or failure, error classification, and optional
// caller metadata. Records are produced by the instrument package and
// routed through a [Registry].
//
// # Aggregators
//
// The per-operation [Aggregator] maintains exact lifetime counts, sum,
// min and max, plus two bounded percentile estimators: a FIFO window of
// the most recent samples (p95, nearest-rank) and an HDR histogram for
// lifetime P50/P90/P99. Window eviction never affects the exact fields.
//
//	reg := metrics.NewRegistry(0, 0) // package defaults
//	reg.Record(metrics.NewRecord("fetch_page", "tools/call", "cli", start, end, err))
//	stats := reg.SnapshotAll()["fetch_page"]
//
// # Recent activity
//
// The registry also keeps a fixed-capacity buffer of the most recent
// records across all operations for global inspection, independent of
// the per-operation windows. [Registry.Recent] returns them newest
// first.
//
// # Thread safety
//
// Registry and Aggregator are safe for concurrent use. Each
// aggregator's fields are updated atomically as a unit under its own
// mutex, so snapshots never expose a field combination that could not
// have existed.
package metrics
