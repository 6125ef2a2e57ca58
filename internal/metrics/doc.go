// Package metrics provides lock-free counters for adminauth
// observability.
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically via [sync/atomic.AddUint64]; the write path is
// allocation-free. Export (Prometheus, OTel) lives in metrics/export/
// and reads Snapshot values.
package metrics
