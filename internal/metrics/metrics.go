package metrics

import "sync/atomic"

// MetricID indexes one counter slot.
type MetricID int

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLocked
	MetricTwoFactorRequired
	MetricTwoFactorFailure
	MetricTwoFactorSuccess
	MetricBackupCodeUsed
	MetricTwoFactorEnabled
	MetricTwoFactorDisabled
	MetricSessionCreated
	MetricSessionRevoked
	MetricSessionExpired
	MetricSessionRejected
	MetricSessionPurged
	MetricAuditAppended
	MetricStoreErrors

	MetricIDCount
)

// Config controls metric collection. When Enabled is false every
// operation is a no-op.
type Config struct {
	Enabled bool
}

type paddedCounter struct {
	value uint64
	_     [56]byte // pad to a cache line to avoid false sharing
}

// Metrics holds one atomic counter per MetricID.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]paddedCounter
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[MetricID]uint64
}

// New returns a Metrics instance configured by cfg.
func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc atomically increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Get returns the current value of one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot deep-copies every counter.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Counters: make(map[MetricID]uint64, MetricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snap
}
