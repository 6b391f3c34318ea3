package cache

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is safe for concurrent use and intended as the default when
// no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) RecordHit()                             {}
func (NoopMetrics) RecordMiss()                            {}
func (NoopMetrics) RecordEviction(weight int64)            {}
func (NoopMetrics) RecordDrop()                            {}
func (NoopMetrics) RecordDrain(events int)                 {}
func (NoopMetrics) RecordSize(entries int, weighted int64) {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}
