// Package metrics provides internal metrics utilities for the connection
// manager.
package metrics

import "github.com/bganilkumar/ConnectionManager/types"

// NopMetrics is a no-op metrics collector that discards all metrics.
//
// This is used as the default metrics collector when no collector is configured,
// avoiding nil checks throughout the codebase.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements types.MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNopMetrics creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A collector that discards all metrics
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// ----------------------
// Session Pool
// ----------------------

// IncAcquireTotal discards the metric.
func (m *NopMetrics) IncAcquireTotal() {}

// IncAcquireError discards the metric.
func (m *NopMetrics) IncAcquireError() {}

// ObserveAcquireWait discards the metric.
func (m *NopMetrics) ObserveAcquireWait(_ float64) {}

// IncSessionCreated discards the metric.
func (m *NopMetrics) IncSessionCreated() {}

// IncSessionCreateError discards the metric.
func (m *NopMetrics) IncSessionCreateError() {}

// SetSessionsIdle discards the metric.
func (m *NopMetrics) SetSessionsIdle(_ int) {}

// SetSessionsInUse discards the metric.
func (m *NopMetrics) SetSessionsInUse(_ int) {}

// ----------------------
// Read Operations
// ----------------------

// IncReadTotal discards the metric.
func (m *NopMetrics) IncReadTotal() {}

// IncReadError discards the metric.
func (m *NopMetrics) IncReadError() {}

// ObserveReadDuration discards the metric.
func (m *NopMetrics) ObserveReadDuration(_ float64) {}

// ----------------------
// Write Operations
// ----------------------

// IncWriteTotal discards the metric.
func (m *NopMetrics) IncWriteTotal(_ types.StatementKind) {}

// IncWriteError discards the metric.
func (m *NopMetrics) IncWriteError(_ types.StatementKind) {}

// ObserveWriteDuration discards the metric.
func (m *NopMetrics) ObserveWriteDuration(_ float64) {}

// IncAsyncTimeout discards the metric.
func (m *NopMetrics) IncAsyncTimeout() {}

// ----------------------
// Fault Buffer
// ----------------------

// IncFaultBuffered discards the metric.
func (m *NopMetrics) IncFaultBuffered() {}

// IncFaultReplayed discards the metric.
func (m *NopMetrics) IncFaultReplayed() {}

// IncFaultDiscarded discards the metric.
func (m *NopMetrics) IncFaultDiscarded() {}

// SetFaultPendingKeys discards the metric.
func (m *NopMetrics) SetFaultPendingKeys(_ int) {}

// SetFaultPendingStatements discards the metric.
func (m *NopMetrics) SetFaultPendingStatements(_ int) {}

// ----------------------
// Journal
// ----------------------

// IncJournalAppend discards the metric.
func (m *NopMetrics) IncJournalAppend() {}

// IncJournalAppendError discards the metric.
func (m *NopMetrics) IncJournalAppendError() {}

// IncJournalDiscard discards the metric.
func (m *NopMetrics) IncJournalDiscard() {}

// AddJournalRecovered discards the metric.
func (m *NopMetrics) AddJournalRecovered(_ int) {}
