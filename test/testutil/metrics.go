package testutil

import (
	"sync"

	"github.com/bganilkumar/ConnectionManager/types"
)

// TestMetricsCollector is a test implementation of types.MetricsCollector
// that tracks method calls for assertion in integration tests.
type TestMetricsCollector struct {
	mu sync.RWMutex

	// Session pool
	AcquireTotal        int64
	AcquireErrors       int64
	AcquireWaits        []float64
	SessionsCreated     int64
	SessionCreateErrors int64
	SessionsIdle        int
	SessionsInUse       int

	// Read operations
	ReadTotal     int64
	ReadErrors    int64
	ReadDurations []float64

	// Write operations
	WriteTotal     map[types.StatementKind]int64
	WriteErrors    map[types.StatementKind]int64
	WriteDurations []float64
	AsyncTimeouts  int64

	// Fault buffer
	FaultBuffered          int64
	FaultReplayed          int64
	FaultDiscarded         int64
	FaultPendingKeys       int
	FaultPendingStatements int

	// Journal
	JournalAppends      int64
	JournalAppendErrors int64
	JournalDiscards     int64
	JournalRecovered    int64
}

// Compile-time assertion that TestMetricsCollector implements types.MetricsCollector.
var _ types.MetricsCollector = (*TestMetricsCollector)(nil)

// NewTestMetricsCollector creates a new test metrics collector.
func NewTestMetricsCollector() *TestMetricsCollector {
	return &TestMetricsCollector{
		WriteTotal:  make(map[types.StatementKind]int64),
		WriteErrors: make(map[types.StatementKind]int64),
	}
}

// ----------------------
// Session Pool
// ----------------------

func (m *TestMetricsCollector) IncAcquireTotal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AcquireTotal++
}

func (m *TestMetricsCollector) IncAcquireError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AcquireErrors++
}

func (m *TestMetricsCollector) ObserveAcquireWait(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AcquireWaits = append(m.AcquireWaits, seconds)
}

func (m *TestMetricsCollector) IncSessionCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsCreated++
}

func (m *TestMetricsCollector) IncSessionCreateError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionCreateErrors++
}

func (m *TestMetricsCollector) SetSessionsIdle(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsIdle = n
}

func (m *TestMetricsCollector) SetSessionsInUse(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsInUse = n
}

// ----------------------
// Read Operations
// ----------------------

func (m *TestMetricsCollector) IncReadTotal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadTotal++
}

func (m *TestMetricsCollector) IncReadError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadErrors++
}

func (m *TestMetricsCollector) ObserveReadDuration(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadDurations = append(m.ReadDurations, seconds)
}

// ----------------------
// Write Operations
// ----------------------

func (m *TestMetricsCollector) IncWriteTotal(kind types.StatementKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteTotal[kind]++
}

func (m *TestMetricsCollector) IncWriteError(kind types.StatementKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteErrors[kind]++
}

func (m *TestMetricsCollector) ObserveWriteDuration(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteDurations = append(m.WriteDurations, seconds)
}

func (m *TestMetricsCollector) IncAsyncTimeout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AsyncTimeouts++
}

// ----------------------
// Fault Buffer
// ----------------------

func (m *TestMetricsCollector) IncFaultBuffered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FaultBuffered++
}

func (m *TestMetricsCollector) IncFaultReplayed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FaultReplayed++
}

func (m *TestMetricsCollector) IncFaultDiscarded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FaultDiscarded++
}

func (m *TestMetricsCollector) SetFaultPendingKeys(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FaultPendingKeys = n
}

func (m *TestMetricsCollector) SetFaultPendingStatements(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FaultPendingStatements = n
}

// ----------------------
// Journal
// ----------------------

func (m *TestMetricsCollector) IncJournalAppend() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JournalAppends++
}

func (m *TestMetricsCollector) IncJournalAppendError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JournalAppendErrors++
}

func (m *TestMetricsCollector) IncJournalDiscard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JournalDiscards++
}

func (m *TestMetricsCollector) AddJournalRecovered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JournalRecovered += int64(n)
}

// ----------------------
// Test Helpers
// ----------------------

// GetAcquireTotal returns the total number of acquisitions.
func (m *TestMetricsCollector) GetAcquireTotal() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.AcquireTotal
}

// GetSessionsCreated returns the number of sessions created by the pool.
func (m *TestMetricsCollector) GetSessionsCreated() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.SessionsCreated
}

// GetWriteTotal returns the write count for a statement kind.
func (m *TestMetricsCollector) GetWriteTotal(kind types.StatementKind) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.WriteTotal[kind]
}

// GetWriteErrors returns the write error count for a statement kind.
func (m *TestMetricsCollector) GetWriteErrors(kind types.StatementKind) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.WriteErrors[kind]
}

// GetReadErrors returns the total read error count.
func (m *TestMetricsCollector) GetReadErrors() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ReadErrors
}

// GetFaultBuffered returns the number of statements recorded for replay.
func (m *TestMetricsCollector) GetFaultBuffered() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.FaultBuffered
}

// GetFaultReplayed returns the number of statements successfully replayed.
func (m *TestMetricsCollector) GetFaultReplayed() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.FaultReplayed
}

// GetAsyncTimeouts returns the number of expired asynchronous waits.
func (m *TestMetricsCollector) GetAsyncTimeouts() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.AsyncTimeouts
}

// GetJournalAppends returns the number of statements mirrored to the journal.
func (m *TestMetricsCollector) GetJournalAppends() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.JournalAppends
}

// GetJournalRecovered returns the number of statements recovered at startup.
func (m *TestMetricsCollector) GetJournalRecovered() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.JournalRecovered
}

// Reset clears all collected metrics.
func (m *TestMetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AcquireTotal = 0
	m.AcquireErrors = 0
	m.AcquireWaits = nil
	m.SessionsCreated = 0
	m.SessionCreateErrors = 0
	m.SessionsIdle = 0
	m.SessionsInUse = 0

	m.ReadTotal = 0
	m.ReadErrors = 0
	m.ReadDurations = nil

	m.WriteTotal = make(map[types.StatementKind]int64)
	m.WriteErrors = make(map[types.StatementKind]int64)
	m.WriteDurations = nil
	m.AsyncTimeouts = 0

	m.FaultBuffered = 0
	m.FaultReplayed = 0
	m.FaultDiscarded = 0
	m.FaultPendingKeys = 0
	m.FaultPendingStatements = 0

	m.JournalAppends = 0
	m.JournalAppendErrors = 0
	m.JournalDiscards = 0
	m.JournalRecovered = 0
}
