package workload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	connmgr "github.com/bganilkumar/ConnectionManager"
	"github.com/bganilkumar/ConnectionManager/types"
)

// WriteTracker tracks the device serials the workload has successfully
// written, for end-of-run verification.
//
// Only acknowledged writes are tracked: a write that failed transiently is
// buffered by the manager and lands with a later write for the same
// serial, so the serial shows up once that later write succeeds.
type WriteTracker struct {
	mu     sync.RWMutex
	writes map[string]int64 // serial -> timestamp (unix nanos)
}

// NewWriteTracker creates a new write tracker.
func NewWriteTracker() *WriteTracker {
	return &WriteTracker{
		writes: make(map[string]int64),
	}
}

// TrackWrite records a successful write for a serial.
func (t *WriteTracker) TrackWrite(serial string, timestampUnixNano int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes[serial] = timestampUnixNano
}

// TrackDelete removes a serial after a successful reset. The row is gone,
// so verification must not expect it.
func (t *WriteTracker) TrackDelete(serial string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.writes, serial)
}

// Count returns the number of currently tracked serials.
func (t *WriteTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.writes)
}

// VerifyConsistency checks that every tracked serial exists in the
// database.
//
// Existence is the invariant, not cell contents: statements replayed in
// one batch share a write timestamp, so the surviving value of a cell
// written twice is decided by the tie-break, not submission order.
func (t *WriteTracker) VerifyConsistency(ctx context.Context, mgr *connmgr.Manager) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var missing int
	total := len(t.writes)
	checked := 0

	fmt.Printf("Verifying %d serials...\n", total)

	for serial := range t.writes {
		checked++
		if checked%100 == 0 {
			fmt.Printf("Checked %d/%d serials...\r", checked, total)
		}

		if !rowExists(ctx, mgr, serial) {
			missing++
		}
	}
	fmt.Println() // Newline after progress

	if missing > 0 {
		return fmt.Errorf("consistency check failed: %d of %d serials missing", missing, total)
	}

	return nil
}

// VerifyAndPrune verifies serials last written before minAge and removes
// them to bound memory. This is essential for long-running soak tests.
func (t *WriteTracker) VerifyAndPrune(ctx context.Context, mgr *connmgr.Manager, minAge time.Duration) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-minAge).UnixNano()
	pruned := 0
	missing := 0

	for serial, ts := range t.writes {
		if ts < cutoff {
			if !rowExists(ctx, mgr, serial) {
				missing++
			}

			// Remove regardless of result so a soak run cannot OOM.
			delete(t.writes, serial)
			pruned++
		}
	}

	if missing > 0 {
		return pruned, fmt.Errorf("consistency check failed during pruning: %d serials missing", missing)
	}

	return pruned, nil
}

func rowExists(ctx context.Context, mgr *connmgr.Manager, serial string) bool {
	_, err := mgr.Select(ctx, serial)
	if errors.Is(err, types.ErrNotFound) {
		return false
	}

	return err == nil
}
