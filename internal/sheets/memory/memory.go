package memory

import (
	"context"
	"sync"

	"savings/internal/sheets"
)

// Writer keeps the last exported values matrix in memory.
type Writer struct {
	mu       sync.Mutex
	rows     [][]any
	revision int64
	writes   int
}

var _ sheets.SnapshotWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

// WriteSnapshot replaces the stored values.
func (w *Writer) WriteSnapshot(_ context.Context, s sheets.Snapshot) error {
	rows := sheets.Rows(s)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = rows
	w.revision = s.Revision
	w.writes++
	return nil
}

// Rows returns a copy of the last written matrix.
func (w *Writer) Rows() [][]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]any, len(w.rows))
	for i, r := range w.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

// Revision is the store revision of the last snapshot written.
func (w *Writer) Revision() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.revision
}

// Writes counts calls to WriteSnapshot.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
