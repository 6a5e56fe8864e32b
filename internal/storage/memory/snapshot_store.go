package memory

import (
	"context"
	"sort"
	"sync"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu     sync.RWMutex
	byDate map[string][]domain.SnapshotRow
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		byDate: make(map[string][]domain.SnapshotRow),
	}
}

// WriteSnapshot replaces stored rows for every report date present in rows.
func (s *SnapshotStore) WriteSnapshot(_ context.Context, _ string, rows []domain.SnapshotRow) error {
	fresh := make(map[string][]domain.SnapshotRow)
	for _, r := range rows {
		fresh[r.DtReport] = append(fresh[r.DtReport], copyRow(r))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for date, dateRows := range fresh {
		s.byDate[date] = dateRows
	}
	return nil
}

// GetByDate retrieves rows for one report date ordered by row_number DESC.
func (s *SnapshotStore) GetByDate(_ context.Context, dtReport string) ([]domain.SnapshotRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.byDate[dtReport]
	result := make([]domain.SnapshotRow, 0, len(stored))
	for _, r := range stored {
		result = append(result, copyRow(r))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RowNumber > result[j].RowNumber
	})
	return result, nil
}

// Lookup returns a single row by its natural key. Returns ErrNotFound if absent.
func (s *SnapshotStore) Lookup(_ context.Context, dtReport, accountID, serverID, instrument string) (*domain.SnapshotRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.byDate[dtReport] {
		if r.AccountID == accountID && r.ServerID == serverID && r.Instrument == instrument {
			out := copyRow(r)
			return &out, nil
		}
	}
	return nil, storage.ErrNotFound
}

func copyRow(r domain.SnapshotRow) domain.SnapshotRow {
	if r.FirstTradeTime != nil {
		ft := *r.FirstTradeTime
		r.FirstTradeTime = &ft
	}
	return r
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
