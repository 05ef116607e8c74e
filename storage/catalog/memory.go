package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps records in process memory. It backs handler tests and
// is selectable as a throwaway strategy for local experiments; nothing
// survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]FileRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]FileRecord)}
}

func (ms *MemoryStore) Insert(ctx context.Context, rec FileRecord) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.records[rec.PublicURL]; exists {
		return fmt.Errorf("insert %s: %w", rec.PublicURL, ErrDuplicate)
	}

	ms.records[rec.PublicURL] = rec
	return nil
}

func (ms *MemoryStore) GetByURL(ctx context.Context, url string) (*FileRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, rec := range ms.records {
		if rec.PublicURL == url || (rec.WebpURL != "" && rec.WebpURL == url) {
			out := rec
			return &out, nil
		}
	}

	return nil, ErrNotFound
}

func (ms *MemoryStore) List(ctx context.Context, limit, offset int) ([]FileRecord, error) {
	all := ms.snapshotSorted()

	if limit <= 0 {
		return all, nil
	}

	if offset >= len(all) {
		return nil, nil
	}

	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	return all[offset:end], nil
}

func (ms *MemoryStore) SearchByName(ctx context.Context, query string) ([]FileRecord, error) {
	needle := strings.ToLower(query)

	var out []FileRecord
	for _, rec := range ms.snapshotSorted() {
		if strings.Contains(strings.ToLower(rec.FileName), needle) ||
			strings.Contains(strings.ToLower(rec.WebpFileName), needle) {
			out = append(out, rec)
		}
	}

	return out, nil
}

func (ms *MemoryStore) Delete(ctx context.Context, url string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for key, rec := range ms.records {
		if rec.PublicURL == url || (rec.WebpURL != "" && rec.WebpURL == url) {
			delete(ms.records, key)
		}
	}

	return nil
}

func (ms *MemoryStore) snapshotSorted() []FileRecord {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]FileRecord, 0, len(ms.records))
	for _, rec := range ms.records {
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}
