package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"polymarket-feature-lab/internal/domain"
	"polymarket-feature-lab/internal/storage"
)

// FeatureStore is an in-memory implementation of storage.FeatureStore.
type FeatureStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FeatureRow // keyed by (token_id, timestamp)
}

// NewFeatureStore creates a new in-memory feature store.
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{
		data: make(map[string]*domain.FeatureRow),
	}
}

var _ storage.FeatureStore = (*FeatureStore)(nil)

func featureKey(tokenID string, timestamp int64) string {
	return fmt.Sprintf("%s|%d", tokenID, timestamp)
}

// InsertBulk adds multiple feature rows. Fails the entire batch on duplicate.
func (s *FeatureStore) InsertBulk(_ context.Context, rows []*domain.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.TokenID == "" {
			return storage.ErrInvalidInput
		}
		key := featureKey(r.TokenID, r.Timestamp)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		s.data[featureKey(r.TokenID, r.Timestamp)] = copyFeatureRow(r)
	}
	return nil
}

// ReplaceAll atomically replaces the stored table with rows. Re-running the
// pipeline over the same stores lands here, so previously stored rows are
// never a conflict.
func (s *FeatureStore) ReplaceAll(_ context.Context, rows []*domain.FeatureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*domain.FeatureRow, len(rows))
	for _, r := range rows {
		if r == nil || r.TokenID == "" {
			return storage.ErrInvalidInput
		}
		key := featureKey(r.TokenID, r.Timestamp)
		if _, exists := next[key]; exists {
			return storage.ErrDuplicateKey
		}
		next[key] = copyFeatureRow(r)
	}

	s.data = next
	return nil
}

// GetByTokenID retrieves all feature rows for an instrument, ordered by
// timestamp ASC.
func (s *FeatureStore) GetByTokenID(_ context.Context, tokenID string) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeatureRow
	for _, r := range s.data {
		if r.TokenID == tokenID {
			result = append(result, copyFeatureRow(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}

// GetAll retrieves all feature rows in canonical
// (market_slug, token_id, timestamp) order.
func (s *FeatureStore) GetAll(_ context.Context) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FeatureRow, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, copyFeatureRow(r))
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.MarketSlug != b.MarketSlug {
			return a.MarketSlug < b.MarketSlug
		}
		if a.TokenID != b.TokenID {
			return a.TokenID < b.TokenID
		}
		return a.Timestamp < b.Timestamp
	})
	return result, nil
}

// copyFeatureRow deep-copies a row, including the nullable pointer columns,
// so stored state can never be mutated through a returned value.
func copyFeatureRow(r *domain.FeatureRow) *domain.FeatureRow {
	cp := *r
	cp.Question = copyStringPtr(r.Question)
	cp.Status = copyStringPtr(r.Status)
	cp.EndDate = copyStringPtr(r.EndDate)
	cp.Description = copyStringPtr(r.Description)
	cp.Tags = copyStringPtr(r.Tags)
	cp.Price24hAgo = copyFloatPtr(r.Price24hAgo)
	cp.Momentum24h = copyFloatPtr(r.Momentum24h)
	cp.MA7d = copyFloatPtr(r.MA7d)
	cp.DistanceFromMA = copyFloatPtr(r.DistanceFromMA)
	cp.DaysUntilEnd = copyFloatPtr(r.DaysUntilEnd)
	cp.Volatility24h = copyFloatPtr(r.Volatility24h)
	return &cp
}

func copyStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyFloatPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
