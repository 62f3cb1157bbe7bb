// Package memory provides in-memory store implementations used by tests and
// by the -use-memory mode of the commands.
package memory

import (
	"context"
	"sort"
	"sync"

	"polymarket-feature-lab/internal/domain"
	"polymarket-feature-lab/internal/storage"
)

// MarketStore is an in-memory implementation of storage.MarketStore.
type MarketStore struct {
	mu   sync.RWMutex
	data map[string]*domain.NormalizedMarketRow // keyed by market_slug
}

// NewMarketStore creates a new in-memory market store.
func NewMarketStore() *MarketStore {
	return &MarketStore{
		data: make(map[string]*domain.NormalizedMarketRow),
	}
}

var _ storage.MarketStore = (*MarketStore)(nil)

// Insert adds a market. Returns ErrDuplicateKey if the slug exists.
func (s *MarketStore) Insert(_ context.Context, m *domain.NormalizedMarketRow) error {
	if m == nil || m.MarketSlug == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.MarketSlug]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[m.MarketSlug] = copyMarket(m)
	return nil
}

// InsertBulk adds multiple markets. Fails the entire batch on any duplicate.
func (s *MarketStore) InsertBulk(_ context.Context, markets []*domain.NormalizedMarketRow) error {
	if len(markets) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(markets))
	for _, m := range markets {
		if m == nil || m.MarketSlug == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[m.MarketSlug]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[m.MarketSlug]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[m.MarketSlug] = struct{}{}
	}

	for _, m := range markets {
		s.data[m.MarketSlug] = copyMarket(m)
	}
	return nil
}

// GetBySlug retrieves one market. Returns ErrNotFound if not exists.
func (s *MarketStore) GetBySlug(_ context.Context, slug string) (*domain.NormalizedMarketRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.data[slug]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyMarket(m), nil
}

// GetAll retrieves all markets ordered by slug ASC.
func (s *MarketStore) GetAll(_ context.Context) ([]*domain.NormalizedMarketRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.NormalizedMarketRow, 0, len(s.data))
	for _, m := range s.data {
		result = append(result, copyMarket(m))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MarketSlug < result[j].MarketSlug
	})
	return result, nil
}

// copyMarket deep-copies a row so callers never share token slot slices.
func copyMarket(m *domain.NormalizedMarketRow) *domain.NormalizedMarketRow {
	cp := *m
	cp.Tokens = make([]domain.TokenSlot, len(m.Tokens))
	copy(cp.Tokens, m.Tokens)
	return &cp
}
