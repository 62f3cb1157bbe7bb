package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"polymarket-feature-lab/internal/domain"
	"polymarket-feature-lab/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceObservation // keyed by (token_id, outcome, slug, timestamp)
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		data: make(map[string]*domain.PriceObservation),
	}
}

var _ storage.ObservationStore = (*ObservationStore)(nil)

func observationKey(o *domain.PriceObservation) string {
	return fmt.Sprintf("%s|%s|%s|%d", o.TokenID, o.TokenOutcome, o.MarketSlug, o.Timestamp)
}

// InsertBulk adds multiple observations. Fails the entire batch on duplicate.
func (s *ObservationStore) InsertBulk(_ context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(obs))
	for _, o := range obs {
		if o == nil || o.TokenID == "" {
			return storage.ErrInvalidInput
		}
		key := observationKey(o)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, o := range obs {
		obsCopy := *o
		s.data[observationKey(o)] = &obsCopy
	}
	return nil
}

// GetByTokenID retrieves all observations for an instrument, ordered by
// timestamp ASC.
func (s *ObservationStore) GetByTokenID(_ context.Context, tokenID string) ([]*domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceObservation
	for _, o := range s.data {
		if o.TokenID == tokenID {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

// GetAll retrieves all observations in canonical
// (market_slug, token_id, timestamp) order.
func (s *ObservationStore) GetAll(_ context.Context) ([]*domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PriceObservation, 0, len(s.data))
	for _, o := range s.data {
		obsCopy := *o
		result = append(result, &obsCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.MarketSlug != b.MarketSlug {
			return a.MarketSlug < b.MarketSlug
		}
		if a.TokenID != b.TokenID {
			return a.TokenID < b.TokenID
		}
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return a.Seq < b.Seq
	})
	return result, nil
}
