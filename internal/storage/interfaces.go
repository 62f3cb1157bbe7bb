// Package storage defines the store contracts shared by the memory,
// PostgreSQL and ClickHouse implementations.
package storage

import (
	"context"

	"polymarket-feature-lab/internal/domain"
)

// MarketStore provides access to normalized market metadata.
type MarketStore interface {
	// Insert adds a market. Returns ErrDuplicateKey if the slug exists.
	Insert(ctx context.Context, m *domain.NormalizedMarketRow) error

	// InsertBulk adds multiple markets. Fails the entire batch on any duplicate.
	InsertBulk(ctx context.Context, markets []*domain.NormalizedMarketRow) error

	// GetBySlug retrieves one market. Returns ErrNotFound if not exists.
	GetBySlug(ctx context.Context, slug string) (*domain.NormalizedMarketRow, error)

	// GetAll retrieves all markets ordered by slug ASC.
	GetAll(ctx context.Context) ([]*domain.NormalizedMarketRow, error)
}

// ObservationStore provides access to raw price observations.
type ObservationStore interface {
	// InsertBulk adds multiple observations. Fails the entire batch on
	// duplicate (token_id, token_outcome, market_slug, timestamp).
	InsertBulk(ctx context.Context, obs []*domain.PriceObservation) error

	// GetByTokenID retrieves all observations for an instrument,
	// ordered by timestamp ASC.
	GetByTokenID(ctx context.Context, tokenID string) ([]*domain.PriceObservation, error)

	// GetAll retrieves all observations in canonical
	// (market_slug, token_id, timestamp) order.
	GetAll(ctx context.Context) ([]*domain.PriceObservation, error)
}

// FeatureStore provides access to computed feature rows.
type FeatureStore interface {
	// InsertBulk adds multiple feature rows. Fails the entire batch on
	// duplicate (token_id, timestamp).
	InsertBulk(ctx context.Context, rows []*domain.FeatureRow) error

	// ReplaceAll atomically replaces the stored table with rows. The feature
	// table is derived state recomputed from markets and observations on every
	// run, so persistence is replace-on-recompute rather than append.
	ReplaceAll(ctx context.Context, rows []*domain.FeatureRow) error

	// GetByTokenID retrieves all feature rows for an instrument,
	// ordered by timestamp ASC.
	GetByTokenID(ctx context.Context, tokenID string) ([]*domain.FeatureRow, error)

	// GetAll retrieves all feature rows in canonical
	// (market_slug, token_id, timestamp) order.
	GetAll(ctx context.Context) ([]*domain.FeatureRow, error)
}
