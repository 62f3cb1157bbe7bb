package clickhouse

import (
	"context"
	"fmt"

	"polymarket-feature-lab/internal/domain"
	"polymarket-feature-lab/internal/storage"
)

// ObservationStore implements storage.ObservationStore using ClickHouse.
// MergeTree does not enforce uniqueness, so duplicates are rejected by
// explicit checks before insert.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// InsertBulk adds multiple observations. Fails the entire batch on duplicate
// (token_id, token_outcome, market_slug, timestamp).
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	type key struct {
		tokenID      string
		tokenOutcome string
		marketSlug   string
		timestamp    int64
	}
	seen := make(map[key]struct{}, len(obs))
	for _, o := range obs {
		if o == nil || o.TokenID == "" {
			return storage.ErrInvalidInput
		}
		k := key{o.TokenID, o.TokenOutcome, o.MarketSlug, o.Timestamp}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, o := range obs {
		exists, err := s.exists(ctx, o)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_observations (
			token_id, token_outcome, market_slug, timestamp, price, seq
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		err = batch.Append(
			o.TokenID, o.TokenOutcome, o.MarketSlug,
			uint64(o.Timestamp), o.Price, uint64(o.Seq),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTokenID retrieves all observations for an instrument, ordered by
// timestamp ASC.
func (s *ObservationStore) GetByTokenID(ctx context.Context, tokenID string) ([]*domain.PriceObservation, error) {
	query := `
		SELECT token_id, token_outcome, market_slug, timestamp, price, seq
		FROM price_observations
		WHERE token_id = ?
		ORDER BY timestamp ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query by token id: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetAll retrieves all observations in canonical
// (market_slug, token_id, timestamp) order.
func (s *ObservationStore) GetAll(ctx context.Context) ([]*domain.PriceObservation, error) {
	query := `
		SELECT token_id, token_outcome, market_slug, timestamp, price, seq
		FROM price_observations
		ORDER BY market_slug ASC, token_id ASC, timestamp ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all observations: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// exists checks if an observation with the given key exists.
func (s *ObservationStore) exists(ctx context.Context, o *domain.PriceObservation) (bool, error) {
	query := `
		SELECT count(*) FROM price_observations
		WHERE token_id = ? AND token_outcome = ? AND market_slug = ? AND timestamp = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, o.TokenID, o.TokenOutcome, o.MarketSlug, uint64(o.Timestamp)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanObservations scans multiple rows.
func scanObservations(rows chRows) ([]*domain.PriceObservation, error) {
	var obs []*domain.PriceObservation

	for rows.Next() {
		var o domain.PriceObservation
		var timestamp, seq uint64

		err := rows.Scan(&o.TokenID, &o.TokenOutcome, &o.MarketSlug, &timestamp, &o.Price, &seq)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}

		o.Timestamp = int64(timestamp)
		o.Seq = int64(seq)
		obs = append(obs, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}
	return obs, nil
}
