package clickhouse

import (
	"context"
	"fmt"

	"polymarket-feature-lab/internal/domain"
	"polymarket-feature-lab/internal/storage"
)

// FeatureStore implements storage.FeatureStore using ClickHouse. Derived
// columns are Nullable(Float64); nil pointers pass through as SQL NULL so the
// missing marker survives persistence.
type FeatureStore struct {
	conn *Conn
}

// NewFeatureStore creates a new FeatureStore.
func NewFeatureStore(conn *Conn) *FeatureStore {
	return &FeatureStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

const featureColumns = `
	token_id, token_outcome, market_slug, timestamp, price, seq,
	question, status, end_date, description, tags,
	day_of_week, is_weekend, hour_of_day,
	price_24h_ago, momentum_24h, ma_7d, distance_from_ma,
	days_until_end, volatility_24h
`

// InsertBulk adds multiple feature rows. Fails the entire batch on duplicate
// (token_id, timestamp).
func (s *FeatureStore) InsertBulk(ctx context.Context, rows []*domain.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	type key struct {
		tokenID   string
		timestamp int64
	}
	seen := make(map[key]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.TokenID == "" {
			return storage.ErrInvalidInput
		}
		k := key{r.TokenID, r.Timestamp}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, r := range rows {
		exists, err := s.exists(ctx, r.TokenID, r.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	return s.sendBatch(ctx, rows)
}

// ReplaceAll atomically replaces the stored table with rows. The feature
// table is derived state, so periodic recomputation truncates and rewrites
// it instead of appending.
func (s *FeatureStore) ReplaceAll(ctx context.Context, rows []*domain.FeatureRow) error {
	type key struct {
		tokenID   string
		timestamp int64
	}
	seen := make(map[key]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.TokenID == "" {
			return storage.ErrInvalidInput
		}
		k := key{r.TokenID, r.Timestamp}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	if err := s.conn.Exec(ctx, `TRUNCATE TABLE feature_rows`); err != nil {
		return fmt.Errorf("truncate feature rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	return s.sendBatch(ctx, rows)
}

// sendBatch writes rows through a prepared batch.
func (s *FeatureStore) sendBatch(ctx context.Context, rows []*domain.FeatureRow) error {
	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO feature_rows (`+featureColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.TokenID, r.TokenOutcome, r.MarketSlug,
			uint64(r.Timestamp), r.Price, uint64(r.Seq),
			r.Question, r.Status, r.EndDate, r.Description, r.Tags,
			uint8(r.DayOfWeek), uint8(r.IsWeekend), uint8(r.HourOfDay),
			r.Price24hAgo, r.Momentum24h, r.MA7d, r.DistanceFromMA,
			r.DaysUntilEnd, r.Volatility24h,
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

// GetByTokenID retrieves all feature rows for an instrument, ordered by
// timestamp ASC.
func (s *FeatureStore) GetByTokenID(ctx context.Context, tokenID string) ([]*domain.FeatureRow, error) {
	query := `
		SELECT ` + featureColumns + `
		FROM feature_rows
		WHERE token_id = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query by token id: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// GetAll retrieves all feature rows in canonical
// (market_slug, token_id, timestamp) order.
func (s *FeatureStore) GetAll(ctx context.Context) ([]*domain.FeatureRow, error) {
	query := `
		SELECT ` + featureColumns + `
		FROM feature_rows
		ORDER BY market_slug ASC, token_id ASC, timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all feature rows: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// exists checks if a feature row with the given key exists.
func (s *FeatureStore) exists(ctx context.Context, tokenID string, timestamp int64) (bool, error) {
	query := `
		SELECT count(*) FROM feature_rows
		WHERE token_id = ? AND timestamp = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, tokenID, uint64(timestamp)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanFeatureRows scans multiple rows.
func scanFeatureRows(rows chRows) ([]*domain.FeatureRow, error) {
	var result []*domain.FeatureRow

	for rows.Next() {
		var r domain.FeatureRow
		var timestamp, seq uint64
		var dayOfWeek, isWeekend, hourOfDay uint8

		err := rows.Scan(
			&r.TokenID, &r.TokenOutcome, &r.MarketSlug,
			&timestamp, &r.Price, &seq,
			&r.Question, &r.Status, &r.EndDate, &r.Description, &r.Tags,
			&dayOfWeek, &isWeekend, &hourOfDay,
			&r.Price24hAgo, &r.Momentum24h, &r.MA7d, &r.DistanceFromMA,
			&r.DaysUntilEnd, &r.Volatility24h,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}

		r.Timestamp = int64(timestamp)
		r.Seq = int64(seq)
		r.DayOfWeek = int(dayOfWeek)
		r.IsWeekend = int(isWeekend)
		r.HourOfDay = int(hourOfDay)
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}
	return result, nil
}
