package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"polymarket-feature-lab/internal/domain"
	"polymarket-feature-lab/internal/storage"
)

// MarketStore implements storage.MarketStore using PostgreSQL. Token slots
// are persisted in the fixed token_1/token_2 columns of the flat-file
// contract; the binary-market specialization makes that lossless.
type MarketStore struct {
	pool *Pool
}

// NewMarketStore creates a new MarketStore.
func NewMarketStore(pool *Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MarketStore = (*MarketStore)(nil)

const marketColumns = `
	question, market_slug, status, end_date, description, tags,
	token_1_id, token_1_outcome, token_2_id, token_2_outcome
`

// Insert adds a market. Returns ErrDuplicateKey if the slug exists.
func (s *MarketStore) Insert(ctx context.Context, m *domain.NormalizedMarketRow) error {
	if m == nil || m.MarketSlug == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO markets (` + marketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	t1, t2 := m.Slot(1), m.Slot(2)
	_, err := s.pool.Exec(ctx, query,
		m.Question,
		m.MarketSlug,
		m.Status,
		m.EndDate,
		m.Description,
		m.Tags,
		t1.ID,
		t1.Outcome,
		t2.ID,
		t2.Outcome,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert market: %w", err)
	}
	return nil
}

// InsertBulk adds multiple markets in one transaction. Fails the entire batch
// on any duplicate.
func (s *MarketStore) InsertBulk(ctx context.Context, markets []*domain.NormalizedMarketRow) error {
	if len(markets) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO markets (` + marketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, m := range markets {
		if m == nil || m.MarketSlug == "" {
			return storage.ErrInvalidInput
		}
		t1, t2 := m.Slot(1), m.Slot(2)
		_, err := tx.Exec(ctx, query,
			m.Question, m.MarketSlug, m.Status, m.EndDate, m.Description, m.Tags,
			t1.ID, t1.Outcome, t2.ID, t2.Outcome,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert market %s: %w", m.MarketSlug, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetBySlug retrieves one market. Returns ErrNotFound if not exists.
func (s *MarketStore) GetBySlug(ctx context.Context, slug string) (*domain.NormalizedMarketRow, error) {
	query := `
		SELECT ` + marketColumns + `
		FROM markets
		WHERE market_slug = $1
	`

	row := s.pool.QueryRow(ctx, query, slug)
	m, err := scanMarket(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get market by slug: %w", err)
	}
	return m, nil
}

// GetAll retrieves all markets ordered by slug ASC.
func (s *MarketStore) GetAll(ctx context.Context) ([]*domain.NormalizedMarketRow, error) {
	query := `
		SELECT ` + marketColumns + `
		FROM markets
		ORDER BY market_slug ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all markets: %w", err)
	}
	defer rows.Close()

	var result []*domain.NormalizedMarketRow
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan market row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market rows: %w", err)
	}
	return result, nil
}

// scanMarket scans one row into a NormalizedMarketRow, rehydrating the two
// token columns into bound slots.
func scanMarket(row pgx.Row) (*domain.NormalizedMarketRow, error) {
	var m domain.NormalizedMarketRow
	var t1, t2 domain.TokenSlot

	err := row.Scan(
		&m.Question, &m.MarketSlug, &m.Status, &m.EndDate, &m.Description, &m.Tags,
		&t1.ID, &t1.Outcome, &t2.ID, &t2.Outcome,
	)
	if err != nil {
		return nil, err
	}

	m.Tokens = []domain.TokenSlot{t1, t2}
	return &m, nil
}
