package clob

import (
	"polymarket-feature-lab/internal/domain"
)

// endCursor is the sentinel next_cursor value marking the last markets page.
const endCursor = "LTE="

// marketsResponse is one page of the paginated /markets endpoint.
type marketsResponse struct {
	Limit      int             `json:"limit"`
	Count      int             `json:"count"`
	NextCursor string          `json:"next_cursor"`
	Data       []marketPayload `json:"data"`
}

// marketPayload is the wire form of one market.
type marketPayload struct {
	Question    string         `json:"question"`
	MarketSlug  string         `json:"market_slug"`
	Active      bool           `json:"active"`
	EndDateISO  string         `json:"end_date_iso"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	Tokens      []tokenPayload `json:"tokens"`
}

// tokenPayload is the wire form of one outcome token.
type tokenPayload struct {
	TokenID string   `json:"token_id"`
	Outcome string   `json:"outcome"`
	Price   *float64 `json:"price"`
	Winner  *bool    `json:"winner"`
}

// historyResponse is the /prices-history envelope.
type historyResponse struct {
	History []PricePoint `json:"history"`
}

// PricePoint is one raw (timestamp, price) sample from the price-history
// endpoint. Instrument identity is attached by the caller.
type PricePoint struct {
	Timestamp int64   `json:"t"` // Unix seconds, UTC
	Price     float64 `json:"p"`
}

// toDomain converts a wire market into the domain record.
func (m *marketPayload) toDomain() *domain.MarketRecord {
	rec := &domain.MarketRecord{
		Question:    m.Question,
		MarketSlug:  m.MarketSlug,
		Active:      m.Active,
		EndDateISO:  m.EndDateISO,
		Description: m.Description,
		Tags:        m.Tags,
	}
	rec.Tokens = make([]domain.OutcomeToken, len(m.Tokens))
	for i, t := range m.Tokens {
		rec.Tokens[i] = domain.OutcomeToken{
			TokenID: t.TokenID,
			Outcome: t.Outcome,
			Price:   t.Price,
			Winner:  t.Winner,
		}
	}
	return rec
}

// ObservationsForInstrument stamps raw history points with the instrument
// identity of a long-form metadata row. Seq continues from seqStart so load
// order stays a total tiebreak across instruments.
func ObservationsForInstrument(row *domain.LongFormMarketRow, points []PricePoint, seqStart int64) []*domain.PriceObservation {
	obs := make([]*domain.PriceObservation, len(points))
	for i, p := range points {
		obs[i] = &domain.PriceObservation{
			TokenID:      row.TokenID,
			TokenOutcome: row.TokenOutcome,
			MarketSlug:   row.MarketSlug,
			Timestamp:    p.Timestamp,
			Price:        p.Price,
			Seq:          seqStart + int64(i),
		}
	}
	return obs
}
