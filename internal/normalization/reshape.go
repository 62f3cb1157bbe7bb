package normalization

import (
	"polymarket-feature-lab/internal/domain"
)

// Reshape pivots normalized market rows into one long-form row per
// (market, token slot). The pipeline is specialized for binary markets, so
// exactly two slots are emitted per market; a market with fewer resolvable
// tokens still produces its rows with sentinel token id/outcome.
//
// Each output row is derived from the slot slice bound to its own source row,
// so the correspondence survives any filtering, sorting or reindexing of the
// input; there is no positional column arithmetic to get out of step.
func Reshape(rows []*domain.NormalizedMarketRow) []*domain.LongFormMarketRow {
	out := make([]*domain.LongFormMarketRow, 0, len(rows)*domain.BinaryTokenSlots)
	for _, row := range rows {
		for slot := 1; slot <= domain.BinaryTokenSlots; slot++ {
			out = append(out, reshapeSlot(row, slot))
		}
	}
	return out
}

// reshapeSlot emits the long-form row for one 1-based token slot.
func reshapeSlot(row *domain.NormalizedMarketRow, slot int) *domain.LongFormMarketRow {
	tok := row.Slot(slot)
	return &domain.LongFormMarketRow{
		Question:     row.Question,
		MarketSlug:   row.MarketSlug,
		Status:       row.Status,
		EndDate:      row.EndDate,
		Description:  row.Description,
		Tags:         row.Tags,
		TokenID:      tok.ID,
		TokenOutcome: tok.Outcome,
	}
}
