// Package alignment joins price observations onto long-form market metadata
// and establishes the canonical row order every grouped computation depends on.
package alignment

import (
	"polymarket-feature-lab/internal/domain"
)

// joinKey is the metadata join key: an observation matches a metadata row when
// all three components are equal.
type joinKey struct {
	tokenID      string
	tokenOutcome string
	marketSlug   string
}

// QualityReport counts degraded cases encountered during alignment. No case
// here is fatal; the counts exist so callers can surface data-quality signals
// instead of silently corrupting downstream windows.
type QualityReport struct {
	Observations        int // observations seen in the input
	DuplicateTimestamps int // same-instrument same-timestamp rows dropped keep-last
	Matched             int // observations with exactly one metadata match
	Unmatched           int // observations kept with nil metadata
	FanOut              int // extra rows produced by multi-match metadata keys
}

// Align left-joins observations onto metadata keyed on
// (token_id, token_outcome, market_slug). The join is driven from the
// observation side: every observation survives, metadata-only rows produce no
// output. A key matching multiple metadata rows fans the observation out once
// per match and is counted. The result is in canonical order (see Sort).
func Align(meta []*domain.LongFormMarketRow, obs []*domain.PriceObservation) ([]*domain.AlignedRow, QualityReport) {
	report := QualityReport{Observations: len(obs)}

	index := make(map[joinKey][]*domain.LongFormMarketRow, len(meta))
	for _, m := range meta {
		k := joinKey{m.TokenID, m.TokenOutcome, m.MarketSlug}
		index[k] = append(index[k], m)
	}

	deduped := dedupeObservations(obs, &report)

	rows := make([]*domain.AlignedRow, 0, len(deduped))
	for _, o := range deduped {
		matches := index[joinKey{o.TokenID, o.TokenOutcome, o.MarketSlug}]
		switch len(matches) {
		case 0:
			report.Unmatched++
			rows = append(rows, alignedRow(o, nil))
		case 1:
			report.Matched++
			rows = append(rows, alignedRow(o, matches[0]))
		default:
			// Data-integrity fault: fan out rather than drop, and count it.
			report.Matched++
			report.FanOut += len(matches) - 1
			for _, m := range matches {
				rows = append(rows, alignedRow(o, m))
			}
		}
	}

	Sort(rows)
	return rows, report
}

// dedupeObservations resolves duplicate (instrument, timestamp) samples by
// keeping the last occurrence in load order. Duplicates are not expected but
// must not corrupt rolling windows downstream.
func dedupeObservations(obs []*domain.PriceObservation, report *QualityReport) []*domain.PriceObservation {
	type obsKey struct {
		tokenID      string
		tokenOutcome string
		marketSlug   string
		timestamp    int64
	}

	last := make(map[obsKey]int, len(obs))
	for i, o := range obs {
		last[obsKey{o.TokenID, o.TokenOutcome, o.MarketSlug, o.Timestamp}] = i
	}
	if len(last) == len(obs) {
		return obs
	}

	out := make([]*domain.PriceObservation, 0, len(last))
	for i, o := range obs {
		if last[obsKey{o.TokenID, o.TokenOutcome, o.MarketSlug, o.Timestamp}] == i {
			out = append(out, o)
		} else {
			report.DuplicateTimestamps++
		}
	}
	return out
}

// alignedRow builds one output row. meta may be nil (unmatched observation);
// the metadata columns stay nil in that case.
func alignedRow(o *domain.PriceObservation, meta *domain.LongFormMarketRow) *domain.AlignedRow {
	row := &domain.AlignedRow{
		TokenID:      o.TokenID,
		TokenOutcome: o.TokenOutcome,
		MarketSlug:   o.MarketSlug,
		Timestamp:    o.Timestamp,
		Price:        o.Price,
		Seq:          o.Seq,
	}
	if meta != nil {
		row.Question = &meta.Question
		row.Status = &meta.Status
		row.EndDate = &meta.EndDate
		row.Description = &meta.Description
		row.Tags = &meta.Tags
	}
	return row
}
