// Package normalization flattens raw market records into the fixed-column
// normalized form and reshapes it into one row per (market, token).
package normalization

import (
	"strings"
	"time"

	"polymarket-feature-lab/internal/domain"
)

// descriptionLimit is the truncation length for the description column.
const descriptionLimit = 100

// endDateLayout is the normalized end-date format (UTC).
const endDateLayout = "2006-01-02 15:04:05"

// FlattenMarket produces one NormalizedMarketRow from a raw market record.
// Missing or malformed fields degrade to documented sentinels; the transform
// never fails.
func FlattenMarket(rec *domain.MarketRecord) *domain.NormalizedMarketRow {
	row := &domain.NormalizedMarketRow{
		Question:    rec.Question,
		MarketSlug:  rec.MarketSlug,
		Status:      formatStatus(rec.Active),
		EndDate:     formatEndDate(rec.EndDateISO),
		Description: formatDescription(rec.Description),
		Tags:        strings.Join(rec.Tags, ", "),
	}

	row.Tokens = make([]domain.TokenSlot, len(rec.Tokens))
	for i, tok := range rec.Tokens {
		slot := domain.TokenSlot{ID: tok.TokenID, Outcome: tok.Outcome}
		if slot.ID == "" {
			slot.ID = domain.SentinelNA
		}
		if slot.Outcome == "" {
			slot.Outcome = domain.SentinelNA
		}
		row.Tokens[i] = slot
	}

	return row
}

// FlattenMarkets flattens a batch of records. One malformed record must not
// prevent others from being processed, so there is no error path.
func FlattenMarkets(recs []*domain.MarketRecord) []*domain.NormalizedMarketRow {
	rows := make([]*domain.NormalizedMarketRow, len(recs))
	for i, rec := range recs {
		rows[i] = FlattenMarket(rec)
	}
	return rows
}

func formatStatus(active bool) string {
	if active {
		return "Active"
	}
	return "Inactive"
}

// formatEndDate parses an ISO end timestamp (trailing Z treated as UTC) and
// reformats it as "YYYY-MM-DD HH:MM:SS". Absent or unparseable input degrades
// to the sentinel.
func formatEndDate(iso string) string {
	if iso == "" {
		return domain.SentinelNA
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return domain.SentinelNA
	}
	return t.UTC().Format(endDateLayout)
}

// formatDescription truncates to the first 100 characters and appends an
// ellipsis marker. Character means rune: multi-byte text must not be split.
func formatDescription(desc string) string {
	if desc == "" {
		return domain.SentinelNA
	}
	runes := []rune(desc)
	if len(runes) > descriptionLimit {
		runes = runes[:descriptionLimit]
	}
	return string(runes) + "..."
}
