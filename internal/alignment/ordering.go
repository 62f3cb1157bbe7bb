package alignment

import (
	"sort"

	"polymarket-feature-lab/internal/domain"
)

// Sort orders aligned rows by (market_slug ASC, token_id ASC, timestamp ASC)
// with the original observation order as the final tiebreak. The order is
// total and deterministic; every grouped or rolling computation downstream
// assumes it.
func Sort(rows []*domain.AlignedRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return compareAligned(rows[i], rows[j]) < 0
	})
}

// compareAligned returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareAligned(a, b *domain.AlignedRow) int {
	if a.MarketSlug != b.MarketSlug {
		if a.MarketSlug < b.MarketSlug {
			return -1
		}
		return 1
	}
	if a.TokenID != b.TokenID {
		if a.TokenID < b.TokenID {
			return -1
		}
		return 1
	}
	if a.Timestamp != b.Timestamp {
		if a.Timestamp < b.Timestamp {
			return -1
		}
		return 1
	}
	if a.Seq != b.Seq {
		if a.Seq < b.Seq {
			return -1
		}
		return 1
	}
	return 0
}
