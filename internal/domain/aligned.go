package domain

// AlignedRow is one (instrument, timestamp) row produced by the left join of
// price observations onto long-form market metadata. Metadata columns are
// nil when the observation had no metadata match; the observation itself is
// always preserved.
type AlignedRow struct {
	TokenID      string
	TokenOutcome string
	MarketSlug   string
	Timestamp    int64   // Unix seconds, UTC
	Price        float64 // price in [0,1]
	Seq          int64   // original observation order, sort tiebreak

	Question    *string
	Status      *string
	EndDate     *string // "YYYY-MM-DD HH:MM:SS" UTC, or SentinelNA
	Description *string
	Tags        *string
}
