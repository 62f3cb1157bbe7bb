package domain

// FeatureRow is an AlignedRow extended with derived columns.
// Derived columns are nil until enough same-group history exists, and nil for
// arithmetically degenerate cases (zero denominator, unparseable end date).
// Nil is the only missing marker; zero is never used as a stand-in.
// Corresponds to the feature_rows table in ClickHouse.
type FeatureRow struct {
	AlignedRow

	DayOfWeek int // 0=Monday .. 6=Sunday
	IsWeekend int // 1 if DayOfWeek in {5,6}
	HourOfDay int // 0..23, UTC

	Price24hAgo    *float64 // price 24 rows earlier within the group
	Momentum24h    *float64 // (price - price_24h_ago) / price_24h_ago
	MA7d           *float64 // mean over trailing 168 rows within the group
	DistanceFromMA *float64 // (price - ma_7d) / ma_7d
	DaysUntilEnd   *float64 // (end_date - timestamp) in fractional days
	Volatility24h  *float64 // sample std over trailing 24 rows within the group
}
