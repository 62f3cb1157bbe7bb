package domain

// PriceObservation is a single price sample for one instrument.
// Corresponds to the price_observations table in ClickHouse.
type PriceObservation struct {
	TokenID      string  // instrument identifier
	TokenOutcome string  // outcome label of the instrument
	MarketSlug   string  // owning market slug
	Timestamp    int64   // Unix seconds, UTC
	Price        float64 // price in [0,1]
	Seq          int64   // load order, final sort tiebreak
}
