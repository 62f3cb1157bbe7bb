package domain

// MarketRecord represents one raw market as returned by the upstream venue.
// The token list carries a small, bounded number of outcome tokens; their
// order within a market is stable and used as the slot key downstream.
type MarketRecord struct {
	Question    string         // human-readable question text
	MarketSlug  string         // venue slug, unique per market
	Active      bool           // whether the market is still open
	EndDateISO  string         // ISO-8601 end timestamp, empty if unknown
	Description string         // free-text description
	Tags        []string       // tag strings, may be nil
	Tokens      []OutcomeToken // ordered outcome tokens
}

// OutcomeToken is a single tradeable outcome of a market.
type OutcomeToken struct {
	TokenID string   // CLOB token identifier
	Outcome string   // outcome label, e.g. "Yes" / "No"
	Price   *float64 // settlement/last price (nullable)
	Winner  *bool    // winner flag once resolved (nullable)
}
