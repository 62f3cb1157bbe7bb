package domain

// SentinelNA is substituted for missing or unparseable metadata fields.
// Degraded fields never abort a batch.
const SentinelNA = "N/A"

// BinaryTokenSlots is the slot count the reshape and join stages are
// specialized for (binary-outcome markets).
const BinaryTokenSlots = 2

// TokenSlot is one (id, outcome) pair bound to its market row.
type TokenSlot struct {
	ID      string // token identifier, SentinelNA if unresolved
	Outcome string // outcome label, SentinelNA if unresolved
}

// NormalizedMarketRow is one market flattened to fixed scalar columns plus its
// token slots. The slots live on the row itself rather than in parallel
// indexed columns, so filtering or sorting the normalized set can never break
// the market-to-token correspondence.
// Corresponds to the markets table in PostgreSQL.
type NormalizedMarketRow struct {
	Question    string      // raw question text
	MarketSlug  string      // venue slug, unique per market
	Status      string      // "Active" or "Inactive"
	EndDate     string      // "YYYY-MM-DD HH:MM:SS" UTC, or SentinelNA
	Description string      // first 100 chars + "...", or SentinelNA
	Tags        string      // tags joined with ", ", empty if none
	Tokens      []TokenSlot // bound token slots, in source order
}

// Slot returns the 1-based token slot, degrading to sentinels when the market
// has fewer resolvable tokens.
func (r *NormalizedMarketRow) Slot(i int) TokenSlot {
	if i < 1 || i > len(r.Tokens) {
		return TokenSlot{ID: SentinelNA, Outcome: SentinelNA}
	}
	return r.Tokens[i-1]
}

// LongFormMarketRow is one (market, token) pair: the market's scalar metadata
// duplicated per token plus a single (token_id, token_outcome) pair.
type LongFormMarketRow struct {
	Question     string
	MarketSlug   string
	Status       string
	EndDate      string
	Description  string
	Tags         string
	TokenID      string
	TokenOutcome string
}
