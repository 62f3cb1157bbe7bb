// Package features computes the derived feature columns over the aligned
// table: calendar decomposition plus causal lagged and rolling statistics,
// independent per instrument group.
package features

import (
	"time"

	"polymarket-feature-lab/internal/domain"
)

// Window sizes, in rows at hourly fidelity.
const (
	LagWindow = 24  // price_24h_ago / momentum_24h
	MAWindow  = 168 // ma_7d (7 days)
	VolWindow = 24  // volatility_24h
)

// endDateLayout matches the normalized end-date column format (UTC).
const endDateLayout = "2006-01-02 15:04:05"

// groupCursor holds all rolling state for one instrument. Every windowed or
// lagged value an instrument's rows receive comes from this cursor and
// nothing else, so values can never be borrowed from a neighboring group.
type groupCursor struct {
	lag *lagBuffer
	ma  *rollingStat
	vol *rollingStat

	endCache map[string]*time.Time
}

func newGroupCursor() *groupCursor {
	return &groupCursor{
		lag:      newLagBuffer(LagWindow),
		ma:       newRollingStat(MAWindow),
		vol:      newRollingStat(VolWindow),
		endCache: make(map[string]*time.Time),
	}
}

// Engine computes feature rows over a sorted aligned table.
type Engine struct{}

// NewEngine creates a feature engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compute derives one FeatureRow per input row, in input order. Rows must be
// in canonical (market_slug, token_id, timestamp) order; grouping is by
// token_id via a per-group cursor map, so even a non-contiguous group cannot
// leak state across instruments.
func (e *Engine) Compute(rows []*domain.AlignedRow) []*domain.FeatureRow {
	out := make([]*domain.FeatureRow, len(rows))
	cursors := make(map[string]*groupCursor)

	for i, row := range rows {
		cur, ok := cursors[row.TokenID]
		if !ok {
			cur = newGroupCursor()
			cursors[row.TokenID] = cur
		}
		out[i] = computeRow(row, cur)
	}

	return out
}

// computeRow advances the group cursor by one observation and emits its
// feature row. Undefined values stay nil; arithmetic never substitutes zero.
func computeRow(row *domain.AlignedRow, cur *groupCursor) *domain.FeatureRow {
	ts := time.Unix(row.Timestamp, 0).UTC()
	dow := dayOfWeek(ts)

	fr := &domain.FeatureRow{
		AlignedRow: *row,
		DayOfWeek:  dow,
		IsWeekend:  isWeekend(dow),
		HourOfDay:  ts.Hour(),
	}

	if lagged, ok := cur.lag.Push(row.Price); ok {
		fr.Price24hAgo = &lagged
		if lagged != 0 {
			momentum := (row.Price - lagged) / lagged
			fr.Momentum24h = &momentum
		}
	}

	cur.ma.Push(row.Price)
	if mean, ok := cur.ma.Mean(); ok {
		fr.MA7d = &mean
		if mean != 0 {
			dist := (row.Price - mean) / mean
			fr.DistanceFromMA = &dist
		}
	}

	cur.vol.Push(row.Price)
	if std, ok := cur.vol.SampleStd(); ok {
		fr.Volatility24h = &std
	}

	if end := cur.marketEnd(row.EndDate); end != nil {
		days := daysUntil(*end, ts)
		fr.DaysUntilEnd = &days
	}

	return fr
}

// marketEnd parses the row's own end date, memoized by string value since the
// same date repeats across a market's rows. Fan-out rows carrying a different
// end date resolve independently. A nil, sentinel or unparseable end date
// leaves days_until_end undefined.
func (c *groupCursor) marketEnd(endDate *string) *time.Time {
	if endDate == nil || *endDate == domain.SentinelNA {
		return nil
	}
	if parsed, ok := c.endCache[*endDate]; ok {
		return parsed
	}
	var parsed *time.Time
	if t, err := time.ParseInLocation(endDateLayout, *endDate, time.UTC); err == nil {
		parsed = &t
	}
	c.endCache[*endDate] = parsed
	return parsed
}
