package features

import (
	"math"
	"testing"
	"time"

	"polymarket-feature-lab/internal/domain"
)

func strPtr(s string) *string { return &s }

// hourlySeries builds n hourly rows for one instrument starting at start,
// with price 0.50 + 0.001*i.
func hourlySeries(tokenID, slug string, start time.Time, n int, endDate *string) []*domain.AlignedRow {
	rows := make([]*domain.AlignedRow, n)
	for i := 0; i < n; i++ {
		rows[i] = &domain.AlignedRow{
			TokenID:      tokenID,
			TokenOutcome: "Yes",
			MarketSlug:   slug,
			Timestamp:    start.Add(time.Duration(i) * time.Hour).Unix(),
			Price:        0.50 + 0.001*float64(i),
			Seq:          int64(i),
			EndDate:      endDate,
		}
	}
	return rows
}

func TestCompute_HourlyScenario(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday
	end := strPtr("2024-01-08 00:00:00")
	rows := hourlySeries("tok-a", "m1", start, 169, end)

	out := NewEngine().Compute(rows)

	if len(out) != 169 {
		t.Fatalf("Expected 169 feature rows, got %d", len(out))
	}

	// Calendar columns.
	if out[0].DayOfWeek != 0 || out[0].IsWeekend != 0 || out[0].HourOfDay != 0 {
		t.Errorf("Row 0 calendar: got (%d, %d, %d)", out[0].DayOfWeek, out[0].IsWeekend, out[0].HourOfDay)
	}
	if out[25].HourOfDay != 1 || out[25].DayOfWeek != 1 {
		t.Errorf("Row 25 calendar: got dow %d hour %d", out[25].DayOfWeek, out[25].HourOfDay)
	}
	if out[120].DayOfWeek != 5 || out[120].IsWeekend != 1 { // Saturday
		t.Errorf("Row 120 calendar: got dow %d weekend %d", out[120].DayOfWeek, out[120].IsWeekend)
	}

	// Lag and momentum: undefined for the first 24 rows.
	for i := 0; i < 24; i++ {
		if out[i].Price24hAgo != nil || out[i].Momentum24h != nil {
			t.Fatalf("Row %d: lag defined before 24 rows of history", i)
		}
	}
	if out[24].Price24hAgo == nil || *out[24].Price24hAgo != 0.50 {
		t.Fatalf("Row 24: expected price_24h_ago 0.50, got %v", out[24].Price24hAgo)
	}
	wantMomentum := (0.524 - 0.50) / 0.50
	if out[24].Momentum24h == nil || math.Abs(*out[24].Momentum24h-wantMomentum) > 1e-12 {
		t.Errorf("Row 24: expected momentum %v, got %v", wantMomentum, out[24].Momentum24h)
	}

	// Moving average: undefined until 168 rows exist.
	for i := 0; i < 167; i++ {
		if out[i].MA7d != nil || out[i].DistanceFromMA != nil {
			t.Fatalf("Row %d: ma_7d defined before window was full", i)
		}
	}
	wantMA := 0.50 + 0.001*167.0/2.0 // mean of rows 0..167
	if out[167].MA7d == nil || math.Abs(*out[167].MA7d-wantMA) > 1e-12 {
		t.Errorf("Row 167: expected ma_7d %v, got %v", wantMA, out[167].MA7d)
	}
	wantDist := (rows[167].Price - wantMA) / wantMA
	if out[167].DistanceFromMA == nil || math.Abs(*out[167].DistanceFromMA-wantDist) > 1e-12 {
		t.Errorf("Row 167: expected distance %v, got %v", wantDist, out[167].DistanceFromMA)
	}
	// Window slides: row 168 averages rows 1..168.
	if out[168].MA7d == nil || math.Abs(*out[168].MA7d-(wantMA+0.001)) > 1e-12 {
		t.Errorf("Row 168: expected ma_7d %v, got %v", wantMA+0.001, out[168].MA7d)
	}

	// Volatility: undefined until 24 rows exist; arithmetic series with step
	// 0.001 has sample variance step^2 * n(n+1)/12.
	for i := 0; i < 23; i++ {
		if out[i].Volatility24h != nil {
			t.Fatalf("Row %d: volatility defined before window was full", i)
		}
	}
	wantStd := 0.001 * math.Sqrt(24.0*25.0/12.0)
	if out[23].Volatility24h == nil || math.Abs(*out[23].Volatility24h-wantStd) > 1e-9 {
		t.Errorf("Row 23: expected volatility %v, got %v", wantStd, out[23].Volatility24h)
	}

	// days_until_end: 7.0 at the start, strictly decreasing by 1/24 per row,
	// exactly 0 at the end timestamp.
	if out[0].DaysUntilEnd == nil || *out[0].DaysUntilEnd != 7.0 {
		t.Fatalf("Row 0: expected days_until_end 7.0, got %v", out[0].DaysUntilEnd)
	}
	for i := 1; i < len(out); i++ {
		if out[i].DaysUntilEnd == nil {
			t.Fatalf("Row %d: days_until_end undefined", i)
		}
		if *out[i].DaysUntilEnd >= *out[i-1].DaysUntilEnd {
			t.Fatalf("Row %d: days_until_end not strictly decreasing", i)
		}
	}
	if *out[168].DaysUntilEnd != 0 {
		t.Errorf("Row 168: expected days_until_end 0, got %v", *out[168].DaysUntilEnd)
	}
}

func TestCompute_GroupIsolation(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := hourlySeries("tok-a", "m1", start, 30, nil)
	b := hourlySeries("tok-b", "m1", start, 30, nil)
	for _, row := range b {
		row.Price += 0.3
	}

	// Interleave the two groups row by row.
	mixed := make([]*domain.AlignedRow, 0, 60)
	for i := 0; i < 30; i++ {
		mixed = append(mixed, a[i], b[i])
	}

	out := NewEngine().Compute(mixed)

	for i, fr := range out {
		base := 0.50
		if fr.TokenID == "tok-b" {
			base = 0.80
		}
		if fr.Price24hAgo != nil && math.Abs(*fr.Price24hAgo-base-0.001*float64(i/2-24)) > 1e-12 {
			t.Errorf("Row %d (%s): lag leaked across groups: %v", i, fr.TokenID, *fr.Price24hAgo)
		}
	}

	// A's features are identical with and without B's rows in the table.
	alone := NewEngine().Compute(a)
	j := 0
	for _, fr := range out {
		if fr.TokenID != "tok-a" {
			continue
		}
		if !featureRowsEqual(fr, alone[j]) {
			t.Fatalf("Group a row %d changed in the presence of group b", j)
		}
		j++
	}

	// Each group needs its own 24 rows before the lag is defined.
	countA, countB := 0, 0
	for _, fr := range out {
		if fr.Price24hAgo == nil {
			continue
		}
		if fr.TokenID == "tok-a" {
			countA++
		} else {
			countB++
		}
	}
	if countA != 6 || countB != 6 {
		t.Errorf("Expected 6 lagged rows per group, got a=%d b=%d", countA, countB)
	}
}

// Appending rows must never change the features of earlier rows.
func TestCompute_Causality(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := hourlySeries("tok-a", "m1", start, 200, strPtr("2024-01-08 00:00:00"))

	engine := NewEngine()
	prefix := engine.Compute(rows[:100])
	full := engine.Compute(rows)

	for i := 0; i < 100; i++ {
		if !featureRowsEqual(prefix[i], full[i]) {
			t.Fatalf("Row %d changed when later rows were appended", i)
		}
	}
}

func featureRowsEqual(a, b *domain.FeatureRow) bool {
	if a.DayOfWeek != b.DayOfWeek || a.IsWeekend != b.IsWeekend || a.HourOfDay != b.HourOfDay {
		return false
	}
	eq := func(x, y *float64) bool {
		if (x == nil) != (y == nil) {
			return false
		}
		return x == nil || *x == *y
	}
	return eq(a.Price24hAgo, b.Price24hAgo) &&
		eq(a.Momentum24h, b.Momentum24h) &&
		eq(a.MA7d, b.MA7d) &&
		eq(a.DistanceFromMA, b.DistanceFromMA) &&
		eq(a.DaysUntilEnd, b.DaysUntilEnd) &&
		eq(a.Volatility24h, b.Volatility24h)
}

func TestCompute_ZeroLaggedPriceLeavesMomentumUndefined(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := hourlySeries("tok-a", "m1", start, 25, nil)
	rows[0].Price = 0

	out := NewEngine().Compute(rows)

	if out[24].Price24hAgo == nil || *out[24].Price24hAgo != 0 {
		t.Fatalf("Row 24: expected lagged price 0, got %v", out[24].Price24hAgo)
	}
	if out[24].Momentum24h != nil {
		t.Errorf("Row 24: momentum must stay undefined on zero denominator")
	}
}

func TestCompute_EndDateSentinel(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := hourlySeries("tok-a", "m1", start, 3, strPtr(domain.SentinelNA))

	out := NewEngine().Compute(rows)

	for i, fr := range out {
		if fr.DaysUntilEnd != nil {
			t.Errorf("Row %d: days_until_end defined for sentinel end date", i)
		}
	}
}

func TestCompute_EndDateFromLaterRow(t *testing.T) {
	// The group's first row is unmatched (nil metadata); the end date arrives
	// with the second row and applies from there on.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := hourlySeries("tok-a", "m1", start, 3, strPtr("2024-01-08 00:00:00"))
	rows[0].EndDate = nil

	out := NewEngine().Compute(rows)

	if out[0].DaysUntilEnd != nil {
		t.Errorf("Row 0: days_until_end defined without metadata")
	}
	if out[1].DaysUntilEnd == nil {
		t.Fatalf("Row 1: end date from a later metadata row was ignored")
	}
	want := 7.0 - 1.0/24.0
	if math.Abs(*out[1].DaysUntilEnd-want) > 1e-12 {
		t.Errorf("Row 1: expected %v, got %v", want, *out[1].DaysUntilEnd)
	}
}

func TestCompute_EndDateIsRowWise(t *testing.T) {
	// days_until_end follows each row's own end date: a sentinel on the first
	// row does not poison later rows, and fan-out rows carrying a different
	// end date resolve against their own value.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := hourlySeries("tok-a", "m1", start, 4, strPtr("2024-01-08 00:00:00"))
	rows[0].EndDate = strPtr(domain.SentinelNA)
	rows[2].EndDate = strPtr("2024-01-15 00:00:00")

	out := NewEngine().Compute(rows)

	if out[0].DaysUntilEnd != nil {
		t.Errorf("Row 0: days_until_end defined for sentinel end date")
	}
	if out[1].DaysUntilEnd == nil || math.Abs(*out[1].DaysUntilEnd-(7.0-1.0/24.0)) > 1e-12 {
		t.Errorf("Row 1: expected %v, got %v", 7.0-1.0/24.0, out[1].DaysUntilEnd)
	}
	if out[2].DaysUntilEnd == nil || math.Abs(*out[2].DaysUntilEnd-(14.0-2.0/24.0)) > 1e-12 {
		t.Errorf("Row 2: expected later end date to apply, got %v", out[2].DaysUntilEnd)
	}
	if out[3].DaysUntilEnd == nil || math.Abs(*out[3].DaysUntilEnd-(7.0-3.0/24.0)) > 1e-12 {
		t.Errorf("Row 3: expected original end date to apply, got %v", out[3].DaysUntilEnd)
	}
}
