// Package flatfile reads and writes the delimited flat-file contracts for
// market metadata, price observations and feature rows.
package flatfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"polymarket-feature-lab/internal/domain"
)

// timestampLayout is the observation timestamp format (UTC).
const timestampLayout = "2006-01-02 15:04:05"

// Column contracts, in file order.
var (
	marketHeader = []string{
		"question", "market_slug", "status", "end_date", "description", "tags",
		"token_1_id", "token_1_outcome", "token_2_id", "token_2_outcome",
	}
	observationHeader = []string{
		"token_id", "token_outcome", "market_slug", "timestamp", "price",
	}
	featureHeader = []string{
		"token_id", "token_outcome", "market_slug", "timestamp", "price",
		"question", "status", "end_date", "description", "tags",
		"day_of_week", "is_weekend", "hour_of_day",
		"price_24h_ago", "momentum_24h", "ma_7d", "distance_from_ma",
		"days_until_end", "volatility_24h",
	}
)

// LoadMarkets reads the market metadata contract. A row with the wrong field
// count is skipped and counted rather than failing the batch.
func LoadMarkets(path string) ([]*domain.NormalizedMarketRow, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open markets file: %w", err)
	}
	defer f.Close()

	return readMarkets(f)
}

func readMarkets(r io.Reader) ([]*domain.NormalizedMarketRow, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read markets csv: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, nil
	}

	var rows []*domain.NormalizedMarketRow
	skipped := 0
	for _, rec := range records[1:] { // skip header
		if len(rec) != len(marketHeader) {
			skipped++
			continue
		}
		rows = append(rows, &domain.NormalizedMarketRow{
			Question:    rec[0],
			MarketSlug:  rec[1],
			Status:      rec[2],
			EndDate:     rec[3],
			Description: rec[4],
			Tags:        rec[5],
			Tokens: []domain.TokenSlot{
				{ID: rec[6], Outcome: rec[7]},
				{ID: rec[8], Outcome: rec[9]},
			},
		})
	}
	return rows, skipped, nil
}

// WriteMarkets writes the market metadata contract.
func WriteMarkets(path string, rows []*domain.NormalizedMarketRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create markets file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(marketHeader); err != nil {
		return fmt.Errorf("write markets header: %w", err)
	}
	for _, m := range rows {
		t1, t2 := m.Slot(1), m.Slot(2)
		rec := []string{
			m.Question, m.MarketSlug, m.Status, m.EndDate, m.Description, m.Tags,
			t1.ID, t1.Outcome, t2.ID, t2.Outcome,
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write market row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// LoadObservations reads the observation contract. Malformed rows (bad field
// count, unparseable timestamp or price) are skipped and counted; the batch
// never aborts on one bad record. Seq is assigned from load order.
func LoadObservations(path string) ([]*domain.PriceObservation, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open observations file: %w", err)
	}
	defer f.Close()

	return readObservations(f)
}

func readObservations(r io.Reader) ([]*domain.PriceObservation, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read observations csv: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, nil
	}

	var obs []*domain.PriceObservation
	skipped := 0
	var seq int64
	for _, rec := range records[1:] { // skip header
		if len(rec) != len(observationHeader) {
			skipped++
			continue
		}
		ts, err := time.ParseInLocation(timestampLayout, rec[3], time.UTC)
		if err != nil {
			skipped++
			continue
		}
		price, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			skipped++
			continue
		}
		obs = append(obs, &domain.PriceObservation{
			TokenID:      rec[0],
			TokenOutcome: rec[1],
			MarketSlug:   rec[2],
			Timestamp:    ts.Unix(),
			Price:        price,
			Seq:          seq,
		})
		seq++
	}
	return obs, skipped, nil
}

// WriteObservations writes the observation contract.
func WriteObservations(path string, obs []*domain.PriceObservation) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create observations file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(observationHeader); err != nil {
		return fmt.Errorf("write observations header: %w", err)
	}
	for _, o := range obs {
		rec := []string{
			o.TokenID,
			o.TokenOutcome,
			o.MarketSlug,
			time.Unix(o.Timestamp, 0).UTC().Format(timestampLayout),
			formatFloat(o.Price),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write observation row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteFeatures writes the feature-row contract. Missing values are written
// as empty cells, never as zero.
func WriteFeatures(path string, rows []*domain.FeatureRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create features file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(featureHeader); err != nil {
		return fmt.Errorf("write features header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.TokenID,
			r.TokenOutcome,
			r.MarketSlug,
			time.Unix(r.Timestamp, 0).UTC().Format(timestampLayout),
			formatFloat(r.Price),
			stringOrEmpty(r.Question),
			stringOrEmpty(r.Status),
			stringOrEmpty(r.EndDate),
			stringOrEmpty(r.Description),
			stringOrEmpty(r.Tags),
			strconv.Itoa(r.DayOfWeek),
			strconv.Itoa(r.IsWeekend),
			strconv.Itoa(r.HourOfDay),
			floatOrEmpty(r.Price24hAgo),
			floatOrEmpty(r.Momentum24h),
			floatOrEmpty(r.MA7d),
			floatOrEmpty(r.DistanceFromMA),
			floatOrEmpty(r.DaysUntilEnd),
			floatOrEmpty(r.Volatility24h),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write feature row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func stringOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func floatOrEmpty(p *float64) string {
	if p == nil {
		return ""
	}
	return formatFloat(*p)
}
