package flatfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"polymarket-feature-lab/internal/domain"
)

func TestReadMarkets_Basic(t *testing.T) {
	input := strings.Join([]string{
		"question,market_slug,status,end_date,description,tags,token_1_id,token_1_outcome,token_2_id,token_2_outcome",
		`"Will it rain?",will-it-rain,Active,2024-06-01 00:00:00,desc...,"Weather, Daily",tok-yes,Yes,tok-no,No`,
	}, "\n")

	rows, skipped, err := readMarkets(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readMarkets failed: %v", err)
	}
	if skipped != 0 {
		t.Errorf("Expected 0 skipped, got %d", skipped)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if row.Question != "Will it rain?" || row.MarketSlug != "will-it-rain" {
		t.Errorf("Scalar columns: %+v", row)
	}
	if row.Tags != "Weather, Daily" {
		t.Errorf("Quoted tags column mangled: %q", row.Tags)
	}
	if row.Slot(1).ID != "tok-yes" || row.Slot(2).Outcome != "No" {
		t.Errorf("Token slots: %+v", row.Tokens)
	}
}

func TestReadMarkets_SkipsBadFieldCount(t *testing.T) {
	input := strings.Join([]string{
		"question,market_slug,status,end_date,description,tags,token_1_id,token_1_outcome,token_2_id,token_2_outcome",
		"q,m1,Active,N/A,N/A,,a,Yes,b,No",
		"short,row",
		"q,m2,Active,N/A,N/A,,c,Yes,d,No",
	}, "\n")

	rows, skipped, err := readMarkets(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readMarkets failed: %v", err)
	}
	if skipped != 1 {
		t.Errorf("Expected 1 skipped, got %d", skipped)
	}
	if len(rows) != 2 || rows[1].MarketSlug != "m2" {
		t.Errorf("Rows after malformed record were lost: %d rows", len(rows))
	}
}

func TestReadObservations_Basic(t *testing.T) {
	input := strings.Join([]string{
		"token_id,token_outcome,market_slug,timestamp,price",
		"tok-a,Yes,m1,2024-01-01 00:00:00,0.5",
		"tok-a,Yes,m1,2024-01-01 01:00:00,0.52",
	}, "\n")

	obs, skipped, err := readObservations(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readObservations failed: %v", err)
	}
	if skipped != 0 {
		t.Errorf("Expected 0 skipped, got %d", skipped)
	}
	if len(obs) != 2 {
		t.Fatalf("Expected 2 observations, got %d", len(obs))
	}

	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	if obs[0].Timestamp != want {
		t.Errorf("Expected unix %d, got %d", want, obs[0].Timestamp)
	}
	if obs[0].Price != 0.5 || obs[1].Price != 0.52 {
		t.Errorf("Prices: %v, %v", obs[0].Price, obs[1].Price)
	}
	if obs[0].Seq != 0 || obs[1].Seq != 1 {
		t.Errorf("Seq must follow load order: %d, %d", obs[0].Seq, obs[1].Seq)
	}
}

func TestReadObservations_SkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"token_id,token_outcome,market_slug,timestamp,price",
		"tok-a,Yes,m1,not-a-time,0.5",
		"tok-a,Yes,m1,2024-01-01 00:00:00,not-a-price",
		"tok-a,Yes,m1,2024-01-01 02:00:00,0.5",
	}, "\n")

	obs, skipped, err := readObservations(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readObservations failed: %v", err)
	}
	if skipped != 2 {
		t.Errorf("Expected 2 skipped, got %d", skipped)
	}
	if len(obs) != 1 {
		t.Fatalf("Expected 1 observation, got %d", len(obs))
	}
	// Seq counts loaded rows only.
	if obs[0].Seq != 0 {
		t.Errorf("Expected seq 0, got %d", obs[0].Seq)
	}
}

func TestWriteMarkets_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markets.csv")
	in := []*domain.NormalizedMarketRow{
		{
			Question: "Q?", MarketSlug: "m1", Status: "Active",
			EndDate: "2024-06-01 00:00:00", Description: "d...", Tags: "a, b",
			Tokens: []domain.TokenSlot{{ID: "t1", Outcome: "Yes"}, {ID: "t2", Outcome: "No"}},
		},
		{MarketSlug: "thin", Tokens: []domain.TokenSlot{{ID: "only", Outcome: "Yes"}}},
	}

	if err := WriteMarkets(path, in); err != nil {
		t.Fatalf("WriteMarkets failed: %v", err)
	}

	rows, skipped, err := LoadMarkets(path)
	if err != nil {
		t.Fatalf("LoadMarkets failed: %v", err)
	}
	if skipped != 0 || len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d (skipped %d)", len(rows), skipped)
	}
	if rows[0].Tags != "a, b" || rows[0].Slot(2).ID != "t2" {
		t.Errorf("Row 0 did not round-trip: %+v", rows[0])
	}
	// A missing second slot is written as sentinels.
	if rows[1].Slot(2).ID != domain.SentinelNA {
		t.Errorf("Expected sentinel slot, got %q", rows[1].Slot(2).ID)
	}
}

func TestWriteObservations_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.csv")
	ts := time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC).Unix()
	in := []*domain.PriceObservation{
		{TokenID: "t1", TokenOutcome: "Yes", MarketSlug: "m1", Timestamp: ts, Price: 0.525, Seq: 0},
	}

	if err := WriteObservations(path, in); err != nil {
		t.Fatalf("WriteObservations failed: %v", err)
	}

	obs, _, err := LoadObservations(path)
	if err != nil {
		t.Fatalf("LoadObservations failed: %v", err)
	}
	if len(obs) != 1 || obs[0].Timestamp != ts || obs[0].Price != 0.525 {
		t.Errorf("Observation did not round-trip: %+v", obs[0])
	}
}

func TestWriteFeatures_MissingValuesAreEmptyCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.csv")
	ma := 0.55
	status := "Active"
	rows := []*domain.FeatureRow{
		{
			AlignedRow: domain.AlignedRow{
				TokenID: "t1", TokenOutcome: "Yes", MarketSlug: "m1",
				Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
				Price:     0.5,
				Status:    &status,
			},
			DayOfWeek: 0, IsWeekend: 0, HourOfDay: 0,
			MA7d: &ma,
		},
	}

	if err := WriteFeatures(path, rows); err != nil {
		t.Fatalf("WriteFeatures failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header plus 1 row, got %d lines", len(lines))
	}

	fields := strings.Split(lines[1], ",")
	if len(fields) != len(featureHeader) {
		t.Fatalf("Expected %d fields, got %d", len(featureHeader), len(fields))
	}
	// question (5) missing, status (6) present, price_24h_ago (13) missing,
	// ma_7d (15) present.
	if fields[5] != "" {
		t.Errorf("Missing question must be empty, got %q", fields[5])
	}
	if fields[6] != "Active" {
		t.Errorf("Status: got %q", fields[6])
	}
	if fields[13] != "" {
		t.Errorf("Missing price_24h_ago must be empty, not zero: %q", fields[13])
	}
	if fields[15] != "0.55" {
		t.Errorf("ma_7d: got %q", fields[15])
	}
}
