// Package main provides the one-shot batch pipeline:
// markets CSV + observations CSV → feature CSV.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"polymarket-feature-lab/internal/alignment"
	"polymarket-feature-lab/internal/features"
	"polymarket-feature-lab/internal/flatfile"
	"polymarket-feature-lab/internal/normalization"
)

func main() {
	marketsPath := flag.String("markets", "market_lookup.csv", "Market metadata CSV path")
	obsPath := flag.String("observations", "extended_time_series_data.csv", "Price observations CSV path")
	outPath := flag.String("out", "feature_data.csv", "Output feature CSV path")
	workers := flag.Int("workers", 1, "Parallel feature workers (1 = sequential)")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	logger := log.New(os.Stdout, "[pipeline] ", log.LstdFlags)

	markets, skippedMarkets, err := flatfile.LoadMarkets(*marketsPath)
	if err != nil {
		logger.Fatalf("load markets: %v", err)
	}
	obs, skippedObs, err := flatfile.LoadObservations(*obsPath)
	if err != nil {
		logger.Fatalf("load observations: %v", err)
	}

	if *verbose {
		logger.Printf("loaded %d markets (%d rows skipped), %d observations (%d rows skipped)",
			len(markets), skippedMarkets, len(obs), skippedObs)
	}

	longForm := normalization.Reshape(markets)
	aligned, quality := alignment.Align(longForm, obs)
	rows := features.NewEngine().ComputeParallel(aligned, *workers)

	if err := flatfile.WriteFeatures(*outPath, rows); err != nil {
		logger.Fatalf("write features: %v", err)
	}

	fmt.Printf("Feature table written to %s\n", *outPath)
	fmt.Printf("  Markets:      %d\n", len(markets))
	fmt.Printf("  Observations: %d\n", quality.Observations)
	fmt.Printf("  Feature rows: %d\n", len(rows))
	if quality.Unmatched > 0 || quality.FanOut > 0 || quality.DuplicateTimestamps > 0 {
		fmt.Printf("  Data quality: unmatched=%d fanout=%d duplicate_timestamps=%d\n",
			quality.Unmatched, quality.FanOut, quality.DuplicateTimestamps)
	}
}
