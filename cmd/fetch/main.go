// Package main fetches market metadata and price history from the CLOB API
// and writes the flat-file contracts consumed by the pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"polymarket-feature-lab/internal/clob"
	"polymarket-feature-lab/internal/domain"
	"polymarket-feature-lab/internal/flatfile"
	"polymarket-feature-lab/internal/normalization"
	"polymarket-feature-lab/internal/observability"
)

func main() {
	host := flag.String("host", clob.DefaultHost, "CLOB API host")
	marketsOut := flag.String("markets-out", "market_lookup.csv", "Output path for market metadata CSV")
	obsOut := flag.String("observations-out", "extended_time_series_data.csv", "Output path for observations CSV")
	fidelity := flag.Int("fidelity", clob.DefaultFidelity, "History resolution in minutes")
	maxMarkets := flag.Int("max-markets", 0, "Limit number of markets fetched (0 = all)")
	timeout := flag.Duration("timeout", clob.DefaultTimeout, "HTTP timeout per request")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[fetch] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, cancelling fetch", sig)
		cancel()
	}()

	metrics := observability.NewMetrics("")
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("metrics listening on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	client := clob.NewClient(clob.Config{
		Host:     *host,
		Timeout:  *timeout,
		Fidelity: *fidelity,
		Metrics:  metrics,
	})

	records, err := client.FetchMarkets(ctx)
	if err != nil {
		logger.Fatalf("fetch markets: %v", err)
	}
	if *maxMarkets > 0 && len(records) > *maxMarkets {
		records = records[:*maxMarkets]
	}
	logger.Printf("fetched %d markets", len(records))

	markets := normalization.FlattenMarkets(records)
	longForm := normalization.Reshape(markets)

	var allObs []*domain.PriceObservation
	var seq int64
	start := time.Now()
	for _, row := range longForm {
		if ctx.Err() != nil {
			logger.Fatalf("fetch cancelled: %v", ctx.Err())
		}
		if row.TokenID == domain.SentinelNA {
			continue
		}
		points, err := client.FetchPriceHistory(ctx, row.TokenID)
		if err != nil {
			// One failed instrument must not sink the batch.
			logger.Printf("fetch history for %s: %v", row.TokenID, err)
			continue
		}
		obs := clob.ObservationsForInstrument(row, points, seq)
		seq += int64(len(obs))
		allObs = append(allObs, obs...)
	}
	logger.Printf("fetched %d observations across %d instruments in %s",
		len(allObs), len(longForm), time.Since(start))

	if err := flatfile.WriteMarkets(*marketsOut, markets); err != nil {
		logger.Fatalf("write markets: %v", err)
	}
	if err := flatfile.WriteObservations(*obsOut, allObs); err != nil {
		logger.Fatalf("write observations: %v", err)
	}

	fmt.Printf("Wrote %s and %s\n", *marketsOut, *obsOut)
}
