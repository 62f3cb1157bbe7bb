// Package pipeline orchestrates the batch run:
// load metadata → reshape → load observations → align → features → store.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"polymarket-feature-lab/internal/alignment"
	"polymarket-feature-lab/internal/domain"
	"polymarket-feature-lab/internal/features"
	"polymarket-feature-lab/internal/normalization"
	"polymarket-feature-lab/internal/observability"
	"polymarket-feature-lab/internal/storage"
)

// Runner executes the alignment-and-feature pipeline over the backing stores.
type Runner struct {
	marketStore      storage.MarketStore
	observationStore storage.ObservationStore
	featureStore     storage.FeatureStore

	engine  *features.Engine
	workers int
	logger  *log.Logger
	metrics *observability.Metrics
}

// Options for creating a Runner.
type Options struct {
	MarketStore      storage.MarketStore
	ObservationStore storage.ObservationStore
	FeatureStore     storage.FeatureStore

	// Workers > 1 enables per-group parallel feature computation.
	Workers int
	Logger  *log.Logger
	Metrics *observability.Metrics // optional
}

// New creates a new Runner.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		marketStore:      opts.MarketStore,
		observationStore: opts.ObservationStore,
		featureStore:     opts.FeatureStore,
		engine:           features.NewEngine(),
		workers:          opts.Workers,
		logger:           logger,
		metrics:          opts.Metrics,
	}
}

// Result summarizes one pipeline run, including the data-quality counters
// callers use as observability signals. No degraded case is fatal; the run
// produces a best-effort table plus these counts.
type Result struct {
	Markets         int
	DegradedMarkets int // markets with sentinel token slots
	Observations    int
	AlignedRows     int
	FeatureRows     int
	Groups          int // distinct instrument groups
	Quality         alignment.QualityReport
	Duration        time.Duration
}

// Run executes one batch pass. Each stage owns and returns a new table; the
// stores are only read at the start and written at the end.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	markets, err := r.marketStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}

	obs, err := r.observationStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}

	stageStart := time.Now()
	longForm := normalization.Reshape(markets)
	aligned, quality := alignment.Align(longForm, obs)
	r.observeStage("align", stageStart)

	stageStart = time.Now()
	rows := r.engine.ComputeParallel(aligned, r.workers)
	r.observeStage("features", stageStart)

	// The feature table is derived state: each run recomputes it in full
	// from the current markets and observations, so the previous table is
	// replaced rather than appended to. Scheduled re-runs stay conflict-free.
	stageStart = time.Now()
	if err := r.featureStore.ReplaceAll(ctx, rows); err != nil {
		return nil, fmt.Errorf("store feature rows: %w", err)
	}
	r.observeStage("store", stageStart)

	result := &Result{
		Markets:         len(markets),
		DegradedMarkets: countDegradedMarkets(markets),
		Observations:    len(obs),
		AlignedRows:     len(aligned),
		FeatureRows:     len(rows),
		Groups:          countGroups(aligned),
		Quality:         quality,
		Duration:        time.Since(start),
	}

	r.logger.Printf("pipeline run: markets=%d observations=%d aligned=%d features=%d unmatched=%d fanout=%d dup_ts=%d in %s",
		result.Markets, result.Observations, result.AlignedRows, result.FeatureRows,
		quality.Unmatched, quality.FanOut, quality.DuplicateTimestamps, result.Duration)

	r.observe(result)
	return result, nil
}

// observe publishes the run's counters when metrics are wired.
func (r *Runner) observe(result *Result) {
	if r.metrics == nil {
		return
	}
	r.metrics.MarketsNormalized.Add(float64(result.Markets))
	if result.DegradedMarkets > 0 {
		r.metrics.MalformedRecords.WithLabelValues("market_tokens").Add(float64(result.DegradedMarkets))
	}
	r.metrics.InstrumentGroups.Set(float64(result.Groups))
	r.metrics.ObservationsAligned.Add(float64(result.AlignedRows))
	r.metrics.JoinUnmatched.Add(float64(result.Quality.Unmatched))
	r.metrics.JoinFanOut.Add(float64(result.Quality.FanOut))
	r.metrics.DuplicateTimestamps.Add(float64(result.Quality.DuplicateTimestamps))
	r.metrics.FeatureRowsComputed.Add(float64(result.FeatureRows))
	r.metrics.PipelineDuration.Observe(result.Duration.Seconds())
	r.metrics.PipelineRunsTotal.WithLabelValues("ok").Inc()
	r.metrics.LastSuccessfulPipeline.SetToCurrentTime()
}

// observeStage records one stage duration when metrics are wired.
func (r *Runner) observeStage(stage string, start time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// countDegradedMarkets counts markets that carry at least one sentinel token
// slot; these produce unjoinable long-form rows.
func countDegradedMarkets(markets []*domain.NormalizedMarketRow) int {
	n := 0
	for _, m := range markets {
		for slot := 1; slot <= domain.BinaryTokenSlots; slot++ {
			if m.Slot(slot).ID == domain.SentinelNA {
				n++
				break
			}
		}
	}
	return n
}

// countGroups counts distinct instrument groups in the aligned table.
func countGroups(rows []*domain.AlignedRow) int {
	seen := make(map[string]struct{})
	for _, row := range rows {
		seen[row.TokenID] = struct{}{}
	}
	return len(seen)
}
