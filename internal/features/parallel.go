package features

import (
	"sync"

	"polymarket-feature-lab/internal/domain"
)

// ComputeParallel computes feature rows with one worker per CPU-bound slot,
// each group handled by exactly one worker with private cursor state. Output
// order is identical to Compute: row i of the result corresponds to input
// row i, so the canonical order is preserved.
func (e *Engine) ComputeParallel(rows []*domain.AlignedRow, workers int) []*domain.FeatureRow {
	if workers <= 1 || len(rows) == 0 {
		return e.Compute(rows)
	}

	// Collect each group's row indexes in input order.
	groupOrder := make([]string, 0)
	groups := make(map[string][]int)
	for i, row := range rows {
		if _, ok := groups[row.TokenID]; !ok {
			groupOrder = append(groupOrder, row.TokenID)
		}
		groups[row.TokenID] = append(groups[row.TokenID], i)
	}

	out := make([]*domain.FeatureRow, len(rows))
	work := make(chan string)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tokenID := range work {
				cur := newGroupCursor()
				for _, i := range groups[tokenID] {
					// Distinct groups write distinct indexes; no shared state.
					out[i] = computeRow(rows[i], cur)
				}
			}
		}()
	}

	for _, tokenID := range groupOrder {
		work <- tokenID
	}
	close(work)
	wg.Wait()

	return out
}
