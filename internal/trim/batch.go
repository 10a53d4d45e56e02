package trim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds TrimAll when the caller passes a non-positive
// concurrency.
const DefaultConcurrency = 4

// TrimAll trims every prompt to budget using up to concurrency goroutines.
// Results keep the order of prompts. The first error stops the prompts that
// have not started yet and is returned with the prompt's index.
func (t *Trimmer) TrimAll(ctx context.Context, prompts []string, budget, concurrency int) ([]Result, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]Result, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, p := range prompts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := t.Fit(p, budget)
			if err != nil {
				return fmt.Errorf("trim: prompt %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
