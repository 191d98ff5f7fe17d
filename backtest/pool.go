package backtest

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Outcome pairs a request with its result or error.
type Outcome struct {
	Request Request
	Result  *Result
	Err     error
}

// RunAll runs independent requests on at most workers goroutines. Each run
// owns its ledger; requests sharing a Ledger must not be run together.
// Outcomes are returned in request order.
func (d *Driver) RunAll(ctx context.Context, reqs []Request, workers int) []Outcome {
	if workers <= 0 {
		workers = 1
	}
	out := make([]Outcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := d.Run(ctx, req)
			out[i] = Outcome{Request: req, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
