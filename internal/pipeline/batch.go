package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
	"github.com/ironsheep/uml-structure-mcp/internal/logging"
)

// BatchOptions bounds a batch run.
type BatchOptions struct {
	// Workers caps the number of diagrams processed at once. Values below 1
	// mean one at a time.
	Workers int

	// Timeout bounds each diagram. Zero means no per-diagram limit.
	Timeout time.Duration
}

// Result is the outcome for one diagram of a batch. Structure is nil when
// the diagram did not finish, and Err says why.
type Result struct {
	Name      string
	Structure *diagram.Structure
	Err       error
}

// Batch processes inputs concurrently and returns one result per input, in
// input order. A diagram that times out or is cancelled is reported without
// a structure; it never affects the others.
func (p *Processor) Batch(ctx context.Context, inputs []Input, opts BatchOptions) []Result {
	results := make([]Result, len(inputs))
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		i, in := i, in
		results[i].Name = in.Name
		g.Go(func() error {
			s, err := p.processWithTimeout(gctx, in, opts.Timeout)
			results[i].Structure, results[i].Err = s, err
			if err != nil {
				logging.Logger().Warn("diagram not processed", "diagram", in.Name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// processWithTimeout runs Process and abandons it when the deadline passes.
// An abandoned run finishes in the background and its result is discarded.
func (p *Processor) processWithTimeout(ctx context.Context, in Input, timeout time.Duration) (*diagram.Structure, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		s   *diagram.Structure
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		s, err := p.Process(ctx, in)
		done <- outcome{s, err}
	}()

	select {
	case o := <-done:
		return o.s, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
