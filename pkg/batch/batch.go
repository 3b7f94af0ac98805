// Package batch fans independent per-image work out over a bounded pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/photo-grader/pkg/detection"
	"github.com/menta2k/photo-grader/pkg/types"
)

var (
	// ErrCapacityExceeded is returned before any work starts
	ErrCapacityExceeded = errors.New("batch exceeds image capacity")
	// ErrAuthoritativeUnavailable aborts the authoritative workflow
	ErrAuthoritativeUnavailable = errors.New("authoritative score unavailable")
)

// Pool bounds how many images are decoded and transformed at once
type Pool struct {
	workers int
	logger  *slog.Logger
}

// New creates a pool. workers <= 0 uses GOMAXPROCS; a nil logger uses slog.Default().
func New(workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{workers: workers, logger: logger}
}

// Workers returns the concurrency limit
func (p *Pool) Workers() int {
	return p.workers
}

// CheckCapacity rejects batches larger than limit. limit <= 0 disables the check.
func CheckCapacity(n, limit int) error {
	if limit > 0 && n > limit {
		return fmt.Errorf("%w: %d images, limit is %d", ErrCapacityExceeded, n, limit)
	}
	return nil
}

// Outcome is the result or error for one input index
type Outcome[T any] struct {
	Index    int           `json:"index"`
	Value    T             `json:"value"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Result holds one outcome per input, in input order
type Result[T any] struct {
	RequestID string
	Outcomes  []Outcome[T]
}

// Failed returns the outcomes that carry an error
func (r *Result[T]) Failed() []Outcome[T] {
	var out []Outcome[T]
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Values returns the successful values in input order
func (r *Result[T]) Values() []T {
	out := make([]T, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Err == nil {
			out = append(out, o.Value)
		}
	}
	return out
}

// NewRequestID returns a fresh batch identifier
func NewRequestID() string {
	return uuid.NewString()
}

// Run calls fn for every index in [0, n) on the pool. A failing or panicking
// item is recorded in its own Outcome and never cancels its siblings.
func Run[T any](ctx context.Context, p *Pool, n int, fn func(ctx context.Context, i int) (T, error)) *Result[T] {
	res := &Result[T]{RequestID: NewRequestID(), Outcomes: make([]Outcome[T], n)}
	log := p.logger.With("request_id", res.RequestID)
	log.Debug("batch started", "items", n, "workers", p.workers)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			res.Outcomes[i] = runOne(ctx, i, fn)
			if err := res.Outcomes[i].Err; err != nil {
				log.Warn("batch item failed", "index", i, "error", err)
			}
			return nil
		})
	}
	g.Wait()

	log.Info("batch finished", "items", n, "failed", len(res.Failed()), "elapsed", time.Since(start))
	return res
}

func runOne[T any](ctx context.Context, i int, fn func(ctx context.Context, i int) (T, error)) (out Outcome[T]) {
	start := time.Now()
	out.Index = i
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic: %v", r)
		}
		out.Duration = time.Since(start)
	}()
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	out.Value, out.Err = fn(ctx, i)
	return out
}

// Authoritative classifies every image, treating the classifier's score as
// ground truth. A failed image is retried exactly once; if it still fails the
// whole batch is aborted and no scores are returned.
func Authoritative(ctx context.Context, p *Pool, images [][]byte, c detection.Classifier) (string, []types.Classification, error) {
	requestID := NewRequestID()
	log := p.logger.With("request_id", requestID)
	out := make([]types.Classification, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, data := range images {
		g.Go(func() error {
			cls, err := c.Classify(gctx, data)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("classifier failed, retrying once", "index", i, "error", err)
				cls, err = c.Classify(gctx, data)
			}
			if err != nil {
				return fmt.Errorf("%w: image %d: %v", ErrAuthoritativeUnavailable, i, err)
			}
			out[i] = cls
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if !errors.Is(err, ErrAuthoritativeUnavailable) {
			err = fmt.Errorf("%w: %w", ErrAuthoritativeUnavailable, err)
		}
		log.Error("authoritative scoring aborted", "error", err)
		return requestID, nil, err
	}
	log.Info("authoritative scoring complete", "images", len(images))
	return requestID, out, nil
}
