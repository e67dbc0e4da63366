package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/vocab-enricher/pkg/logging"
)

// MaxBatchSize is the largest batch accepted at the service edge.
const MaxBatchSize = 10

// Prometheus metrics for batch processing.
var (
	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vocab_batch_items_total",
		Help: "Total batch items processed by outcome",
	}, []string{"outcome"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vocab_batch_duration_seconds",
		Help:    "Duration of whole batch runs in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120},
	})
)

// Options holds batch processing configuration.
type Options struct {
	// Concurrency is the chunk size: how many items run at once.
	Concurrency int

	// Delay is the pause between chunks. No pause follows the last chunk.
	Delay time.Duration
}

// DefaultOptions returns the default batch configuration.
func DefaultOptions() Options {
	return Options{
		Concurrency: 3,
		Delay:       time.Second,
	}
}

// Result is the outcome of one item.
type Result[T any] struct {
	Item    string `json:"item"`
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Err     error  `json:"-"`
}

// Error returns the item's error message, or "" on success.
func (r Result[T]) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Op processes a single item.
type Op[T any] func(ctx context.Context, item string) (T, error)

// Process runs op over items chunk by chunk and returns one result per item,
// in input order. A cancelled context marks the remaining items as failed.
func Process[T any](ctx context.Context, items []string, op Op[T], opts Options) []Result[T] {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}

	start := time.Now()
	logger := logging.NewLogger(logging.ComponentBatch).With().
		Str("batch_id", uuid.NewString()).
		Logger()

	results := make([]Result[T], len(items))
	chunks := (len(items) + opts.Concurrency - 1) / opts.Concurrency

	logger.Info().
		Int("items", len(items)).
		Int("chunks", chunks).
		Int("concurrency", opts.Concurrency).
		Msg("Starting batch")

	done := 0
	for chunk := 0; chunk < chunks; chunk++ {
		from := chunk * opts.Concurrency
		to := min(from+opts.Concurrency, len(items))

		if chunk > 0 && opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				cancelFrom(results, items, from, err)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			cancelFrom(results, items, from, err)
			break
		}

		var wg sync.WaitGroup
		for i := from; i < to; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = run(ctx, items[i], op)
			}(i)
		}
		wg.Wait()

		done = to
		logger.Info().
			Int("processed", done).
			Int("total", len(items)).
			Float64("progress_pct", float64(done)/float64(len(items))*100).
			Msg("Batch progress")
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
			itemsTotal.WithLabelValues("success").Inc()
		} else {
			itemsTotal.WithLabelValues("failure").Inc()
		}
	}
	batchDuration.Observe(time.Since(start).Seconds())

	logger.Info().
		Int("succeeded", succeeded).
		Int("failed", len(items)-succeeded).
		Dur("duration", time.Since(start)).
		Msg("Batch complete")

	return results
}

// run executes op for one item, turning a panic into a failed result.
func run[T any](ctx context.Context, item string, op Op[T]) (result Result[T]) {
	result.Item = item
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Err = fmt.Errorf("panic processing %q: %v", item, r)
		}
	}()

	data, err := op(ctx, item)
	if err != nil {
		result.Err = err
		return result
	}
	result.Data = data
	result.Success = true
	return result
}

func cancelFrom[T any](results []Result[T], items []string, from int, err error) {
	for i := from; i < len(items); i++ {
		results[i] = Result[T]{Item: items[i], Err: fmt.Errorf("batch cancelled: %w", err)}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
