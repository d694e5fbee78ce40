package resilience

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the default pool width.
const DefaultWorkers = 15

// PoolConfig configures the worker pool.
type PoolConfig struct {
	// Workers is the fixed number of workers.
	// Default: 15
	Workers int
}

// Pool is a bounded worker pool: a fixed number of workers consume tasks from
// a queue and report one result per task. A Pool owns no task state and may be
// shared by concurrent Map calls; each call starts its own workers.
type Pool struct {
	config PoolConfig

	mu        sync.Mutex
	active    int
	maxActive int
	completed int64
	failed    int64
}

// NewPool creates a new worker pool.
func NewPool(config PoolConfig) *Pool {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}

	return &Pool{config: config}
}

// Workers returns the pool width.
func (p *Pool) Workers() int {
	return p.config.Workers
}

type mapResult[T comparable, R any] struct {
	item  T
	value R
}

// Map runs fn for every item on the pool and returns the results keyed by
// item. Items should be distinct; a repeated item is computed again and the
// last result wins.
//
// The first failure is returned and no item is started after it. Items
// already running are not cancelled: they run to completion and their results
// are discarded.
func Map[T comparable, R any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) (R, error)) (map[T]R, error) {
	if fn == nil {
		return nil, ErrNilOperation
	}
	if p == nil {
		p = NewPool(PoolConfig{})
	}

	out := make(map[T]R, len(items))
	if len(items) == 0 {
		return out, nil
	}

	workers := min(p.config.Workers, len(items))
	tasks := make(chan T)
	results := make(chan mapResult[T, R], len(items))
	stop := make(chan struct{})
	var stopOnce sync.Once

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for item := range tasks {
				if stopped(stop) {
					continue
				}
				p.begin()
				value, err := fn(ctx, item)
				p.end(err)
				if err != nil {
					stopOnce.Do(func() { close(stop) })
					return err
				}
				results <- mapResult[T, R]{item: item, value: value}
			}
			return nil
		})
	}

feed:
	for _, item := range items {
		if stopped(stop) || ctx.Err() != nil {
			break
		}
		select {
		case tasks <- item:
		case <-stop:
			break feed
		case <-ctx.Done():
			break feed
		}
	}
	close(tasks)

	err := g.Wait()
	close(results)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for r := range results {
		out[r.item] = r.value
	}
	return out, nil
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

func (p *Pool) begin() {
	p.mu.Lock()
	p.active++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}
	p.mu.Unlock()
}

func (p *Pool) end(err error) {
	p.mu.Lock()
	p.active--
	if err != nil {
		p.failed++
	} else {
		p.completed++
	}
	p.mu.Unlock()
}

// Metrics returns current pool metrics.
func (p *Pool) Metrics() PoolMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PoolMetrics{
		Active:    p.active,
		MaxActive: p.maxActive,
		Workers:   p.config.Workers,
		Completed: p.completed,
		Failed:    p.failed,
	}
}

// PoolMetrics contains worker pool statistics.
type PoolMetrics struct {
	Active    int
	MaxActive int
	Workers   int
	Completed int64
	Failed    int64
}
