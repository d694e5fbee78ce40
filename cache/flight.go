package cache

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"
)

// flight collapses concurrent misses for one key. Every caller waits on its
// own context. The shared call runs under the context of the caller that
// started it; if that caller goes away first, the callers still waiting
// start the call again.
type flight struct {
	group singleflight.Group
}

// abandonedError marks a shared call that ended because the context it ran
// under was done.
type abandonedError struct {
	err error
}

func (e *abandonedError) Error() string { return e.err.Error() }
func (e *abandonedError) Unwrap() error { return e.err }

func (f *flight) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (v any, shared bool, err error) {
	for {
		ch := f.group.DoChan(key, func() (any, error) {
			v, err := fn(ctx)
			if err != nil && ctx.Err() != nil {
				return nil, &abandonedError{err: err}
			}
			return v, err
		})

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case res := <-ch:
			var abandoned *abandonedError
			if errors.As(res.Err, &abandoned) {
				if err := ctx.Err(); err != nil {
					return nil, false, err
				}
				continue
			}
			return res.Val, res.Shared, res.Err
		}
	}
}
