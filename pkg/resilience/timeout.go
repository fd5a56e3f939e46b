package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout runs fn under a deadline derived from ctx. fn must honour the
// context it is given. If the deadline passes while the parent is still live,
// the returned error wraps context.DeadlineExceeded and names the operation.
// A non-positive timeout runs fn with ctx unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(attemptCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: no result within %v: %w", name, timeout, err)
		}
		return fmt.Errorf("%s: no result within %v: %w (%v)", name, timeout, context.DeadlineExceeded, err)
	}
	return err
}
