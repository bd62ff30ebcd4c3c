// Package groutine runs blocking native calls on pprof-labelled goroutines
// so that callers can stop waiting on them when a context ends.
package groutine

import (
	"context"
	"runtime/pprof"
)

type ctxKey struct{}

// Go starts fn on a goroutine labelled with name. A nil parent is treated
// as context.Background().
func Go(parent context.Context, name string, fn func(ctx context.Context)) {
	if parent == nil {
		parent = context.Background()
	}
	go pprof.Do(parent, pprof.Labels("goroutine_name", name), func(ctx context.Context) {
		fn(context.WithValue(ctx, ctxKey{}, name))
	})
}

// Name returns the label given to the goroutine that owns ctx, or "".
func Name(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	name, _ := ctx.Value(ctxKey{}).(string)
	return name
}

// Run calls fn on a labelled goroutine and waits for it or for ctx,
// whichever comes first. fn cannot be interrupted: when ctx wins, Run
// returns ctx.Err() and fn's eventual error is passed to abandoned (if not
// nil) so the caller can undo a late success.
func Run(ctx context.Context, name string, fn func() error, abandoned func(err error)) error {
	result := make(chan error, 1)
	Go(ctx, name, func(context.Context) {
		result <- fn()
	})

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		if abandoned != nil {
			Go(context.WithoutCancel(ctx), name+"-abandoned", func(context.Context) {
				abandoned(<-result)
			})
		}
		return ctx.Err()
	}
}
