package observe

import "context"

type opKey struct{}

// WithOp returns a context carrying the name of the calling operation, such as
// "embed_one". Log entries, spans and metrics recorded under the context are
// attributed to it.
func WithOp(ctx context.Context, op string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, opKey{}, op)
}

// OpFrom returns the operation stored by WithOp, or "" if none.
func OpFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	op, _ := ctx.Value(opKey{}).(string)
	return op
}
