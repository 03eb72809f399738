package eval

import (
	"context"
	"errors"
)

// ErrNotFound is the sentinel a Provider wraps when a table or key has no
// entry. The evaluator turns it into a lookup-miss error instead of failing
// the provider call outright.
var ErrNotFound = errors.New("lookup entry not found")

// Provider serves LOOKUP resolution. Implementations may be backed by static
// tables, files, or a database; the context carries cancellation for the
// remote ones.
type Provider interface {
	Lookup(ctx context.Context, table, key string) (Value, error)
}
