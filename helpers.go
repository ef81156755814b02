package factory

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Sequence returns a deferred value that calls fn with 1, 2, 3 and so on,
// once per evaluation. The counter is shared by every builder using the
// returned value and is safe for concurrent use.
func Sequence(fn func(n int) any) Deferred {
	var counter atomic.Int64
	return func(Attributes) (any, error) {
		return fn(int(counter.Add(1))), nil
	}
}

// UUID returns a deferred value producing a new random UUID string per
// evaluation.
func UUID() Deferred {
	return func(Attributes) (any, error) {
		return uuid.NewString(), nil
	}
}
