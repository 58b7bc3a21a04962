package pipeline

import (
	"errors"
	"math/rand"
	"time"
)

// retryable is satisfied by the collaborator error types (translation,
// synthesis, storage).
type retryable interface {
	Retryable() bool
}

type unreachable interface {
	Unreachable() bool
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var r retryable
	return errors.As(err, &r) && r.Retryable()
}

// IsUnreachable checks if an error means the collaborator could not be
// reached at all.
func IsUnreachable(err error) bool {
	var u unreachable
	return errors.As(err, &u) && u.Unreachable()
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}
