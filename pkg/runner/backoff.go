package runner

import (
	"math/rand/v2"
	"time"
)

const (
	backoffBase   = 750 * time.Millisecond
	maxBackoff    = 6 * time.Second
	backoffJitter = 350 * time.Millisecond
)

// backoffDelay returns the per-step retry delay for the given
// (1-indexed) attempt: 750ms·2^(attempt-1), capped at 6s, plus up to
// 350ms of jitter — the transient-retry policy for C3 search calls.
func backoffDelay(attempt int) time.Duration {
	base := backoffBase * time.Duration(1<<uint(attempt-1))
	if base > maxBackoff {
		base = maxBackoff
	}
	return base + time.Duration(rand.Int64N(int64(backoffJitter)+1))
}
