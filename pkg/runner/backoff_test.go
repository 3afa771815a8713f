package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelayIsCappedNearSixSeconds(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffDelay(attempt)
		assert.LessOrEqual(t, d, maxBackoff+backoffJitter)
		assert.GreaterOrEqual(t, d, backoffBase)
	}
}

func TestBackoffDelayGrowsWithAttempt(t *testing.T) {
	assert.Less(t, backoffBase, backoffBase*2)
	d1 := backoffDelay(1)
	d3 := backoffDelay(3)
	assert.GreaterOrEqual(t, d3, d1)
}
