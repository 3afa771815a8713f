package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qualcode/nucleus/pkg/vectorstore"
)

func TestPercentileOfSingleValue(t *testing.T) {
	assert.Equal(t, 3.0, percentileOf([]float64{3.0}, 0.95))
}

func TestPercentileOfOrdersBeforeIndexing(t *testing.T) {
	values := []float64{0.9, 0.1, 0.5, 0.3, 0.7}
	// sorted: 0.1 0.3 0.5 0.7 0.9; idx(1.0) = len-1 = 4 -> 0.9
	assert.Equal(t, 0.9, percentileOf(values, 1.0))
	// idx(0.0) = 0 -> 0.1
	assert.Equal(t, 0.1, percentileOf(values, 0.0))
}

func TestNearestOtherSkipsSelf(t *testing.T) {
	matches := []vectorstore.Match{
		{FragmentID: "self", Score: 0.99},
		{FragmentID: "other", Score: 0.8},
	}
	got, ok := nearestOther(matches, "self")
	assert.True(t, ok)
	assert.Equal(t, "other", got.FragmentID)
}

func TestNearestOtherNoneFound(t *testing.T) {
	matches := []vectorstore.Match{{FragmentID: "self", Score: 0.99}}
	_, ok := nearestOther(matches, "self")
	assert.False(t, ok)
}
