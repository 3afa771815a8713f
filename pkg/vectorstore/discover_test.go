package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCentroidAveragesComponentwise(t *testing.T) {
	got := centroid([][]float32{{1, 2, 3}, {3, 4, 5}})
	assert.Equal(t, []float32{2, 3, 4}, got)
}

func TestCentroidEmptyIsNil(t *testing.T) {
	assert.Nil(t, centroid(nil))
}

func TestPointIDIsDeterministicPerProjectAndFragment(t *testing.T) {
	a := PointID("proj-1", "frag-1")
	b := PointID("proj-1", "frag-1")
	c := PointID("proj-1", "frag-2")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
