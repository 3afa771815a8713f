package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaccardIndexIdenticalSets(t *testing.T) {
	assert.Equal(t, 1.0, jaccardIndex([]string{"f1", "f2"}, []string{"f2", "f1"}))
}

func TestJaccardIndexDisjointSets(t *testing.T) {
	assert.Equal(t, 0.0, jaccardIndex([]string{"f1"}, []string{"f2"}))
}

func TestJaccardIndexPartialOverlap(t *testing.T) {
	// {f1,f2,f3} vs {f2,f3,f4}: intersection=2, union=4
	got := jaccardIndex([]string{"f1", "f2", "f3"}, []string{"f2", "f3", "f4"})
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestJaccardIndexBothEmpty(t *testing.T) {
	assert.Equal(t, 0.0, jaccardIndex(nil, nil))
}
