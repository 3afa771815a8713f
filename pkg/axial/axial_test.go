package axial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupePreservesFirstOccurrenceOrder(t *testing.T) {
	got := dedupe([]string{"a", "b", "a", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestDedupeEmpty(t *testing.T) {
	assert.Nil(t, dedupe(nil))
}
