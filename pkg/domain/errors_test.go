package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorUnwrapsToSentinel(t *testing.T) {
	err := NewValidationError("tipo must be one of the allowed relation types")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "tipo must be")
}

func TestAxialNotReadyErrorCarriesBlockingReasons(t *testing.T) {
	err := NewAxialNotReadyError("needs >= 2 evidence ids", "fragment F2 not coded with Déficit")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, err.BlockingReasons, 2)
	assert.Contains(t, err.Error(), "needs >= 2 evidence ids")
}

func TestOwnershipErrorUnwrapsToForbidden(t *testing.T) {
	err := &OwnershipError{TaskID: "task-123"}
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "task-123")
}

func TestConsistencyWarningUnwrapsToConsistency(t *testing.T) {
	err := NewConsistencyWarning("orphan suggestion F7 absent from relational store")
	assert.ErrorIs(t, err, ErrConsistency)
	assert.Contains(t, err.Error(), "orphan suggestion F7")
}
