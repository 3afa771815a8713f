package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskRegistryCancelInvokesRegisteredFunc(t *testing.T) {
	r := newTaskRegistry()
	cancelled := false
	_, cancel := context.WithCancel(context.Background())
	r.register("task-1", func() { cancelled = true; cancel() })

	assert.True(t, r.Cancel("task-1"))
	assert.True(t, cancelled)
}

func TestTaskRegistryCancelUnknownTaskReturnsFalse(t *testing.T) {
	r := newTaskRegistry()
	assert.False(t, r.Cancel("missing"))
}

func TestTaskRegistryUnregisterRemovesEntry(t *testing.T) {
	r := newTaskRegistry()
	r.register("task-1", func() {})
	r.unregister("task-1")
	assert.False(t, r.Cancel("task-1"))
	assert.Empty(t, r.activeIDs())
}
