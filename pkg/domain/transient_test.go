package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransientKeywordMatch(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", errors.New("dial tcp: i/o timeout"), true},
		{"gateway", errors.New("502 Bad Gateway"), true},
		{"temporarily unavailable", errors.New("service Temporarily Unavailable"), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"unavailable", errors.New("rpc error: code = Unavailable"), true},
		{"schema error", errors.New("column \"foo\" does not exist"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestWrapUpstreamClassifies(t *testing.T) {
	transient := WrapUpstream(errors.New("request timeout"), "vector search")
	assert.ErrorIs(t, transient, ErrTransientUpstream)
	assert.NotErrorIs(t, transient, ErrPersistentUpstream)

	persistent := WrapUpstream(errors.New("missing credentials"), "vector search")
	assert.ErrorIs(t, persistent, ErrPersistentUpstream)
	assert.NotErrorIs(t, persistent, ErrTransientUpstream)

	assert.NoError(t, WrapUpstream(nil, "vector search"))
}
