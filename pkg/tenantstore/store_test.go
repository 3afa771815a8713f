package tenantstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualcode/nucleus/pkg/domain"
)

func TestPut_StrictModeRequiresOrg(t *testing.T) {
	store := New(NewMemoryBackend(), "artifacts", false)

	_, err := store.Put(context.Background(), "", "proj1", "notes/hello.md", []byte("hi"), "text/markdown", true)
	require.ErrorIs(t, err, domain.ErrTenantRequired)
}

func TestPut_OrglessAllowedWhenFlagSetAndNonStrict(t *testing.T) {
	store := New(NewMemoryBackend(), "artifacts", true)

	res, err := store.Put(context.Background(), "", "proj1", "notes/hello.md", []byte("hi"), "text/markdown", false)
	require.NoError(t, err)
	assert.Equal(t, "projects/proj1/notes/hello.md", res.Name)
	assert.Equal(t, 2, res.Bytes)
}

func TestPut_ReturnsChecksumAndEnforcesPrefix(t *testing.T) {
	store := New(NewMemoryBackend(), "artifacts", false)

	res, err := store.Put(context.Background(), "acme", "proj1", "notes/hello.md", []byte("hi"), "text/markdown", true)
	require.NoError(t, err)
	assert.Equal(t, "org/acme/projects/proj1/notes/hello.md", res.Name)
	assert.NotEmpty(t, res.SHA256)

	data, err := store.Get(context.Background(), res.Name)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestList_ScopedByPrefix(t *testing.T) {
	backend := NewMemoryBackend()
	store := New(backend, "artifacts", false)

	_, err := store.Put(context.Background(), "acme", "proj1", "notes/a.md", []byte("a"), "", true)
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "acme", "proj2", "notes/b.md", []byte("b"), "", true)
	require.NoError(t, err)

	names, err := store.List(context.Background(), ProjectPrefix("acme", "proj1"), 10)
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "org/acme/projects/proj1/notes/a.md", names[0])
}
