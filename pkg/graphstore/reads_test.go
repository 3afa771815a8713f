package graphstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubgraphByAttributeRejectsUnknownLabel(t *testing.T) {
	s := &Store{}
	_, err := s.SubgraphByAttribute(context.Background(), "proj-1", "Persona", "x")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node label")
}

func TestSubgraphKeyPropsCoversEveryProjectionLabel(t *testing.T) {
	for _, label := range []string{"Categoria", "Codigo", "Entrevista", "Fragmento"} {
		_, ok := subgraphKeyProps[label]
		assert.True(t, ok, "missing key prop for %s", label)
	}
}
