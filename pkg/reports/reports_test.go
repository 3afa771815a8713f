package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterByArchivoKeepsMatchingNamesOnly(t *testing.T) {
	artifacts := []Artifact{
		{Kind: KindRunnerMemo, Name: "notes/runner_semantic/20260101_semantic_runner_entrevista-01_s1_i0_codigo.md"},
		{Kind: KindRunnerMemo, Name: "notes/runner_semantic/20260101_semantic_runner_entrevista-02_s1_i0_codigo.md"},
	}

	got := FilterByArchivo(artifacts, "entrevista-01")
	assert.Len(t, got, 1)
	assert.Equal(t, artifacts[0], got[0])
}

func TestFilterByArchivoEmptySlugReturnsAll(t *testing.T) {
	artifacts := []Artifact{{Name: "a"}, {Name: "b"}}
	got := FilterByArchivo(artifacts, "")
	assert.Equal(t, artifacts, got)
}
