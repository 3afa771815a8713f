package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qualcode/nucleus/pkg/domain"
	"github.com/qualcode/nucleus/pkg/vectorstore"
)

func newTestState() *runState {
	return &runState{
		task:          &domain.RunnerTask{Input: domain.RunnerInput{Project: "p1"}},
		unionGlobal:   make(map[string]domain.UnionEntry),
		visitedGlobal: make(map[string]bool),
		knownCodes:    make(map[string]bool),
	}
}

func TestUpdateUnionsKeepsBestScorePerFragment(t *testing.T) {
	e := &Engine{}
	st := newTestState()

	newCount := e.updateUnions(st, "a.txt", []vectorstore.Match{
		{FragmentID: "f1", Score: 0.5},
		{FragmentID: "f2", Score: 0.9},
	})
	assert.Equal(t, 2, newCount)

	newCount = e.updateUnions(st, "a.txt", []vectorstore.Match{
		{FragmentID: "f1", Score: 0.8}, // improves
		{FragmentID: "f2", Score: 0.1}, // worse, ignored
	})
	assert.Equal(t, 0, newCount)
	assert.Equal(t, 0.8, st.unionGlobal["f1"].Score)
	assert.Equal(t, 0.9, st.unionGlobal["f2"].Score)
	assert.Equal(t, 2, st.task.Counters.UniqueSuggestions)
}

func TestNextUnvisitedFragmentSkipsVisited(t *testing.T) {
	fragments := []domain.Fragment{{FragmentID: "f1"}, {FragmentID: "f2"}, {FragmentID: "f3"}}
	visited := map[string]bool{"f1": true}

	next, ok := nextUnvisitedFragment(fragments, visited)
	assert.True(t, ok)
	assert.Equal(t, "f2", next)
}

func TestNextUnvisitedFragmentAllVisitedReturnsFalse(t *testing.T) {
	fragments := []domain.Fragment{{FragmentID: "f1"}}
	visited := map[string]bool{"f1": true}

	_, ok := nextUnvisitedFragment(fragments, visited)
	assert.False(t, ok)
}

func TestPickNextSeedBestScorePrefersHighestUnvisited(t *testing.T) {
	e := &Engine{}
	matches := []vectorstore.Match{
		{FragmentID: "f1", Score: 0.3},
		{FragmentID: "f2", Score: 0.9},
		{FragmentID: "f3", Score: 0.6},
	}
	visited := map[string]bool{"f2": true}

	next, ok := e.pickNextSeed("best-score", matches, visited, nil)
	assert.True(t, ok)
	assert.Equal(t, "f3", next)
}

func TestPickNextSeedFirstTakesFirstUnvisitedInOrder(t *testing.T) {
	e := &Engine{}
	matches := []vectorstore.Match{
		{FragmentID: "f1", Score: 0.3},
		{FragmentID: "f2", Score: 0.9},
	}
	visited := map[string]bool{"f1": true}

	next, ok := e.pickNextSeed("first", matches, visited, nil)
	assert.True(t, ok)
	assert.Equal(t, "f2", next)
}

func TestPickNextSeedFallsBackToInterviewFragments(t *testing.T) {
	e := &Engine{}
	fragments := []domain.Fragment{{FragmentID: "f9"}}

	next, ok := e.pickNextSeed("best-score", nil, map[string]bool{}, fragments)
	assert.True(t, ok)
	assert.Equal(t, "f9", next)
}

func TestRotateToFrontMovesTargetToFront(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	got := rotateToFront(items, "c")
	assert.Equal(t, []string{"c", "d", "a", "b"}, got)
}

func TestRotateToFrontTargetAlreadyFirstIsNoop(t *testing.T) {
	items := []string{"a", "b", "c"}
	got := rotateToFront(items, "a")
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestRotateToFrontUnknownTargetIsNoop(t *testing.T) {
	items := []string{"a", "b", "c"}
	got := rotateToFront(items, "z")
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSlugifyLowercasesAndReplacesNonAlnum(t *testing.T) {
	assert.Equal(t, "entrevista-01", slugify("Entrevista 01"))
	assert.Equal(t, "c-digo-de-prueba", slugify("código_de--prueba"))
}

func TestMemoLogicalPathEmbedsArchivoStepAndCode(t *testing.T) {
	path := memoLogicalPath("Entrevista 01", "Codigo X", 2, 0)
	assert.Contains(t, path, "notes/runner_semantic/")
	assert.Contains(t, path, "semantic_runner_entrevista-01_s2_i0_codigo-x.md")
}
