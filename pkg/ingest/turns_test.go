package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinConsecutiveTurnsMergesSameSpeaker(t *testing.T) {
	turns := []Turn{
		{Speaker: "interviewee", Text: "Llegó el pueblo entero."},
		{Speaker: "interviewee", Text: "Nadie faltó."},
		{Speaker: "interviewer", Text: "¿Y después?"},
	}
	joined := joinConsecutiveTurns(turns)
	assert.Len(t, joined, 2)
	assert.Equal(t, "Llegó el pueblo entero. Nadie faltó.", joined[0].Text)
	assert.Equal(t, "interviewer", joined[1].Speaker)
}

func TestJoinConsecutiveTurnsEmpty(t *testing.T) {
	assert.Nil(t, joinConsecutiveTurns(nil))
}

func TestSplitIntoFragmentsShortTextIsOneFragment(t *testing.T) {
	got := splitIntoFragments("Llegó el pueblo entero.", 10, 200)
	assert.Equal(t, []string{"Llegó el pueblo entero."}, got)
}

func TestSplitIntoFragmentsRespectsMaxCharsAndPrefersSentenceBoundary(t *testing.T) {
	text := "Primera oración corta. Segunda oración también corta. Tercera oración más larga para forzar un corte."
	got := splitIntoFragments(text, 10, 60)
	for _, f := range got {
		assert.LessOrEqual(t, len(f), 60)
	}
	assert.True(t, len(got) > 1)
	for _, f := range got {
		assert.NotEmpty(t, f)
	}
}

func TestSplitIntoFragmentsEmptyText(t *testing.T) {
	assert.Nil(t, splitIntoFragments("   ", 10, 60))
}

func TestStableFragmentIDIsDeterministicAndDistinct(t *testing.T) {
	a := StableFragmentID("entrevista_1.txt", 0)
	b := StableFragmentID("entrevista_1.txt", 0)
	c := StableFragmentID("entrevista_1.txt", 1)
	d := StableFragmentID("entrevista_2.txt", 0)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}
