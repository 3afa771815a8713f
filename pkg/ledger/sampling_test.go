package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qualcode/nucleus/pkg/relstore"
)

func TestTheoreticalSamplingScoresFavoursUnderAnalysedStrata(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	summaries := []relstore.ArchivoSummary{
		{Archivo: "a.txt", FragmentCount: 10, AreaTematica: "salud", ActorPrincipal: "lider", LastUpdated: t0},
		{Archivo: "b.txt", FragmentCount: 50, AreaTematica: "salud", ActorPrincipal: "lider", LastUpdated: t0.Add(24 * time.Hour)},
		{Archivo: "c.txt", FragmentCount: 5, AreaTematica: "educacion", ActorPrincipal: "docente", LastUpdated: t0.Add(48 * time.Hour)},
	}

	rankings := theoreticalSamplingScores(summaries, DefaultSamplingWeights)
	byArchivo := make(map[string]InterviewRanking)
	for _, r := range rankings {
		byArchivo[r.Archivo] = r
	}

	// c.txt is alone in its stratum (educacion/docente), so its stratum
	// total (5) is far below the max stratum total (60, salud/lider) —
	// gap_norm should be close to 1.
	assert.Greater(t, byArchivo["c.txt"].GapNorm, byArchivo["b.txt"].GapNorm)

	// richness should track fragment count monotonically
	assert.Less(t, byArchivo["c.txt"].RichnessNorm, byArchivo["a.txt"].RichnessNorm)
	assert.Less(t, byArchivo["a.txt"].RichnessNorm, byArchivo["b.txt"].RichnessNorm)

	// recency: oldest gets 0, newest gets 1
	assert.Equal(t, 0.0, byArchivo["a.txt"].RecencyNorm)
	assert.Equal(t, 1.0, byArchivo["c.txt"].RecencyNorm)
}

func TestTheoreticalSamplingScoresSingleArchivoNoDivideByZero(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	summaries := []relstore.ArchivoSummary{
		{Archivo: "only.txt", FragmentCount: 3, AreaTematica: "x", ActorPrincipal: "y", LastUpdated: t0},
	}
	rankings := theoreticalSamplingScores(summaries, DefaultSamplingWeights)
	assert.Len(t, rankings, 1)
	assert.Equal(t, 1.0, rankings[0].RecencyNorm)
}
