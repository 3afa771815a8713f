package ledger

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/qualcode/nucleus/pkg/relstore"
	"github.com/qualcode/nucleus/pkg/vectorstore"
)

// SemanticOutlier flags a fragment whose nearest-neighbour distance
// within its own archivo stratum exceeds the configured percentile
// threshold — fragments that read as thematically isolated from the
// rest of their interview.
type SemanticOutlier struct {
	FragmentID string
	Archivo    string
	Distance   float64
}

// DetectSemanticOutliers computes, for every fragment in the project,
// its cosine distance (1 - score) to the nearest other fragment
// within the same archivo, flags those whose distance sits at or
// above the given percentile (e.g. 0.95) of the project's distance
// distribution, and persists the flagged set as a validation_results
// row. Supplemented from original_source's validation.py.
func (l *Ledger) DetectSemanticOutliers(ctx context.Context, projectID string, percentile float64) ([]SemanticOutlier, error) {
	summaries, err := l.rel.ListArchivoSummaries(ctx, projectID, relstore.OrderIngestDesc)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		fragmentID string
		archivo    string
		distance   float64
	}
	var candidates []candidate
	var distances []float64

	for _, s := range summaries {
		fragments, err := l.rel.ListFragmentsForFile(ctx, projectID, s.Archivo, 0)
		if err != nil {
			return nil, err
		}
		if len(fragments) < 2 {
			continue
		}
		for _, f := range fragments {
			vector, err := l.vec.FetchVector(ctx, projectID, f.FragmentID)
			if err != nil {
				continue
			}
			matches, err := l.vec.Search(ctx, vector, vectorstore.SearchOpts{
				ProjectID: projectID,
				Archivo:   s.Archivo,
				TopK:      2, // self + nearest other
			})
			if err != nil {
				continue
			}
			nearest, ok := nearestOther(matches, f.FragmentID)
			if !ok {
				continue
			}
			d := 1 - nearest.Score
			candidates = append(candidates, candidate{fragmentID: f.FragmentID, archivo: s.Archivo, distance: d})
			distances = append(distances, d)
		}
	}
	if len(distances) == 0 {
		return nil, nil
	}

	threshold := percentileOf(distances, percentile)

	var outliers []SemanticOutlier
	for _, c := range candidates {
		if c.distance >= threshold {
			outliers = append(outliers, SemanticOutlier{FragmentID: c.fragmentID, Archivo: c.archivo, Distance: c.distance})
		}
	}

	detail, _ := json.Marshal(map[string]any{
		"percentile": percentile,
		"threshold":  threshold,
		"outliers":   outliers,
	})
	if err := l.rel.RecordValidationResult(ctx, projectID, "semantic_outlier", detail); err != nil {
		return nil, err
	}
	return outliers, nil
}

// RecordMemberCheck flags one fragment+code pair for human
// re-confirmation (member checking), persisting the flag as a
// validation_results row.
func (l *Ledger) RecordMemberCheck(ctx context.Context, projectID, fragmentID, codigo, note string) error {
	detail, _ := json.Marshal(map[string]any{
		"fragment_id": fragmentID,
		"codigo":      codigo,
		"note":        note,
	})
	return l.rel.RecordValidationResult(ctx, projectID, "member_checking", detail)
}

// TriangulationResult cross-checks the relational and graph-projection
// counts of the source-triangulation validation technique: the number
// of distinct interviews (archivos) whose fragments are coded with
// codigo. A mismatch is a consistency warning, not silently resolved —
// the graph is a projection and can legitimately lag the relational
// ledger between a promotion and its best-effort graph mirror.
type TriangulationResult struct {
	Codigo          string
	RelationalCount int
	GraphCount      int
	Agrees          bool
}

// CheckSourceTriangulation computes the source-triangulation overlap
// from both the relational ledger and the graph projection, records
// the cross-check as a validation_results row, and returns both counts
// so callers can surface a disagreement as a consistency warning.
func (l *Ledger) CheckSourceTriangulation(ctx context.Context, projectID, codigo string) (*TriangulationResult, error) {
	relCount, err := l.rel.SourceTriangulationOverlap(ctx, projectID, codigo)
	if err != nil {
		return nil, err
	}
	graphCount, err := l.graph.MultiSourceOverlap(ctx, projectID, codigo)
	if err != nil {
		return nil, err
	}

	result := &TriangulationResult{
		Codigo:          codigo,
		RelationalCount: relCount,
		GraphCount:      graphCount,
		Agrees:          relCount == graphCount,
	}

	detail, _ := json.Marshal(result)
	if err := l.rel.RecordValidationResult(ctx, projectID, "source_triangulation", detail); err != nil {
		return nil, err
	}
	return result, nil
}

// nearestOther returns the highest-scoring match that is not the
// fragment itself.
func nearestOther(matches []vectorstore.Match, self string) (vectorstore.Match, bool) {
	for _, m := range matches {
		if m.FragmentID != self {
			return m, true
		}
	}
	return vectorstore.Match{}, false
}

// percentileOf returns the value at the given percentile (0-1) of a
// copied, sorted slice.
func percentileOf(values []float64, percentile float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := int(percentile * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
