// Package ledger is the candidate ledger and coding operations surface
// (C7): assign/unassign open codes, similarity-based suggestions, and
// theoretical-sampling interview ranking.
//
// Grounded on original_source's app/coding.py (assign_open_code,
// unassign_open_code, find_similar_codes) and app/analysis.py's
// theoretical-sampling scoring formula.
package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/qualcode/nucleus/pkg/domain"
	"github.com/qualcode/nucleus/pkg/graphstore"
	"github.com/qualcode/nucleus/pkg/llmgateway"
	"github.com/qualcode/nucleus/pkg/relstore"
	"github.com/qualcode/nucleus/pkg/vectorstore"
)

// Ledger ties the relational candidate store, the graph projection,
// the vector store, and the LLM gateway together behind the coding
// operations the spec names.
type Ledger struct {
	rel   *relstore.Store
	vec   *vectorstore.Store
	graph *graphstore.Store
	llm   *llmgateway.Gateway
}

// New builds a Ledger over already-constructed store clients.
func New(rel *relstore.Store, vec *vectorstore.Store, graph *graphstore.Store, llm *llmgateway.Gateway) *Ledger {
	return &Ledger{rel: rel, vec: vec, graph: graph, llm: llm}
}

// AssignOpenCode never writes a promoted open code directly: it
// inserts a candidate tagged source_origin='manual' at full
// confidence, leaving promotion to the validation workflow.
func (l *Ledger) AssignOpenCode(ctx context.Context, projectID, fragmentID, codigo, archivo, cita string) (string, error) {
	fragmentIDCopy := fragmentID
	ids, err := l.rel.InsertCandidates(ctx, []domain.CandidateCode{{
		ProjectID:       projectID,
		Codigo:          codigo,
		FragmentID:      &fragmentIDCopy,
		Archivo:         archivo,
		Cita:            cita,
		SourceOrigin:    domain.SourceManual,
		ScoreConfidence: 1.0,
		Status:          domain.StatusPendiente,
	}}, true)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil // deduped: an identical pending/validated candidate already exists
	}
	return ids[0], nil
}

// Promote moves a candidate into the promoted table and mirrors it
// into the graph projection; the relational write is canonical, the
// graph write is best-effort.
func (l *Ledger) Promote(ctx context.Context, projectID, candidateID, actor string) (*domain.OpenCode, error) {
	oc, err := l.rel.Promote(ctx, projectID, candidateID, actor)
	if err != nil {
		return nil, err
	}
	if err := l.graph.MergeCodeFragment(ctx, projectID, oc.Codigo, oc.FragmentID); err != nil {
		// relational promotion already committed; graph is a projection.
		_ = err
	}
	return oc, nil
}

// UnassignOpenCode deletes the promoted row and the graph projection
// edge; an unassign audit entry is recorded by the relational delete
// itself, and any failure in the best-effort follow-up cleanup is
// swallowed per original_source's idiom.
func (l *Ledger) UnassignOpenCode(ctx context.Context, projectID, fragmentID, codigo, actor string) error {
	if err := l.rel.UnassignOpenCode(ctx, projectID, fragmentID, codigo, actor); err != nil {
		return err
	}
	_ = l.graph.DeleteCodeFragment(ctx, projectID, codigo, fragmentID)
	return nil
}

// Suggestion is one ranked candidate fragment for a seed fragment.
type Suggestion struct {
	FragmentID string
	Score      float64
	Memo       string
}

// SuggestSimilarFragments consumes C3's kNN search and, when an LLM
// model is given, requests a short comparison memo contrasting the
// seed fragment against its top suggestions.
func (l *Ledger) SuggestSimilarFragments(ctx context.Context, projectID, seedFragmentID string, topK int, llmModel string) ([]Suggestion, error) {
	seed, err := l.rel.FetchFragment(ctx, projectID, seedFragmentID)
	if err != nil {
		return nil, err
	}
	vector, err := l.vec.FetchVector(ctx, projectID, seedFragmentID)
	if err != nil {
		return nil, err
	}

	matches, err := l.vec.Search(ctx, vector, vectorstore.SearchOpts{
		ProjectID:          projectID,
		ExcludeInterviewer: true,
		TopK:               topK + 1, // +1 to tolerate the seed itself coming back
	})
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, topK)
	for _, m := range matches {
		if m.FragmentID == seedFragmentID {
			continue
		}
		suggestions = append(suggestions, Suggestion{FragmentID: m.FragmentID, Score: m.Score})
		if len(suggestions) == topK {
			break
		}
	}

	if llmModel != "" && len(suggestions) > 0 {
		memo, err := l.comparisonMemo(ctx, seed.Text, suggestions, llmModel)
		if err == nil {
			for i := range suggestions {
				suggestions[i].Memo = memo
			}
		}
	}
	return suggestions, nil
}

func (l *Ledger) comparisonMemo(ctx context.Context, seedText string, suggestions []Suggestion, model string) (string, error) {
	const maxSeedChars = 600
	const maxExcerptChars = 450
	const maxExcerpts = 3

	seed := truncate(seedText, maxSeedChars)
	var excerpts []string
	for i, s := range suggestions {
		if i >= maxExcerpts {
			break
		}
		excerpts = append(excerpts, truncate(fmt.Sprintf("(%s) score=%.3f", s.FragmentID, s.Score), maxExcerptChars))
	}

	system := "Eres un analista cualitativo experto en teoría fundamentada."
	user := fmt.Sprintf("Fragmento semilla:\n%s\n\nSugerencias:\n%v\n\nEscribe un memo breve comparando la semilla con las sugerencias.", seed, excerpts)

	result, err := l.llm.ChatJSON(ctx, system, user, model, 400, []string{"memo"})
	if err != nil {
		return "", err
	}
	memo, _ := result["memo"].(string)
	return memo, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// SimilarCode is one candidate code ranked by average neighbour-score.
type SimilarCode struct {
	Codigo        string
	AverageScore  float64
	NeighbourCount int
}

// FindSimilarCodes takes one evidence fragment already coded with
// codigo, finds its ~50 nearest neighbours, looks up the codes
// assigned to those neighbours, excludes the source code, and ranks
// the remaining codes by average neighbour score.
func (l *Ledger) FindSimilarCodes(ctx context.Context, projectID, codigo string, topK int) ([]SimilarCode, error) {
	const neighbourLimit = 50

	coded, err := l.rel.CodedFragmentsForCode(ctx, projectID, codigo)
	if err != nil {
		return nil, err
	}
	var evidenceFragmentID string
	for id := range coded {
		evidenceFragmentID = id
		break
	}
	if evidenceFragmentID == "" {
		return nil, domain.NewValidationError(fmt.Sprintf("codigo %q has no coded fragment to seed similarity from", codigo))
	}

	vector, err := l.vec.FetchVector(ctx, projectID, evidenceFragmentID)
	if err != nil {
		return nil, err
	}
	matches, err := l.vec.Search(ctx, vector, vectorstore.SearchOpts{
		ProjectID:          projectID,
		ExcludeInterviewer: true,
		TopK:               neighbourLimit,
	})
	if err != nil {
		return nil, err
	}

	scoreSum := make(map[string]float64)
	scoreCount := make(map[string]int)
	for _, m := range matches {
		codes, err := l.codesForFragment(ctx, projectID, m.FragmentID)
		if err != nil {
			return nil, err
		}
		for _, c := range codes {
			if c == codigo {
				continue
			}
			scoreSum[c] += m.Score
			scoreCount[c]++
		}
	}

	out := make([]SimilarCode, 0, len(scoreSum))
	for c, sum := range scoreSum {
		out = append(out, SimilarCode{Codigo: c, AverageScore: sum / float64(scoreCount[c]), NeighbourCount: scoreCount[c]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AverageScore > out[j].AverageScore })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (l *Ledger) codesForFragment(ctx context.Context, projectID, fragmentID string) ([]string, error) {
	return l.rel.CodesForFragment(ctx, projectID, fragmentID)
}
