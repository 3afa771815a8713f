// Package retrieval is hybrid retrieval (C6): vector kNN with a
// speaker-filter-then-retry fallback, fused with a BM25-equivalent
// lexical rank from the relational store's full-text index.
//
// Grounded on spec §4.6 and the relational store's to_tsvector/ts_rank
// index (teacher pkg/database/migrations.go's GIN-index idiom).
package retrieval

import (
	"context"
	"sort"

	"github.com/qualcode/nucleus/pkg/llmgateway"
	"github.com/qualcode/nucleus/pkg/relstore"
	"github.com/qualcode/nucleus/pkg/vectorstore"
)

// Options configures one Search call.
type Options struct {
	ProjectID      string
	Query          string
	TopK           int
	UseHybrid      bool
	BM25Weight     float64 // w in [0,1]; final = (1-w)*semantic + w*bm25
	ScoreThreshold float64
	EmbeddingModel string
}

// Hit is one fused search result.
type Hit struct {
	FragmentID string
	Archivo    string
	ParIdx     int
	Speaker    string
	Semantic   float64
	BM25       float64
	Final      float64
}

// Searcher ties the embedding step, vector kNN, and lexical fusion
// together behind a single Search entry point.
type Searcher struct {
	rel *relstore.Store
	vec *vectorstore.Store
	llm *llmgateway.Gateway
}

// New builds a Searcher over already-constructed store clients.
func New(rel *relstore.Store, vec *vectorstore.Store, llm *llmgateway.Gateway) *Searcher {
	return &Searcher{rel: rel, vec: vec, llm: llm}
}

// Search embeds the query, retrieves a widened kNN candidate pool, and
// (if hybrid fusion is requested) reranks it with a lexical BM25-
// equivalent score before truncating to topK.
func (s *Searcher) Search(ctx context.Context, opts Options) ([]Hit, error) {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}

	vectors, err := s.llm.Embed(ctx, opts.EmbeddingModel, []string{opts.Query})
	if err != nil {
		return nil, err
	}
	queryVector := vectors[0]

	candidateLimit := opts.TopK * 3
	if candidateLimit < 10 {
		candidateLimit = 10
	}

	matches, err := s.vec.Search(ctx, queryVector, vectorstore.SearchOpts{
		ProjectID:          opts.ProjectID,
		ExcludeInterviewer: true,
		TopK:               candidateLimit,
	})
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		matches, err = s.vec.Search(ctx, queryVector, vectorstore.SearchOpts{
			ProjectID:          opts.ProjectID,
			ExcludeInterviewer: false,
			TopK:               candidateLimit,
		})
		if err != nil {
			return nil, err
		}
	}

	hits := make([]Hit, len(matches))
	for i, m := range matches {
		hits[i] = Hit{
			FragmentID: m.FragmentID,
			Archivo:    m.Archivo,
			ParIdx:     m.ParIdx,
			Speaker:    m.Speaker,
			Semantic:   m.Score,
			Final:      m.Score,
		}
	}

	if opts.UseHybrid && len(hits) > 0 {
		if err := s.fuseLexical(ctx, opts, hits); err != nil {
			return nil, err
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Final > hits[j].Final })

	var out []Hit
	for _, h := range hits {
		if h.Final < opts.ScoreThreshold {
			continue
		}
		out = append(out, h)
		if len(out) == opts.TopK {
			break
		}
	}
	return out, nil
}

func (s *Searcher) fuseLexical(ctx context.Context, opts Options, hits []Hit) error {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.FragmentID
	}

	ranks, err := s.rel.LexicalRankFragments(ctx, opts.ProjectID, ids, opts.Query)
	if err != nil {
		return err
	}
	if len(ranks) == 0 {
		return nil
	}

	rankByID := make(map[string]float64, len(ranks))
	maxRank := 0.0
	for _, r := range ranks {
		rankByID[r.FragmentID] = r.Rank
		if r.Rank > maxRank {
			maxRank = r.Rank
		}
	}
	if maxRank == 0 {
		return nil
	}

	w := opts.BM25Weight
	for i := range hits {
		normalized := rankByID[hits[i].FragmentID] / maxRank
		hits[i].BM25 = normalized
		hits[i].Final = (1-w)*hits[i].Semantic + w*normalized
	}
	return nil
}
