package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/qualcode/nucleus/pkg/domain"
	"github.com/qualcode/nucleus/pkg/graphstore"
	"github.com/qualcode/nucleus/pkg/llmgateway"
	"github.com/qualcode/nucleus/pkg/relstore"
	"github.com/qualcode/nucleus/pkg/vectorstore"
)

// embedBatchSize bounds how many fragment texts go into one Embed call.
const embedBatchSize = 64

// Document is one source interview: an archivo name plus its turns.
type Document struct {
	Archivo string
	Turns   []Turn
}

// Options configures a single ingestion run.
type Options struct {
	ProjectID      string
	MinChars       int
	MaxChars       int
	EmbeddingModel string
	Metadata       map[string]string // applied to every fragment produced
}

// FileSummary reports per-file ingestion outcome.
type FileSummary struct {
	Archivo        string
	FragmentsTotal int
	FragmentsWritten int
	Skipped        bool
	Error          string
}

// Result is the outcome of ingesting one or more documents, carrying
// enough detail to distinguish a clean run from a partial one.
type Result struct {
	Files  []FileSummary
	Totals struct {
		FilesProcessed     int
		FragmentsProcessed int
		FragmentsWritten   int
		FilesFailed        int
	}
	Partial bool
}

// Pipeline wires the three stores and the LLM gateway's embedding
// endpoint into the ingest→embed→tri-store-write sequence.
type Pipeline struct {
	rel   *relstore.Store
	vec   *vectorstore.Store
	graph *graphstore.Store
	llm   *llmgateway.Gateway
	log   *slog.Logger
}

// New builds a Pipeline over already-constructed store clients.
func New(rel *relstore.Store, vec *vectorstore.Store, graph *graphstore.Store, llm *llmgateway.Gateway, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{rel: rel, vec: vec, graph: graph, llm: llm, log: log}
}

// StableFragmentID computes fragment_id = stable_hash(archivo, par_idx),
// making re-ingestion of the same document idempotent.
func StableFragmentID(archivo string, parIdx int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s\x00%d", archivo, parIdx)))
	return hex.EncodeToString(sum[:])
}

// IngestDocuments runs the full pipeline over a batch of documents,
// processing each independently so one file's embedding failure does
// not block the rest — the caller receives a Result marked Partial
// when any file failed.
func (p *Pipeline) IngestDocuments(ctx context.Context, docs []Document, opts Options) (*Result, error) {
	result := &Result{}

	for _, doc := range docs {
		summary, err := p.ingestOne(ctx, doc, opts)
		result.Files = append(result.Files, summary)
		result.Totals.FilesProcessed++
		result.Totals.FragmentsProcessed += summary.FragmentsTotal
		result.Totals.FragmentsWritten += summary.FragmentsWritten
		if err != nil {
			result.Totals.FilesFailed++
			result.Partial = true
			p.log.Error("ingest: file failed", "archivo", doc.Archivo, "error", err)
		}
	}
	return result, nil
}

func (p *Pipeline) ingestOne(ctx context.Context, doc Document, opts Options) (FileSummary, error) {
	summary := FileSummary{Archivo: doc.Archivo}

	fragments := p.buildFragments(doc, opts)
	summary.FragmentsTotal = len(fragments)
	if len(fragments) == 0 {
		summary.Skipped = true
		return summary, nil
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}

	vectors, err := p.embedAll(ctx, texts, opts.EmbeddingModel)
	if err != nil {
		summary.Error = err.Error()
		return summary, fmt.Errorf("embed batch for %s: %w", doc.Archivo, err)
	}

	written, err := p.commitFragments(ctx, fragments, vectors)
	summary.FragmentsWritten = written
	if err != nil {
		summary.Error = err.Error()
		return summary, err
	}
	return summary, nil
}

// buildFragments joins turns, splits them with soft sentence
// boundaries, and assigns stable ids and paragraph indices.
func (p *Pipeline) buildFragments(doc Document, opts Options) []domain.Fragment {
	joined := joinConsecutiveTurns(doc.Turns)

	var fragments []domain.Fragment
	parIdx := 0
	for _, turn := range joined {
		for _, text := range splitIntoFragments(turn.Text, opts.MinChars, opts.MaxChars) {
			fragments = append(fragments, domain.Fragment{
				FragmentID: StableFragmentID(doc.Archivo, parIdx),
				ProjectID:  opts.ProjectID,
				Archivo:    doc.Archivo,
				ParIdx:     parIdx,
				Speaker:    turn.Speaker,
				Text:       text,
				CharLen:    len(text),
				Metadata:   opts.Metadata,
				CreatedAt:  time.Now(),
			})
			parIdx++
		}
	}
	return fragments
}

// embedAll batches fragment texts through the gateway's embeddings
// endpoint; any single batch failure aborts the whole file, per the
// partial-ingest-result contract.
func (p *Pipeline) embedAll(ctx context.Context, texts []string, model string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.llm.Embed(ctx, model, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// commitFragments performs the tri-store write in canonical order:
// relational insert, then vector upsert, then graph merge. The
// relational store is the consistency anchor — vector/graph writes
// that fail leave sweepable orphans rather than rolling back the
// relational insert.
func (p *Pipeline) commitFragments(ctx context.Context, fragments []domain.Fragment, vectors [][]float32) (int, error) {
	written := 0
	points := make([]vectorstore.Point, 0, len(fragments))

	for i, f := range fragments {
		if err := p.rel.InsertFragment(ctx, f); err != nil {
			return written, fmt.Errorf("insert fragment %s: %w", f.FragmentID, err)
		}
		written++
		points = append(points, vectorstore.Point{
			ProjectID:  f.ProjectID,
			FragmentID: f.FragmentID,
			Archivo:    f.Archivo,
			ParIdx:     f.ParIdx,
			Speaker:    f.Speaker,
			Vector:     vectors[i],
		})
	}

	if err := p.vec.Upsert(ctx, points); err != nil {
		p.log.Warn("ingest: vector upsert failed, fragments left sweepable as orphans", "error", err)
	}

	for _, f := range fragments {
		if err := p.graph.MergeInterviewFragment(ctx, f.ProjectID, f.Archivo, f.FragmentID, f.ParIdx); err != nil {
			p.log.Warn("ingest: graph merge failed, fragment left sweepable as orphan", "fragment_id", f.FragmentID, "error", err)
		}
	}

	return written, nil
}
