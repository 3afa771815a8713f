// Package axial is the axial coding engine (C8): evidence-gated
// Category→Code relation assignment and the graph-algorithm facade
// wrapper.
//
// Grounded on original_source's app/axial.py (_validate_evidence,
// assign_axial_relation: relational-first-then-graph-merge with no
// rollback on graph failure).
package axial

import (
	"context"
	"log/slog"

	"github.com/qualcode/nucleus/pkg/domain"
	"github.com/qualcode/nucleus/pkg/graphstore"
	"github.com/qualcode/nucleus/pkg/relstore"
)

// Engine ties the relational ledger and the graph projection together
// behind AssignAxialRelation and RunGraphAnalysis.
type Engine struct {
	rel   *relstore.Store
	graph *graphstore.Store
	log   *slog.Logger
}

// New builds an Engine over already-constructed store clients.
func New(rel *relstore.Store, graph *graphstore.Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{rel: rel, graph: graph, log: log}
}

// AssignAxialRelation enforces the evidence gate (≥2 distinct evidence
// ids, each a fragment that exists for the project and is already
// coded with codigo), then writes the relational ledger row and
// upserts the graph projection. Relational is the canonical write: a
// graph-merge failure is logged and retryable but never rolls back the
// relational commit.
func (e *Engine) AssignAxialRelation(ctx context.Context, projectID, categoria, codigo string, tipo domain.RelationType, evidencia []string, memo string) (*domain.AxialRelation, error) {
	if !domain.AllowedRelationTypes[tipo] {
		return nil, domain.NewValidationError("relation type is not in the allowed set")
	}

	if reasons := e.blockingReasons(ctx, projectID, codigo, evidencia); len(reasons) > 0 {
		return nil, domain.NewAxialNotReadyError(reasons...)
	}

	rel := domain.AxialRelation{
		ProjectID: projectID,
		Categoria: categoria,
		Codigo:    codigo,
		Tipo:      tipo,
		Evidencia: dedupe(evidencia),
		Memo:      memo,
	}

	id, err := e.rel.InsertAxialRelation(ctx, rel)
	if err != nil {
		return nil, err
	}
	rel.ID = id

	if err := e.graph.MergeCategoryCodeRelationship(ctx, rel); err != nil {
		e.log.Warn("axial: graph merge failed, relational commit stands", "categoria", categoria, "codigo", codigo, "error", err)
	}
	return &rel, nil
}

// blockingReasons runs the evidence gate and returns every reason the
// relation cannot yet be written, matching _validate_evidence's
// behaviour of reporting all violations rather than failing fast on
// the first one.
func (e *Engine) blockingReasons(ctx context.Context, projectID, codigo string, evidencia []string) []string {
	var reasons []string

	unique := dedupe(evidencia)
	if len(unique) < 2 {
		reasons = append(reasons, "fewer than 2 evidence ids")
		return reasons
	}

	coded, err := e.rel.CodedFragmentsForCode(ctx, projectID, codigo)
	if err != nil {
		reasons = append(reasons, "could not verify coded fragments: "+err.Error())
		return reasons
	}

	for _, id := range unique {
		exists, err := e.rel.ExistsFragment(ctx, projectID, id)
		if err != nil {
			reasons = append(reasons, "could not verify fragment "+id)
			continue
		}
		if !exists {
			reasons = append(reasons, "fragment not found: "+id)
			continue
		}
		if !coded[id] {
			reasons = append(reasons, "fragment not coded with target code: "+id)
		}
	}
	return reasons
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// RunGraphAnalysis delegates to the graph store's algorithm facade;
// axial never mixes projects and only persists results as node
// properties, never as new relational rows.
func (e *Engine) RunGraphAnalysis(ctx context.Context, algo domain.GraphAlgorithm, projectID string, persist bool) ([]graphstore.AlgorithmResult, error) {
	return e.graph.RunAlgorithm(ctx, algo, projectID, persist)
}
