// Package graphstore is the graph store adapter (C4): a tenant-scoped
// Neo4j projection of categories, codes, and their axial relations,
// plus a graph-algorithm facade that prefers native GDS procedures
// and falls back to an in-memory gonum computation.
//
// Grounded on original_source's app/axial.py (_run_native_graph_analysis,
// run_gds_analysis: engine auto-detection, NetworkX fallback, batched
// UNWIND persistence) translated into the neo4j-go-driver/v5 idiom.
package graphstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/qualcode/nucleus/pkg/config"
	"github.com/qualcode/nucleus/pkg/domain"
)

// Store wraps a Neo4j driver scoped to a single database.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	log      *slog.Logger
}

// New connects to Neo4j over Bolt and verifies connectivity.
func New(ctx context.Context, cfg config.GraphConfig, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	return &Store{driver: driver, database: "neo4j", log: log}, nil
}

// Close releases the driver at process shutdown.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

// EnsureConstraints creates the composite uniqueness constraints that
// must exist before any write, each on (key, project_id): nombre for
// Categoria and Codigo, fragment_id for Fragmento, archivo for Entrevista.
func (s *Store) EnsureConstraints(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	stmts := []string{
		`CREATE CONSTRAINT category_unique IF NOT EXISTS
			FOR (c:Categoria) REQUIRE (c.nombre, c.project_id) IS UNIQUE`,
		`CREATE CONSTRAINT code_unique IF NOT EXISTS
			FOR (c:Codigo) REQUIRE (c.nombre, c.project_id) IS UNIQUE`,
		`CREATE CONSTRAINT fragment_unique IF NOT EXISTS
			FOR (f:Fragmento) REQUIRE (f.fragment_id, f.project_id) IS UNIQUE`,
		`CREATE CONSTRAINT interview_unique IF NOT EXISTS
			FOR (e:Entrevista) REQUIRE (e.archivo, e.project_id) IS UNIQUE`,
	}
	for _, stmt := range stmts {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return domain.WrapUpstream(err, "ensure graph constraints")
		}
	}
	return nil
}

// MergeCategoryCodeRelationship upserts the Category-[:REL]->Code edge
// carrying tipo/evidencia/memo, with project_id stamped on both nodes
// and the relation so no query ever crosses a tenant boundary.
func (s *Store) MergeCategoryCodeRelationship(ctx context.Context, rel domain.AxialRelation) error {
	if !domain.AllowedRelationTypes[rel.Tipo] {
		return domain.NewValidationError(fmt.Sprintf("relation type %q is not allowed", rel.Tipo))
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MERGE (cat:Categoria {nombre: $categoria, project_id: $project_id})
			MERGE (cod:Codigo {nombre: $codigo, project_id: $project_id})
			MERGE (cat)-[r:REL {tipo: $tipo, project_id: $project_id}]->(cod)
			SET r.evidencia = $evidencia, r.memo = $memo, r.origen = 'axial'
		`, map[string]any{
			"categoria":  rel.Categoria,
			"codigo":     rel.Codigo,
			"project_id": rel.ProjectID,
			"tipo":       string(rel.Tipo),
			"evidencia":  rel.Evidencia,
			"memo":       rel.Memo,
		})
	})
	if err != nil {
		return domain.WrapUpstream(err, "merge category-code relationship")
	}
	return nil
}

// MergeInterviewFragment upserts the Entrevista->Fragmento edge the
// ingestion pipeline writes as its graph-store half.
func (s *Store) MergeInterviewFragment(ctx context.Context, projectID, archivo, fragmentID string, parIdx int) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MERGE (e:Entrevista {archivo: $archivo, project_id: $project_id})
			MERGE (f:Fragmento {fragment_id: $fragment_id, project_id: $project_id})
			SET f.par_idx = $par_idx
			MERGE (e)-[:CONTIENE {project_id: $project_id}]->(f)
		`, map[string]any{
			"archivo":     archivo,
			"project_id":  projectID,
			"fragment_id": fragmentID,
			"par_idx":     parIdx,
		})
	})
	if err != nil {
		return domain.WrapUpstream(err, "merge interview fragment")
	}
	return nil
}

// MergeCodeFragment upserts the Codigo-[:CODIFICADO]->Fragmento edge
// that mirrors a promoted open code into the graph projection. Called
// once a candidate is promoted — the graph is never the source of
// truth for coding, only a projection of it.
func (s *Store) MergeCodeFragment(ctx context.Context, projectID, codigo, fragmentID string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MERGE (cod:Codigo {nombre: $codigo, project_id: $project_id})
			MERGE (f:Fragmento {fragment_id: $fragment_id, project_id: $project_id})
			MERGE (cod)-[:CODIFICADO {project_id: $project_id}]->(f)
		`, map[string]any{
			"codigo":      codigo,
			"project_id":  projectID,
			"fragment_id": fragmentID,
		})
	})
	if err != nil {
		return domain.WrapUpstream(err, "merge code-fragment edge")
	}
	return nil
}

// DeleteCodeFragment removes the Codigo-[:CODIFICADO]->Fragmento edge,
// the graph half of UnassignOpenCode.
func (s *Store) DeleteCodeFragment(ctx context.Context, projectID, codigo, fragmentID string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MATCH (:Codigo {nombre: $codigo, project_id: $project_id})-[r:CODIFICADO {project_id: $project_id}]->(:Fragmento {fragment_id: $fragment_id, project_id: $project_id})
			DELETE r
		`, map[string]any{
			"codigo":      codigo,
			"project_id":  projectID,
			"fragment_id": fragmentID,
		})
	})
	if err != nil {
		return domain.WrapUpstream(err, "delete code-fragment edge")
	}
	return nil
}

// MigrateLegacyDiscoveredEdges finds Category-[:REL]->Code edges that
// carry origen='descubierta' but have no backing ledger row (no
// evidencia) and deletes them, reconciling the projection with the
// relational ledger per the consistency contract.
func (s *Store) MigrateLegacyDiscoveredEdges(ctx context.Context, projectID string) (int, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (:Categoria {project_id: $project_id})-[r:REL {project_id: $project_id}]->(:Codigo)
			WHERE r.origen = 'descubierta' AND (r.evidencia IS NULL OR size(r.evidencia) = 0)
			DELETE r
			RETURN count(r) AS deleted
		`, map[string]any{"project_id": projectID})
		if err != nil {
			return 0, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return 0, err
		}
		deleted, _ := record.Get("deleted")
		n, _ := deleted.(int64)
		return int(n), nil
	})
	if err != nil {
		return 0, domain.WrapUpstream(err, "migrate legacy discovered edges")
	}
	return result.(int), nil
}
