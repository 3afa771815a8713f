package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/qualcode/nucleus/pkg/domain"
)

// MultiSourceOverlap counts the distinct Entrevista nodes reachable
// from the given codigo's CODIFICADO edges — the graph-projection half
// of the source-triangulation validation technique (relstore computes
// the relational half from the ledger directly; this cross-checks it
// against the projection). Read-only, project_id-filtered on every
// node and edge in the pattern.
func (s *Store) MultiSourceOverlap(ctx context.Context, projectID, codigo string) (int, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (:Codigo {nombre: $codigo, project_id: $project_id})-[:CODIFICADO {project_id: $project_id}]->(f:Fragmento {project_id: $project_id})
			MATCH (e:Entrevista {project_id: $project_id})-[:CONTIENE {project_id: $project_id}]->(f)
			RETURN count(DISTINCT e) AS n
		`, map[string]any{"codigo": codigo, "project_id": projectID})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := record.Get("n")
		v, _ := n.(int64)
		return int(v), nil
	})
	if err != nil {
		return 0, domain.WrapUpstream(err, "multi-source overlap")
	}
	return result.(int), nil
}

// subgraphKeyProps maps the four projection labels onto their unique
// key property, so SubgraphByAttribute can only be asked about nodes
// the projection actually defines a uniqueness constraint for.
var subgraphKeyProps = map[string]string{
	"Categoria":  "nombre",
	"Codigo":     "nombre",
	"Entrevista": "archivo",
	"Fragmento":  "fragment_id",
}

// SubgraphSummary is a bounded read-only view of one node's immediate
// neighbourhood, counted by relation type and neighbour label.
type SubgraphSummary struct {
	Label      string
	Key        string
	Neighbours map[string]int // "<relation-type>><neighbour-label>" -> count
}

// SubgraphByAttribute summarises the immediate neighbourhood of the
// node identified by (label, key's unique attribute value), counted
// by relation type and neighbour label — e.g. how many Codigo nodes a
// Categoria participates in REL edges with, or how many Fragmento
// nodes an Entrevista contains. Read-only and project_id-filtered on
// both the matched node and every neighbour/edge in the pattern.
func (s *Store) SubgraphByAttribute(ctx context.Context, projectID, label, value string) (*SubgraphSummary, error) {
	keyProp, ok := subgraphKeyProps[label]
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown node label %q for subgraph summary", label))
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (n:%s {%s: $value, project_id: $project_id})-[r {project_id: $project_id}]-(m {project_id: $project_id})
		RETURN type(r) AS rel_type, labels(m)[0] AS neighbour_label, count(*) AS n
	`, label, keyProp)

	neighbours, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"value": value, "project_id": projectID})
		if err != nil {
			return nil, err
		}
		counts := make(map[string]int)
		for res.Next(ctx) {
			rec := res.Record()
			relType, _ := rec.Get("rel_type")
			neighbourLabel, _ := rec.Get("neighbour_label")
			n, _ := rec.Get("n")
			key := fmt.Sprintf("%v>%v", relType, neighbourLabel)
			cnt, _ := n.(int64)
			counts[key] = int(cnt)
		}
		return counts, res.Err()
	})
	if err != nil {
		return nil, domain.WrapUpstream(err, "subgraph by attribute")
	}
	return &SubgraphSummary{Label: label, Key: value, Neighbours: neighbours.(map[string]int)}, nil
}
