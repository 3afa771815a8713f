package graphstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/qualcode/nucleus/pkg/domain"
)

// AlgorithmResult is one node's outcome from a graph-algorithm run.
type AlgorithmResult struct {
	Nombre      string
	Etiquetas   []string
	Score       float64 // pagerank / betweenness
	CommunityID int     // louvain / leiden
}

// engineNative/engineFallback name which path produced a RunAlgorithm result.
const (
	engineNative   = "native"
	engineFallback = "gonum"
)

// RunAlgorithm executes the named algorithm over the project-scoped
// subgraph, preferring native GDS procedures when detected on the
// connected instance and falling back to an in-memory gonum computation
// otherwise. When persist is true, results are written back as node
// properties (score_centralidad for pagerank/betweenness, community_id
// for louvain/leiden).
func (s *Store) RunAlgorithm(ctx context.Context, algo domain.GraphAlgorithm, projectID string, persist bool) ([]AlgorithmResult, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	if s.hasNativeGDS(ctx, session) {
		results, err := s.runNative(ctx, session, algo, projectID, persist)
		if err == nil {
			return results, nil
		}
		s.log.Warn("graphstore: native algorithm failed, falling back to gonum", "algorithm", algo, "error", err)
	}
	return s.runGonumFallback(ctx, session, algo, projectID, persist)
}

// hasNativeGDS probes for the GDS procedure catalogue (gds.list) once
// per call. MAGE procedures are not probed, so an instance that has
// only MAGE installed takes the gonum fallback.
func (s *Store) hasNativeGDS(ctx context.Context, session neo4j.SessionWithContext) bool {
	_, err := session.Run(ctx, `CALL gds.list() YIELD name RETURN name LIMIT 1`, nil)
	return err == nil
}

func (s *Store) runNative(ctx context.Context, session neo4j.SessionWithContext, algo domain.GraphAlgorithm, projectID string, persist bool) ([]AlgorithmResult, error) {
	projection := fmt.Sprintf("axial-%s", projectID)

	_, _ = session.Run(ctx, `
		CALL gds.graph.project.cypher(
			$projection,
			'MATCH (n) WHERE n.project_id = $project_id RETURN id(n) AS id',
			'MATCH (s)-[r:REL]->(t) WHERE s.project_id = $project_id AND t.project_id = $project_id RETURN id(s) AS source, id(t) AS target'
		)
	`, map[string]any{"projection": projection, "project_id": projectID})
	defer session.Run(ctx, `CALL gds.graph.drop($projection, false)`, map[string]any{"projection": projection})

	var procedure, writeProp string
	switch algo {
	case domain.AlgoPageRank:
		procedure, writeProp = "gds.pageRank", "score_centralidad"
	case domain.AlgoBetweenness:
		procedure, writeProp = "gds.betweenness", "score_centralidad"
	case domain.AlgoLouvain:
		procedure, writeProp = "gds.louvain", "community_id"
	case domain.AlgoLeiden:
		procedure, writeProp = "gds.leiden", "community_id"
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported algorithm %q", algo))
	}

	cypher := fmt.Sprintf(`CALL %s.stream($projection) YIELD nodeId, %s AS value
		RETURN gds.util.asNode(nodeId).nombre AS nombre, labels(gds.util.asNode(nodeId)) AS etiquetas, value`,
		procedure, streamYieldField(algo))

	res, err := session.Run(ctx, cypher, map[string]any{"projection": projection})
	if err != nil {
		return nil, err
	}

	var out []AlgorithmResult
	for res.Next(ctx) {
		rec := res.Record()
		nombre, _ := rec.Get("nombre")
		etiquetas, _ := rec.Get("etiquetas")
		value, _ := rec.Get("value")

		r := AlgorithmResult{Nombre: fmt.Sprintf("%v", nombre)}
		if labels, ok := etiquetas.([]any); ok {
			for _, l := range labels {
				r.Etiquetas = append(r.Etiquetas, fmt.Sprintf("%v", l))
			}
		}
		switch writeProp {
		case "score_centralidad":
			r.Score, _ = value.(float64)
		case "community_id":
			if v, ok := value.(int64); ok {
				r.CommunityID = int(v)
			}
		}
		out = append(out, r)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}

	if persist {
		if err := s.persistResults(ctx, session, out, writeProp, projectID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func streamYieldField(algo domain.GraphAlgorithm) string {
	if algo == domain.AlgoLouvain || algo == domain.AlgoLeiden {
		return "communityId"
	}
	return "score"
}

// runGonumFallback loads the project-scoped subgraph into an in-memory
// gonum graph and computes the requested algorithm there, mirroring the
// source system's NetworkX fallback.
func (s *Store) runGonumFallback(ctx context.Context, session neo4j.SessionWithContext, algo domain.GraphAlgorithm, projectID string, persist bool) ([]AlgorithmResult, error) {
	res, err := session.Run(ctx, `
		MATCH (s)-[:REL]->(t)
		WHERE s.project_id = $project_id AND t.project_id = $project_id
		RETURN elementId(s) AS sid, s.nombre AS sname, labels(s) AS slabels,
		       elementId(t) AS tid, t.nombre AS tname, labels(t) AS tlabels
	`, map[string]any{"project_id": projectID})
	if err != nil {
		return nil, domain.WrapUpstream(err, "fetch subgraph for gonum fallback")
	}

	ids := make(map[string]int64)
	props := make(map[int64]AlgorithmResult)
	nextID := int64(0)
	idFor := func(elementID string, name any, labels any) int64 {
		if id, ok := ids[elementID]; ok {
			return id
		}
		id := nextID
		nextID++
		ids[elementID] = id
		r := AlgorithmResult{Nombre: fmt.Sprintf("%v", name)}
		if ls, ok := labels.([]any); ok {
			for _, l := range ls {
				r.Etiquetas = append(r.Etiquetas, fmt.Sprintf("%v", l))
			}
		}
		props[id] = r
		return id
	}

	g := simple.NewDirectedGraph()
	for res.Next(ctx) {
		rec := res.Record()
		sid, _ := rec.Get("sid")
		sname, _ := rec.Get("sname")
		slabels, _ := rec.Get("slabels")
		tid, _ := rec.Get("tid")
		tname, _ := rec.Get("tname")
		tlabels, _ := rec.Get("tlabels")

		from := idFor(fmt.Sprintf("%v", sid), sname, slabels)
		to := idFor(fmt.Sprintf("%v", tid), tname, tlabels)
		if g.Node(from) == nil {
			g.AddNode(simple.Node(from))
		}
		if g.Node(to) == nil {
			g.AddNode(simple.Node(to))
		}
		if from != to {
			g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}
	if err := res.Err(); err != nil {
		return nil, domain.WrapUpstream(err, "iterate subgraph rows")
	}

	var out []AlgorithmResult
	switch algo {
	case domain.AlgoPageRank:
		scores := network.PageRank(g, 0.85, 1e-8)
		for id, score := range scores {
			r := props[id]
			r.Score = score
			out = append(out, r)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	case domain.AlgoBetweenness:
		scores := network.Betweenness(g)
		for id, score := range scores {
			r := props[id]
			r.Score = score
			out = append(out, r)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	case domain.AlgoLouvain, domain.AlgoLeiden:
		undirected := toUndirected(g)
		communities := community.Modularize(undirected, 1, nil).Communities()
		for idx, comm := range communities {
			for _, n := range comm {
				r := props[n.ID()]
				r.CommunityID = idx
				out = append(out, r)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].CommunityID != out[j].CommunityID {
				return out[i].CommunityID < out[j].CommunityID
			}
			return out[i].Nombre < out[j].Nombre
		})

	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported algorithm %q", algo))
	}

	if persist {
		writeProp := "score_centralidad"
		if algo == domain.AlgoLouvain || algo == domain.AlgoLeiden {
			writeProp = "community_id"
		}
		if err := s.persistResults(ctx, session, out, writeProp, projectID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func toUndirected(g graph.Directed) graph.Undirected {
	u := simple.NewUndirectedGraph()
	nodes := g.Nodes()
	for nodes.Next() {
		n := nodes.Node()
		if u.Node(n.ID()) == nil {
			u.AddNode(n)
		}
	}
	edges := g.Edges()
	for edges.Next() {
		e := edges.Edge()
		u.SetEdge(u.NewEdge(e.From(), e.To()))
	}
	return u
}

// persistResults writes results back as node properties, batched in
// chunks of 1000 via UNWIND, matching the source system's batched
// persistence step.
func (s *Store) persistResults(ctx context.Context, session neo4j.SessionWithContext, results []AlgorithmResult, prop, projectID string) error {
	const chunkSize = 1000

	batch := make([]map[string]any, 0, len(results))
	for _, r := range results {
		val := r.Score
		if prop == "community_id" {
			val = float64(r.CommunityID)
		}
		batch = append(batch, map[string]any{"nombre": r.Nombre, "value": val})
	}

	query := fmt.Sprintf(`
		UNWIND $batch AS row
		MATCH (n {nombre: row.nombre, project_id: $project_id})
		SET n.%s = row.value
	`, prop)

	for i := 0; i < len(batch); i += chunkSize {
		end := i + chunkSize
		if end > len(batch) {
			end = len(batch)
		}
		if _, err := session.Run(ctx, query, map[string]any{"batch": batch[i:end], "project_id": projectID}); err != nil {
			return domain.WrapUpstream(err, "persist graph algorithm results")
		}
	}
	return nil
}
