package relstore

import "context"

// RecordDiscoveryRun persists one Discovery sweep result, supplemented
// from original_source's discovery_runner.py.
func (s *Store) RecordDiscoveryRun(ctx context.Context, projectID, concept, archivo, phase string, landingRate float64, jaccard *float64, discoveryType string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO discovery_runs (project_id, concept, archivo, phase, landing_rate, jaccard_overlap, discovery_type)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, projectID, concept, nullIfEmpty(archivo), phase, landingRate, jaccard, discoveryType)
	return err
}

// RecordValidationResult persists one validation-technique result
// (semantic outliers, member checking, source triangulation; the
// saturation curve is recomputed on demand rather than persisted).
func (s *Store) RecordValidationResult(ctx context.Context, projectID, technique string, detail []byte) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO validation_results (project_id, technique, detail) VALUES ($1,$2,$3)
	`, projectID, technique, detail)
	return err
}

// SourceTriangulationOverlap counts the distinct archivo values whose
// fragments are coded with the given codigo — the relational half of
// the source-triangulation validation technique (the graph adapter
// computes the same thing from the projection for cross-checking).
func (s *Store) SourceTriangulationOverlap(ctx context.Context, projectID, codigo string) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT f.archivo)
		FROM open_codes oc
		JOIN fragments f ON f.project_id = oc.project_id AND f.fragment_id = oc.fragment_id
		WHERE oc.project_id = $1 AND oc.codigo = $2
	`, projectID, codigo).Scan(&n)
	return n, err
}
