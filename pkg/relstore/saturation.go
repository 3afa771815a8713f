package relstore

import "context"

// SaturationPoint is one step of the cumulative distinct-open-codes
// curve, ordered by ingest time of the owning interview.
type SaturationPoint struct {
	Archivo            string
	CumulativeDistinct int
}

// SaturationCurve computes the cumulative distinct-open-codes-per-interview
// curve, ordered by the interview's earliest fragment ingest time.
func (s *Store) SaturationCurve(ctx context.Context, projectID string) ([]SaturationPoint, error) {
	rows, err := s.Pool.Query(ctx, `
		WITH interview_order AS (
			SELECT archivo, MIN(created_at) AS first_seen
			FROM fragments WHERE project_id = $1
			GROUP BY archivo
		),
		codes_by_interview AS (
			SELECT f.archivo, oc.codigo
			FROM open_codes oc
			JOIN fragments f ON f.project_id = oc.project_id AND f.fragment_id = oc.fragment_id
			WHERE oc.project_id = $1
		)
		SELECT io.archivo, io.first_seen
		FROM interview_order io
		ORDER BY io.first_seen ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var archivosInOrder []string
	for rows.Next() {
		var archivo string
		var firstSeen any
		if err := rows.Scan(&archivo, &firstSeen); err != nil {
			return nil, err
		}
		archivosInOrder = append(archivosInOrder, archivo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	out := make([]SaturationPoint, 0, len(archivosInOrder))
	for _, archivo := range archivosInOrder {
		codeRows, err := s.Pool.Query(ctx, `
			SELECT DISTINCT oc.codigo
			FROM open_codes oc
			JOIN fragments f ON f.project_id = oc.project_id AND f.fragment_id = oc.fragment_id
			WHERE oc.project_id = $1 AND f.archivo = $2
		`, projectID, archivo)
		if err != nil {
			return nil, err
		}
		for codeRows.Next() {
			var codigo string
			if err := codeRows.Scan(&codigo); err != nil {
				codeRows.Close()
				return nil, err
			}
			seen[codigo] = true
		}
		codeRows.Close()
		out = append(out, SaturationPoint{Archivo: archivo, CumulativeDistinct: len(seen)})
	}
	return out, nil
}

// PlateauReached reports whether the last `window` points of the curve
// each added fewer than `threshold` new distinct codes versus the
// previous point — the saturation-curve validation technique.
func PlateauReached(curve []SaturationPoint, window, threshold int) bool {
	if len(curve) < window+1 {
		return false
	}
	for i := len(curve) - window; i < len(curve); i++ {
		delta := curve[i].CumulativeDistinct - curve[i-1].CumulativeDistinct
		if delta >= threshold {
			return false
		}
	}
	return true
}
