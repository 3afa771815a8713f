package relstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/qualcode/nucleus/pkg/domain"
)

// InsertAxialRelation writes the relational half of an axial relation.
// Callers must have already validated the evidence gate (C8 owns
// that); this method only persists.
func (s *Store) InsertAxialRelation(ctx context.Context, rel domain.AxialRelation) (string, error) {
	id := uuid.New().String()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO axial_relations (id, project_id, categoria, codigo, tipo, evidencia, memo)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, id, rel.ProjectID, rel.Categoria, rel.Codigo, rel.Tipo, rel.Evidencia, rel.Memo)
	if err != nil {
		return "", err
	}
	_ = s.writeAudit(ctx, rel.ProjectID, "system", "assign_axial_relation", "axial_relations", id, nil, rel)
	return id, nil
}

// ListAxialRelations returns every axial relation for a project, used
// by graph-projection reconciliation and by the reports surface.
func (s *Store) ListAxialRelations(ctx context.Context, projectID string) ([]domain.AxialRelation, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, project_id, categoria, codigo, tipo, evidencia, COALESCE(memo,''), created_at
		FROM axial_relations WHERE project_id = $1
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AxialRelation
	for rows.Next() {
		var r domain.AxialRelation
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Categoria, &r.Codigo, &r.Tipo, &r.Evidencia, &r.Memo, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
