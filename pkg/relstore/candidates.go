package relstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/qualcode/nucleus/pkg/domain"
)

// InsertCandidates inserts a batch of candidates in one short
// transaction. When checkSimilar is true, a candidate whose
// (project_id, fragment_id, codigo) triple already exists with status
// pendiente or validado is skipped rather than duplicated, matching
// the idempotence property in §8.
func (s *Store) InsertCandidates(ctx context.Context, rows []domain.CandidateCode, checkSimilar bool) ([]string, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var ids []string
	for _, c := range rows {
		if err := c.Validate(); err != nil {
			return nil, err
		}

		if checkSimilar && c.FragmentID != nil {
			var exists bool
			err := tx.QueryRow(ctx, `
				SELECT EXISTS(
					SELECT 1 FROM candidate_codes
					WHERE project_id = $1 AND fragment_id = $2 AND codigo = $3
					AND status IN ('pendiente','validado')
				)
			`, c.ProjectID, *c.FragmentID, c.Codigo).Scan(&exists)
			if err != nil {
				return nil, err
			}
			if exists {
				continue
			}
		}

		id := uuid.New().String()
		var memoRaw []byte
		if c.Memo != nil {
			memoRaw, err = json.Marshal(c.Memo)
			if err != nil {
				return nil, err
			}
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO candidate_codes
				(id, project_id, codigo, fragment_id, archivo, cita, source_origin, score_confidence, status, memo)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, id, c.ProjectID, c.Codigo, c.FragmentID, c.Archivo, c.Cita, c.SourceOrigin, c.ScoreConfidence, c.Status, memoRaw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, s.writeAudit(ctx, rows[0].ProjectID, "system", "insert_candidates", "candidate_codes", "", nil, ids)
}

// Promote moves a validated candidate into open_codes in a single
// transaction that also stamps promoted_at on the candidate, per the
// "cross-table promotion is one transaction" concurrency rule.
func (s *Store) Promote(ctx context.Context, projectID, candidateID, actor string) (*domain.OpenCode, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var fragmentID, codigo *string
	var status string
	row := tx.QueryRow(ctx, `
		SELECT fragment_id, codigo, status FROM candidate_codes
		WHERE project_id = $1 AND id = $2 FOR UPDATE
	`, projectID, candidateID)
	var codigoVal string
	if err := row.Scan(&fragmentID, &codigoVal, &status); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	codigo = &codigoVal

	if fragmentID == nil {
		return nil, domain.NewValidationError("cannot promote a candidate without a fragment_id")
	}

	openID := uuid.New().String()
	_, err = tx.Exec(ctx, `
		INSERT INTO open_codes (id, project_id, fragment_id, codigo, candidate_id)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (project_id, fragment_id, codigo) DO NOTHING
	`, openID, projectID, *fragmentID, *codigo, candidateID)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE candidate_codes SET status = 'validado', promoted_at = now()
		WHERE project_id = $1 AND id = $2
	`, projectID, candidateID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	oc := &domain.OpenCode{ID: openID, ProjectID: projectID, FragmentID: *fragmentID, Codigo: *codigo, CandidateID: candidateID}
	_ = s.writeAudit(ctx, projectID, actor, "promote", "candidate_codes", candidateID, nil, oc)
	return oc, nil
}

// Merge combines two candidates of the same project by rejecting `from`
// and, if `to` is still pendiente, promoting it implicitly is left to
// the caller; Merge itself only marks `from` as rechazado with a memo
// pointing at `to`, preserving the audit trail.
func (s *Store) Merge(ctx context.Context, projectID, from, to, actor string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE candidate_codes
		SET status = 'rechazado', memo = jsonb_build_object('type','INTERPRETATION','text', 'merged into ' || $3)
		WHERE project_id = $1 AND id = $2
	`, projectID, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return s.writeAudit(ctx, projectID, actor, "merge", "candidate_codes", from, nil, map[string]string{"merged_into": to})
}

// UnassignOpenCode deletes the promoted row for (project, fragment,
// codigo). The caller (C7) is responsible for also deleting the graph
// projection edge; this method only owns the relational half.
func (s *Store) UnassignOpenCode(ctx context.Context, projectID, fragmentID, codigo, actor string) error {
	tag, err := s.Pool.Exec(ctx, `
		DELETE FROM open_codes WHERE project_id = $1 AND fragment_id = $2 AND codigo = $3
	`, projectID, fragmentID, codigo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return s.writeAudit(ctx, projectID, actor, "unassign", "open_codes", fmt.Sprintf("%s/%s", fragmentID, codigo), nil, nil)
}

// CountPending returns the number of pendiente candidates for a
// project — the single canonical query both the before- and
// after-run snapshots in the Semantic-Runner route through (open
// question resolved in SPEC_FULL.md §9).
func (s *Store) CountPending(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM candidate_codes WHERE project_id = $1 AND status = 'pendiente'
	`, projectID).Scan(&n)
	return n, err
}

// CodesForFragment returns every codigo promoted against one fragment,
// the reverse lookup FindSimilarCodes uses to turn neighbour fragments
// into neighbour codes.
func (s *Store) CodesForFragment(ctx context.Context, projectID, fragmentID string) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT codigo FROM open_codes WHERE project_id = $1 AND fragment_id = $2
	`, projectID, fragmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CodedFragmentsForCode returns the set of fragment ids already coded
// (promoted) with the given codigo, used by the axial evidence gate.
func (s *Store) CodedFragmentsForCode(ctx context.Context, projectID, codigo string) (map[string]bool, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT fragment_id FROM open_codes WHERE project_id = $1 AND codigo = $2
	`, projectID, codigo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
