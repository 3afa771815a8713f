package relstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/qualcode/nucleus/pkg/domain"
)

// InsertFragment writes a fragment row. Idempotent on (project_id,
// archivo, par_idx): a conflicting insert is a no-op, matching the
// ingestion pipeline's re-ingest idempotence requirement.
func (s *Store) InsertFragment(ctx context.Context, f domain.Fragment) error {
	meta, err := json.Marshal(f.Metadata)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO fragments (fragment_id, project_id, archivo, par_idx, speaker, text, char_len, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (project_id, archivo, par_idx) DO NOTHING
	`, f.FragmentID, f.ProjectID, f.Archivo, f.ParIdx, nullIfEmpty(f.Speaker), f.Text, f.CharLen, meta)
	return err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FetchFragment returns a single fragment by (project, fragment id). It
// returns domain.ErrNotFound if absent.
func (s *Store) FetchFragment(ctx context.Context, projectID, fragmentID string) (*domain.Fragment, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT fragment_id, project_id, archivo, par_idx, COALESCE(speaker,''), text, char_len, metadata, created_at
		FROM fragments WHERE project_id = $1 AND fragment_id = $2
	`, projectID, fragmentID)

	var f domain.Fragment
	var metaRaw []byte
	if err := row.Scan(&f.FragmentID, &f.ProjectID, &f.Archivo, &f.ParIdx, &f.Speaker, &f.Text, &f.CharLen, &metaRaw, &f.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(metaRaw, &f.Metadata)
	return &f, nil
}

// ExistsFragment is a lightweight existence check used by the runner's
// orphan filter and by axial evidence validation.
func (s *Store) ExistsFragment(ctx context.Context, projectID, fragmentID string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM fragments WHERE project_id = $1 AND fragment_id = $2)
	`, projectID, fragmentID).Scan(&exists)
	return exists, err
}

// ListFragmentsForFile returns up to limit fragments for one archivo
// (all of them when limit <= 0), ordered by paragraph index, for the
// runner's per-interview seed queue construction.
func (s *Store) ListFragmentsForFile(ctx context.Context, projectID, archivo string, limit int) ([]domain.Fragment, error) {
	var lim any // NULL makes LIMIT a no-op
	if limit > 0 {
		lim = limit
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT fragment_id, project_id, archivo, par_idx, COALESCE(speaker,''), text, char_len, metadata, created_at
		FROM fragments
		WHERE project_id = $1 AND archivo = $2
		ORDER BY par_idx ASC
		LIMIT $3
	`, projectID, archivo, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Fragment
	for rows.Next() {
		var f domain.Fragment
		var metaRaw []byte
		if err := rows.Scan(&f.FragmentID, &f.ProjectID, &f.Archivo, &f.ParIdx, &f.Speaker, &f.Text, &f.CharLen, &metaRaw, &f.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(metaRaw, &f.Metadata)
		out = append(out, f)
	}
	return out, rows.Err()
}

// ArchivoOrder selects the order in which ListArchivoSummaries returns
// a project's distinct archivo values (used by ListAvailableInterviews
// in C7).
type ArchivoOrder string

const (
	OrderIngestDesc        ArchivoOrder = "ingest-desc"
	OrderIngestAsc         ArchivoOrder = "ingest-asc"
	OrderAlpha             ArchivoOrder = "alpha"
	OrderFragmentsDesc     ArchivoOrder = "fragments-desc"
	OrderFragmentsAsc      ArchivoOrder = "fragments-asc"
)

// ArchivoSummary is one row of the interview listing, carrying the
// stats theoretical sampling needs.
type ArchivoSummary struct {
	Archivo        string
	FragmentCount  int
	FirstIngested  time.Time
	LastUpdated    time.Time
	AreaTematica   string
	ActorPrincipal string
}

func (s *Store) ListArchivoSummaries(ctx context.Context, projectID string, order ArchivoOrder) ([]ArchivoSummary, error) {
	orderClause := "MIN(created_at) DESC"
	switch order {
	case OrderIngestAsc:
		orderClause = "MIN(created_at) ASC"
	case OrderAlpha:
		orderClause = "archivo ASC"
	case OrderFragmentsDesc:
		orderClause = "COUNT(*) DESC"
	case OrderFragmentsAsc:
		orderClause = "COUNT(*) ASC"
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT archivo, COUNT(*), MIN(created_at), MAX(created_at),
			COALESCE(MODE() WITHIN GROUP (ORDER BY metadata->>'area_tematica'), ''),
			COALESCE(MODE() WITHIN GROUP (ORDER BY metadata->>'actor_principal'), '')
		FROM fragments
		WHERE project_id = $1
		GROUP BY archivo
		ORDER BY `+orderClause, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArchivoSummary
	for rows.Next() {
		var a ArchivoSummary
		if err := rows.Scan(&a.Archivo, &a.FragmentCount, &a.FirstIngested, &a.LastUpdated, &a.AreaTematica, &a.ActorPrincipal); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
