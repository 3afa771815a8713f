package relstore

import "context"

// LexicalRank is one fragment's ts_rank score against a query, used by
// the hybrid retrieval fusion in C6.
type LexicalRank struct {
	FragmentID string
	Rank       float64
}

// LexicalRankFragments computes ts_rank('spanish', ...) for the given
// candidate fragment id pool against query — the relational store's
// BM25-equivalent lexical scoring, restricted to the same candidate
// pool the vector search already returned so fusion stays bounded.
func (s *Store) LexicalRankFragments(ctx context.Context, projectID string, fragmentIDs []string, query string) ([]LexicalRank, error) {
	if len(fragmentIDs) == 0 {
		return nil, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT fragment_id, ts_rank(to_tsvector('spanish', text), plainto_tsquery('spanish', $3)) AS rank
		FROM fragments
		WHERE project_id = $1 AND fragment_id = ANY($2)
	`, projectID, fragmentIDs, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LexicalRank
	for rows.Next() {
		var r LexicalRank
		if err := rows.Scan(&r.FragmentID, &r.Rank); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
