// Package domain holds the shared entity types of the coding-discovery
// subsystem: fragments, candidates, codes, categories and the runner's
// own bookkeeping types. It has no dependency on any store adapter.
package domain

import "time"

// Fragment is the atomic unit of analysis produced by ingestion.
type Fragment struct {
	FragmentID string            `json:"fragment_id"`
	ProjectID  string            `json:"project_id"`
	Archivo    string            `json:"archivo"`
	ParIdx     int               `json:"par_idx"`
	Speaker    string            `json:"speaker,omitempty"`
	Text       string            `json:"text"`
	CharLen    int               `json:"char_len"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// IsInterviewer reports whether this fragment's speaker is the
// interviewer, the default exclusion in retrieval.
func (f Fragment) IsInterviewer() bool {
	return f.Speaker == "interviewer"
}
