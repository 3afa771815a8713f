package domain

import "time"

// SourceOrigin identifies who/what proposed a candidate code.
type SourceOrigin string

const (
	SourceManual              SourceOrigin = "manual"
	SourceLLM                 SourceOrigin = "llm"
	SourceSemanticSuggestion  SourceOrigin = "semantic_suggestion"
	SourceLinkPrediction      SourceOrigin = "link_prediction"
)

// CandidateStatus is the validation-tray lifecycle state.
type CandidateStatus string

const (
	StatusPendiente CandidateStatus = "pendiente"
	StatusValidado  CandidateStatus = "validado"
	StatusRechazado CandidateStatus = "rechazado"
	StatusHipotesis CandidateStatus = "hipotesis"
)

// CandidateCode is an entry in the validation tray. It never becomes an
// OpenCode except through Promote.
type CandidateCode struct {
	ID              string          `json:"id"`
	ProjectID       string          `json:"project_id"`
	Codigo          string          `json:"codigo"`
	FragmentID      *string         `json:"fragment_id,omitempty"`
	Archivo         string          `json:"archivo,omitempty"`
	Cita            string          `json:"cita,omitempty"`
	SourceOrigin    SourceOrigin    `json:"source_origin"`
	ScoreConfidence float64         `json:"score_confidence"`
	Status          CandidateStatus `json:"status"`
	Memo            *MemoStatement  `json:"memo,omitempty"`
	PromotedAt      *time.Time      `json:"promoted_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Validate enforces the two candidate-level structural invariants from
// the data model: hypotheses carry no fragment, and OBSERVATION memos
// must carry evidence.
func (c CandidateCode) Validate() error {
	if c.Status == StatusHipotesis && c.FragmentID != nil {
		return NewValidationError("hipotesis candidates must not carry a fragment_id")
	}
	if c.Memo != nil {
		if err := c.Memo.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// OpenCode is a validated (codigo, fragment_id) pair, created only by
// promoting a candidate.
type OpenCode struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	FragmentID  string    `json:"fragment_id"`
	Codigo      string    `json:"codigo"`
	CandidateID string    `json:"candidate_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// EpistemicType tags a memo statement's evidentiary status.
type EpistemicType string

const (
	Observation          EpistemicType = "OBSERVATION"
	Interpretation        EpistemicType = "INTERPRETATION"
	Hypothesis            EpistemicType = "HYPOTHESIS"
	NormativeInference    EpistemicType = "NORMATIVE_INFERENCE"
)

// MemoStatement is a tagged, typed envelope around free text plus the
// evidence it is grounded on.
type MemoStatement struct {
	Type        EpistemicType `json:"type"`
	Text        string        `json:"text"`
	EvidenceIDs []string      `json:"evidence_ids,omitempty"`
}

// Validate normalizes and checks a memo: an OBSERVATION with no
// evidence is demoted to INTERPRETATION rather than rejected.
func (m *MemoStatement) Validate() error {
	if m.Type == Observation && len(m.EvidenceIDs) == 0 {
		m.Type = Interpretation
	}
	return nil
}
