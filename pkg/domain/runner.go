package domain

import "time"

// RunnerStatus is the Semantic-Runner task state machine.
type RunnerStatus string

const (
	RunnerPending   RunnerStatus = "pending"
	RunnerRunning   RunnerStatus = "running"
	RunnerSaturated RunnerStatus = "saturated"
	RunnerCompleted RunnerStatus = "completed"
	RunnerError     RunnerStatus = "error"
)

// RunnerCursor is the exact resumption point within a task: the
// interview index, which step within that interview last completed,
// the next seed fragment id to use, and the global step counter.
type RunnerCursor struct {
	InterviewIndex          int    `json:"interview_index"`
	Archivo                 string `json:"archivo"`
	StepInInterviewCompleted int    `json:"step_in_interview_completed"`
	NextSeed                 string `json:"next_seed"`
	GlobalStepCompleted      int    `json:"global_step_completed"`
}

// RunnerInput mirrors the conceptual execute_runner request payload.
type RunnerInput struct {
	Project              string         `json:"project"`
	SeedFragmentID        string         `json:"seed_fragment_id,omitempty"`
	StepsPerInterview     int            `json:"steps_per_interview"`
	TopK                  int            `json:"top_k"`
	Strategy              string         `json:"strategy"` // best-score | first
	InterviewOrder         string         `json:"interview_order"`
	MaxInterviews          int            `json:"max_interviews,omitempty"`
	IncludeCoded           bool           `json:"include_coded"`
	SubmitCandidates       bool           `json:"submit_candidates"`
	CandidatesPerStep      int            `json:"candidates_per_step"`
	SaveMemos              bool           `json:"save_memos"`
	LLMSuggest             bool           `json:"llm_suggest"`
	LLMModel               string         `json:"llm_model,omitempty"`
	MinNewUniquePerStep    int            `json:"min_new_unique_per_step"`
	SaturationPatience      int            `json:"saturation_patience"`
	CodeRepeatPatience      int            `json:"code_repeat_patience"`
	Filters                map[string]any `json:"filters,omitempty"`
}

// RunnerCounters are the bounded observable quantities emitted in
// status, per the spec.
type RunnerCounters struct {
	CurrentStep        int  `json:"current_step"`
	TotalSteps          int  `json:"total_steps"`
	VisitedSeeds         int  `json:"visited_seeds"`
	UniqueSuggestions    int  `json:"unique_suggestions"`
	MemosSaved           int  `json:"memos_saved"`
	CandidatesSubmitted  int  `json:"candidates_submitted"`
	LLMCalls             int  `json:"llm_calls"`
	LLMFailures           int  `json:"llm_failures"`
	QdrantFailures        int  `json:"qdrant_failures"`
	QdrantRetries         int  `json:"qdrant_retries"`
	Saturated             bool `json:"saturated"`
}

// RunnerTask is the ephemeral supervisor entity owned by the worker
// that created it.
type RunnerTask struct {
	TaskID          string          `json:"task_id"`
	ResumedFrom     string          `json:"resumed_from,omitempty"`
	OwnerUser        string          `json:"owner_user"`
	OwnerOrg         string          `json:"owner_org"`
	Status           RunnerStatus    `json:"status"`
	Input            RunnerInput     `json:"input"`
	Cursor           RunnerCursor    `json:"cursor"`
	Counters         RunnerCounters  `json:"counters"`
	LastSuggestedCode string          `json:"last_suggested_code,omitempty"`
	Message          string          `json:"message,omitempty"`
	Errors           []string        `json:"errors,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsOwner reports whether the given user/org may query or resume this
// task: the owner, or any admin.
func (t RunnerTask) IsOwner(user, org string, isAdmin bool) bool {
	if isAdmin {
		return true
	}
	if t.OwnerUser == "" && t.OwnerOrg == "" {
		return false // tasks without owner metadata are admin-only
	}
	return t.OwnerUser == user && t.OwnerOrg == org
}

// Checkpoint is the full resumable state serialised to the tenant
// artifact store after every successful step.
type Checkpoint struct {
	Auth                 CheckpointAuth         `json:"auth"`
	Status               RunnerStatus           `json:"status"`
	Req                  RunnerInput            `json:"req"`
	Archivos             []string               `json:"archivos"`
	VisitedSeedsGlobal    []string               `json:"visited_seeds_global"`
	VisitedSeedIDs        []string               `json:"visited_seed_ids"`
	UnionByIDGlobal       []UnionEntry           `json:"union_by_id_global"`
	Iterations           int                    `json:"iterations"`
	Memos                []string               `json:"memos"`
	CandidatesTotal       int                    `json:"candidates_total"`
	MemosSaved            int                    `json:"memos_saved"`
	LLMCalls              int                    `json:"llm_calls"`
	LLMFailures           int                    `json:"llm_failures"`
	QdrantFailures        int                    `json:"qdrant_failures"`
	QdrantRetries         int                    `json:"qdrant_retries"`
	LastSuggestedCode      string                 `json:"last_suggested_code"`
	Saturated             bool                   `json:"saturated"`
	Cursor                RunnerCursor           `json:"cursor"`
}

// CheckpointAuth identifies the task owner within a checkpoint.
type CheckpointAuth struct {
	User string `json:"user"`
	Org  string `json:"org"`
}

// UnionEntry is one member of the global unique-suggestion union,
// keyed externally by fragment id, keeping the best score seen.
type UnionEntry struct {
	FragmentID string  `json:"fragment_id"`
	Score      float64 `json:"score"`
	Archivo    string  `json:"archivo"`
}

const (
	maxVisitedSeedsGlobal = 50000
	maxVisitedSeedIDs     = 50000
)

// CapVisited trims the visited-seed bookkeeping slices to the bounds
// the checkpoint contract requires, keeping the most recent entries.
func CapVisited(seeds []string) []string {
	if len(seeds) <= maxVisitedSeedIDs {
		return seeds
	}
	return seeds[len(seeds)-maxVisitedSeedIDs:]
}
