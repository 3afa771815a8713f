package runner

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/qualcode/nucleus/pkg/domain"
	"github.com/qualcode/nucleus/pkg/vectorstore"
)

const (
	suggestSystemPrompt = "Eres un analista cualitativo experto en teoría fundamentada."
	suggestMaxTokens    = 400
	seedTruncate        = 600
	excerptTruncate     = 450
	maxExcerpts         = 3
)

// suggestCode asks C10 for an open-code label, given the seed
// fragment and its top live neighbours, grounded on the same
// truncation and prompt contract as the ledger's comparison memo.
func (e *Engine) suggestCode(ctx context.Context, st *runState, seed string, live []vectorstore.Match) (code, memo string, err error) {
	seedFrag, err := e.rel.FetchFragment(ctx, st.task.Input.Project, seed)
	if err != nil {
		return "", "", err
	}

	var excerpts []string
	for i, m := range live {
		if i >= maxExcerpts {
			break
		}
		frag, err := e.rel.FetchFragment(ctx, st.task.Input.Project, m.FragmentID)
		if err != nil {
			continue
		}
		excerpts = append(excerpts, truncate(frag.Text, excerptTruncate))
	}

	model := st.task.Input.LLMModel
	var b strings.Builder
	fmt.Fprintf(&b, "Fragmento semilla:\n%s\n\n", truncate(seedFrag.Text, seedTruncate))
	b.WriteString("Fragmentos relacionados:\n")
	for i, ex := range excerpts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, ex)
	}
	b.WriteString("\nPropone un codigo abierto breve (campo \"codigo\"), una confianza 0-1 (campo \"confianza\"), y un memo analitico breve (campo \"memo\") en JSON.")

	out, err := e.llm.ChatJSON(ctx, suggestSystemPrompt, b.String(), model, suggestMaxTokens, []string{"codigo", "memo"})
	if err != nil {
		return "", "", err
	}

	code, _ = out["codigo"].(string)
	memo, _ = out["memo"].(string)
	return code, memo, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	s = slugPattern.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// memoLogicalPath builds the runner-memo filename contract:
// notes/runner_semantic/<ts>_semantic_runner_<archivo-slug>_s<step>_i<intra>_<code-slug>.md
func memoLogicalPath(archivo, code string, step, intra int) string {
	ts := time.Now().UTC().Format("20060102T150405Z")
	return fmt.Sprintf("notes/runner_semantic/%s_semantic_runner_%s_s%d_i%d_%s.md",
		ts, slugify(archivo), step, intra, slugify(code))
}

// saveMemo persists a runner-generated memo under the tenant artifact
// store, swallowing write failures as a best-effort side channel —
// the candidate-ledger write is the source of truth, not the memo file.
func (e *Engine) saveMemo(ctx context.Context, st *runState, archivo, code string, step int, memo string) {
	path := memoLogicalPath(archivo, code, step, 0)
	body := fmt.Sprintf("# %s — paso %d\n\n%s\n", archivo, step, memo)
	if _, err := e.artifacts.Put(ctx, st.org, st.task.Input.Project, path, []byte(body), "text/markdown", false); err != nil {
		e.log.Warn("runner: memo write failed", "task_id", st.task.TaskID, "archivo", archivo, "error", err)
		return
	}
	st.task.Counters.MemosSaved++
}

// submitCandidates inserts up to candidates_per_step rows tagged as
// semantic suggestions, one per live neighbour ranked by score.
func (e *Engine) submitCandidates(ctx context.Context, st *runState, archivo, code string, live []vectorstore.Match) {
	limit := st.task.Input.CandidatesPerStep
	if limit <= 0 || limit > len(live) {
		limit = len(live)
	}
	rows := make([]domain.CandidateCode, 0, limit)
	for i := 0; i < limit; i++ {
		m := live[i]
		fragmentID := m.FragmentID
		rows = append(rows, domain.CandidateCode{
			ProjectID:       st.task.Input.Project,
			Codigo:          code,
			FragmentID:      &fragmentID,
			Archivo:         archivo,
			SourceOrigin:    domain.SourceSemanticSuggestion,
			ScoreConfidence: m.Score,
			Status:          domain.StatusPendiente,
		})
	}
	if len(rows) == 0 {
		return
	}
	ids, err := e.rel.InsertCandidates(ctx, rows, true)
	if err != nil {
		e.log.Warn("runner: candidate submission failed", "task_id", st.task.TaskID, "archivo", archivo, "error", err)
		return
	}
	st.task.Counters.CandidatesSubmitted += len(ids)
}
