package runner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/qualcode/nucleus/pkg/domain"
	"github.com/qualcode/nucleus/pkg/vectorstore"
)

const maxSearchAttempts = 3

// runInterview walks one interview from its current (or fresh) seed
// for up to steps_per_interview steps, reports true if the task
// crossed saturation during this interview.
func (e *Engine) runInterview(ctx context.Context, st *runState, idx int, archivo string) (bool, error) {
	fragments, err := e.rel.ListFragmentsForFile(ctx, st.task.Input.Project, archivo, 0)
	if err != nil {
		return false, fmt.Errorf("list fragments for %s: %w", archivo, err)
	}
	if len(fragments) == 0 {
		return false, nil
	}

	visited := make(map[string]bool)
	seed := e.initialSeed(st, idx, fragments)
	if seed == "" {
		return false, nil
	}

	noGrowth := 0
	repeatStreak := 0
	lastCode := ""

	startStep := 0
	if idx == st.task.Cursor.InterviewIndex && st.task.Cursor.StepInInterviewCompleted > 0 {
		startStep = st.task.Cursor.StepInInterviewCompleted
	}

	for step := startStep; step < st.task.Input.StepsPerInterview; step++ {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		visited[seed] = true
		markVisited(st, seed)

		matches, err := e.searchWithRetry(ctx, st, archivo, seed)
		if err != nil {
			st.task.Errors = append(st.task.Errors, fmt.Sprintf("%s step %d: %v", archivo, step, err))
			st.task.Counters.QdrantFailures++
			next, ok := nextUnvisitedFragment(fragments, visited)
			if !ok {
				break
			}
			seed = next
			continue
		}

		live := e.filterOrphans(ctx, st.task.Input.Project, matches)
		newUnique := e.updateUnions(st, archivo, live)

		code := ""
		memo := ""
		if st.task.Input.LLMSuggest && len(live) > 0 {
			code, memo, err = e.suggestCode(ctx, st, seed, live)
			st.task.Counters.LLMCalls++
			if err != nil {
				st.task.Counters.LLMFailures++
			} else {
				st.task.LastSuggestedCode = code
				st.knownCodes[code] = true
			}
		}

		if st.task.Input.SaveMemos && memo != "" {
			e.saveMemo(ctx, st, archivo, code, step, memo)
		}

		if st.task.Input.SubmitCandidates && code != "" {
			e.submitCandidates(ctx, st, archivo, code, live)
		}

		if newUnique < st.task.Input.MinNewUniquePerStep {
			noGrowth++
		} else {
			noGrowth = 0
		}
		if code != "" && code == lastCode {
			repeatStreak++
		} else {
			repeatStreak = 0
		}
		lastCode = code

		st.task.Counters.CurrentStep++
		st.task.Cursor = domain.RunnerCursor{
			InterviewIndex:           idx,
			Archivo:                  archivo,
			StepInInterviewCompleted: step + 1,
			NextSeed:                 seed,
			GlobalStepCompleted:      st.task.Counters.CurrentStep,
		}
		e.checkpoint(ctx, st)

		if noGrowth >= st.task.Input.SaturationPatience || (st.task.Input.CodeRepeatPatience > 0 && repeatStreak >= st.task.Input.CodeRepeatPatience) {
			return true, nil
		}

		next, ok := e.pickNextSeed(st.task.Input.Strategy, live, visited, fragments)
		if !ok {
			break
		}
		seed = next
	}
	return false, nil
}

// initialSeed resolves resume-cursor > explicit seed > first fragment,
// in that priority order, per the checkpoint/resume contract.
func (e *Engine) initialSeed(st *runState, idx int, fragments []domain.Fragment) string {
	if idx == st.task.Cursor.InterviewIndex && st.task.Cursor.NextSeed != "" {
		return st.task.Cursor.NextSeed
	}
	if idx == 0 && st.task.Input.SeedFragmentID != "" && st.task.Cursor.GlobalStepCompleted == 0 {
		return st.task.Input.SeedFragmentID
	}
	if len(fragments) == 0 {
		return ""
	}
	return fragments[0].FragmentID
}

// searchWithRetry embeds the seed fragment's stored vector and queries
// C3 restricted to the current interview, retrying transient failures
// up to maxSearchAttempts with capped exponential backoff.
func (e *Engine) searchWithRetry(ctx context.Context, st *runState, archivo, seed string) ([]vectorstore.Match, error) {
	vec, err := e.vec.FetchVector(ctx, st.task.Input.Project, seed)
	if err != nil {
		return nil, fmt.Errorf("fetch seed vector: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxSearchAttempts; attempt++ {
		matches, err := e.vec.Search(ctx, vec, vectorstore.SearchOpts{
			ProjectID:          st.task.Input.Project,
			Archivo:            archivo,
			ExcludeInterviewer: true,
			TopK:               st.task.Input.TopK,
		})
		if err == nil {
			return matches, nil
		}
		lastErr = err
		if !domain.IsTransient(err) {
			return nil, err
		}
		st.task.Counters.QdrantRetries++
		delay := backoffDelay(attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// filterOrphans drops vector hits whose fragment row no longer exists
// relationally — a fragment deleted after ingestion but not yet
// re-indexed in Qdrant.
func (e *Engine) filterOrphans(ctx context.Context, projectID string, matches []vectorstore.Match) []vectorstore.Match {
	live := make([]vectorstore.Match, 0, len(matches))
	for _, m := range matches {
		ok, err := e.rel.ExistsFragment(ctx, projectID, m.FragmentID)
		if err != nil || !ok {
			continue
		}
		live = append(live, m)
	}
	return live
}

// updateUnions folds this step's hits into the per-run global union
// keyed by fragment id, keeping the best score seen, and returns how
// many were genuinely new.
func (e *Engine) updateUnions(st *runState, archivo string, matches []vectorstore.Match) int {
	newCount := 0
	for _, m := range matches {
		existing, ok := st.unionGlobal[m.FragmentID]
		if !ok {
			newCount++
			st.unionGlobal[m.FragmentID] = domain.UnionEntry{FragmentID: m.FragmentID, Score: m.Score, Archivo: archivo}
			continue
		}
		if m.Score > existing.Score {
			st.unionGlobal[m.FragmentID] = domain.UnionEntry{FragmentID: m.FragmentID, Score: m.Score, Archivo: archivo}
		}
	}
	st.task.Counters.UniqueSuggestions = len(st.unionGlobal)
	return newCount
}

func markVisited(st *runState, fragmentID string) {
	if st.visitedGlobal[fragmentID] {
		return
	}
	st.visitedGlobal[fragmentID] = true
	st.task.Counters.VisitedSeeds = len(st.visitedGlobal)
}

// pickNextSeed applies the configured strategy over this step's
// unvisited suggestions, falling back to the next unvisited fragment
// in the interview when no suggestion qualifies.
func (e *Engine) pickNextSeed(strategy string, matches []vectorstore.Match, visited map[string]bool, fragments []domain.Fragment) (string, bool) {
	var candidates []vectorstore.Match
	for _, m := range matches {
		if !visited[m.FragmentID] {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) > 0 {
		switch strategy {
		case "first":
			return candidates[0].FragmentID, true
		default: // "best-score"
			sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
			return candidates[0].FragmentID, true
		}
	}
	return nextUnvisitedFragment(fragments, visited)
}

func nextUnvisitedFragment(fragments []domain.Fragment, visited map[string]bool) (string, bool) {
	for _, f := range fragments {
		if !visited[f.FragmentID] {
			return f.FragmentID, true
		}
	}
	return "", false
}
