package ledger

import (
	"context"

	"github.com/qualcode/nucleus/pkg/vectorstore"
)

// DiscoverySweepResult is one Discovery-query sweep, persisted as a
// discovery_runs row so repeated sweeps over the same concept can be
// compared for convergence.
type DiscoverySweepResult struct {
	Matches        []vectorstore.Match
	LandingRate    float64
	JaccardOverlap *float64
	DiscoveryType  string
}

// RunDiscoverySweep issues a C3 Discover query for one concept, scores
// the landing rate (fraction of returned fragments already reachable
// from an axial code under that concept), optionally computes the
// Jaccard overlap against a previous sweep's result-id set to detect
// convergence, and persists the sweep as a discovery_runs row.
// Supplemented from original_source's discovery_runner.py.
func (l *Ledger) RunDiscoverySweep(ctx context.Context, projectID, concept, archivo string, positive, negative [][]float32, topK int, previousIDs []string) (*DiscoverySweepResult, error) {
	matches, err := l.vec.Discover(ctx, vectorstore.DiscoverOpts{
		ProjectID:          projectID,
		Positive:           positive,
		Negative:           negative,
		ExcludeInterviewer: true,
		TopK:               topK,
	})
	if err != nil {
		return nil, err
	}

	reachable, err := l.reachableFragments(ctx, projectID, concept)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(matches))
	landed := 0
	for i, m := range matches {
		ids[i] = m.FragmentID
		if reachable[m.FragmentID] {
			landed++
		}
	}
	landingRate := 0.0
	if len(matches) > 0 {
		landingRate = float64(landed) / float64(len(matches))
	}

	var jaccard *float64
	if len(previousIDs) > 0 {
		j := jaccardIndex(ids, previousIDs)
		jaccard = &j
	}

	discoveryType := "fallback"
	if len(matches) > 0 {
		discoveryType = matches[0].DiscoveryType
	}

	phase := "global"
	if archivo != "" {
		phase = "per_interview"
	}

	if err := l.rel.RecordDiscoveryRun(ctx, projectID, concept, archivo, phase, landingRate, jaccard, discoveryType); err != nil {
		return nil, err
	}

	return &DiscoverySweepResult{Matches: matches, LandingRate: landingRate, JaccardOverlap: jaccard, DiscoveryType: discoveryType}, nil
}

// reachableFragments resolves concept to the set of fragment ids
// already coded with a code reachable from it: every codigo named in
// a Category->Code axial relation whose categoria equals concept, or
// — when concept names no category — concept itself taken as a
// codigo name directly.
func (l *Ledger) reachableFragments(ctx context.Context, projectID, concept string) (map[string]bool, error) {
	relations, err := l.rel.ListAxialRelations(ctx, projectID)
	if err != nil {
		return nil, err
	}

	codes := map[string]bool{}
	for _, r := range relations {
		if r.Categoria == concept {
			codes[r.Codigo] = true
		}
	}
	if len(codes) == 0 {
		codes[concept] = true
	}

	reachable := map[string]bool{}
	for codigo := range codes {
		coded, err := l.rel.CodedFragmentsForCode(ctx, projectID, codigo)
		if err != nil {
			return nil, err
		}
		for id := range coded {
			reachable[id] = true
		}
	}
	return reachable, nil
}

func jaccardIndex(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, v := range a {
		setA[v] = true
	}
	setB := make(map[string]bool, len(b))
	for _, v := range b {
		setB[v] = true
	}
	inter := 0
	for v := range setA {
		if setB[v] {
			inter++
		}
	}
	union := len(setA)
	for v := range setB {
		if !setA[v] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
