package ledger

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/qualcode/nucleus/pkg/relstore"
)

// SamplingOrder is the requested ordering for ListAvailableInterviews.
type SamplingOrder string

const (
	OrderIngestDesc         SamplingOrder = "ingest-desc"
	OrderIngestAsc          SamplingOrder = "ingest-asc"
	OrderAlpha              SamplingOrder = "alpha"
	OrderFragmentsDesc      SamplingOrder = "fragments-desc"
	OrderFragmentsAsc       SamplingOrder = "fragments-asc"
	OrderMaxVariation       SamplingOrder = "max-variation"
	OrderTheoreticalSampling SamplingOrder = "theoretical-sampling"
)

// InterviewRanking is one archivo's ranking row plus the debug
// breakdown theoretical sampling must surface for audit.
type InterviewRanking struct {
	Archivo        string
	FragmentCount  int
	AreaTematica   string
	ActorPrincipal string
	GapNorm        float64
	RichnessNorm   float64
	RecencyNorm    float64
	Score          float64
}

// SamplingWeights control the theoretical-sampling score.
// ListAvailableInterviews uses the weights it is given; the
// Semantic-Runner always passes DefaultSamplingWeights, and no caller
// shifts them toward gap on saturation or a focus-codes directive.
type SamplingWeights struct {
	Gap      float64
	Richness float64
	Recency  float64
}

// DefaultSamplingWeights are the weights every caller in this module
// passes.
var DefaultSamplingWeights = SamplingWeights{Gap: 0.4, Richness: 0.3, Recency: 0.3}

// ListAvailableInterviews orders a project's interviews per the
// requested policy, computing the theoretical-sampling score (and its
// debug breakdown) whenever that ordering — or max-variation, which
// reuses the same strata analysis — is requested.
func (l *Ledger) ListAvailableInterviews(ctx context.Context, projectID string, order SamplingOrder, weights SamplingWeights) ([]InterviewRanking, error) {
	relOrder := relstore.OrderIngestDesc
	switch order {
	case OrderIngestAsc:
		relOrder = relstore.OrderIngestAsc
	case OrderAlpha:
		relOrder = relstore.OrderAlpha
	case OrderFragmentsDesc:
		relOrder = relstore.OrderFragmentsDesc
	case OrderFragmentsAsc:
		relOrder = relstore.OrderFragmentsAsc
	}

	summaries, err := l.rel.ListArchivoSummaries(ctx, projectID, relOrder)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}

	rankings := theoreticalSamplingScores(summaries, weights)

	switch order {
	case OrderTheoreticalSampling, OrderMaxVariation:
		sort.Slice(rankings, func(i, j int) bool { return rankings[i].Score > rankings[j].Score })
	}
	// for the plain orderings, summaries already arrived pre-sorted by
	// the relational query; rankings preserves that order since it was
	// built by iterating summaries in place.
	return rankings, nil
}

// theoreticalSamplingScores computes gap/richness/recency and the
// weighted composite score for every archivo in one pass:
//   - gap favours under-analysed strata, grouped by area_tematica ×
//     actor_principal: gap_norm = 1 - stratum_total/max_stratum_total,
//     so the largest stratum scores 0 and smaller strata score higher.
//   - richness = log1p(fragments) / log1p(max_fragments).
//   - recency is linear in updated_at, oldest=0, newest=1.
func theoreticalSamplingScores(summaries []relstore.ArchivoSummary, weights SamplingWeights) []InterviewRanking {
	stratumTotals := make(map[string]int)
	for _, s := range summaries {
		stratumTotals[stratumKey(s)] += s.FragmentCount
	}
	maxStratumTotal := 0
	for _, total := range stratumTotals {
		if total > maxStratumTotal {
			maxStratumTotal = total
		}
	}

	maxFragments := 0
	var oldest, newest time.Time
	for i, s := range summaries {
		if s.FragmentCount > maxFragments {
			maxFragments = s.FragmentCount
		}
		if i == 0 || s.LastUpdated.Before(oldest) {
			oldest = s.LastUpdated
		}
		if i == 0 || s.LastUpdated.After(newest) {
			newest = s.LastUpdated
		}
	}
	span := newest.Sub(oldest).Seconds()

	out := make([]InterviewRanking, len(summaries))
	for i, s := range summaries {
		gapNorm := 1.0
		if maxStratumTotal > 0 {
			gapNorm = 1 - float64(stratumTotals[stratumKey(s)])/float64(maxStratumTotal)
		}

		richnessNorm := 0.0
		if maxFragments > 0 {
			richnessNorm = math.Log1p(float64(s.FragmentCount)) / math.Log1p(float64(maxFragments))
		}

		recencyNorm := 1.0
		if span > 0 {
			recencyNorm = s.LastUpdated.Sub(oldest).Seconds() / span
		}

		score := weights.Gap*gapNorm + weights.Richness*richnessNorm + weights.Recency*recencyNorm

		out[i] = InterviewRanking{
			Archivo:        s.Archivo,
			FragmentCount:  s.FragmentCount,
			AreaTematica:   s.AreaTematica,
			ActorPrincipal: s.ActorPrincipal,
			GapNorm:        gapNorm,
			RichnessNorm:   richnessNorm,
			RecencyNorm:    recencyNorm,
			Score:          score,
		}
	}
	return out
}

func stratumKey(s relstore.ArchivoSummary) string {
	return s.AreaTematica + "\x00" + s.ActorPrincipal
}
