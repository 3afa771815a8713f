package vectorstore

import (
	"context"

	"github.com/qdrant/go-client/qdrant"
)

// DiscoverOpts configures one Discover call: Positive/Negative are
// concept anchor texts already embedded by the caller (C10 owns
// embedding; this package only ever sees vectors), Target is an
// optional additional anchor to blend toward in the fallback path.
type DiscoverOpts struct {
	ProjectID          string
	Positive           [][]float32
	Negative           [][]float32
	Target             []float32
	ExcludeInterviewer bool
	TopK               int
}

// Discover implements the two-path Discovery policy: a native
// Qdrant Discovery query when at least one positive anchor clears the
// quality gate, and a weighted-centroid kNN fallback otherwise.
func (s *Store) Discover(ctx context.Context, opts DiscoverOpts) ([]Match, error) {
	filter := projectFilter(opts.ProjectID, opts.ExcludeInterviewer)

	anchors, ok := s.qualifyingAnchors(ctx, opts.Positive, filter)
	if ok {
		return s.discoverNative(ctx, anchors, opts.Negative, filter, opts.TopK)
	}
	return s.discoverFallback(ctx, opts, filter)
}

// qualifyingAnchors retrieves, for each positive anchor vector, the id
// of its own top-1 neighbour within the project and keeps only those
// whose score clears s.anchorGate (default 0.55, named
// DiscoveryAnchorThreshold — preserved verbatim from the source system).
func (s *Store) qualifyingAnchors(ctx context.Context, positive [][]float32, filter *qdrant.Filter) ([]string, bool) {
	var ids []string
	limit := uint64(1)
	for _, vec := range positive {
		resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.collection,
			Query:          qdrant.NewQuery(vec...),
			Filter:         filter,
			Limit:          &limit,
		})
		if err != nil || len(resp) == 0 {
			continue
		}
		if float64(resp[0].GetScore()) >= s.anchorGate {
			ids = append(ids, resp[0].GetId().GetUuid())
		}
	}
	return ids, len(ids) > 0
}

// discoverNative issues a native Discovery query pairing every anchor
// id with a negative anchor; surplus negatives are paired with the
// first positive anchor, per the policy.
func (s *Store) discoverNative(ctx context.Context, positiveIDs []string, negative [][]float32, filter *qdrant.Filter, topK int) ([]Match, error) {
	var context_ []*qdrant.ContextInput

	for i, posID := range positiveIDs {
		var negVec []float32
		switch {
		case i < len(negative):
			negVec = negative[i]
		case len(negative) > 0:
			negVec = negative[0]
		default:
			continue
		}
		context_ = append(context_, &qdrant.ContextInput{
			Positive: qdrant.NewVectorInputID(qdrant.NewID(posID)),
			Negative: qdrant.NewVectorInputDense(negVec),
		})
	}
	for j := len(positiveIDs); j < len(negative); j++ {
		context_ = append(context_, &qdrant.ContextInput{
			Positive: qdrant.NewVectorInputID(qdrant.NewID(positiveIDs[0])),
			Negative: qdrant.NewVectorInputDense(negative[j]),
		})
	}

	limit := uint64(topK)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDiscover(&qdrant.DiscoverInput{Context: context_}),
		Filter:         filter,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	return toMatches(resp, "native"), nil
}

// discoverFallback computes q = mean(positive) - 0.3*mean(negative),
// optionally blended 0.7*q + 0.3*target, and issues a standard kNN.
func (s *Store) discoverFallback(ctx context.Context, opts DiscoverOpts, filter *qdrant.Filter) ([]Match, error) {
	q := centroid(opts.Positive)
	negC := centroid(opts.Negative)
	for i := range q {
		var n float32
		if i < len(negC) {
			n = negC[i]
		}
		q[i] = q[i] - 0.3*n
	}
	if opts.Target != nil {
		for i := range q {
			var t float32
			if i < len(opts.Target) {
				t = opts.Target[i]
			}
			q[i] = 0.7*q[i] + 0.3*t
		}
	}

	limit := uint64(opts.TopK)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(q...),
		Filter:         filter,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	return toMatches(resp, "fallback"), nil
}

func centroid(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	out := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		for i, x := range v {
			if i < len(out) {
				out[i] += x
			}
		}
	}
	n := float32(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}
