package graphstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/qualcode/nucleus/pkg/domain"
)

func TestStreamYieldFieldPicksCommunityIdForCommunityAlgorithms(t *testing.T) {
	assert.Equal(t, "communityId", streamYieldField(domain.AlgoLouvain))
	assert.Equal(t, "communityId", streamYieldField(domain.AlgoLeiden))
	assert.Equal(t, "score", streamYieldField(domain.AlgoPageRank))
	assert.Equal(t, "score", streamYieldField(domain.AlgoBetweenness))
}

func TestToUndirectedPreservesNodesAndEdges(t *testing.T) {
	g := simple.NewDirectedGraph()
	g.AddNode(simple.Node(0))
	g.AddNode(simple.Node(1))
	g.SetEdge(g.NewEdge(simple.Node(0), simple.Node(1)))

	u := toUndirected(g)
	assert.True(t, u.HasEdgeBetween(0, 1))
	assert.Equal(t, 2, u.Nodes().Len())
}
