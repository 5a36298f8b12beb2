package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlc-lab/tecclsched/schedule"
)

func graphWithDemands(t *testing.T, demands ...schedule.Demand) *schedule.FlowGraph {
	t.Helper()
	g := schedule.New()
	for _, d := range demands {
		g.Rank(d.Src)
		g.Rank(d.Dst)
		g.Demands = append(g.Demands, d)
	}
	return g
}

func TestRunCompleteAllGatherIsValid(t *testing.T) {
	// Two hosts (0,1), one chunk each direction: a complete 2-host, 1-chunk all-gather.
	g := graphWithDemands(t,
		schedule.Demand{Dst: 1, Chunk: 0, Src: 0, EndEpoch: 0},
		schedule.Demand{Dst: 0, Chunk: 0, Src: 1, EndEpoch: 0},
	)

	r := Run(g, 1)

	assert.True(t, r.Valid())
	assert.Empty(t, r.Missing)
	assert.Equal(t, 2, r.NumHosts)
}

func TestRunReportsMissingTriplesInOrder(t *testing.T) {
	// Three hosts, two chunks; only chunk 0 delivered between any pair.
	g := graphWithDemands(t,
		schedule.Demand{Dst: 1, Chunk: 0, Src: 0},
		schedule.Demand{Dst: 2, Chunk: 0, Src: 0},
		schedule.Demand{Dst: 0, Chunk: 0, Src: 1},
		schedule.Demand{Dst: 2, Chunk: 0, Src: 1},
		schedule.Demand{Dst: 0, Chunk: 0, Src: 2},
		schedule.Demand{Dst: 1, Chunk: 0, Src: 2},
	)

	r := Run(g, 2)

	require.False(t, r.Valid())
	require.Len(t, r.Missing, 6)
	for i, m := range r.Missing {
		assert.Equal(t, 1, m.Chunk, "entry %d", i)
		assert.NotEqual(t, m.Src, m.Dst)
	}
	// Ordering: src-rank, then dst-rank, then chunk.
	assert.Equal(t, MissingTriple{Src: 0, Dst: 1, Chunk: 1}, r.Missing[0])
	assert.Equal(t, MissingTriple{Src: 0, Dst: 2, Chunk: 1}, r.Missing[1])
	assert.Equal(t, MissingTriple{Src: 2, Dst: 1, Chunk: 1}, r.Missing[5])
}

func TestRunIgnoresDiagonal(t *testing.T) {
	g := graphWithDemands(t)
	g.Rank(5)
	r := Run(g, 3)
	assert.True(t, r.Valid())
}

func TestMissingTripleString(t *testing.T) {
	m := MissingTriple{Src: 1, Dst: 2, Chunk: 3}
	assert.Equal(t, "Missing chunk 3 from src 1 to dst 2", m.String())
}
