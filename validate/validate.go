// Package validate implements the Validator: given a schedule.FlowGraph and num_chunks,
// it decides whether every ordered pair of distinct hosts (a, b) and every chunk c has
// a demand delivering b's requested chunk c from a, and reports every missing triple.
// The delivered tensor is a nested sparse-set map rather than a flat 3-D boolean array,
// since the (src, dst) space is rank-dense but the demand set itself is sparse.
package validate

import (
	"fmt"
	"sort"

	"github.com/hlc-lab/tecclsched/schedule"
)

// MissingTriple is one (origin_rank, requester_rank, chunk) combination for which no
// demand was found in the graph.
type MissingTriple struct {
	Src   int
	Dst   int
	Chunk int
}

// Report is the outcome of a validation run: the full, ordered list of missing
// triples (empty means the schedule realizes a complete all-gather) and the host/switch
// counts the caller may want to echo alongside the verdict.
type Report struct {
	Missing    []MissingTriple
	NumHosts   int
	NumChunks  int
	NumSwitches int
}

// Valid reports whether the schedule covers every (src, dst, chunk) triple.
func (r Report) Valid() bool {
	return len(r.Missing) == 0
}

// Run builds the delivered[src][dst][chunk] tensor from g's demands and scans every
// off-diagonal (src, dst) pair for missing chunks. Reports are ordered by src-rank,
// then dst-rank, then chunk.
func Run(g *schedule.FlowGraph, numChunks int) Report {
	delivered := make(map[int]map[int]map[int]struct{})
	for _, d := range g.Demands {
		srcRank := g.Rank(d.Src)
		dstRank := g.Rank(d.Dst)
		byDst, ok := delivered[srcRank]
		if !ok {
			byDst = make(map[int]map[int]struct{})
			delivered[srcRank] = byDst
		}
		chunks, ok := byDst[dstRank]
		if !ok {
			chunks = make(map[int]struct{})
			byDst[dstRank] = chunks
		}
		chunks[d.Chunk] = struct{}{}
	}

	numHosts := g.NumHosts()
	var missing []MissingTriple
	for src := 0; src < numHosts; src++ {
		for dst := 0; dst < numHosts; dst++ {
			if src == dst {
				continue
			}
			chunks := delivered[src][dst]
			for c := 0; c < numChunks; c++ {
				if _, ok := chunks[c]; !ok {
					missing = append(missing, MissingTriple{Src: src, Dst: dst, Chunk: c})
				}
			}
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		if missing[i].Src != missing[j].Src {
			return missing[i].Src < missing[j].Src
		}
		if missing[i].Dst != missing[j].Dst {
			return missing[i].Dst < missing[j].Dst
		}
		return missing[i].Chunk < missing[j].Chunk
	})

	return Report{Missing: missing, NumHosts: numHosts, NumChunks: numChunks, NumSwitches: len(g.Switches)}
}

// String renders one missing-triple report line: "Missing chunk C from src A to dst B".
func (m MissingTriple) String() string {
	return fmt.Sprintf("Missing chunk %d from src %d to dst %d", m.Chunk, m.Src, m.Dst)
}
