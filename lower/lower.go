// Package lower implements the Lowerer: it orders a schedule.FlowGraph's Flows, assigns
// dense stable ids, computes per-flow byte sizes, and emits the connection-list/trigger
// text a downstream simulator consumes. The algorithm and output grammar are ported
// directly from convertTecclSchedule.c's assign_ids_sorted/cmp_flow and its per-role
// fprintf cascade, rewritten around bufio.Writer instead of raw fprintf and io.Writer
// instead of a fixed output path.
package lower

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/hlc-lab/tecclsched/internal/logx"
	"github.com/hlc-lab/tecclsched/schedule"
)

// orderedFlow is a Flow together with its assigned dense id and resolved successor
// count, computed once up front so Write can stream rows without revisiting the graph.
type orderedFlow struct {
	flow      *schedule.Flow
	id        int
	predID    int // 0 if none, or if predecessor could not be resolved
	succCount int
	size      uint64
}

// Order returns the graph's Flows sorted by (epoch, src, dst) with dense ids 1..C
// assigned in that order. The id is stable across calls for the same graph since the
// sort key is total over distinct hops.
func Order(g *schedule.FlowGraph) []*schedule.Flow {
	flows := make([]*schedule.Flow, 0, len(g.Flows))
	for _, f := range g.Flows {
		flows = append(flows, f)
	}
	sort.Slice(flows, func(i, j int) bool {
		a, b := flows[i].Key, flows[j].Key
		if a.Epoch != b.Epoch {
			return a.Epoch < b.Epoch
		}
		if a.Src != b.Src {
			return a.Src < b.Src
		}
		return a.Dst < b.Dst
	})
	for i, f := range flows {
		f.ID = i + 1
	}
	return flows
}

// occurrenceCount resolves `occurrence_count`: the "7-Flows" line count when the
// schedule carried that section, else the chain-derived Flow.Count.
func occurrenceCount(g *schedule.FlowGraph, key schedule.HopKey, chainCount int) int {
	if g.HasSevenFlows {
		return g.SevenFlowsCount[key]
	}
	return chainCount
}

// build assembles the ordered, annotated flow list plus trigger bookkeeping needed by
// Write: byte sizes, resolved predecessor ids, and successor counts per id.
func build(g *schedule.FlowGraph, cfg Config, sink *logx.Sink) []orderedFlow {
	flows := Order(g)
	byKey := make(map[schedule.HopKey]*schedule.Flow, len(flows))
	for _, f := range flows {
		byKey[f.Key] = f
	}

	succCount := make([]int, len(flows)+1) // indexed by id, 1-based
	predID := make([]int, len(flows))
	for i, f := range flows {
		if f.Pred == nil {
			continue
		}
		pred, ok := byKey[*f.Pred]
		if !ok {
			continue // reported once by writeConnectionLine when the flow degrades
		}
		predID[i] = pred.ID
		succCount[pred.ID]++
	}

	out := make([]orderedFlow, len(flows))
	for i, f := range flows {
		occ := occurrenceCount(g, f.Key, f.Count)
		out[i] = orderedFlow{
			flow:      f,
			id:        f.ID,
			predID:    predID[i],
			succCount: succCount[f.ID],
			size:      uint64(occ) * uint64(cfg.NumChunks) * cfg.BytesPerChunk,
		}
	}
	return out
}

// Config carries the scalars the Lowerer needs beyond the graph itself: total node
// count and the per-chunk byte size used in the size computation.
type Config struct {
	NumNodes      int
	NumChunks     int
	BytesPerChunk uint64
}

// Write renders the full .cm document (header, connection-lines, trigger-lines) to w.
// Degraded MID/LAST flows (unresolved predecessor) fall back to the "start 0" form (a
// degraded MID with successors keeps its send_done_trigger) and are reported via sink
// once each, matching convertTecclSchedule.c's behavior exactly.
func Write(w io.Writer, g *schedule.FlowGraph, cfg Config, sink *logx.Sink) error {
	flows := build(g, cfg, sink)

	triggers := 0
	for _, of := range flows {
		if of.succCount > 0 {
			triggers++
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Nodes %d\n", cfg.NumNodes)
	fmt.Fprintf(bw, "Connections %d\n", len(flows))
	fmt.Fprintf(bw, "Triggers %d\n", triggers)

	for _, of := range flows {
		writeConnectionLine(bw, of, sink)
	}
	for _, of := range flows {
		if of.succCount > 0 {
			fmt.Fprintf(bw, "trigger id %d oneshot\n", of.id)
		}
	}

	return bw.Flush()
}

func writeConnectionLine(bw *bufio.Writer, of orderedFlow, sink *logx.Sink) {
	k := of.flow.Key
	role := of.flow.Role

	switch role {
	case schedule.RoleFirst:
		if of.succCount > 0 {
			fmt.Fprintf(bw, "%d->%d id %d start 0 size %d send_done_trigger %d\n", k.Src, k.Dst, of.id, of.size, of.id)
		} else {
			fmt.Fprintf(bw, "%d->%d id %d start 0 size %d\n", k.Src, k.Dst, of.id, of.size)
		}

	case schedule.RoleMid:
		if of.predID == 0 {
			sink.Warnf("MID flow %s has no resolvable predecessor; degrading to start 0", k)
			if of.succCount > 0 {
				fmt.Fprintf(bw, "%d->%d id %d start 0 size %d send_done_trigger %d\n", k.Src, k.Dst, of.id, of.size, of.id)
			} else {
				fmt.Fprintf(bw, "%d->%d id %d start 0 size %d\n", k.Src, k.Dst, of.id, of.size)
			}
			return
		}
		if of.succCount > 0 {
			fmt.Fprintf(bw, "%d->%d id %d trigger %d size %d send_done_trigger %d\n", k.Src, k.Dst, of.id, of.predID, of.size, of.id)
		} else {
			fmt.Fprintf(bw, "%d->%d id %d trigger %d size %d\n", k.Src, k.Dst, of.id, of.predID, of.size)
		}

	case schedule.RoleLast:
		if of.predID == 0 {
			sink.Warnf("LAST flow %s has no resolvable predecessor; degrading to start 0", k)
			fmt.Fprintf(bw, "%d->%d id %d start 0 size %d\n", k.Src, k.Dst, of.id, of.size)
			return
		}
		fmt.Fprintf(bw, "%d->%d id %d trigger %d size %d\n", k.Src, k.Dst, of.id, of.predID, of.size)

	default: // RoleNoDependency, RoleUnknown
		fmt.Fprintf(bw, "%d->%d id %d start 0 size %d\n", k.Src, k.Dst, of.id, of.size)
	}
}
