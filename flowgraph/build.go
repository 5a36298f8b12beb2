// Package flowgraph assembles a schedule.FlowGraph from the schedule document's
// "7-Flows" and "Chunk paths" sections. This is the core of the Schedule Loader.
package flowgraph

import (
	"encoding/json"
	"fmt"

	"github.com/hlc-lab/tecclsched/internal/logx"
	"github.com/hlc-lab/tecclsched/schedule"
	"github.com/hlc-lab/tecclsched/schedule/parse"
)

// roleInputs accumulates, per hop, whether it was ever seen as a single-hop chain, as
// the first hop of a longer chain, and/or as an interior/last hop with a predecessor.
// Deriving Role from these flags once, after every demand has been processed, makes
// the dominance rules independent of demand processing order (naively mutating a role
// field hop-by-hop while demands are still being read would make the result depend on
// the order demands happen to be iterated in).
type roleInputs struct {
	sawSingleHop bool
	hasPred      bool
	hasSucc      bool
	pred         schedule.HopKey
}

// Build parses a schedule document's "7-Flows" (optional) and "Chunk paths" (required)
// sections into a FlowGraph. cfg.NumChunks bounds valid chunk indices. Malformed
// demand-keys, path-strings, and out-of-range chunks are reported to sink and skipped;
// an absent "Chunk paths" section is fatal.
func Build(scheduleDoc []byte, cfg Config, sink *logx.Sink) (*schedule.FlowGraph, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(scheduleDoc, &raw); err != nil {
		return nil, fmt.Errorf("malformed schedule document: %w", err)
	}

	chunkPathsRaw, ok := raw["Chunk paths"]
	if !ok {
		return nil, fmt.Errorf("missing required field: \"Chunk paths\"")
	}
	var chunkPaths map[string]json.RawMessage
	if err := json.Unmarshal(chunkPathsRaw, &chunkPaths); err != nil {
		return nil, fmt.Errorf("missing required field: \"Chunk paths\" is not an object")
	}

	g := schedule.New()
	roles := make(map[schedule.HopKey]*roleInputs)
	roleFor := func(k schedule.HopKey) *roleInputs {
		r, ok := roles[k]
		if !ok {
			r = &roleInputs{}
			roles[k] = r
		}
		return r
	}

	for key, rawLines := range chunkPaths {
		buildDemand(g, key, rawLines, cfg, sink, roleFor)
	}

	finalizeRoles(g, roles)
	parseSevenFlows(g, raw, sink)

	return g, nil
}

func buildDemand(
	g *schedule.FlowGraph,
	key string,
	rawLines json.RawMessage,
	cfg Config,
	sink *logx.Sink,
	roleFor func(schedule.HopKey) *roleInputs,
) {
	demand, err := parse.DemandKey(key)
	if err != nil {
		sink.Warnf("skipping malformed demand key: %v", err)
		return
	}
	if demand.Src == demand.Dst {
		sink.Warnf("skipping demand %q: src_host == dst_host", key)
		return
	}
	if demand.Chunk < 0 || demand.Chunk >= cfg.NumChunks {
		sink.Warnf("skipping demand %q: chunk %d out of range [0,%d)", key, demand.Chunk, cfg.NumChunks)
		return
	}

	var lines []string
	if err := json.Unmarshal(rawLines, &lines); err != nil {
		sink.Warnf("skipping demand %q: value is not an array of path-strings", key)
		return
	}

	chain := parseChain(lines, sink)
	if len(chain) == 0 {
		sink.Warnf("skipping demand %q: no valid path-string in chain", key)
		return
	}

	maxEpoch := chain[0].Epoch
	for _, step := range chain[1:] {
		if step.Epoch > maxEpoch {
			maxEpoch = step.Epoch
		}
	}
	if demand.EndEpoch < maxEpoch {
		sink.Warnf("demand %q: end_epoch %d precedes max chain epoch %d", key, demand.EndEpoch, maxEpoch)
	}

	for _, step := range chain {
		g.Rank(step.Src)
		g.Rank(step.Dst)
		for _, sw := range step.Switches {
			g.Switches[sw] = struct{}{}
		}
	}
	g.Rank(demand.Src)
	g.Rank(demand.Dst)

	g.Demands = append(g.Demands, schedule.Demand{
		Dst: demand.Dst, Chunk: demand.Chunk, Src: demand.Src, EndEpoch: demand.EndEpoch, Chain: chain,
	})

	annotateChainRoles(g, chain, roleFor)
}

func parseChain(lines []string, sink *logx.Sink) []schedule.PathStep {
	var chain []schedule.PathStep
	for _, line := range lines {
		step, err := parse.PathString(line)
		if err != nil {
			sink.Warnf("skipping malformed path-string: %v", err)
			continue
		}
		if step.Epoch < 0 {
			sink.Warnf("skipping path-string %q: negative epoch", line)
			continue
		}
		chain = append(chain, schedule.PathStep{Src: step.Src, Dst: step.Dst, Epoch: step.Epoch, Switches: step.Switches})
	}
	return chain
}

func annotateChainRoles(g *schedule.FlowGraph, chain []schedule.PathStep, roleFor func(schedule.HopKey) *roleInputs) {
	k := len(chain)
	for i, step := range chain {
		key := schedule.HopKey{Src: step.Src, Dst: step.Dst, Epoch: step.Epoch}
		g.FlowFor(key).Count++
		ri := roleFor(key)

		switch {
		case k == 1:
			ri.sawSingleHop = true
		case i == 0:
			ri.hasSucc = true
		case i == k-1:
			ri.hasPred = true
			setPredOnce(ri, chain[i-1])
		default:
			ri.hasPred = true
			ri.hasSucc = true
			setPredOnce(ri, chain[i-1])
		}
	}
}

func setPredOnce(ri *roleInputs, pred schedule.PathStep) {
	predKey := schedule.HopKey{Src: pred.Src, Dst: pred.Dst, Epoch: pred.Epoch}
	if !ri.hasPred || ri.pred == (schedule.HopKey{}) {
		ri.pred = predKey
	}
}

// finalizeRoles applies the dominance rules to every observed hop: MID dominates
// whenever both a predecessor and a successor were observed; FIRST dominates over
// NODIP when a successor was observed; otherwise LAST or NODIP.
func finalizeRoles(g *schedule.FlowGraph, roles map[schedule.HopKey]*roleInputs) {
	for key, ri := range roles {
		flow := g.FlowFor(key)
		flow.HasSuccessor = ri.hasSucc
		switch {
		case ri.hasPred && ri.hasSucc:
			flow.Role = schedule.RoleMid
			pred := ri.pred
			flow.Pred = &pred
		case ri.hasSucc:
			flow.Role = schedule.RoleFirst
		case ri.hasPred:
			flow.Role = schedule.RoleLast
			pred := ri.pred
			flow.Pred = &pred
		case ri.sawSingleHop:
			flow.Role = schedule.RoleNoDependency
		default:
			flow.Role = schedule.RoleUnknown
		}
	}
}

func parseSevenFlows(g *schedule.FlowGraph, raw map[string]json.RawMessage, sink *logx.Sink) {
	sevenRaw, ok := raw["7-Flows"]
	if !ok {
		sink.Warnf("\"7-Flows\" section absent; occurrence counts will be derived from chain traversal")
		return
	}
	var lines []string
	if err := json.Unmarshal(sevenRaw, &lines); err != nil {
		sink.Warnf("\"7-Flows\" is not an array of strings; occurrence counts will be derived from chain traversal")
		return
	}

	g.HasSevenFlows = true
	for _, line := range lines {
		step, err := parse.FlowLine7(line)
		if err != nil {
			sink.Warnf("skipping malformed 7-Flows line: %v", err)
			continue
		}
		key := schedule.HopKey{Src: step.Src, Dst: step.Dst, Epoch: step.Epoch}
		g.SevenFlowsCount[key]++
	}
}
