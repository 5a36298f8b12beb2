// Package schedule defines the data model shared by every component of the toolchain:
// hosts, switches, chunks, epochs, hops, demands, and the FlowGraph assembled from them.
// The FlowGraph is built once by flowgraph.Build and is immutable thereafter, apart
// from the Flow ids lower.Order assigns;
// predecessor/successor links are expressed as key lookups into the Flows map rather
// than as pointers, so the table has no cycles and serializes trivially.
package schedule

import "fmt"

// Role is the dependency role of a Flow within the demand chains that traverse it.
type Role int

const (
	// RoleUnknown marks a Flow with no role assigned yet, or one whose hop never
	// appeared in any demand chain (the Lowerer treats it like RoleNoDependency).
	RoleUnknown Role = iota
	// RoleNoDependency is a chain of length 1: no predecessor, no successor.
	RoleNoDependency
	// RoleFirst is the first hop of a chain with length > 1: no predecessor, has successor.
	RoleFirst
	// RoleMid is an interior hop of a chain: has both predecessor and successor.
	RoleMid
	// RoleLast is the final hop of a chain with length > 1: has predecessor, no successor.
	RoleLast
)

func (r Role) String() string {
	switch r {
	case RoleNoDependency:
		return "NODIP"
	case RoleFirst:
		return "FIRST"
	case RoleMid:
		return "MID"
	case RoleLast:
		return "LAST"
	default:
		return "UNKNOWN"
	}
}

// HopKey identifies a distinct (src, dst, epoch) edge: the atomic scheduled unit.
type HopKey struct {
	Src, Dst, Epoch int
}

func (k HopKey) String() string {
	return fmt.Sprintf("%d->%d in epoch %d", k.Src, k.Dst, k.Epoch)
}

// PathStep is one parsed hop of a demand's chain, including the switches it traverses.
type PathStep struct {
	Src, Dst, Epoch int
	Switches        []int
}

// Demand is a (requesting_dst, chunk, origin_src, end_epoch) record extracted from one
// key of the schedule's "Chunk paths" section.
type Demand struct {
	Dst      int
	Chunk    int
	Src      int
	EndEpoch int
	Chain    []PathStep
}

// Flow aggregates every demand chain that traverses a given hop.
type Flow struct {
	Key          HopKey
	Count        int // number of demand chains traversing this hop ("7-Flows" counts live in FlowGraph.SevenFlowsCount)
	Role         Role
	Pred         *HopKey
	HasSuccessor bool
	ID           int // dense id assigned 1..C by lower.Order, stable across runs
}

// FlowGraph is the aggregate derived from all demands: a dense host ranking, the set of
// observed switch ids, the ordered hop-chain for each demand, and the deduplicated
// (src,dst,epoch) -> Flow mapping. Immutable once returned by flowgraph.Build, except
// for Flow.ID, which lower.Order assigns.
type FlowGraph struct {
	// HostRank maps a host id to its dense 0-based rank, in order of first appearance.
	HostRank map[int]int
	// RankHost is the inverse of HostRank: RankHost[r] is the host id at rank r.
	RankHost []int
	// Switches is the set of switch ids observed across all chains.
	Switches map[int]struct{}
	// Demands holds every successfully parsed demand, in the order flowgraph.Build
	// visited them. Build ranges over the decoded "Chunk paths" map, so this order
	// does not follow the document and can differ between runs.
	Demands []Demand
	// Flows maps each distinct hop to its aggregated Flow record.
	Flows map[HopKey]*Flow
	// HasSevenFlows reports whether the schedule document carried a "7-Flows" section.
	HasSevenFlows bool
	// SevenFlowsCount is the number of "7-Flows" lines naming each hop, populated only
	// when HasSevenFlows is true. The Lowerer prefers this over Flow.Count for
	// occurrence_count when present.
	SevenFlowsCount map[HopKey]int
}

// Rank returns the dense rank of a host id, discovering it if this is its first
// appearance. The order of first appearance across parsing defines the ranking.
func (g *FlowGraph) Rank(host int) int {
	if r, ok := g.HostRank[host]; ok {
		return r
	}
	r := len(g.RankHost)
	g.HostRank[host] = r
	g.RankHost = append(g.RankHost, host)
	return r
}

// NumHosts returns the number of distinct hosts discovered during construction.
func (g *FlowGraph) NumHosts() int {
	return len(g.RankHost)
}

// FlowFor returns the Flow for a hop, creating and registering a zero-value one if this
// is the first time the hop is observed.
func (g *FlowGraph) FlowFor(k HopKey) *Flow {
	if f, ok := g.Flows[k]; ok {
		return f
	}
	f := &Flow{Key: k}
	g.Flows[k] = f
	return f
}

// New returns an empty FlowGraph ready for incremental construction.
func New() *FlowGraph {
	return &FlowGraph{
		HostRank:        make(map[int]int),
		Switches:        make(map[int]struct{}),
		Flows:           make(map[HopKey]*Flow),
		SevenFlowsCount: make(map[HopKey]int),
	}
}
