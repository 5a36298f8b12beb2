package lower_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlc-lab/tecclsched/flowgraph"
	"github.com/hlc-lab/tecclsched/internal/logx"
	"github.com/hlc-lab/tecclsched/lower"
	"github.com/hlc-lab/tecclsched/schedule"
	"github.com/hlc-lab/tecclsched/validate"
)

func mustBuild(t *testing.T, scheduleDoc string, cfg flowgraph.Config) *schedule.FlowGraph {
	t.Helper()
	g, err := flowgraph.Build([]byte(scheduleDoc), cfg, logx.New())
	require.NoError(t, err)
	return g
}

// S1: minimal two-host, single-chunk all-gather.
func TestScenarioS1MinimalTwoHost(t *testing.T) {
	doc := `{
		"Chunk paths": {
			"Demand at 1 for chunk 0 from 0 met by epoch 0": ["0->1 in epoch 0 via switches"],
			"Demand at 0 for chunk 0 from 1 met by epoch 0": ["1->0 in epoch 0 via switches"]
		}
	}`
	cfg := flowgraph.Config{NumChunks: 1, NumEpochs: 1, NumGroups: 1, LeafRouters: 1, HostsPerRouter: 2, BytesPerChunk: 10}
	g := mustBuild(t, doc, cfg)

	report := validate.Run(g, cfg.NumChunks)
	assert.True(t, report.Valid())

	var buf bytes.Buffer
	require.NoError(t, lower.Write(&buf, g, lower.Config{NumNodes: cfg.TotalHosts(), NumChunks: cfg.NumChunks, BytesPerChunk: cfg.BytesPerChunk}, logx.New()))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, "Nodes 2", lines[0])
	assert.Equal(t, "Connections 2", lines[1])
	assert.Equal(t, "Triggers 0", lines[2])
}

// S2: chain of three; FIRST/LAST role assignment and trigger emission.
func TestScenarioS2ChainOfThree(t *testing.T) {
	doc := `{
		"Chunk paths": {
			"Demand at 2 for chunk 0 from 0 met by epoch 1": [
				"0->1 in epoch 0 via switches 10",
				"1->2 in epoch 1 via switches 20"
			]
		}
	}`
	cfg := flowgraph.Config{NumChunks: 1, NumEpochs: 2, NumGroups: 1, LeafRouters: 1, HostsPerRouter: 3, BytesPerChunk: 7}
	g := mustBuild(t, doc, cfg)

	first := g.FlowFor(schedule.HopKey{Src: 0, Dst: 1, Epoch: 0})
	last := g.FlowFor(schedule.HopKey{Src: 1, Dst: 2, Epoch: 1})
	assert.Equal(t, schedule.RoleFirst, first.Role)
	assert.Equal(t, schedule.RoleLast, last.Role)

	var buf bytes.Buffer
	require.NoError(t, lower.Write(&buf, g, lower.Config{NumNodes: cfg.TotalHosts(), NumChunks: cfg.NumChunks, BytesPerChunk: cfg.BytesPerChunk}, logx.New()))
	out := buf.String()
	assert.Contains(t, out, "0->1 id 1 start 0 size 7 send_done_trigger 1")
	assert.Contains(t, out, "1->2 id 2 trigger 1 size 7")
	assert.Contains(t, out, "trigger id 1 oneshot")
	assert.NotContains(t, out, "trigger id 2 oneshot")
}

// S3: missing chunk across two hosts is reported and the schedule is invalid.
func TestScenarioS3MissingChunk(t *testing.T) {
	doc := `{
		"Chunk paths": {
			"Demand at 1 for chunk 0 from 0 met by epoch 0": ["0->1 in epoch 0 via switches"],
			"Demand at 0 for chunk 0 from 1 met by epoch 0": ["1->0 in epoch 0 via switches"]
		}
	}`
	cfg := flowgraph.Config{NumChunks: 2, NumEpochs: 1, NumGroups: 1, LeafRouters: 1, HostsPerRouter: 2, BytesPerChunk: 10}
	g := mustBuild(t, doc, cfg)

	report := validate.Run(g, cfg.NumChunks)
	require.False(t, report.Valid())
	assert.Equal(t, []validate.MissingTriple{{Src: 0, Dst: 1, Chunk: 1}, {Src: 1, Dst: 0, Chunk: 1}}, report.Missing)
	assert.Equal(t, "Missing chunk 1 from src 0 to dst 1", report.Missing[0].String())
	assert.Equal(t, "Missing chunk 1 from src 1 to dst 0", report.Missing[1].String())
}

// S4: MID flow with both predecessor and successor.
func TestScenarioS4MidWithSuccessor(t *testing.T) {
	doc := `{
		"Chunk paths": {
			"Demand at 3 for chunk 0 from 0 met by epoch 2": [
				"0->1 in epoch 0 via switches",
				"1->2 in epoch 1 via switches",
				"2->3 in epoch 2 via switches"
			]
		}
	}`
	cfg := flowgraph.Config{NumChunks: 1, NumEpochs: 3, NumGroups: 1, LeafRouters: 1, HostsPerRouter: 4, BytesPerChunk: 5}
	g := mustBuild(t, doc, cfg)

	mid := g.FlowFor(schedule.HopKey{Src: 1, Dst: 2, Epoch: 1})
	assert.Equal(t, schedule.RoleMid, mid.Role)

	var buf bytes.Buffer
	require.NoError(t, lower.Write(&buf, g, lower.Config{NumNodes: cfg.TotalHosts(), NumChunks: cfg.NumChunks, BytesPerChunk: cfg.BytesPerChunk}, logx.New()))
	assert.Regexp(t, `1->2 id \d+ trigger \d+ size 5 send_done_trigger \d+`, buf.String())
}

// S6: two demands sharing the same hop collapse to one connection line whose
// occurrence_count equals the number of sharing demands.
func TestScenarioS6DuplicateHopSingleOccurrence(t *testing.T) {
	doc := `{
		"Chunk paths": {
			"Demand at 1 for chunk 0 from 0 met by epoch 0": ["0->1 in epoch 0 via switches"],
			"Demand at 1 for chunk 1 from 0 met by epoch 0": ["0->1 in epoch 0 via switches"]
		}
	}`
	cfg := flowgraph.Config{NumChunks: 2, NumEpochs: 1, NumGroups: 1, LeafRouters: 1, HostsPerRouter: 2, BytesPerChunk: 3}
	g := mustBuild(t, doc, cfg)

	flow := g.FlowFor(schedule.HopKey{Src: 0, Dst: 1, Epoch: 0})
	assert.Equal(t, 2, flow.Count)

	var buf bytes.Buffer
	require.NoError(t, lower.Write(&buf, g, lower.Config{NumNodes: cfg.TotalHosts(), NumChunks: cfg.NumChunks, BytesPerChunk: cfg.BytesPerChunk}, logx.New()))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, "Connections 1", lines[1])
	// occurrence_count=2, num_chunks=2, bytes_per_chunk=3 -> size 12
	assert.Contains(t, buf.String(), "size 12")
}

// Property 7: idempotence. Running the Lowerer twice on the same FlowGraph yields
// byte-identical output.
func TestLowererIsIdempotent(t *testing.T) {
	doc := `{
		"Chunk paths": {
			"Demand at 2 for chunk 0 from 0 met by epoch 1": [
				"0->1 in epoch 0 via switches",
				"1->2 in epoch 1 via switches"
			]
		}
	}`
	cfg := flowgraph.Config{NumChunks: 1, NumEpochs: 2, NumGroups: 1, LeafRouters: 1, HostsPerRouter: 3, BytesPerChunk: 9}
	g := mustBuild(t, doc, cfg)
	lowerCfg := lower.Config{NumNodes: cfg.TotalHosts(), NumChunks: cfg.NumChunks, BytesPerChunk: cfg.BytesPerChunk}

	var first, second bytes.Buffer
	require.NoError(t, lower.Write(&first, g, lowerCfg, logx.New()))
	require.NoError(t, lower.Write(&second, g, lowerCfg, logx.New()))
	assert.Equal(t, first.String(), second.String())
}

// Property 2: id stability across independent Order() calls on the same graph.
func TestIDAssignmentIsStableAcrossRuns(t *testing.T) {
	doc := `{
		"Chunk paths": {
			"Demand at 2 for chunk 0 from 0 met by epoch 1": [
				"0->1 in epoch 0 via switches",
				"1->2 in epoch 1 via switches"
			]
		}
	}`
	cfg := flowgraph.Config{NumChunks: 1, NumEpochs: 2, NumGroups: 1, LeafRouters: 1, HostsPerRouter: 3, BytesPerChunk: 9}
	g := mustBuild(t, doc, cfg)

	first := lower.Order(g)
	ids1 := map[schedule.HopKey]int{}
	for _, f := range first {
		ids1[f.Key] = f.ID
	}

	second := lower.Order(g)
	for _, f := range second {
		assert.Equal(t, ids1[f.Key], f.ID)
	}
}
