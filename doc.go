// Package tecclsched implements a toolchain around TE-CCL collective-communication
// schedules: structured plans describing, for an all-gather collective across a set of
// hosts, which host sends which chunk of its local data to which neighbor during which
// epoch of a synchronous communication round.
//
// # Architecture Overview
//
// The toolchain shares one data model (package schedule) across three independent
// operations:
//
//   - Validation: decide whether a schedule realizes a correct all-gather (package validate)
//   - Lowering: translate a schedule into a flat .cm connection-list file (package lower)
//   - Simulation: execute a schedule epoch-by-epoch on simulated workers and compare the
//     result against a reference all-gather (package simulate)
//
// # Package Structure
//
//   - schedule: Host/Switch/Chunk/Epoch/Hop/Demand/Flow/FlowGraph types
//   - schedule/parse: textual grammars for demand-keys and path-strings
//   - flowgraph: FlowGraph construction from parsed demands
//   - validate: all-gather coverage check
//   - lower: .cm connection-list emission
//   - simrt: in-process message-passing runtime substitute
//   - simulate: epoch-synchronous schedule execution and comparison
//   - internal/logx: structured logging / warning sink
//   - cmd: command-line tools (teccl-validate, teccl-lower, teccl-sim)
//
// For more information, see the documentation at https://pkg.go.dev/github.com/hlc-lab/tecclsched
package tecclsched
