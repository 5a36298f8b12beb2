// Command teccl-sim runs a TE-CCL schedule across one in-process worker per discovered
// host and checks the result against a reference all-gather. Worker count is fixed to
// the host count the schedule itself names — unlike an MPI launcher's `-np`, there is
// no separate process count to reconcile, so a runtime/schedule worker-count mismatch
// cannot arise here and is not checked.
//
// Usage:
//
//	teccl-sim [options] config.json schedule.json
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hlc-lab/tecclsched/flowgraph"
	"github.com/hlc-lab/tecclsched/internal/logx"
	"github.com/hlc-lab/tecclsched/simulate"
)

func main() {
	var (
		debug   = flag.Bool("debug", false, "Enable per-epoch Irecv/Isend tracing")
		verbose = flag.Bool("verbose", false, "Print bounded buffer previews and timing")
		version = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		fmt.Println("teccl-sim - TE-CCL schedule simulator v1.0.0")
		return
	}

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] config.json schedule.json\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	configPath, schedulePath := args[0], args[1]

	var sink *logx.Sink
	if *debug {
		sink = logx.NewDebug()
	} else {
		sink = logx.New()
	}
	defer sink.Sync()

	configData, err := os.ReadFile(configPath)
	if err != nil {
		sink.Fatalf(2, "cannot read %s: %v", configPath, err)
	}
	cfg, err := flowgraph.ParseConfig(configData)
	if err != nil {
		sink.Fatalf(3, "%v", err)
	}

	scheduleData, err := os.ReadFile(schedulePath)
	if err != nil {
		sink.Fatalf(4, "cannot read %s: %v", schedulePath, err)
	}
	g, err := flowgraph.Build(scheduleData, cfg, sink)
	if err != nil {
		sink.Fatalf(5, "%v", err)
	}

	const bytesPerInt = 4
	chunkInts := int(cfg.BytesPerChunk / bytesPerInt)

	simCfg := simulate.Config{NumChunks: cfg.NumChunks, ChunkInts: chunkInts, Verbose: *verbose, Debug: *debug}
	valid, err := simulate.Run(g, simCfg, sink)
	if err != nil {
		sink.Fatalf(6, "simulation failed: %v", err)
	}

	if !valid {
		os.Exit(7)
	}
}
