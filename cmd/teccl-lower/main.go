// Command teccl-lower emits a .cm connection-list file from a topology/schedule pair.
// Exit codes are distinct positive integers per failure category, matching
// convertTecclSchedule.c's `return 2..40` granularity.
//
// Usage:
//
//	teccl-lower [options] topology.json schedule.json output.cm
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hlc-lab/tecclsched/flowgraph"
	"github.com/hlc-lab/tecclsched/internal/logx"
	"github.com/hlc-lab/tecclsched/lower"
)

const (
	exitUsage              = 1
	exitTopologyUnreadable = 2
	exitTopologyMalformed  = 3
	exitScheduleUnreadable = 4
	exitScheduleMalformed  = 5
	exitOutputUnwritable   = 6
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug-level tracing")
	flag.Parse()

	args := flag.Args()
	if len(args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] topology.json schedule.json output.cm\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(exitUsage)
	}
	topoPath, schedPath, outPath := args[0], args[1], args[2]

	var sink *logx.Sink
	if *debug {
		sink = logx.NewDebug()
	} else {
		sink = logx.New()
	}
	defer sink.Sync()

	topoData, err := os.ReadFile(topoPath)
	if err != nil {
		sink.Fatalf(exitTopologyUnreadable, "cannot read %s: %v", topoPath, err)
	}
	cfg, err := flowgraph.ParseConfig(topoData)
	if err != nil {
		sink.Fatalf(exitTopologyMalformed, "%v", err)
	}

	schedData, err := os.ReadFile(schedPath)
	if err != nil {
		sink.Fatalf(exitScheduleUnreadable, "cannot read %s: %v", schedPath, err)
	}
	g, err := flowgraph.Build(schedData, cfg, sink)
	if err != nil {
		sink.Fatalf(exitScheduleMalformed, "%v", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		sink.Fatalf(exitOutputUnwritable, "cannot open %s for writing: %v", outPath, err)
	}
	defer out.Close()

	lowerCfg := lower.Config{NumNodes: cfg.TotalHosts(), NumChunks: cfg.NumChunks, BytesPerChunk: cfg.BytesPerChunk}
	if err := lower.Write(out, g, lowerCfg, sink); err != nil {
		sink.Fatalf(exitOutputUnwritable, "cannot write %s: %v", outPath, err)
	}

	fmt.Fprintf(os.Stderr, "[OK] .cm written to %s\n", outPath)
	fmt.Fprintf(os.Stderr, "[INFO] nodes=%d bytes/chunk=%d num_chunks=%d warnings=%d\n",
		cfg.TotalHosts(), cfg.BytesPerChunk, cfg.NumChunks, sink.WarningCount())
}
