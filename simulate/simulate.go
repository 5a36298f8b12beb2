// Package simulate implements the Simulator: it turns a schedule.FlowGraph into
// per-worker MessageRecord lists, drives the epoch-synchronous
// recv-before-send/wait-all/barrier loop over simrt, and compares the resulting
// gather buffer against simrt's reference all-gather. The algorithm — message
// construction with a globally unique seq tag, per-rank sort, and the
// posting/wait/barrier epoch loop — is ported from simulateAllSchedule.c's
// build_messages_rank0/simulate_epochs, replacing its MPI calls with simrt's
// goroutine-backed equivalents.
package simulate

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hlc-lab/tecclsched/internal/logx"
	"github.com/hlc-lab/tecclsched/schedule"
	"github.com/hlc-lab/tecclsched/simrt"
)

// maxPrintElems bounds the -verbose slice previews, matching simulateAllSchedule.c's
// MAX_PRINT_ELEMS.
const maxPrintElems = 32

// MessageRecord is one hop materialized for the epoch loop: the sender/receiver view
// of a single (src, dst, epoch) transmission, tagged with a globally unique seq so
// concurrent hops between the same pair of workers in the same epoch are disambiguated
// by tag rather than post order.
type MessageRecord struct {
	Src, Dst, Epoch, Seq int
	Origin, Chunk        int
}

// Config carries the scalars the Simulator needs beyond the graph: chunk count and the
// per-chunk width in ints (`chunk_ints = bytes_per_chunk / sizeof(int)`).
type Config struct {
	NumChunks int
	ChunkInts int
	Verbose   bool
	Debug     bool
}

// buildMessages assigns a MessageRecord to each non-self-loop hop of every demand's
// chain, in hop-iteration order, and returns each worker's list sorted by (epoch, seq,
// src, dst, origin, chunk).
func buildMessages(g *schedule.FlowGraph) (perRank [][]MessageRecord, maxEpoch int) {
	w := g.NumHosts()
	perRank = make([][]MessageRecord, w)
	seq := 0
	for _, d := range g.Demands {
		origin := g.Rank(d.Src)
		for _, step := range d.Chain {
			if step.Epoch > maxEpoch {
				maxEpoch = step.Epoch
			}
			u, v := g.Rank(step.Src), g.Rank(step.Dst)
			if u == v {
				continue
			}
			rec := MessageRecord{Src: u, Dst: v, Epoch: step.Epoch, Seq: seq, Origin: origin, Chunk: d.Chunk}
			seq++
			perRank[u] = append(perRank[u], rec)
			perRank[v] = append(perRank[v], rec)
		}
	}
	for r := range perRank {
		recs := perRank[r]
		sort.Slice(recs, func(i, j int) bool {
			a, b := recs[i], recs[j]
			switch {
			case a.Epoch != b.Epoch:
				return a.Epoch < b.Epoch
			case a.Seq != b.Seq:
				return a.Seq < b.Seq
			case a.Src != b.Src:
				return a.Src < b.Src
			case a.Dst != b.Dst:
				return a.Dst < b.Dst
			case a.Origin != b.Origin:
				return a.Origin < b.Origin
			default:
				return a.Chunk < b.Chunk
			}
		})
	}
	return perRank, maxEpoch
}

// runEpochs drives one worker through the epoch loop: for each epoch, post every
// matching receive before any send (so a peer's send never blocks waiting on a receive
// that hasn't been posted yet), wait for all of this epoch's requests, then barrier.
func runEpochs(runID string, r *simrt.Rank, msgs []MessageRecord, global []int32, dataPerHost, chunkInts, maxEpoch int, sink *logx.Sink, debug bool) {
	for ep := 0; ep <= maxEpoch; ep++ {
		var reqs []*simrt.Request
		for _, m := range msgs {
			if m.Epoch != ep || m.Src == m.Dst || m.Dst != r.ID() {
				continue
			}
			slot := global[m.Origin*dataPerHost+m.Chunk*chunkInts : m.Origin*dataPerHost+(m.Chunk+1)*chunkInts]
			reqs = append(reqs, r.Irecv(m.Src, m.Seq, slot))
			if debug {
				sink.Debugf("[%s] rank %d ep=%d Irecv from %d (seq=%d) -> origin=%d chunk=%d", runID, r.ID(), ep, m.Src, m.Seq, m.Origin, m.Chunk)
			}
		}
		for _, m := range msgs {
			if m.Epoch != ep || m.Src == m.Dst || m.Src != r.ID() {
				continue
			}
			slot := global[m.Origin*dataPerHost+m.Chunk*chunkInts : m.Origin*dataPerHost+(m.Chunk+1)*chunkInts]
			reqs = append(reqs, r.Isend(m.Dst, m.Seq, slot))
			if debug {
				sink.Debugf("[%s] rank %d ep=%d Isend to %d (seq=%d) <- origin=%d chunk=%d", runID, r.ID(), ep, m.Dst, m.Seq, m.Origin, m.Chunk)
			}
		}
		if err := simrt.WaitAll(reqs); err != nil {
			sink.Warnf("[%s] rank %d epoch %d: %v", runID, r.ID(), ep, err)
		}
		r.Barrier()
	}
}

// workerOutcome is one worker's post-simulation verdict, collected by Run after the
// world finishes so the overall valid flag can be computed in the caller.
type workerOutcome struct {
	mismatchIndex int // -1 means OK
}

var printMu sync.Mutex

func printSlice(title string, proc int, arr []int32, offset, length int) {
	printMu.Lock()
	defer printMu.Unlock()
	toPrint := length
	if toPrint > maxPrintElems {
		toPrint = maxPrintElems
	}
	fmt.Printf("%s [proc %d] (len=%d, showing %d): [", title, proc, length, toPrint)
	for i := 0; i < toPrint; i++ {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Print(arr[offset+i])
	}
	if toPrint < length {
		fmt.Print(", ...")
	}
	fmt.Println("]")
}

func firstMismatch(sim, ref []int32) int {
	for i := range sim {
		if sim[i] != ref[i] {
			return i
		}
	}
	return -1
}

// Run executes the full Simulator: message construction, the epoch loop, reference
// all-gather comparison, and [COMPARE]/[RESULT] reporting, over a World of
// g.NumHosts() workers. It returns whether every worker's simulated buffer matched the
// reference all-gather.
func Run(g *schedule.FlowGraph, cfg Config, sink *logx.Sink) (bool, error) {
	if cfg.ChunkInts <= 0 {
		return false, fmt.Errorf("chunk_size too small: chunk_ints=%d", cfg.ChunkInts)
	}
	w := g.NumHosts()
	if w == 0 {
		return false, fmt.Errorf("schedule names no hosts")
	}
	perRank, maxEpoch := buildMessages(g)
	dataPerHost := cfg.NumChunks * cfg.ChunkInts

	results := make([]workerOutcome, w)
	start := time.Now()
	runID := uuid.New().String()
	sink.Debugf("[%s] starting simulation: %d workers, max_epoch=%d", runID, w, maxEpoch)

	err := simrt.Run(w, func(r *simrt.Rank) error {
		idx := r.ID()
		rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(idx)*1337))
		local := make([]int32, dataPerHost)
		for i := range local {
			local[i] = rng.Int31()
		}

		global := make([]int32, dataPerHost*w)
		copy(global[idx*dataPerHost:(idx+1)*dataPerHost], local)

		if cfg.Verbose {
			r.Barrier()
			printSlice("[LOCAL]", idx, local, 0, dataPerHost)
			r.Barrier()
		}

		runEpochs(runID, r, perRank[idx], global, dataPerHost, cfg.ChunkInts, maxEpoch, sink, cfg.Debug)
		r.Barrier()

		reference := r.Allgather(local)
		mismatch := firstMismatch(global, reference)
		results[idx] = workerOutcome{mismatchIndex: mismatch}

		if cfg.Verbose {
			printSlice("[SIM_GLOBAL]", idx, global, idx*dataPerHost, dataPerHost)
		}

		okFlag := int32(1)
		if mismatch >= 0 {
			okFlag = 0
			printMu.Lock()
			fmt.Printf("[COMPARE] proc %d: MISMATCH at global_i=%d (slice=%d, pos=%d) (sim=%d, mpi=%d)\n",
				idx, mismatch, mismatch/dataPerHost, mismatch%dataPerHost,
				global[mismatch], reference[mismatch])
			printMu.Unlock()
		} else {
			printMu.Lock()
			fmt.Printf("[COMPARE] proc %d: OK\n", idx)
			printMu.Unlock()
		}
		if len(perRank[idx]) == 0 {
			sink.Warnf("[%s] rank %d: no messages (schedule likely does not address this rank)", runID, idx)
		}

		gathered := r.Allgather([]int32{okFlag})
		if idx == 0 {
			allOK := true
			for _, v := range gathered {
				if v == 0 {
					allOK = false
					break
				}
			}
			printMu.Lock()
			if allOK {
				fmt.Println("[RESULT] Tutti i rank hanno sim_global == MPI_Allgather")
			} else {
				fmt.Println("[RESULT] Almeno un rank NON ha sim_global == MPI_Allgather")
			}
			printMu.Unlock()
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if cfg.Verbose {
		fmt.Printf("[INFO] simulation completed in %s\n", time.Since(start))
	}

	valid := true
	for _, o := range results {
		if o.mismatchIndex >= 0 {
			valid = false
			break
		}
	}
	return valid, nil
}
