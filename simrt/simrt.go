// Package simrt is the in-process substitute for an external message-passing runtime:
// non-blocking point-to-point send/recv, barriers, broadcast, and a reference
// all-gather. No Go MPI binding exists to reach for, so this package reproduces those
// primitives over goroutines and channels: one goroutine per rank, tagged in-process
// messages standing in for tagged network messages, and a channel-based barrier. It is
// structured as a worker pool (one long-lived goroutine per unit of work, joined by a
// WaitGroup-like primitive) generalized from task execution to point-to-point message
// exchange, built on golang.org/x/sync/errgroup so a single rank's failure aborts the
// whole run instead of leaving peers blocked forever on a message that will never
// arrive.
package simrt

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// envelope is one tagged point-to-point message: the unit exchanged by Isend/Irecv.
type envelope struct {
	tag     int
	payload []int32
}

// Request is a pending non-blocking operation, returned by Isend/Irecv and resolved by
// WaitAll.
type Request struct {
	done chan error
}

// Wait blocks until this single request completes.
func (r *Request) Wait() error {
	return <-r.done
}

// Rank is one worker's view of the World: its own index, its peer count, and the
// primitives the Simulator drives per epoch.
type Rank struct {
	id    int
	world *World
}

// ID returns this rank's 0-based index.
func (r *Rank) ID() int { return r.id }

// Size returns the total number of ranks in the World.
func (r *Rank) Size() int { return len(r.world.inboxes) }

// Isend posts a non-blocking send of payload to peer dst tagged with tag. The
// returned Request completes once the message has been handed to dst's matching Irecv.
func (r *Rank) Isend(dst int, tag int, payload []int32) *Request {
	req := &Request{done: make(chan error, 1)}
	msg := message{env: envelope{tag: tag, payload: payload}, ack: req.done}
	go func() {
		select {
		case r.world.inboxes[dst] <- msg:
		case <-r.world.ctx.Done():
			req.done <- r.world.ctx.Err()
		}
	}()
	return req
}

// message is what actually travels over a rank's inbox channel: the envelope plus an
// ack channel the sender's Request waits on, so Isend only reports "delivered to the
// matching receive" once a receive with the matching tag has actually claimed it —
// distinct concurrent hops between the same pair of workers are disambiguated by tag,
// not send/recv order.
type message struct {
	env envelope
	ack chan<- error
}

// Irecv posts a non-blocking receive for the message tagged tag from peer src, copying
// it into dst once the matching Isend arrives. src is not currently used to filter
// (single-inbox-per-rank; tag is the sole disambiguator), but is accepted to mirror the
// MPI-style call shape the Simulator is written against.
func (r *Rank) Irecv(src int, tag int, dst []int32) *Request {
	req := &Request{done: make(chan error, 1)}
	go func() {
		for {
			select {
			case msg := <-r.world.inboxes[r.id]:
				if msg.env.tag != tag {
					r.world.requeue(r.id, msg)
					continue
				}
				copy(dst, msg.env.payload)
				msg.ack <- nil
				req.done <- nil
				return
			case <-r.world.ctx.Done():
				req.done <- r.world.ctx.Err()
				return
			}
		}
	}()
	return req
}

// WaitAll blocks until every request in reqs has completed, returning the first error
// encountered, if any.
func WaitAll(reqs []*Request) error {
	var first error
	for _, req := range reqs {
		if err := req.Wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Barrier blocks until every rank in the World has called Barrier.
func (r *Rank) Barrier() {
	r.world.barrier()
}

// Bcast broadcasts data from root to every rank, returning the received copy. Every
// rank must call Bcast with the same root. Reusable across multiple rounds: like
// barrier, it resets its rendezvous state once every rank has arrived, so a World can
// drive any number of broadcasts over its lifetime.
func (r *Rank) Bcast(root int, data []int32) []int32 {
	w := r.world
	w.bcastMu.Lock()
	if r.id == root {
		w.bcastStaged = append([]int32(nil), data...)
	}
	w.bcastN++
	n := w.bcastN
	c := w.bcastC
	if n == len(w.inboxes) {
		w.bcastValue = w.bcastStaged
		w.bcastN = 0
		w.bcastC = make(chan struct{})
		close(c)
	}
	w.bcastMu.Unlock()
	if n != len(w.inboxes) {
		<-c
	}

	w.bcastMu.Lock()
	out := append([]int32(nil), w.bcastValue...)
	w.bcastMu.Unlock()
	return out
}

// Allgather computes the reference all-gather of local across every rank: the
// concatenation, in rank order, of every rank's local slice. The Simulator checks its
// own simulated buffer against this reference, and calls Allgather more than once per
// run (once for the data comparison, once to reduce the pass/fail verdict), so this
// resets its staging buffer every round the same way Bcast and barrier do.
func (r *Rank) Allgather(local []int32) []int32 {
	w := r.world
	w.gatherMu.Lock()
	w.gatherBuf[r.id] = append([]int32(nil), local...)
	w.gatherN++
	n := w.gatherN
	c := w.gatherC
	if n == len(w.inboxes) {
		w.gatherResult = w.gatherBuf
		w.gatherBuf = make([][]int32, len(w.inboxes))
		w.gatherN = 0
		w.gatherC = make(chan struct{})
		close(c)
	}
	w.gatherMu.Unlock()
	if n != len(w.inboxes) {
		<-c
	}

	w.gatherMu.Lock()
	result := w.gatherResult
	w.gatherMu.Unlock()

	out := make([]int32, 0, len(local)*len(w.inboxes))
	for _, slice := range result {
		out = append(out, slice...)
	}
	return out
}

// World owns the W ranks of one simulation run and the shared primitives (inboxes,
// barrier, broadcast, all-gather) they rendezvous through.
type World struct {
	ctx     context.Context
	cancel  context.CancelFunc
	inboxes []chan message

	barrierMu sync.Mutex
	barrierN  int
	barrierC  chan struct{}

	bcastMu     sync.Mutex
	bcastN      int
	bcastC      chan struct{}
	bcastStaged []int32
	bcastValue  []int32

	gatherMu     sync.Mutex
	gatherN      int
	gatherC      chan struct{}
	gatherBuf    [][]int32
	gatherResult [][]int32
}

// New creates a World of w ranks, ready to have their workload functions run via Run.
func New(w int) *World {
	ctx, cancel := context.WithCancel(context.Background())
	world := &World{
		ctx:       ctx,
		cancel:    cancel,
		inboxes:   make([]chan message, w),
		barrierC:  make(chan struct{}),
		bcastC:    make(chan struct{}),
		gatherC:   make(chan struct{}),
		gatherBuf: make([][]int32, w),
	}
	for i := range world.inboxes {
		world.inboxes[i] = make(chan message, 64)
	}
	return world
}

// requeue pushes a non-matching message back onto a rank's inbox so a later Irecv with
// the right tag can still claim it; a small retry buffer, not a priority queue, since in
// practice tags are drained in the order the epoch loop posts them.
func (w *World) requeue(rankID int, msg message) {
	go func() {
		select {
		case w.inboxes[rankID] <- msg:
		case <-w.ctx.Done():
		}
	}()
}

func (w *World) barrier() {
	w.barrierMu.Lock()
	w.barrierN++
	n := w.barrierN
	c := w.barrierC
	if n == len(w.inboxes) {
		w.barrierN = 0
		w.barrierC = make(chan struct{})
		close(c)
	}
	w.barrierMu.Unlock()
	if n != len(w.inboxes) {
		<-c
	}
}

// Rank returns the Rank handle for rank i, for workload functions to use.
func (w *World) Rank(i int) *Rank {
	return &Rank{id: i, world: w}
}

// Run launches one goroutine per rank executing fn(rank), joined by an errgroup so the
// first rank to return an error cancels the rest, turning any worker's fatal error into
// a runtime-wide abort.
func Run(w int, fn func(r *Rank) error) error {
	world := New(w)
	defer world.cancel()

	g, ctx := errgroup.WithContext(world.ctx)
	world.ctx = ctx
	for i := 0; i < w; i++ {
		rank := world.Rank(i)
		g.Go(func() error {
			if err := fn(rank); err != nil {
				return fmt.Errorf("rank %d: %w", rank.id, err)
			}
			return nil
		})
	}
	return g.Wait()
}
