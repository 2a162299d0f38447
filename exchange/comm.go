package exchange

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	ErrAborted = errors.New("communicator aborted")
)

// Communicator is the message passing surface of one rank. Sends copy their
// buffer and complete immediately, receives complete in Wait. Collectives must
// be called by every rank in the same order.
type Communicator interface {
	Rank() int
	Size() int
	Isend(dst, tag int, buf []float64) *Request
	Irecv(src, tag int, buf []float64) *Request
	Wait(reqs ...*Request) error
	AllReduceMin(v float64) (float64, error)
	AllReduceMax(v float64) (float64, error)
	AllReduceMaxVec(v []float64) error
	AllReduceSumInt(v int) (int, error)
	AllReduceOr(b bool) (bool, error)
	Barrier() error
	// Abort releases every rank blocked in the world with ErrAborted.
	Abort(cause error)
}

type Request struct {
	recv     bool
	src, tag int
	buf      []float64
	n        int // values received
	done     bool
}

// Received is the length of the message delivered to a completed receive.
// Values beyond the receive buffer are dropped.
func (r *Request) Received() int {
	return r.n
}

type mailKey struct {
	src, dst, tag int
}

// mailbox is an unbounded FIFO, so sends never block.
type mailbox struct {
	mu    sync.Mutex
	queue [][]float64
	ready chan struct{}
}

func (mb *mailbox) post(msg []float64) {
	mb.mu.Lock()
	mb.queue = append(mb.queue, msg)
	mb.mu.Unlock()
	select {
	case mb.ready <- struct{}{}:
	default:
	}
}

func (mb *mailbox) take(done <-chan struct{}) (msg []float64, ok bool) {
	for {
		mb.mu.Lock()
		if len(mb.queue) > 0 {
			msg = mb.queue[0]
			mb.queue[0] = nil
			mb.queue = mb.queue[1:]
			mb.mu.Unlock()
			return msg, true
		}
		mb.mu.Unlock()
		select {
		case <-mb.ready:
		case <-done:
			return nil, false
		}
	}
}

// LocalWorld runs Size ranks as goroutines of one process. Point to point
// messages are queued in mailboxes keyed by source, destination and tag;
// collectives gather to rank 0 and broadcast the result.
type LocalWorld struct {
	size int

	mu    sync.Mutex
	boxes map[mailKey]*mailbox

	gather chan []float64
	bcast  []chan []float64

	done      chan struct{}
	abortOnce sync.Once
	cause     error
}

func NewLocalWorld(size int) (w *LocalWorld, err error) {
	if size < 1 {
		err = fmt.Errorf("world size must be positive, have %d", size)
		return
	}
	w = &LocalWorld{
		size:   size,
		boxes:  make(map[mailKey]*mailbox),
		gather: make(chan []float64, size),
		bcast:  make([]chan []float64, size),
		done:   make(chan struct{}),
	}
	for i := range w.bcast {
		w.bcast[i] = make(chan []float64, 1)
	}
	return
}

func (w *LocalWorld) Size() int { return w.size }

// Comm returns the communicator for one rank.
func (w *LocalWorld) Comm(rank int) Communicator {
	return &localComm{w: w, rank: rank}
}

// Run starts fn on every rank and waits for all of them. The first error
// aborts the world so that ranks blocked on messages from the failed rank are
// released instead of deadlocking.
func (w *LocalWorld) Run(ctx context.Context, fn func(ctx context.Context, comm Communicator) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for rank := 0; rank < w.size; rank++ {
		comm := w.Comm(rank)
		g.Go(func() (err error) {
			if err = fn(gctx, comm); err != nil {
				err = fmt.Errorf("rank %d: %w", comm.Rank(), err)
				w.abort(err)
			}
			return
		})
	}
	return g.Wait()
}

func (w *LocalWorld) abort(cause error) {
	w.abortOnce.Do(func() {
		w.cause = cause
		close(w.done)
	})
}

func (w *LocalWorld) aborted() error {
	return fmt.Errorf("%w: %v", ErrAborted, w.cause)
}

func (w *LocalWorld) box(k mailKey) *mailbox {
	w.mu.Lock()
	defer w.mu.Unlock()
	mb, ok := w.boxes[k]
	if !ok {
		mb = &mailbox{ready: make(chan struct{}, 1)}
		w.boxes[k] = mb
	}
	return mb
}

type localComm struct {
	w    *LocalWorld
	rank int
}

func (c *localComm) Rank() int { return c.rank }

func (c *localComm) Size() int { return c.w.size }

func (c *localComm) Abort(cause error) { c.w.abort(cause) }

func (c *localComm) Isend(dst, tag int, buf []float64) *Request {
	c.w.box(mailKey{src: c.rank, dst: dst, tag: tag}).post(append([]float64(nil), buf...))
	return &Request{done: true, tag: tag}
}

func (c *localComm) Irecv(src, tag int, buf []float64) *Request {
	return &Request{recv: true, src: src, tag: tag, buf: buf}
}

func (c *localComm) Wait(reqs ...*Request) (err error) {
	for _, r := range reqs {
		if r.done {
			continue
		}
		msg, ok := c.w.box(mailKey{src: r.src, dst: c.rank, tag: r.tag}).take(c.w.done)
		if !ok {
			return c.w.aborted()
		}
		copy(r.buf, msg)
		r.n = len(msg)
		r.done = true
	}
	return
}

// reduce combines v element-wise across all ranks with op, in place. A length
// mismatch aborts the world so the ranks waiting on the result are released.
func (c *localComm) reduce(v []float64, op func(a, b float64) float64) (err error) {
	w := c.w
	if w.size == 1 {
		return
	}
	if c.rank != 0 {
		select {
		case w.gather <- append([]float64(nil), v...):
		case <-w.done:
			return w.aborted()
		}
		select {
		case res := <-w.bcast[c.rank]:
			copy(v, res)
		case <-w.done:
			return w.aborted()
		}
		return
	}
	for i := 1; i < w.size; i++ {
		select {
		case other := <-w.gather:
			if len(other) != len(v) {
				err = fmt.Errorf("collective length mismatch: %d and %d", len(v), len(other))
				w.abort(err)
				return
			}
			for j := range v {
				v[j] = op(v[j], other[j])
			}
		case <-w.done:
			return w.aborted()
		}
	}
	for i := 1; i < w.size; i++ {
		w.bcast[i] <- append([]float64(nil), v...)
	}
	return
}

func (c *localComm) AllReduceMin(v float64) (float64, error) {
	buf := []float64{v}
	err := c.reduce(buf, math.Min)
	return buf[0], err
}

func (c *localComm) AllReduceMax(v float64) (float64, error) {
	buf := []float64{v}
	err := c.reduce(buf, math.Max)
	return buf[0], err
}

func (c *localComm) AllReduceMaxVec(v []float64) error {
	return c.reduce(v, math.Max)
}

func (c *localComm) AllReduceSumInt(v int) (int, error) {
	buf := []float64{float64(v)}
	err := c.reduce(buf, func(a, b float64) float64 { return a + b })
	return int(buf[0]), err
}

func (c *localComm) AllReduceOr(b bool) (bool, error) {
	buf := []float64{0}
	if b {
		buf[0] = 1
	}
	err := c.reduce(buf, math.Max)
	return buf[0] > 0, err
}

func (c *localComm) Barrier() error {
	return c.reduce([]float64{0}, math.Max)
}
