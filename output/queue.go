// Package output implements audio.Device on top of real and virtual sound
// outputs. All of them share one FIFO of pending writes which is mixed as
// the output pulls frames from it.
package output

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/rabidaudio/playcdda/audio"
	"github.com/rabidaudio/playcdda/ioreq"
)

type entry struct {
	ctx  context.Context
	data []byte
	req  *ioreq.Request
	l, r audio.Fixed
}

type queue struct {
	mu     sync.Mutex
	order  binary.ByteOrder
	format audio.Format
	items  []*entry
	off    int
	closed bool
	ready  chan struct{}
	played atomic.Int64
}

func newQueue(f audio.Format, order binary.ByteOrder) *queue {
	return &queue{format: f, order: order, ready: make(chan struct{}, 1)}
}

func (q *queue) push(ctx context.Context, w *audio.Write, req *ioreq.Request) error {
	if err := w.Validate(q.format); err != nil {
		return err
	}
	rctx, err := req.Start(ctx)
	if err != nil {
		return err
	}
	l, r := audio.Pan(w.Position)
	e := &entry{
		ctx:  rctx,
		data: w.Data,
		req:  req,
		l:    audio.Fixed((int64(l) * int64(w.Volume)) >> 16),
		r:    audio.Fixed((int64(r) * int64(w.Volume)) >> 16),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		req.Complete(0, audio.ErrClosed)
		return audio.ErrClosed
	}
	if w.Link != nil && w.Link.Pending() && !q.tail(w.Link) {
		q.mu.Unlock()
		req.Complete(0, audio.ErrBadLink)
		return audio.ErrBadLink
	}
	q.items = append(q.items, e)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// tail reports whether req is the last queued write. Callers hold q.mu.
func (q *queue) tail(req *ioreq.Request) bool {
	return len(q.items) > 0 && q.items[len(q.items)-1].req == req
}

// pop completes the head of the queue. Callers hold q.mu.
func (q *queue) pop(err error) {
	e := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	n := q.off
	q.off = 0
	e.req.Complete(n, err)
}

// frames mixes up to len(dst) frames from the queue into dst and returns
// how many it produced. Writes are completed as soon as their last frame is taken.
func (q *queue) frames(dst [][2]int16) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for len(q.items) > 0 {
		e := q.items[0]
		if err := e.ctx.Err(); err != nil {
			q.pop(err)
			continue
		}
		m := n
		for n < len(dst) && q.off < len(e.data) {
			p := e.data[q.off : q.off+4]
			dst[n][0] = e.l.Mul(int16(q.order.Uint16(p[0:2])))
			dst[n][1] = e.r.Mul(int16(q.order.Uint16(p[2:4])))
			q.off += 4
			n++
		}
		// counted before completion so waiters see their frames
		q.played.Add(int64(n - m))
		if q.off < len(e.data) {
			break
		}
		q.pop(nil)
	}
	return n
}

func (q *queue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for len(q.items) > 0 {
		q.pop(audio.ErrClosed)
	}
}

// Read renders the queue as little-endian 16-bit PCM, padding with silence.
func (q *queue) Read(p []byte) (int, error) {
	buf := make([][2]int16, len(p)/4)
	n := q.frames(buf)
	for i := range buf[:n] {
		binary.LittleEndian.PutUint16(p[i*4:], uint16(buf[i][0]))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(buf[i][1]))
	}
	clear(p[n*4:])
	return len(p), nil
}
