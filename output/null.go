package output

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/rabidaudio/playcdda/audio"
	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/ioreq"
)

// Null discards audio. With Paced set it consumes one sector of frames
// per 1/75 s like a real output would; otherwise it drains writes as fast
// as they arrive.
type Null struct {
	Order binary.ByteOrder
	Paced bool

	mu   sync.Mutex
	q    *queue
	stop chan struct{}
	wg   sync.WaitGroup
}

func (n *Null) Open(f audio.Format) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.q != nil {
		return nil
	}
	if f.Type != audio.S16S {
		return audio.ErrFormat
	}
	n.q = newQueue(f, n.ByteOrder())
	n.stop = make(chan struct{})
	n.wg.Add(1)
	go n.run(n.q, n.stop)
	return nil
}

func (n *Null) run(q *queue, stop <-chan struct{}) {
	defer n.wg.Done()
	buf := make([][2]int16, cdda.SamplesPerSector)
	var tick <-chan time.Time
	if n.Paced {
		t := time.NewTicker(time.Second / cdda.SectorsPerSecond)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-stop:
			return
		case <-q.ready:
		}
		for q.pending() > 0 {
			if tick != nil {
				select {
				case <-stop:
					return
				case <-tick:
				}
			}
			q.frames(buf)
		}
	}
}

func (n *Null) ByteOrder() binary.ByteOrder {
	if n.Order == nil {
		return binary.LittleEndian
	}
	return n.Order
}

func (n *Null) Submit(ctx context.Context, w *audio.Write, req *ioreq.Request) error {
	n.mu.Lock()
	q := n.q
	n.mu.Unlock()
	if q == nil {
		return audio.ErrNotOpen
	}
	return q.push(ctx, w, req)
}

// Played returns the number of frames consumed since Open.
func (n *Null) Played() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.q == nil {
		return 0
	}
	return n.q.played.Load()
}

func (n *Null) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.q == nil {
		return nil
	}
	close(n.stop)
	n.wg.Wait()
	n.q.close()
	n.q = nil
	return nil
}

var _ audio.Device = (*Null)(nil)

// New returns the device for a configured output name.
func New(name string) (audio.Device, error) {
	switch name {
	case "speaker", "":
		return &Speaker{}, nil
	case "oto":
		return &Oto{}, nil
	case "null":
		return &Null{Paced: true}, nil
	default:
		return nil, fmt.Errorf("output: unknown device %q", name)
	}
}
