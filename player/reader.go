package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/ioreq"
	"github.com/rabidaudio/playcdda/metrics"
	"github.com/rabidaudio/playcdda/scsi"
)

// DiscSectors is the capacity of one disc buffer.
const DiscSectors = 150

type slotState int

const (
	slotFree slotState = iota
	slotFilling
	slotReady
	slotDraining
)

func (s slotState) String() string {
	switch s {
	case slotFree:
		return "free"
	case slotFilling:
		return "filling"
	case slotReady:
		return "ready"
	case slotDraining:
		return "draining"
	default:
		return "unknown"
	}
}

type slot struct {
	buf     []byte
	state   slotState
	lba     int
	want    int // sectors requested
	sectors int // sectors delivered
}

// DiscReader fills two disc buffers in turn with runs of sectors. At most
// one read is outstanding, and a buffer is only refilled once the
// converter has released it.
type DiscReader struct {
	dev     scsi.Device
	cmd     scsi.ReadCommand
	metrics *metrics.Pipeline

	slots    [2]slot
	req      ioreq.Request
	filling  int // slot with the outstanding or unconsumed read, -1 if none
	draining int // slot handed to the converter, -1 if none
	next     int
	end      int
}

func NewDiscReader(dev scsi.Device, cmd scsi.ReadCommand, m *metrics.Pipeline) *DiscReader {
	r := &DiscReader{dev: dev, cmd: cmd, metrics: m, filling: -1, draining: -1}
	for i := range r.slots {
		r.slots[i].buf = make([]byte, DiscSectors*cdda.BytesPerSector)
	}
	return r
}

// Reset positions the reader at the start of a sector range. It must not
// be called with a read outstanding.
func (r *DiscReader) Reset(start, end int) error {
	if r.req.Pending() {
		return ErrSlotBusy
	}
	r.next, r.end = start, end
	r.filling, r.draining = -1, -1
	for i := range r.slots {
		r.slots[i].state = slotFree
	}
	return nil
}

// Next returns the next sector that will be requested.
func (r *DiscReader) Next() int {
	return r.next
}

// Exhausted reports whether every sector up to the end has been handed out.
func (r *DiscReader) Exhausted() bool {
	return r.filling < 0 && r.next >= r.end
}

func (r *DiscReader) runLength() int {
	return min(DiscSectors, r.end-r.next)
}

// ReadAhead submits the next run into the free buffer without waiting.
// It does nothing when a read is already outstanding or the end is reached.
func (r *DiscReader) ReadAhead(ctx context.Context) error {
	if r.filling >= 0 || r.next >= r.end {
		return nil
	}
	i := -1
	for j := range r.slots {
		if j != r.draining && r.slots[j].state == slotFree {
			i = j
			break
		}
	}
	if i < 0 {
		return ErrSlotBusy
	}

	n := r.runLength()
	s := &r.slots[i]
	s.state, s.lba, s.want, s.sectors = slotFilling, r.next, n, 0
	r.filling = i
	r.next += n

	cdb := r.cmd.Build(s.lba, n)
	buf := s.buf[:n*cdda.BytesPerSector]
	err := r.req.Submit(ctx, func(ctx context.Context) (int, error) {
		return r.dev.Do(ctx, cdb, buf)
	})
	if err != nil {
		s.state = slotFree
		r.filling = -1
		r.next = s.lba
	}
	return err
}

// Prime issues the first run of a range and waits for it.
func (r *DiscReader) Prime(ctx context.Context) error {
	if err := r.ReadAhead(ctx); err != nil {
		return err
	}
	if r.filling < 0 {
		return nil
	}
	return r.complete(r.req.Wait())
}

func (r *DiscReader) complete(n int, err error) error {
	s := &r.slots[r.filling]
	if err != nil {
		s.state = slotFree
		r.filling = -1
		r.metrics.ReadError()
		return fmt.Errorf("player: read %d sectors at %d: %w", s.want, s.lba, err)
	}
	got := min(n/cdda.BytesPerSector, s.want)
	if got == 0 {
		s.state = slotFree
		r.filling = -1
		r.metrics.ReadError()
		return ErrShortRead
	}
	if got < s.want {
		// request the missing tail with the next run
		r.next = s.lba + got
	}
	s.sectors = got
	s.state = slotReady
	r.metrics.Read(got)
	return nil
}

// Acquire releases the buffer being drained, waits for the outstanding
// read and hands its buffer to the converter. It returns the sectors read
// and the address of the first.
func (r *DiscReader) Acquire() ([]byte, int, error) {
	if r.draining >= 0 {
		r.slots[r.draining].state = slotFree
		r.draining = -1
	}
	if r.filling < 0 {
		return nil, 0, errNothingToRead
	}
	if r.slots[r.filling].state == slotFilling {
		if err := r.complete(r.req.Wait()); err != nil {
			return nil, 0, err
		}
	}
	i := r.filling
	s := &r.slots[i]
	s.state = slotDraining
	r.draining, r.filling = i, -1
	return s.buf[:s.sectors*cdda.BytesPerSector], s.lba, nil
}

// Flush waits for an outstanding read, aborting it first if abort is set,
// and frees both buffers.
func (r *DiscReader) Flush(abort bool) error {
	var err error
	if r.req.Pending() || r.req.State() == ioreq.Complete {
		if abort {
			r.req.Abort()
		}
		_, err = r.req.Wait()
		if abort && errors.Is(err, context.Canceled) {
			err = nil
		}
	}
	for i := range r.slots {
		r.slots[i].state = slotFree
	}
	r.filling, r.draining = -1, -1
	return err
}

var errNothingToRead = errors.New("player: no read outstanding")
