package player

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"unsafe"

	"github.com/rabidaudio/playcdda/audio"
	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/ioreq"
	"github.com/rabidaudio/playcdda/scsi"
)

// pattern is the content of byte i of sector lba on the fake disc.
func pattern(lba, i int) byte {
	return byte(lba*7 + i*3)
}

func sectorData(lba, sectors int) []byte {
	p := make([]byte, sectors*cdda.BytesPerSector)
	for s := range sectors {
		for i := range cdda.BytesPerSector {
			p[s*cdda.BytesPerSector+i] = pattern(lba+s, i)
		}
	}
	return p
}

type readCall struct {
	lba     int
	sectors int
	buf     uintptr
}

// fakeDrive is an in-memory disc answering READ TOC and both read commands.
type fakeDrive struct {
	toc cdda.TOC

	mu      sync.Mutex
	reads   []readCall
	failAt  int // lba whose read fails, -1 for none
	shortBy int // sectors withheld from the first read
	empty   bool
	block   chan struct{}
}

func newFakeDrive(toc cdda.TOC) *fakeDrive {
	return &fakeDrive{toc: toc, failAt: -1}
}

func (d *fakeDrive) Do(ctx context.Context, cdb scsi.CDB, data []byte) (int, error) {
	if cdb.Op() == scsi.OpReadTOC {
		return copy(data, scsi.EncodeTOC(d.toc)), nil
	}
	r, err := scsi.DecodeRead(cdb)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	var bufp uintptr
	if len(data) > 0 {
		bufp = uintptr(unsafe.Pointer(&data[0]))
	}
	d.reads = append(d.reads, readCall{lba: r.LBA, sectors: r.Sectors, buf: bufp})
	first := len(d.reads) == 1
	block := d.block
	d.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if d.failAt >= r.LBA && d.failAt < r.LBA+r.Sectors {
		return 0, scsi.CheckCondition(scsi.OpReadCD, scsi.SenseMediumError, scsi.ASCUnrecoveredRead, 0)
	}
	if d.empty {
		return 0, nil
	}
	n := r.Sectors
	if first && d.shortBy > 0 {
		n -= d.shortBy
	}
	return copy(data, sectorData(r.LBA, n)), nil
}

func (d *fakeDrive) calls() []readCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]readCall(nil), d.reads...)
}

type played struct {
	data   []byte // copied when the device finished with the buffer
	volume audio.Fixed
	link   *ioreq.Request
	req    *ioreq.Request
	ahead  int // earlier writes still unfinished at submit time
}

type queued struct {
	ctx context.Context
	w   audio.Write
	req *ioreq.Request
	idx int
}

// fakeOutput plays writes in order on its own goroutine. With gate set,
// each write waits for one receive from gate before it finishes.
type fakeOutput struct {
	order   binary.ByteOrder
	openErr error
	gate    chan struct{}
	once    sync.Once

	mu     sync.Mutex
	queue  []*queued
	writes []played
	opens  int
	closes int
	wake   chan struct{}
	stop   chan struct{}
	wg     sync.WaitGroup
}

func (o *fakeOutput) Open(f audio.Format) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return o.openErr
	}
	o.opens++
	o.wake = make(chan struct{}, 1)
	o.stop = make(chan struct{})
	o.wg.Add(1)
	go o.run(o.wake, o.stop)
	return nil
}

func (o *fakeOutput) run(wake, stop chan struct{}) {
	defer o.wg.Done()
	for {
		o.mu.Lock()
		var q *queued
		if len(o.queue) > 0 {
			q = o.queue[0]
		}
		o.mu.Unlock()
		if q == nil {
			select {
			case <-wake:
				continue
			case <-stop:
				return
			}
		}

		var err error
		if o.gate != nil {
			select {
			case <-o.gate:
			case <-q.ctx.Done():
				err = q.ctx.Err()
			case <-stop:
				return
			}
		}
		o.mu.Lock()
		o.queue = o.queue[1:]
		o.writes[q.idx].data = append([]byte(nil), q.w.Data...)
		o.mu.Unlock()
		q.req.Complete(len(q.w.Data), err)
	}
}

func (o *fakeOutput) ByteOrder() binary.ByteOrder {
	if o.order == nil {
		return binary.LittleEndian
	}
	return o.order
}

func (o *fakeOutput) Submit(ctx context.Context, w *audio.Write, req *ioreq.Request) error {
	rctx, err := req.Start(ctx)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.wake == nil {
		req.Complete(0, audio.ErrNotOpen)
		return audio.ErrNotOpen
	}
	o.writes = append(o.writes, played{volume: w.Volume, link: w.Link, req: req, ahead: len(o.queue)})
	o.queue = append(o.queue, &queued{ctx: rctx, w: *w, req: req, idx: len(o.writes) - 1})
	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	if o.wake == nil {
		o.mu.Unlock()
		return nil
	}
	close(o.stop)
	o.wake = nil
	o.closes++
	o.mu.Unlock()
	o.wg.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, q := range o.queue {
		q.req.Complete(0, audio.ErrClosed)
	}
	o.queue = nil
	return nil
}

// release lets all current and future writes finish.
func (o *fakeOutput) release() {
	if o.gate != nil {
		o.once.Do(func() { close(o.gate) })
	}
}

func (o *fakeOutput) played() []played {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]played(nil), o.writes...)
}

var (
	_ scsi.Device  = (*fakeDrive)(nil)
	_ audio.Device = (*fakeOutput)(nil)

	errBoom = errors.New("boom")
)
