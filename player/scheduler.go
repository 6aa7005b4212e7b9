package player

import (
	"context"
	"errors"

	"github.com/rabidaudio/playcdda/audio"
	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/ioreq"
)

// OutputSectors is the capacity of one output buffer.
const OutputSectors = 5

// Scheduler hands output buffers to the audio device, each linked to the
// one before it. One buffer plays while the next waits queued behind it;
// a buffer is refilled only after the request that last carried it has
// been waited on.
type Scheduler struct {
	dev  audio.Device
	bufs [2][]byte
	reqs [2]ioreq.Request
	cur  int

	link    *ioreq.Request // most recent submission
	reclaim *ioreq.Request // submission before link, not yet waited on
}

func NewScheduler(dev audio.Device) *Scheduler {
	s := &Scheduler{dev: dev}
	for i := range s.bufs {
		s.bufs[i] = make([]byte, OutputSectors*cdda.BytesPerSector)
	}
	return s
}

// Ready returns a channel that is closed once Reclaim will not block.
func (s *Scheduler) Ready() <-chan struct{} {
	if s.reclaim == nil {
		return ioreq.Closed()
	}
	return s.reclaim.Done()
}

// Reclaim waits for the older of the two submissions, freeing its buffer.
func (s *Scheduler) Reclaim() error {
	if s.reclaim == nil {
		return nil
	}
	_, err := s.reclaim.Wait()
	s.reclaim = nil
	return err
}

// Buffer returns the buffer the next submission will carry.
func (s *Scheduler) Buffer() ([]byte, error) {
	if s.reqs[s.cur].State() != ioreq.Idle {
		return nil, ErrSlotBusy
	}
	return s.bufs[s.cur], nil
}

// Submit sends the first n bytes of the current buffer to the device,
// linked to the previous submission. It reports whether the previous
// buffer had already finished, which means the device ran dry.
func (s *Scheduler) Submit(ctx context.Context, n int, volume audio.Fixed) (bool, error) {
	if s.reclaim != nil {
		return false, ErrSlotBusy
	}
	req := &s.reqs[s.cur]
	w := &audio.Write{
		Data:      s.bufs[s.cur][:n],
		Type:      audio.S16S,
		Frequency: cdda.SampleRate,
		Volume:    volume,
		Position:  audio.Centre,
		Link:      s.link,
	}
	underrun := s.link != nil && s.link.Poll()
	if err := s.dev.Submit(ctx, w, req); err != nil {
		// a device may complete the request on failure
		req.Wait()
		return false, err
	}
	s.reclaim, s.link = s.link, req
	s.cur ^= 1
	return underrun, nil
}

// Flush waits for both submissions, aborting them first if abort is set.
func (s *Scheduler) Flush(abort bool) error {
	var errs []error
	for _, r := range []*ioreq.Request{s.reclaim, s.link} {
		if r == nil {
			continue
		}
		if abort {
			r.Abort()
		}
		if _, err := r.Wait(); err != nil && !(abort && errors.Is(err, context.Canceled)) {
			errs = append(errs, err)
		}
	}
	s.reclaim, s.link = nil, nil
	return errors.Join(errs...)
}

// Idle reports whether nothing is queued on the device.
func (s *Scheduler) Idle() bool {
	return s.reclaim == nil && s.link == nil
}
