package output

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/rabidaudio/playcdda/audio"
	"github.com/rabidaudio/playcdda/ioreq"
)

// Speaker plays through the beep speaker. It owns the process-wide speaker
// while open.
type Speaker struct {
	// BufferSize is the latency of the speaker buffer. Defaults to 100ms.
	BufferSize time.Duration

	mu sync.Mutex
	q  *queue
}

// queueStreamer never runs dry: when nothing is queued it streams silence.
type queueStreamer struct {
	q       *queue
	scratch [][2]int16
}

func (s *queueStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if cap(s.scratch) < len(samples) {
		s.scratch = make([][2]int16, len(samples))
	}
	buf := s.scratch[:len(samples)]
	n = s.q.frames(buf)
	for i := range samples {
		if i < n {
			samples[i][0], samples[i][1] = toFloat(buf[i][0]), toFloat(buf[i][1])
		} else {
			samples[i] = [2]float64{}
		}
	}
	return len(samples), true
}

func (s *queueStreamer) Err() error {
	return nil
}

func toFloat(s int16) float64 {
	return float64(s) / (1 << 15)
}

func (s *Speaker) Open(f audio.Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.q != nil {
		return nil
	}
	if f.Type != audio.S16S {
		return audio.ErrFormat
	}
	bs := s.BufferSize
	if bs == 0 {
		bs = 100 * time.Millisecond
	}
	sr := beep.SampleRate(f.Rate)
	if err := speaker.Init(sr, sr.N(bs)); err != nil {
		return err
	}
	s.q = newQueue(f, binary.LittleEndian)
	speaker.Play(&queueStreamer{q: s.q})
	return nil
}

func (s *Speaker) ByteOrder() binary.ByteOrder {
	return binary.LittleEndian
}

func (s *Speaker) Submit(ctx context.Context, w *audio.Write, req *ioreq.Request) error {
	s.mu.Lock()
	q := s.q
	s.mu.Unlock()
	if q == nil {
		return audio.ErrNotOpen
	}
	return q.push(ctx, w, req)
}

func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.q == nil {
		return nil
	}
	speaker.Clear()
	speaker.Close()
	s.q.close()
	s.q = nil
	return nil
}

var _ audio.Device = (*Speaker)(nil)
var _ beep.Streamer = (*queueStreamer)(nil)
