package output

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rabidaudio/playcdda/audio"
	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/ioreq"
)

// oto allows a single context per process.
var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoRate int
)

func otoContext(rate int, buffer time.Duration) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		if otoRate != rate {
			return nil, fmt.Errorf("%w: oto already running at %d Hz", audio.ErrFormat, otoRate)
		}
		return otoCtx, nil
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: cdda.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   buffer,
	})
	if err != nil {
		return nil, fmt.Errorf("output: failed to create oto context: %w", err)
	}
	<-ready
	otoCtx, otoRate = ctx, rate
	return ctx, nil
}

// Oto plays through a persistent oto player that pulls from the queue.
type Oto struct {
	BufferSize time.Duration

	mu     sync.Mutex
	q      *queue
	player *oto.Player
}

func (o *Oto) Open(f audio.Format) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.q != nil {
		return nil
	}
	if f.Type != audio.S16S {
		return audio.ErrFormat
	}
	ctx, err := otoContext(f.Rate, o.BufferSize)
	if err != nil {
		return err
	}
	if err := ctx.Resume(); err != nil {
		return err
	}
	o.q = newQueue(f, binary.LittleEndian)
	o.player = ctx.NewPlayer(o.q)
	o.player.Play()
	return nil
}

func (o *Oto) ByteOrder() binary.ByteOrder {
	return binary.LittleEndian
}

func (o *Oto) Submit(ctx context.Context, w *audio.Write, req *ioreq.Request) error {
	o.mu.Lock()
	q := o.q
	o.mu.Unlock()
	if q == nil {
		return audio.ErrNotOpen
	}
	return q.push(ctx, w, req)
}

func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.q == nil {
		return nil
	}
	err := o.player.Close()
	o.q.close()
	o.q, o.player = nil, nil
	if serr := otoCtx.Suspend(); err == nil {
		err = serr
	}
	return err
}

var _ audio.Device = (*Oto)(nil)
