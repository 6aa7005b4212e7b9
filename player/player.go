// Package player streams CD audio from a drive to an audio device.
//
// A Player owns one playback task goroutine. The task reads runs of
// sectors into two alternating disc buffers, converts them into two
// alternating output buffers and keeps the audio device one buffer ahead,
// so tracks play without gaps. Controllers talk to the task only through
// commands; each command is answered before the next is accepted.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rabidaudio/playcdda/audio"
	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/metrics"
	"github.com/rabidaudio/playcdda/scsi"
	"github.com/rs/zerolog"
)

type Config struct {
	Drive       scsi.Device
	Output      audio.Device
	ReadCommand scsi.ReadCommand
	// AbortOnStop cancels in-flight requests on Stop instead of letting
	// them finish.
	AbortOnStop bool
	Logger      zerolog.Logger
	Metrics     *metrics.Pipeline
	// OnStatus is called from the playback task for every status change.
	// It must not block.
	OnStatus func(Status)
}

type Player struct {
	cfg Config
	log zerolog.Logger

	mu      sync.Mutex // one command at a time
	running bool
	session uuid.UUID
	cmds    chan envelope
	replies chan Message
	exited  chan struct{}
	cancel  context.CancelFunc
	volume  int
	toc     cdda.TOC
	hasDisc bool

	statusMu sync.Mutex
	status   Status
}

func New(cfg Config) *Player {
	return &Player{
		cfg:    cfg,
		log:    cfg.Logger.With().Str("component", "player").Logger(),
		volume: audio.MaxVolume,
	}
}

// Start spawns the playback task and waits for it to acquire its
// resources. Starting a running player does nothing.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.session = uuid.New()
	p.cmds = make(chan envelope)
	p.replies = make(chan Message, 1)
	p.exited = make(chan struct{})
	p.cancel = cancel

	t := &task{
		session: p.session,
		cmds:    p.cmds,
		drive:   p.cfg.Drive,
		out:     p.cfg.Output,
		readCmd: p.cfg.ReadCommand,
		abort:   p.cfg.AbortOnStop,
		log:     p.log,
		metrics: p.cfg.Metrics,
		publish: p.publish,
	}
	exited := p.exited
	go func() {
		defer close(exited)
		t.run(ctx)
	}()

	r, err := p.transact(Message{Session: p.session, Command: CmdStartup, Args: [4]int64{int64(audio.VolumeToFixed(p.volume))}})
	if err != nil || !r.Result {
		<-exited
		cancel()
		if t.startErr != nil {
			return t.startErr
		}
		return ErrStartup
	}
	p.running = true
	return nil
}

// Kill ends the playback task and waits until it has exited. It fails with
// ErrActive while a track is playing.
func (p *Player) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil
	}
	r, err := p.transact(Message{Session: p.session, Command: CmdDie})
	if err == nil && !r.Result {
		return ErrActive
	}
	<-p.exited
	p.cancel()
	p.running = false
	return nil
}

// Close stops playback and kills the task.
func (p *Player) Close() error {
	if err := p.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return p.Kill()
}

// transact posts m and waits for its reply. Callers hold p.mu.
func (p *Player) transact(m Message) (Message, error) {
	select {
	case p.cmds <- envelope{msg: m, reply: p.replies}:
	case <-p.exited:
		return m, ErrNotRunning
	}
	select {
	case r := <-p.replies:
		return r, nil
	case <-p.exited:
		select {
		case r := <-p.replies:
			return r, nil
		default:
			return m, ErrNotRunning
		}
	}
}

func (p *Player) command(c Command, args [4]int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return ErrNotRunning
	}
	r, err := p.transact(Message{Session: p.session, Command: c, Args: args})
	if err != nil {
		return err
	}
	if !r.Result {
		return ErrRejected
	}
	return nil
}

// Send posts a raw message and returns the task's reply.
func (p *Player) Send(m Message) (Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return m, ErrNotRunning
	}
	return p.transact(m)
}

// Session returns the token messages to the running task must carry.
func (p *Player) Session() uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Running reports whether the playback task is alive.
func (p *Player) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// LoadTOC reads the table of contents from the drive.
func (p *Player) LoadTOC(ctx context.Context) (cdda.TOC, error) {
	toc, err := scsi.RequestTOC(ctx, p.cfg.Drive)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.toc, p.hasDisc = cdda.TOC{}, false
		return cdda.TOC{}, fmt.Errorf("player: reading table of contents: %w", err)
	}
	p.toc, p.hasDisc = toc, !toc.Empty()
	return toc, nil
}

// SetTOC installs a table of contents obtained elsewhere.
func (p *Player) SetTOC(toc cdda.TOC) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toc, p.hasDisc = toc, !toc.Empty()
}

func (p *Player) TOC() (cdda.TOC, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toc, p.hasDisc
}

func (p *Player) lookup(number int) (cdda.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasDisc {
		return cdda.Track{}, ErrNoDisc
	}
	t, ok := p.toc.Track(number)
	if !ok {
		return cdda.Track{}, ErrNoSuchTrack
	}
	if !t.IsAudio() {
		return cdda.Track{}, ErrDataTrack
	}
	return t, nil
}

// Play starts a track from the beginning.
func (p *Player) Play(number int) error {
	t, err := p.lookup(number)
	if err != nil {
		return err
	}
	err = p.command(CmdPlay, [4]int64{int64(t.Number), int64(t.Start), int64(t.End), int64(t.Type)})
	if errors.Is(err, ErrRejected) {
		if st := p.Status(); st.Err != nil {
			return fmt.Errorf("player: track %d: %w", number, st.Err)
		}
	}
	return err
}

// Pause stops feeding the device. The buffer already queued plays out.
func (p *Player) Pause() error {
	return p.command(CmdPause, [4]int64{})
}

// Resume continues a paused track from where it stopped.
func (p *Player) Resume() error {
	return p.command(CmdPlay, [4]int64{})
}

// Stop ends playback, waiting for in-flight device requests. Stopping an
// idle player succeeds.
func (p *Player) Stop() error {
	return p.command(CmdStop, [4]int64{})
}

// Next plays the audio track after the current one.
func (p *Player) Next() error {
	return p.skip(func(toc cdda.TOC, n int) (cdda.Track, bool) { return toc.NextAudio(n) })
}

// Prev plays the audio track before the current one.
func (p *Player) Prev() error {
	return p.skip(func(toc cdda.TOC, n int) (cdda.Track, bool) { return toc.PrevAudio(n) })
}

func (p *Player) skip(find func(cdda.TOC, int) (cdda.Track, bool)) error {
	toc, ok := p.TOC()
	if !ok {
		return ErrNoDisc
	}
	t, ok := find(toc, p.Status().Track)
	if !ok {
		return ErrNoSuchTrack
	}
	return p.Play(t.Number)
}

// SetVolume sets the volume from 0 to audio.MaxVolume. It applies to the
// next buffer handed to the device.
func (p *Player) SetVolume(v int) error {
	if v < 0 || v > audio.MaxVolume {
		return ErrVolumeRange
	}
	p.mu.Lock()
	p.volume = v
	running := p.running
	p.mu.Unlock()
	if !running {
		return nil
	}
	return p.command(CmdSetVolume, [4]int64{int64(audio.VolumeToFixed(v))})
}

func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Status returns the most recent status published by the playback task.
func (p *Player) Status() Status {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.status
}

func (p *Player) publish(s Status) {
	p.statusMu.Lock()
	p.status = s
	p.statusMu.Unlock()
	if p.cfg.OnStatus != nil {
		p.cfg.OnStatus(s)
	}
}
