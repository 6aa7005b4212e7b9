package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rabidaudio/playcdda/audio"
	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/metrics"
	"github.com/rabidaudio/playcdda/scsi"
	"github.com/rs/zerolog"
)

// task is the playback loop. All of its fields are owned by the goroutine
// running it; the outside world reaches it only through cmds.
type task struct {
	session uuid.UUID
	cmds    <-chan envelope
	drive   scsi.Device
	out     audio.Device
	readCmd scsi.ReadCommand
	abort   bool
	log     zerolog.Logger
	metrics *metrics.Pipeline
	publish func(Status)

	ctx    context.Context
	reader *DiscReader
	sched  *Scheduler

	state   State
	quit    bool
	paused  bool
	resumed bool
	track   cdda.Track
	chunk   []byte // unconverted part of the disc buffer being drained
	cursor  Cursor
	volume  audio.Fixed
	err     error

	startErr error
}

// run services the startup message and then loops until Die.
func (t *task) run(ctx context.Context) {
	t.ctx = ctx
	env, ok := <-t.cmds
	if !ok {
		return
	}
	if env.msg.Session != t.session || env.msg.Command != CmdStartup {
		t.startErr = ErrRejected
		t.reply(env, false)
		return
	}
	if err := t.startup(env.msg); err != nil {
		t.startErr = err
		t.log.Error().Err(err).Msg("startup failed")
		t.reply(env, false)
		return
	}
	t.reply(env, true)
	t.log.Debug().Str("session", t.session.String()).Msg("playback task started")
	t.setState(Idle)

	for !t.quit {
		select {
		case env, ok := <-t.cmds:
			if !ok {
				t.shutdown()
				return
			}
			t.handle(env)
			continue
		default:
		}

		select {
		case env, ok := <-t.cmds:
			if !ok {
				t.shutdown()
				return
			}
			t.handle(env)
		case <-t.ready():
			t.step()
		}
	}
	t.shutdown()
}

func (t *task) startup(m Message) error {
	if err := t.out.Open(audio.CDDA); err != nil {
		return fmt.Errorf("%w: %w", ErrStartup, err)
	}
	t.reader = NewDiscReader(t.drive, t.readCmd, t.metrics)
	t.sched = NewScheduler(t.out)
	t.volume = audio.Fixed(m.Args[0])
	return nil
}

func (t *task) shutdown() {
	if t.state == Active {
		t.drain(nil, t.abort)
	}
	if err := t.out.Close(); err != nil {
		t.log.Warn().Err(err).Msg("closing audio device")
	}
	t.setState(Terminated)
	t.log.Debug().Msg("playback task exited")
}

func (t *task) reply(env envelope, ok bool) {
	env.msg.Result = ok
	if !ok {
		t.metrics.Reject()
	}
	env.reply <- env.msg
}

// ready is the channel the loop waits on before the next pipeline step.
// It is nil, and so never ready, unless a track is playing.
func (t *task) ready() <-chan struct{} {
	if t.state != Active || t.paused {
		return nil
	}
	return t.sched.Ready()
}

func (t *task) handle(env envelope) {
	m := env.msg
	if m.Session != t.session {
		t.log.Warn().Str("command", m.Command.String()).Msg("rejecting message from another session")
		t.reply(env, false)
		return
	}
	var ok bool
	switch m.Command {
	case CmdPlay:
		ok = t.play(m.Args)
	case CmdPause:
		ok = t.pause()
	case CmdStop:
		t.drain(nil, t.abort)
		ok = true
	case CmdSetVolume:
		v := audio.Fixed(m.Args[0])
		if v >= 0 && v <= audio.Unity {
			t.volume = v
			ok = true
		}
	case CmdDie:
		if t.state == Idle {
			t.quit = true
			ok = true
		}
	}
	t.log.Trace().Str("command", m.Command.String()).Bool("result", ok).Msg("command")
	t.reply(env, ok)
}

func (t *task) play(args [4]int64) bool {
	if args[ArgTrack] == 0 {
		// resume
		if t.state != Active || !t.paused {
			return false
		}
		t.paused, t.resumed = false, true
		t.notify()
		return true
	}
	if cdda.TrackType(args[ArgType]) != cdda.Audio || args[ArgEnd] <= args[ArgStart] {
		return false
	}
	if t.state == Active {
		t.drain(nil, false)
	}

	t.track = cdda.Track{
		Number: int(args[ArgTrack]),
		Type:   cdda.Audio,
		Start:  int(args[ArgStart]),
		End:    int(args[ArgEnd]),
	}
	t.err = nil
	t.chunk = nil
	t.cursor = Cursor{Next: t.track.Start, Played: t.track.Start, End: t.track.End}
	if err := t.reader.Reset(t.track.Start, t.track.End); err != nil {
		t.err = err
		return false
	}
	if err := t.reader.Prime(t.ctx); err != nil {
		t.log.Error().Err(err).Int("track", t.track.Number).Msg("disc read failed")
		t.err = err
		t.reader.Flush(true)
		t.notify()
		return false
	}
	t.cursor.Next = t.reader.Next()
	t.paused, t.resumed = false, false
	t.log.Info().Int("track", t.track.Number).Int("start", t.track.Start).Int("end", t.track.End).Msg("playing track")
	t.setState(Active)
	return true
}

func (t *task) pause() bool {
	if t.state != Active {
		return false
	}
	if !t.paused {
		t.paused = true
		t.notify()
	}
	return true
}

// step moves one output buffer through the pipeline.
func (t *task) step() {
	if len(t.chunk) == 0 {
		data, _, err := t.reader.Acquire()
		if err != nil {
			t.fail(err)
			return
		}
		t.chunk = data
		if err := t.reader.ReadAhead(t.ctx); err != nil {
			t.fail(err)
			return
		}
	}

	if err := t.sched.Reclaim(); err != nil {
		t.metrics.WriteError()
		t.fail(err)
		return
	}
	buf, err := t.sched.Buffer()
	if err != nil {
		t.fail(err)
		return
	}
	k := min(OutputSectors, len(t.chunk)/cdda.BytesPerSector)
	n := Convert(buf, t.chunk[:k*cdda.BytesPerSector], t.out.ByteOrder())
	underrun, err := t.sched.Submit(t.ctx, n, t.volume)
	if err != nil {
		t.metrics.WriteError()
		t.fail(err)
		return
	}
	t.metrics.Submit(n/audio.S16S.FrameSize(), underrun && !t.resumed)
	if underrun && !t.resumed {
		t.log.Debug().Int("sector", t.cursor.Played).Msg("output underrun")
	}
	t.resumed = false
	t.chunk = t.chunk[k*cdda.BytesPerSector:]

	t.cursor.Played += k
	t.cursor.Next = t.reader.Next()
	t.cursor.Remaining = len(t.chunk) / cdda.BytesPerSector
	t.log.Trace().Int("sector", t.cursor.Played).Int("sectors", k).Msg("buffer submitted")
	t.notify()

	if t.cursor.Done() {
		t.log.Info().Int("track", t.track.Number).Msg("end of track")
		t.drain(nil, false)
	} else if len(t.chunk) == 0 && t.reader.Exhausted() {
		// a short final read left the track incomplete
		t.fail(ErrShortRead)
	}
}

func (t *task) fail(err error) {
	t.log.Error().Err(err).Int("track", t.track.Number).Int("sector", t.cursor.Played).Msg("playback failed")
	t.drain(err, true)
}

// drain stops issuing I/O, waits out both pipelines and returns to Idle.
// With abort set, requests still queued on the devices are cancelled
// first. It succeeds when already idle.
func (t *task) drain(cause error, abort bool) {
	if t.state == Idle || t.state == Terminated {
		return
	}
	t.setState(Draining)
	if err := t.sched.Flush(abort); err != nil && cause == nil {
		cause = err
	}
	if err := t.reader.Flush(abort); err != nil && cause == nil && !errors.Is(err, context.Canceled) {
		cause = err
	}
	t.chunk = nil
	t.paused, t.resumed = false, false
	t.cursor.Remaining = 0
	if cause != nil {
		t.err = cause
	}
	t.setState(Idle)
}

func (t *task) setState(s State) {
	if s != t.state {
		t.log.Debug().Str("from", t.state.String()).Str("to", s.String()).Msg("state change")
	}
	t.state = s
	t.metrics.SetState(int(s))
	t.notify()
}

func (t *task) notify() {
	if t.publish == nil {
		return
	}
	t.publish(Status{
		State:   t.state,
		Playing: t.state == Active && !t.paused,
		Paused:  t.state == Active && t.paused,
		Track:   t.track.Number,
		Start:   t.track.Start,
		Elapsed: elapsed(t.track.Start, t.cursor),
		Cursor:  t.cursor,
		Volume:  audio.FixedToVolume(t.volume),
		Err:     t.err,
	})
}
