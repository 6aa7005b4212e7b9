// Package panel reads button presses from a front panel microcontroller
// and turns them into player commands.
package panel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/player"
	"github.com/rs/zerolog"
)

type Button byte

const (
	None Button = iota
	Play
	Pause
	Stop
	Next
	Prev
	VolumeUp
	VolumeDown
	Track // Arg holds the track number
)

func (b Button) String() string {
	switch b {
	case None:
		return "none"
	case Play:
		return "play"
	case Pause:
		return "pause"
	case Stop:
		return "stop"
	case Next:
		return "next"
	case Prev:
		return "prev"
	case VolumeUp:
		return "volume-up"
	case VolumeDown:
		return "volume-down"
	case Track:
		return "track"
	default:
		return fmt.Sprintf("button(%d)", byte(b))
	}
}

type Event struct {
	Button Button
	Arg    uint8
}

// A Panel reports at most one pending press per Query. An Event with
// Button None means nothing was pressed.
type Panel interface {
	Query() (Event, error)
	Close() error
}

// Controller is the subset of *player.Player the panel drives.
type Controller interface {
	Play(track int) error
	Pause() error
	Resume() error
	Stop() error
	Next() error
	Prev() error
	SetVolume(v int) error
	Volume() int
	Status() player.Status
	TOC() (cdda.TOC, bool)
}

var _ Controller = (*player.Player)(nil)

const VolumeStep = 4

// Poll queries p every interval and applies presses to c until ctx is
// done or the panel fails. Controller errors are logged and ignored.
func Poll(ctx context.Context, p Panel, c Controller, interval time.Duration, log zerolog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		ev, err := p.Query()
		if err != nil {
			return err
		}
		if ev.Button == None {
			continue
		}
		if err := Apply(c, ev); err != nil {
			log.Warn().Err(err).Stringer("button", ev.Button).Msg("panel command failed")
		} else {
			log.Debug().Stringer("button", ev.Button).Uint8("arg", ev.Arg).Msg("panel")
		}
	}
}

// playFirst starts the first audio track. Without a known disc it asks
// for track 1 and lets the player report what is wrong.
func playFirst(c Controller) error {
	toc, ok := c.TOC()
	if !ok {
		return c.Play(1)
	}
	t, ok := toc.NextAudio(0)
	if !ok {
		return player.ErrNoSuchTrack
	}
	return c.Play(t.Number)
}

var ErrUnknownButton = errors.New("panel: unknown button")

// Apply performs the command for one press.
func Apply(c Controller, ev Event) error {
	switch ev.Button {
	case None:
		return nil
	case Play:
		s := c.Status()
		if s.Paused {
			return c.Resume()
		}
		if s.Playing {
			return nil
		}
		if s.Track != 0 {
			return c.Play(s.Track)
		}
		return playFirst(c)
	case Pause:
		if c.Status().Paused {
			return c.Resume()
		}
		return c.Pause()
	case Stop:
		return c.Stop()
	case Next:
		return c.Next()
	case Prev:
		return c.Prev()
	case VolumeUp:
		return c.SetVolume(min(c.Volume()+VolumeStep, 64))
	case VolumeDown:
		return c.SetVolume(max(c.Volume()-VolumeStep, 0))
	case Track:
		return c.Play(int(ev.Arg))
	default:
		return fmt.Errorf("%w: %d", ErrUnknownButton, ev.Button)
	}
}
