package player

import (
	"time"

	"github.com/rabidaudio/playcdda/cdda"
)

// State of the playback task.
type State int

const (
	Idle State = iota
	Active
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Cursor is the progress of the playback task through a track.
type Cursor struct {
	Next      int // next sector to read
	Remaining int // sectors left in the disc buffer being drained
	Played    int // next sector to hand to the audio device
	End       int // first sector after the track
}

// Done reports whether the whole track has been handed to the device.
func (c Cursor) Done() bool {
	return c.Played >= c.End
}

// Status is a snapshot of the playback task, published once per output
// buffer and on every state change.
type Status struct {
	State   State
	Playing bool
	Paused  bool
	Track   int
	Start   int
	Elapsed time.Duration
	Cursor  Cursor
	Volume  int
	Err     error // last device failure, cleared when a track starts
}

func elapsed(start int, c Cursor) time.Duration {
	if c.Played <= start {
		return 0
	}
	return cdda.SectorsToDuration(c.Played - start)
}
