package player

import "github.com/google/uuid"

type Command int

const (
	CmdInvalid Command = iota
	CmdStartup
	CmdPlay
	CmdPause
	CmdStop
	CmdSetVolume
	CmdDie
)

func (c Command) String() string {
	switch c {
	case CmdStartup:
		return "startup"
	case CmdPlay:
		return "play"
	case CmdPause:
		return "pause"
	case CmdStop:
		return "stop"
	case CmdSetVolume:
		return "set-volume"
	case CmdDie:
		return "die"
	default:
		return "invalid"
	}
}

// Play arguments.
const (
	ArgTrack = 0 // track number, 0 resumes a paused track
	ArgStart = 1
	ArgEnd   = 2
	ArgType  = 3
)

// Message is one command for the playback task. The task answers every
// message with a copy that has Result filled in. Messages whose Session
// does not match the running task are rejected without effect.
type Message struct {
	Session uuid.UUID
	Command Command
	Args    [4]int64
	Result  bool
}

type envelope struct {
	msg   Message
	reply chan<- Message
}
