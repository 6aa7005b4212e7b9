package player

import "fmt"

// Errors returned by the Player.
type Error int

const (
	ErrNotRunning  Error = 1
	ErrRejected    Error = 2
	ErrNoDisc      Error = 3
	ErrNoSuchTrack Error = 4
	ErrDataTrack   Error = 5
	ErrActive      Error = 6
	ErrStartup     Error = 7
	ErrShortRead   Error = 8
	ErrVolumeRange Error = 9
	ErrSlotBusy    Error = 10
)

func (e Error) Error() string {
	return fmt.Sprintf("player: %v", e.name())
}

func (e Error) name() string {
	switch e {
	case ErrNotRunning:
		return "playback task not running"
	case ErrRejected:
		return "command rejected"
	case ErrNoDisc:
		return "no disc"
	case ErrNoSuchTrack:
		return "no such track"
	case ErrDataTrack:
		return "not an audio track"
	case ErrActive:
		return "playback still active"
	case ErrStartup:
		return "playback task failed to start"
	case ErrShortRead:
		return "drive returned no data"
	case ErrVolumeRange:
		return "volume out of range"
	case ErrSlotBusy:
		return "buffer still in use"
	default:
		return fmt.Sprintf("unknown error code: %v", int(e))
	}
}
