// Package audio defines the contract between the playback pipeline and an
// audio output device: the sample format, the write request and the
// device interface that plays requests back to back.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/ioreq"
)

// Fixed is a 16.16 fixed point scalar.
type Fixed int32

const (
	Unity  Fixed = 0x10000 // 1.0, full volume
	Centre Fixed = 0x8000  // stereo position halfway between left and right
)

// MaxVolume is the top of the controller volume scale.
const MaxVolume = 64

// VolumeToFixed maps the controller scale 0..MaxVolume onto 0..Unity.
func VolumeToFixed(v int) Fixed {
	return Fixed(v << 10)
}

// FixedToVolume is the inverse of VolumeToFixed.
func FixedToVolume(f Fixed) int {
	return int(f >> 10)
}

// Mul scales a 16-bit sample, clamping to the sample range.
func (f Fixed) Mul(s int16) int16 {
	v := (int64(s) * int64(f)) >> 16
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func (f Fixed) String() string {
	return fmt.Sprintf("%.4f", float64(f)/float64(Unity))
}

// Pan returns the left and right gains for a stereo position, where 0 is
// hard left, Unity hard right and Centre leaves both channels untouched.
func Pan(position Fixed) (l, r Fixed) {
	l, r = Unity, Unity
	switch {
	case position < Centre:
		r = position * 2
		if r < 0 {
			r = 0
		}
	case position > Centre:
		l = (Unity - position) * 2
		if l < 0 {
			l = 0
		}
	}
	return l, r
}

type SampleType int

const (
	// S16S is signed 16-bit interleaved stereo, the only layout CDDA uses.
	S16S SampleType = iota
)

// FrameSize returns the size in bytes of one sample frame.
func (t SampleType) FrameSize() int {
	return cdda.Channels * cdda.BytesPerSample
}

// Format describes what a device is opened for.
type Format struct {
	Type  SampleType
	Rate  int
	Order binary.ByteOrder // sample byte order the device expects, nil for the device default
}

// CDDA is the native format of disc audio.
var CDDA = Format{Type: S16S, Rate: cdda.SampleRate, Order: binary.LittleEndian}

// Write is one buffer of samples handed to a device.
type Write struct {
	Data      []byte
	Type      SampleType
	Frequency int
	Volume    Fixed
	Position  Fixed
	// Link is the request this write continues. The device does not begin
	// playing Data before Link has finished, and rejects the write with
	// ErrBadLink if Link is still pending but is not the last write queued.
	Link *ioreq.Request
}

var (
	ErrNotOpen  = errors.New("audio: device not open")
	ErrClosed   = errors.New("audio: device closed")
	ErrFormat   = errors.New("audio: unsupported format")
	ErrBadWrite = errors.New("audio: buffer is not a whole number of frames")
	ErrBadLink  = errors.New("audio: write does not follow its link")
)

// A Device plays writes in the order they are submitted.
type Device interface {
	Open(Format) error
	// ByteOrder is the sample byte order the device consumes.
	ByteOrder() binary.ByteOrder
	// Submit starts req and enqueues w without waiting for it to play.
	// The device completes req with the number of bytes played once the
	// buffer is no longer needed, or with ctx.Err() if req is aborted.
	Submit(ctx context.Context, w *Write, req *ioreq.Request) error
	Close() error
}

// Validate checks a write against the format a device was opened with.
func (w *Write) Validate(f Format) error {
	if w.Type != f.Type || w.Frequency != f.Rate {
		return fmt.Errorf("%w: %d Hz type %d", ErrFormat, w.Frequency, w.Type)
	}
	if len(w.Data)%w.Type.FrameSize() != 0 {
		return ErrBadWrite
	}
	return nil
}
