package cdda

import (
	"errors"
	"fmt"
	"time"
)

// TrackType distinguishes audio tracks from data tracks on mixed-mode disks.
type TrackType int

const (
	Audio TrackType = 0
	Data  TrackType = 1
)

func (t TrackType) String() string {
	if t == Data {
		return "data"
	}
	return "audio"
}

// ErrIllegalTOC is returned when table of contents entries are out of order
// or the lead-out lies before the final track.
var ErrIllegalTOC = errors.New("cdda: illegal table of contents")

// Entry is one raw table of contents record: where a track starts.
type Entry struct {
	Number int // index of the track, starting at 1
	Type   TrackType
	Start  int // address of the sector where the data starts
}

// Track describes the sector range a track covers. End is exclusive.
type Track struct {
	Number int
	Type   TrackType
	Start  int
	End    int
}

// IsAudio reports whether the track holds CD-DA sectors.
func (t Track) IsAudio() bool {
	return t.Type == Audio
}

// Length returns the number of sectors in the track.
func (t Track) Length() int {
	return t.End - t.Start
}

// Duration returns the play time of the whole track.
func (t Track) Duration() time.Duration {
	return SectorsToDuration(t.Length())
}

// Contains reports whether the given sector is within the track bounds.
func (t Track) Contains(lba int) bool {
	return lba >= t.Start && lba < t.End
}

func (t Track) String() string {
	m, s, f := MSF(t.Start)
	return fmt.Sprintf("%02d %s %02d:%02d.%02d %v", t.Number, t.Type, m, s, f, t.Duration().Round(time.Second))
}

// TOC is the table of contents of a disc.
type TOC struct {
	Tracks  []Track
	LeadOut int // first sector after the last track
}

// NewTOC derives track end addresses from the next track's start, or
// the lead-out for the last track.
func NewTOC(entries []Entry, leadOut int) (TOC, error) {
	toc := TOC{Tracks: make([]Track, len(entries)), LeadOut: leadOut}
	for i, e := range entries {
		end := leadOut
		if i+1 < len(entries) {
			end = entries[i+1].Start
		}
		if e.Number < 1 || e.Number > MaxTracks || e.Start < 0 || end <= e.Start {
			return TOC{}, fmt.Errorf("%w: track %d spans [%d, %d)", ErrIllegalTOC, e.Number, e.Start, end)
		}
		toc.Tracks[i] = Track{Number: e.Number, Type: e.Type, Start: e.Start, End: end}
	}
	return toc, nil
}

// Empty reports whether the table of contents lists no tracks.
func (toc TOC) Empty() bool {
	return len(toc.Tracks) == 0
}

// Track finds a track by its number.
func (toc TOC) Track(number int) (Track, bool) {
	for _, t := range toc.Tracks {
		if t.Number == number {
			return t, true
		}
	}
	return Track{}, false
}

// TrackAt finds the track containing the given sector.
func (toc TOC) TrackAt(lba int) (Track, bool) {
	for _, t := range toc.Tracks {
		if t.Contains(lba) {
			return t, true
		}
	}
	return Track{}, false
}

// NextAudio returns the first audio track numbered after number.
func (toc TOC) NextAudio(number int) (Track, bool) {
	for _, t := range toc.Tracks {
		if t.Number > number && t.IsAudio() {
			return t, true
		}
	}
	return Track{}, false
}

// PrevAudio returns the last audio track numbered before number.
func (toc TOC) PrevAudio(number int) (Track, bool) {
	for i := len(toc.Tracks) - 1; i >= 0; i-- {
		if t := toc.Tracks[i]; t.Number < number && t.IsAudio() {
			return t, true
		}
	}
	return Track{}, false
}

// AudioSectors returns the total number of audio sectors on the disc.
func (toc TOC) AudioSectors() int {
	n := 0
	for _, t := range toc.Tracks {
		if t.IsAudio() {
			n += t.Length()
		}
	}
	return n
}

// Entries converts the table back into raw records.
func (toc TOC) Entries() []Entry {
	entries := make([]Entry, len(toc.Tracks))
	for i, t := range toc.Tracks {
		entries[i] = Entry{Number: t.Number, Type: t.Type, Start: t.Start}
	}
	return entries
}

// Disc is a named table of contents.
type Disc struct {
	Name string
	TOC  TOC
}
