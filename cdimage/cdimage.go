// Package cdimage emulates an audio CD drive over WAV files or raw PCM.
// Tracks are laid out back to back from sector 0.
package cdimage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/scsi"
)

type track struct {
	r       io.ReaderAt
	offset  int64 // first sample byte within r
	size    int64 // sample bytes
	closer  io.Closer
	sectors int
}

// Image is a scsi.Device answering READ TOC, READ CD and READ CD-DA.
type Image struct {
	mu     sync.Mutex
	tracks []track
	toc    cdda.TOC
	closed bool
	// tray open; reads fail until reloaded
	ejected bool
}

// OpenWAV builds a disc with one track per WAV file.
func OpenWAV(paths ...string) (*Image, error) {
	var tracks []track
	fail := func(err error) (*Image, error) {
		for _, t := range tracks {
			t.closer.Close()
		}
		return nil, err
	}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return fail(err)
		}
		size, err := cdda.ReadWavHeader(f)
		if err != nil {
			f.Close()
			return fail(fmt.Errorf("cdimage: %s: %w", p, err))
		}
		offset, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			f.Close()
			return fail(err)
		}
		tracks = append(tracks, track{r: f, offset: offset, size: size, closer: f})
	}
	return build(tracks)
}

// FromPCM builds a disc from in-memory little-endian PCM, one slice per track.
func FromPCM(pcm ...[]byte) (*Image, error) {
	tracks := make([]track, len(pcm))
	for i, p := range pcm {
		tracks[i] = track{r: bytes.NewReader(p), size: int64(len(p)), closer: io.NopCloser(nil)}
	}
	return build(tracks)
}

func build(tracks []track) (*Image, error) {
	if len(tracks) == 0 || len(tracks) > cdda.MaxTracks {
		return nil, fmt.Errorf("cdimage: %d tracks: %w", len(tracks), cdda.ErrIllegalTOC)
	}
	entries := make([]cdda.Entry, len(tracks))
	lba := 0
	for i := range tracks {
		t := &tracks[i]
		t.sectors = int((t.size + cdda.BytesPerSector - 1) / cdda.BytesPerSector)
		if t.sectors == 0 {
			return nil, fmt.Errorf("cdimage: track %d is empty", i+1)
		}
		entries[i] = cdda.Entry{Number: i + 1, Type: cdda.Audio, Start: lba}
		lba += t.sectors
	}
	toc, err := cdda.NewTOC(entries, lba)
	if err != nil {
		return nil, err
	}
	return &Image{tracks: tracks, toc: toc}, nil
}

// TOC returns the layout of the image.
func (im *Image) TOC() cdda.TOC {
	return im.toc
}

func (im *Image) Do(ctx context.Context, cdb scsi.CDB, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.closed || (im.ejected && cdb.Op() != scsi.OpStartStopUnit) {
		return 0, scsi.CheckCondition(cdb.Op(), scsi.SenseNotReady, scsi.ASCMediumNotPresent, 0)
	}

	switch cdb.Op() {
	case scsi.OpTestUnitReady:
		return 0, nil
	case scsi.OpStartStopUnit:
		if len(cdb) > 4 && cdb[4]&0x02 != 0 {
			// start bit set means load, clear means eject
			im.ejected = cdb[4]&0x01 == 0
		}
		return 0, nil
	case scsi.OpReadTOC:
		return copy(data, scsi.EncodeTOC(im.toc)), nil
	}

	r, err := scsi.DecodeRead(cdb)
	if err != nil {
		return 0, err
	}
	if r.LBA < 0 || r.Sectors < 0 || r.LBA+r.Sectors > im.toc.LeadOut {
		return 0, scsi.CheckCondition(cdb.Op(), scsi.SenseIllegalRequest, scsi.ASCLBAOutOfRange, 0)
	}
	if len(data) < r.Sectors*cdda.BytesPerSector {
		return 0, scsi.CheckCondition(cdb.Op(), scsi.SenseIllegalRequest, scsi.ASCInvalidField, 0)
	}
	for i := range r.Sectors {
		if err := im.readSector(r.LBA+i, data[i*cdda.BytesPerSector:(i+1)*cdda.BytesPerSector]); err != nil {
			return i * cdda.BytesPerSector, fmt.Errorf("cdimage: sector %d: %w", r.LBA+i, err)
		}
	}
	return r.Sectors * cdda.BytesPerSector, nil
}

func (im *Image) readSector(lba int, p []byte) error {
	tr, ok := im.toc.TrackAt(lba)
	if !ok {
		return scsi.CheckCondition(scsi.OpReadCD, scsi.SenseIllegalRequest, scsi.ASCLBAOutOfRange, 0)
	}
	t := im.tracks[tr.Number-1]
	off := int64(lba-tr.Start) * cdda.BytesPerSector
	n := min(int64(len(p)), t.size-off)
	got, err := t.r.ReadAt(p[:n], t.offset+off)
	if err != nil && !(errors.Is(err, io.EOF) && int64(got) == n) {
		return err
	}
	// the last sector of a track may be padded
	clear(p[n:])
	return nil
}

func (im *Image) Close() error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.closed {
		return nil
	}
	im.closed = true
	var errs []error
	for _, t := range im.tracks {
		errs = append(errs, t.closer.Close())
	}
	return errors.Join(errs...)
}

var _ scsi.Device = (*Image)(nil)
