// Package paranoia serves drive commands through libcdio, for drives the
// kernel SG_IO path cannot reach.
package paranoia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rabidaudio/audiocd"
	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/scsi"
)

// Disc is the part of *audiocd.AudioCD the drive uses.
type Disc interface {
	io.ReadSeeker
	TOC() ([]audiocd.TrackPosition, error)
	Close() error
}

type ejecter interface {
	EjectMedia() error
}

var _ Disc = (*audiocd.AudioCD)(nil)

// Drive adapts a Disc to scsi.Device.
type Drive struct {
	mu   sync.Mutex
	disc Disc
	toc  *cdda.TOC
}

// Open opens the drive at device, e.g. /dev/cdrom.
func Open(device string) (*Drive, error) {
	cd := &audiocd.AudioCD{Device: device}
	if err := cd.Open(); err != nil {
		return nil, fmt.Errorf("paranoia: open %s: %w", device, err)
	}
	return New(cd), nil
}

func New(disc Disc) *Drive {
	return &Drive{disc: disc}
}

func (d *Drive) Do(ctx context.Context, cdb scsi.CDB, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disc == nil {
		return 0, scsi.CheckCondition(cdb.Op(), scsi.SenseNotReady, scsi.ASCMediumNotPresent, 0)
	}

	switch cdb.Op() {
	case scsi.OpTestUnitReady:
		return 0, nil
	case scsi.OpReadTOC:
		toc, err := d.readTOC()
		if err != nil {
			return 0, err
		}
		return copy(data, scsi.EncodeTOC(toc)), nil
	}

	r, err := scsi.DecodeRead(cdb)
	if err != nil {
		return 0, err
	}
	toc, err := d.readTOC()
	if err != nil {
		return 0, err
	}
	if r.LBA < 0 || r.Sectors < 0 || r.LBA+r.Sectors > toc.LeadOut {
		return 0, scsi.CheckCondition(cdb.Op(), scsi.SenseIllegalRequest, scsi.ASCLBAOutOfRange, 0)
	}
	size := r.Sectors * cdda.BytesPerSector
	if len(data) < size {
		return 0, scsi.CheckCondition(cdb.Op(), scsi.SenseIllegalRequest, scsi.ASCInvalidField, 0)
	}
	if _, err := d.disc.Seek(int64(r.LBA)*cdda.BytesPerSector, io.SeekStart); err != nil {
		return 0, readError(cdb.Op(), err)
	}
	n, err := io.ReadFull(d.disc, data[:size])
	// hand back whole sectors only
	n -= n % cdda.BytesPerSector
	if err != nil {
		return n, readError(cdb.Op(), err)
	}
	return n, nil
}

func readError(op byte, err error) error {
	e := scsi.CheckCondition(op, scsi.SenseMediumError, scsi.ASCUnrecoveredRead, 0)
	return fmt.Errorf("paranoia: %w: %w", e, err)
}

func (d *Drive) readTOC() (cdda.TOC, error) {
	if d.toc != nil {
		return *d.toc, nil
	}
	tracks, err := d.disc.TOC()
	if err != nil {
		return cdda.TOC{}, fmt.Errorf("paranoia: read toc: %w", err)
	}
	toc, err := convertTOC(tracks)
	if err != nil {
		return cdda.TOC{}, err
	}
	d.toc = &toc
	return toc, nil
}

func convertTOC(tracks []audiocd.TrackPosition) (cdda.TOC, error) {
	if len(tracks) == 0 {
		return cdda.TOC{}, scsi.CheckCondition(scsi.OpReadTOC, scsi.SenseNotReady, scsi.ASCMediumNotPresent, 0)
	}
	entries := make([]cdda.Entry, len(tracks))
	leadOut := 0
	for i, t := range tracks {
		typ := cdda.Data
		if t.IsAudio {
			typ = cdda.Audio
		}
		entries[i] = cdda.Entry{Number: t.TrackNum, Type: typ, Start: t.StartSector}
		leadOut = max(leadOut, t.StartSector+t.LengthSectors)
	}
	return cdda.NewTOC(entries, leadOut)
}

var ErrNoEject = errors.New("paranoia: drive cannot eject")

// Eject opens the tray. The drive is closed afterwards.
func (d *Drive) Eject() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disc == nil {
		return nil
	}
	e, ok := d.disc.(ejecter)
	if !ok {
		return ErrNoEject
	}
	err := e.EjectMedia()
	d.disc, d.toc = nil, nil
	return err
}

func (d *Drive) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disc == nil {
		return nil
	}
	err := d.disc.Close()
	d.disc, d.toc = nil, nil
	return err
}

var _ scsi.Device = (*Drive)(nil)
