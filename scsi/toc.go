package scsi

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/rabidaudio/playcdda/cdda"
)

const (
	tocHeaderSize     = 4
	tocDescriptorSize = 8
	controlData       = 0x04
	adrPosition       = 0x01

	// TOCAllocation fits the header, 99 tracks and the lead-out.
	TOCAllocation = tocHeaderSize + (cdda.MaxTracks+1)*tocDescriptorSize
)

// ParseTOC decodes a format 0 READ TOC response with LBA addresses.
func ParseTOC(p []byte) (cdda.TOC, error) {
	if len(p) < tocHeaderSize {
		return cdda.TOC{}, ErrShortResponse
	}
	size := int(binary.BigEndian.Uint16(p[0:2])) + 2
	if size > len(p) {
		return cdda.TOC{}, fmt.Errorf("%w: toc reports %d bytes, got %d", ErrShortResponse, size, len(p))
	}
	first, last := int(p[2]), int(p[3])
	if first < 1 || last < first || last > cdda.MaxTracks {
		return cdda.TOC{}, fmt.Errorf("%w: tracks %d to %d", cdda.ErrIllegalTOC, first, last)
	}

	var entries []cdda.Entry
	leadOut := -1
	for off := tocHeaderSize; off+tocDescriptorSize <= size; off += tocDescriptorSize {
		d := p[off : off+tocDescriptorSize]
		track := int(d[2])
		lba := int(int32(binary.BigEndian.Uint32(d[4:8])))
		if track == cdda.LeadOutTrack {
			leadOut = lba
			continue
		}
		typ := cdda.Audio
		if d[1]&controlData != 0 {
			typ = cdda.Data
		}
		entries = append(entries, cdda.Entry{Number: track, Type: typ, Start: lba})
	}
	if leadOut < 0 {
		return cdda.TOC{}, fmt.Errorf("%w: no lead-out", cdda.ErrIllegalTOC)
	}
	if len(entries) != last-first+1 {
		return cdda.TOC{}, fmt.Errorf("%w: expected %d tracks, got %d", cdda.ErrIllegalTOC, last-first+1, len(entries))
	}
	return cdda.NewTOC(entries, leadOut)
}

// EncodeTOC renders a table of contents as a format 0 READ TOC response.
func EncodeTOC(toc cdda.TOC) []byte {
	n := len(toc.Tracks) + 1
	p := make([]byte, tocHeaderSize+n*tocDescriptorSize)
	binary.BigEndian.PutUint16(p[0:2], uint16(len(p)-2))
	if len(toc.Tracks) > 0 {
		p[2] = byte(toc.Tracks[0].Number)
		p[3] = byte(toc.Tracks[len(toc.Tracks)-1].Number)
	}
	put := func(i, track int, typ cdda.TrackType, lba int) {
		d := p[tocHeaderSize+i*tocDescriptorSize:]
		d[1] = adrPosition << 4
		if typ == cdda.Data {
			d[1] |= controlData
		}
		d[2] = byte(track)
		binary.BigEndian.PutUint32(d[4:8], uint32(lba))
	}
	for i, t := range toc.Tracks {
		put(i, t.Number, t.Type, t.Start)
	}
	put(len(toc.Tracks), cdda.LeadOutTrack, cdda.Data, toc.LeadOut)
	return p
}

// RequestTOC reads the table of contents from dev.
func RequestTOC(ctx context.Context, dev Device) (cdda.TOC, error) {
	buf := make([]byte, TOCAllocation)
	n, err := dev.Do(ctx, ReadTOC(false, TOCFormatTOC, 0, TOCAllocation), buf)
	if err != nil {
		return cdda.TOC{}, err
	}
	return ParseTOC(buf[:n])
}
