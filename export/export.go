// Package export writes the audio tracks of a disc as WAV files into a
// FAT32 disk image.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/diskfs/go-diskfs/filesystem/fat32"
	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/scsi"
)

const (
	SectorSize = 512
	MinSize    = 64 * fat32.MB

	// first partition sector, 1MiB aligned
	partitionStart = 2048
	// sectors per drive read
	runSectors = 150
)

var ErrNoAudio = errors.New("export: disc has no audio tracks")

// Image is a FAT32 filesystem inside an MBR disk image.
type Image struct {
	Path  string
	fs    filesystem.FileSystem
	files []string
}

// sanitizeName takes a file name and converts it to DOS format
// by uppercasing, limiting to ASCII letters, and triming to 8 chars
func sanitizeName(name string) string {
	// https://en.wikipedia.org/wiki/8.3_filename
	newName := make([]rune, 0, 8)
	for _, r := range strings.ToUpper(name) {
		if len(newName) == 8 {
			break
		}
		if r >= 'A' && r <= 'Z' {
			newName = append(newName, r)
		}
	}
	return string(newName)
}

func trackSizeBytes(t cdda.Track) int64 {
	return int64(t.Length())*cdda.BytesPerSector + cdda.WavHeaderSize
}

// ImageSize returns a disk size large enough for every audio track.
func ImageSize(toc cdda.TOC) int64 {
	var total int64
	for _, t := range toc.Tracks {
		if t.IsAudio() {
			total += trackSizeBytes(t)
		}
	}
	// FAT tables and cluster slack
	total += total/16 + 8*fat32.MB
	total = (total + fat32.MB - 1) / fat32.MB * fat32.MB
	return max(total, MinSize)
}

// Create a new disk image at path holding one FAT32 partition.
// Be sure to Close() the Image after use.
func Create(path string, size int64, label string) (*Image, error) {
	if size < MinSize {
		size = MinSize
	}
	dsk, err := diskfs.Create(path, size, diskfs.SectorSizeDefault)
	if err != nil {
		return nil, err
	}

	// create an MBR with one partition
	table := &mbr.Table{
		LogicalSectorSize:  SectorSize,
		PhysicalSectorSize: SectorSize,
		Partitions: []*mbr.Partition{
			{
				Bootable: false,
				Type:     mbr.Fat32LBA,
				Start:    partitionStart,
				Size:     uint32(size/SectorSize) - partitionStart,
			},
		},
	}
	if err := dsk.Partition(table); err != nil {
		os.Remove(path)
		return nil, err
	}
	label = strings.ToUpper(label)
	if label == "" {
		label = "AUDIOCD"
	}
	if len(label) > 11 {
		label = label[:11]
	}
	fatfs, err := dsk.CreateFilesystem(disk.FilesystemSpec{
		Partition:   1,
		FSType:      filesystem.TypeFat32,
		VolumeLabel: label,
	})
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return &Image{Path: path, fs: fatfs}, nil
}

func dirName(disc cdda.Disc) string {
	sDirName := sanitizeName(disc.Name)
	if sDirName != "" {
		sDirName = "/" + sDirName
	}
	return sDirName
}

// TrackPath is where WriteDisc puts track t of disc.
func TrackPath(disc cdda.Disc, t cdda.Track) string {
	return fmt.Sprintf("%v/TRACK%02d.WAV", dirName(disc), t.Number)
}

// Files lists the paths written so far.
func (im *Image) Files() []string {
	return im.files
}

// WriteDisc reads every audio track of disc from dev and stores it as a
// WAV file. Data tracks are skipped.
func (im *Image) WriteDisc(ctx context.Context, dev scsi.Device, disc cdda.Disc, cmd scsi.ReadCommand) error {
	var tracks []cdda.Track
	for _, t := range disc.TOC.Tracks {
		if t.IsAudio() {
			tracks = append(tracks, t)
		}
	}
	if len(tracks) == 0 {
		return ErrNoAudio
	}

	if dir := dirName(disc); dir != "" {
		if err := im.fs.Mkdir(dir); err != nil {
			return err
		}
	}
	buf := make([]byte, runSectors*cdda.BytesPerSector)
	for _, t := range tracks {
		name := TrackPath(disc, t)
		if err := im.writeTrack(ctx, dev, cmd, t, name, buf); err != nil {
			return fmt.Errorf("export: track %d: %w", t.Number, err)
		}
		im.files = append(im.files, name)
	}
	return nil
}

func (im *Image) writeTrack(ctx context.Context, dev scsi.Device, cmd scsi.ReadCommand, t cdda.Track, name string, buf []byte) error {
	file, err := im.fs.OpenFile(name, os.O_CREATE|os.O_RDWR)
	if err != nil {
		return fmt.Errorf("create %v: %w", name, err)
	}
	defer file.Close()

	if _, err := file.Write(cdda.WavHeader(t.Length() * cdda.BytesPerSector)); err != nil {
		return err
	}
	for lba := t.Start; lba < t.End; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(runSectors, t.End-lba)
		got, err := dev.Do(ctx, cmd.Build(lba, n), buf[:n*cdda.BytesPerSector])
		got -= got % cdda.BytesPerSector
		if got > 0 {
			if _, werr := file.Write(buf[:got]); werr != nil {
				return werr
			}
		}
		if err != nil {
			return fmt.Errorf("read %d: %w", lba, err)
		}
		if got == 0 {
			return fmt.Errorf("read %d: no data", lba)
		}
		lba += got / cdda.BytesPerSector
	}
	return nil
}

func (im *Image) Close() error {
	if im.fs == nil {
		return nil
	}
	err := im.fs.Close()
	im.fs = nil
	return err
}
