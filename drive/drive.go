// Package drive finds optical drives and opens them with one of the
// command backends.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rabidaudio/playcdda/cdimage"
	"github.com/rabidaudio/playcdda/paranoia"
	"github.com/rabidaudio/playcdda/scsi"
	"github.com/rabidaudio/playcdda/scsi/sgio"
)

// Descriptor names a drive. Path is the device node commands go to.
type Descriptor struct {
	Name string
	Path string
}

func (d Descriptor) String() string {
	if d.Path == "" || filepath.Base(d.Path) == d.Name {
		return d.Name
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.Path)
}

var ErrNoDrive = errors.New("drive: no optical drive found")

var prefixes = []string{"sr", "scd", "cdrom"}

func isDriveName(name string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// List scans /dev.
func List() ([]Descriptor, error) {
	return ListDir("/dev")
}

// ListDir returns the drives in dir in case-insensitive name order. Links
// such as cdrom -> sr0 are resolved and each device appears once, under
// the first name in that order.
func ListDir(dir string) ([]Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var found []Descriptor
	for _, e := range entries {
		if !isDriveName(e.Name()) || e.IsDir() {
			continue
		}
		path, err := filepath.EvalSymlinks(filepath.Join(dir, e.Name()))
		if err != nil {
			// dangling link
			continue
		}
		found = append(found, Descriptor{Name: e.Name(), Path: path})
	}
	sort.SliceStable(found, func(i, j int) bool {
		return strings.ToLower(found[i].Name) < strings.ToLower(found[j].Name)
	})

	seen := make(map[string]bool, len(found))
	list := found[:0]
	for _, d := range found {
		if seen[d.Path] {
			continue
		}
		seen[d.Path] = true
		list = append(list, d)
	}
	return list, nil
}

// Default picks the drive to use when none was configured.
func Default(list []Descriptor) (Descriptor, error) {
	if len(list) == 0 {
		return Descriptor{}, ErrNoDrive
	}
	for _, d := range list {
		if strings.HasPrefix(d.Name, "cdrom") {
			return d, nil
		}
	}
	return list[0], nil
}

// Device is an open drive.
type Device interface {
	scsi.Device
	io.Closer
}

const (
	BackendSGIO     = "sgio"
	BackendParanoia = "paranoia"
	BackendImage    = "image"
)

// Open opens d with backend. The image backend ignores d and serves the
// WAV files in images instead.
func Open(d Descriptor, backend string, images []string) (Device, error) {
	var (
		dev Device
		err error
	)
	switch backend {
	case BackendSGIO, "":
		dev, err = sgio.Open(d.Path)
	case BackendParanoia:
		dev, err = paranoia.Open(d.Path)
	case BackendImage:
		dev, err = cdimage.OpenWAV(images...)
	default:
		return nil, fmt.Errorf("drive: unknown backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// Eject opens the tray of dev.
func Eject(ctx context.Context, dev scsi.Device) error {
	if e, ok := dev.(interface{ Eject() error }); ok {
		return e.Eject()
	}
	_, err := dev.Do(ctx, scsi.Eject(), nil)
	return err
}
