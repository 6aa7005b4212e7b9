//go:build linux

package sgio

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"github.com/rabidaudio/playcdda/scsi"
	"golang.org/x/sys/unix"
)

const (
	sgIO           = 0x2285
	sgDxferNone    = -1
	sgDxferFromDev = -3
	senseLen       = 32

	driverSense = 0x08
)

// sgIOHdr mirrors struct sg_io_hdr from <scsi/sg.h>.
type sgIOHdr struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         unsafe.Pointer
	cmdp           unsafe.Pointer
	sbp            unsafe.Pointer
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         unsafe.Pointer
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

// Drive is an open SCSI generic or CD-ROM device node.
type Drive struct {
	Path string

	mu sync.Mutex
	fd int
}

func Open(path string) (*Drive, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("sgio: open %s: %w", path, err)
	}
	return &Drive{Path: path, fd: fd}, nil
}

// Do issues one command. The ioctl itself cannot be interrupted, so the
// context only contributes its deadline as the command timeout.
func (d *Drive) Do(ctx context.Context, cdb scsi.CDB, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := DefaultTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
		if timeout <= 0 {
			return 0, context.DeadlineExceeded
		}
	}

	sense := make([]byte, senseLen)
	hdr := sgIOHdr{
		interfaceID:    'S',
		dxferDirection: sgDxferNone,
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        senseLen,
		cmdp:           unsafe.Pointer(&cdb[0]),
		sbp:            unsafe.Pointer(&sense[0]),
		timeout:        uint32(timeout / time.Millisecond),
	}
	if len(data) > 0 {
		hdr.dxferDirection = sgDxferFromDev
		hdr.dxferLen = uint32(len(data))
		hdr.dxferp = unsafe.Pointer(&data[0])
	}

	d.mu.Lock()
	fd := d.fd
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), sgIO, uintptr(unsafe.Pointer(&hdr)))
	d.mu.Unlock()
	runtime.KeepAlive(cdb)
	runtime.KeepAlive(data)
	runtime.KeepAlive(sense)
	if errno != 0 {
		return 0, fmt.Errorf("sgio: SG_IO on %s: %w", d.Path, errno)
	}

	n := len(data) - int(hdr.resid)
	if hdr.status != scsi.StatusGood || hdr.driverStatus&driverSense != 0 {
		return n, &scsi.Error{Op: cdb.Op(), Status: hdr.status, Sense: sense[:hdr.sbLenWr]}
	}
	if hdr.hostStatus != 0 || hdr.driverStatus != 0 {
		return n, fmt.Errorf("sgio: %s host status %#x driver status %#x", d.Path, hdr.hostStatus, hdr.driverStatus)
	}
	return n, nil
}

func (d *Drive) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
