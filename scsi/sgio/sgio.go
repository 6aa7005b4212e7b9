// Package sgio sends SCSI commands to a drive through the Linux SG_IO
// pass-through ioctl.
package sgio

import (
	"errors"
	"time"

	"github.com/rabidaudio/playcdda/scsi"
)

// DefaultTimeout bounds a command when the context has no deadline.
const DefaultTimeout = 30 * time.Second

var ErrUnsupported = errors.New("sgio: SG_IO is only available on linux")

var _ scsi.Device = (*Drive)(nil)
