//go:build !linux

package sgio

import (
	"context"

	"github.com/rabidaudio/playcdda/scsi"
)

type Drive struct {
	Path string
}

func Open(path string) (*Drive, error) {
	return nil, ErrUnsupported
}

func (d *Drive) Do(ctx context.Context, cdb scsi.CDB, data []byte) (int, error) {
	return 0, ErrUnsupported
}

func (d *Drive) Close() error {
	return nil
}
