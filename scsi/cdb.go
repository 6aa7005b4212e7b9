package scsi

import (
	"encoding/binary"
	"fmt"
)

// TOC formats.
const (
	TOCFormatTOC     = 0x00
	TOCFormatSession = 0x01
	TOCFormatFull    = 0x02
)

// ReadTOC builds the 10-byte READ TOC/PMA/ATIP command.
func ReadTOC(msf bool, format, track byte, alloc uint16) CDB {
	c := make(CDB, 10)
	c[0] = OpReadTOC
	if msf {
		c[1] = 1 << 1
	}
	c[2] = format & 0x0f
	c[6] = track
	binary.BigEndian.PutUint16(c[7:9], alloc)
	return c
}

// ReadCD builds the 12-byte MMC READ CD command for CD-DA sectors,
// returning user data only and no subchannel.
func ReadCD(lba, sectors int) CDB {
	c := make(CDB, 12)
	c[0] = OpReadCD
	c[1] = 1 << 2 // expected sector type: CD-DA
	binary.BigEndian.PutUint32(c[2:6], uint32(lba))
	c[6] = byte(sectors >> 16)
	c[7] = byte(sectors >> 8)
	c[8] = byte(sectors)
	c[9] = 0x10 // user data
	return c
}

// ReadCDDA builds the 12-byte vendor READ CD-DA command without subcode.
func ReadCDDA(lba, sectors int) CDB {
	c := make(CDB, 12)
	c[0] = OpReadCDDA
	binary.BigEndian.PutUint32(c[2:6], uint32(lba))
	binary.BigEndian.PutUint32(c[6:10], uint32(sectors))
	return c
}

// Eject builds START STOP UNIT with the load/eject bit set, which stops
// the disc and opens the tray.
func Eject() CDB {
	return CDB{OpStartStopUnit, 0, 0, 0, 0x02, 0}
}

// ReadCommand selects which read command a drive understands.
type ReadCommand int

const (
	CommandReadCD ReadCommand = iota
	CommandReadCDDA
)

func (r ReadCommand) String() string {
	if r == CommandReadCDDA {
		return "readcdda"
	}
	return "readcd"
}

// ParseReadCommand parses a configured read command name.
func ParseReadCommand(s string) (ReadCommand, error) {
	switch s {
	case "readcd", "":
		return CommandReadCD, nil
	case "readcdda":
		return CommandReadCDDA, nil
	default:
		return 0, fmt.Errorf("scsi: unknown read command %q", s)
	}
}

// Build returns the command that reads sectors starting at lba.
func (r ReadCommand) Build(lba, sectors int) CDB {
	if r == CommandReadCDDA {
		return ReadCDDA(lba, sectors)
	}
	return ReadCD(lba, sectors)
}

// Read is a decoded sector read request.
type Read struct {
	LBA     int
	Sectors int
}

// DecodeRead recognises both read command layouts. It returns an
// ILLEGAL REQUEST error for anything else.
func DecodeRead(c CDB) (Read, error) {
	switch {
	case len(c) == 12 && c[0] == OpReadCD:
		return Read{
			LBA:     int(binary.BigEndian.Uint32(c[2:6])),
			Sectors: int(c[6])<<16 | int(c[7])<<8 | int(c[8]),
		}, nil
	case len(c) == 12 && c[0] == OpReadCDDA:
		return Read{
			LBA:     int(binary.BigEndian.Uint32(c[2:6])),
			Sectors: int(binary.BigEndian.Uint32(c[6:10])),
		}, nil
	default:
		return Read{}, CheckCondition(c.Op(), SenseIllegalRequest, ASCInvalidOpcode, 0)
	}
}
