package panel

import (
	"fmt"

	rpio "github.com/stianeikeland/go-rpio/v4"
)

// Each poll is a single 4 byte exchange:
// Pi sends [QUERY, 0, 0, 0],
// MCU answers [READY, ACK | NAK, button, arg].
// NAK means no button was pressed since the last query.

const (
	NAK   = iota // 0x00
	ACK          // 0x01
	QUERY        // 0x02
)

const READY = 0xA5

const DefaultSpeed = 10_000_000 // 10 MHz

var ErrNoResponse = fmt.Errorf("panel: no response from mcu")

type Spi struct {
	dev      rpio.SpiDev
	exchange func([]byte)
}

func Open(chipSelect uint8, speedHz int) (*Spi, error) {
	return OpenDevice(rpio.Spi0, chipSelect, speedHz)
}

func OpenDevice(dev rpio.SpiDev, chipSelect uint8, speedHz int) (*Spi, error) {
	if err := rpio.Open(); err != nil {
		return nil, err
	}
	if err := rpio.SpiBegin(dev); err != nil {
		rpio.Close()
		return nil, err
	}
	if speedHz <= 0 {
		speedHz = DefaultSpeed
	}
	rpio.SpiChipSelect(chipSelect)
	rpio.SpiSpeed(speedHz)
	return &Spi{dev: dev, exchange: rpio.SpiExchange}, nil
}

func (s *Spi) Query() (Event, error) {
	b := []byte{QUERY, 0, 0, 0}
	s.exchange(b)
	return parseResponse(b)
}

func parseResponse(b []byte) (Event, error) {
	if b[0] != READY {
		for _, x := range b {
			if x != 0 {
				return Event{}, fmt.Errorf("panel: invalid response from mcu: %v", b)
			}
		}
		return Event{}, ErrNoResponse
	}
	switch b[1] {
	case ACK:
		if Button(b[2]) > Track {
			return Event{}, fmt.Errorf("panel: invalid button from mcu: %v", b)
		}
		return Event{Button: Button(b[2]), Arg: b[3]}, nil
	case NAK:
		return Event{}, nil
	default:
		return Event{}, fmt.Errorf("panel: invalid response from mcu: %v", b)
	}
}

func (s *Spi) Close() error {
	rpio.SpiEnd(s.dev)
	return rpio.Close()
}

var _ Panel = (*Spi)(nil)
