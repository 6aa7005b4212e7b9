package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVolumeScale(t *testing.T) {
	assert.Equal(t, Unity, VolumeToFixed(MaxVolume))
	assert.Equal(t, Fixed(0), VolumeToFixed(0))
	assert.Equal(t, 32, FixedToVolume(VolumeToFixed(32)))
}

func TestMul(t *testing.T) {
	assert.Equal(t, int16(1000), Unity.Mul(1000))
	assert.Equal(t, int16(500), Centre.Mul(1000))
	assert.Equal(t, int16(-16384), Centre.Mul(-32768))
	assert.Equal(t, int16(32767), (Unity * 2).Mul(30000))
	assert.Equal(t, int16(-32768), (Unity * 2).Mul(-30000))
}

func TestPan(t *testing.T) {
	l, r := Pan(Centre)
	assert.Equal(t, Unity, l)
	assert.Equal(t, Unity, r)

	l, r = Pan(0)
	assert.Equal(t, Unity, l)
	assert.Equal(t, Fixed(0), r)

	l, r = Pan(Unity)
	assert.Equal(t, Fixed(0), l)
	assert.Equal(t, Unity, r)
}

func TestValidate(t *testing.T) {
	w := &Write{Data: make([]byte, 8), Type: S16S, Frequency: 44100}
	assert.NoError(t, w.Validate(CDDA))

	w.Frequency = 48000
	assert.ErrorIs(t, w.Validate(CDDA), ErrFormat)

	w = &Write{Data: make([]byte, 6), Type: S16S, Frequency: 44100}
	assert.ErrorIs(t, w.Validate(CDDA), ErrBadWrite)
}
