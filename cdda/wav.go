package cdda

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// WavHeaderSize is the length of the canonical RIFF header written in front of CDDA samples.
const WavHeaderSize = 44

var ErrNotCDDA = errors.New("cdda: not a 44.1kHz 16-bit stereo PCM wave file")

// WavHeader returns the canonical header for dataSize bytes of CDDA samples.
func WavHeader(dataSize int) []byte {
	h := make([]byte, WavHeaderSize)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+dataSize))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], Channels)
	binary.LittleEndian.PutUint32(h[24:28], SampleRate)
	binary.LittleEndian.PutUint32(h[28:32], SampleRate*Channels*BytesPerSample)
	binary.LittleEndian.PutUint16(h[32:34], Channels*BytesPerSample)
	binary.LittleEndian.PutUint16(h[34:36], BytesPerSample*8)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataSize))
	return h
}

// ReadWavHeader walks the RIFF chunks of r until the data chunk, leaving r
// positioned at the first sample. It returns the size of the sample data.
func ReadWavHeader(r io.Reader) (int64, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return 0, err
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, ErrNotCDDA
	}
	sawFormat := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return 0, fmt.Errorf("cdda: missing data chunk: %w", err)
		}
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		switch string(chunk[0:4]) {
		case "fmt ":
			if size < 16 {
				return 0, ErrNotCDDA
			}
			f := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, f); err != nil {
				return 0, err
			}
			if binary.LittleEndian.Uint16(f[0:2]) != 1 ||
				binary.LittleEndian.Uint16(f[2:4]) != Channels ||
				binary.LittleEndian.Uint32(f[4:8]) != SampleRate ||
				binary.LittleEndian.Uint16(f[14:16]) != BytesPerSample*8 {
				return 0, ErrNotCDDA
			}
			sawFormat = true
		case "data":
			if !sawFormat {
				return 0, ErrNotCDDA
			}
			return size, nil
		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return 0, err
			}
		}
	}
}
