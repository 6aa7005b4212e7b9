package player

import (
	"encoding/binary"

	"github.com/rabidaudio/playcdda/cdda"
)

// Convert copies the whole sample frames of src, which is in disc order
// (little-endian), into dst in the given byte order. It returns the number
// of bytes written.
func Convert(dst, src []byte, order binary.ByteOrder) int {
	const frame = cdda.Channels * cdda.BytesPerSample
	n := min(len(dst), len(src))
	n -= n % frame
	if order == nil || order == binary.ByteOrder(binary.LittleEndian) {
		return copy(dst[:n], src[:n])
	}
	for i := 0; i < n; i += cdda.BytesPerSample {
		order.PutUint16(dst[i:], binary.LittleEndian.Uint16(src[i:]))
	}
	return n
}
