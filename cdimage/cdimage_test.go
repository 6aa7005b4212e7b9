package cdimage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/scsi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcm(n int, seed byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = seed + byte(i)
	}
	return p
}

func TestLayout(t *testing.T) {
	im, err := FromPCM(pcm(3*cdda.BytesPerSector, 1), pcm(cdda.BytesPerSector+4, 2))
	require.NoError(t, err)

	toc, err := scsi.RequestTOC(context.Background(), im)
	require.NoError(t, err)
	require.Len(t, toc.Tracks, 2)
	assert.Equal(t, 0, toc.Tracks[0].Start)
	assert.Equal(t, 3, toc.Tracks[1].Start)
	assert.Equal(t, 5, toc.LeadOut)
	assert.Equal(t, im.TOC(), toc)
}

func TestReadSpansTracks(t *testing.T) {
	a := pcm(2*cdda.BytesPerSector, 1)
	b := pcm(10, 9)
	im, err := FromPCM(a, b)
	require.NoError(t, err)

	buf := make([]byte, 3*cdda.BytesPerSector)
	for _, cmd := range []scsi.ReadCommand{scsi.CommandReadCD, scsi.CommandReadCDDA} {
		n, err := im.Do(context.Background(), cmd.Build(0, 3), buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, a, buf[:len(a)])
		assert.Equal(t, b, buf[len(a):len(a)+len(b)])
		assert.Equal(t, make([]byte, cdda.BytesPerSector-len(b)), buf[len(a)+len(b):])
	}
}

func TestReadOutOfRange(t *testing.T) {
	im, err := FromPCM(pcm(cdda.BytesPerSector, 0))
	require.NoError(t, err)

	_, err = im.Do(context.Background(), scsi.ReadCD(0, 2), make([]byte, 2*cdda.BytesPerSector))
	assert.True(t, scsi.IsSense(err, scsi.SenseIllegalRequest, scsi.ASCLBAOutOfRange))

	_, err = im.Do(context.Background(), scsi.ReadCD(0, 1), make([]byte, 10))
	assert.True(t, scsi.IsSense(err, scsi.SenseIllegalRequest, scsi.ASCInvalidField))

	_, err = im.Do(context.Background(), scsi.CDB{0x28, 0, 0, 0, 0, 0, 0, 0, 1, 0}, nil)
	assert.True(t, scsi.IsSense(err, scsi.SenseIllegalRequest, scsi.ASCInvalidOpcode))
}

func TestClosed(t *testing.T) {
	im, err := FromPCM(pcm(cdda.BytesPerSector, 0))
	require.NoError(t, err)
	require.NoError(t, im.Close())
	require.NoError(t, im.Close())

	_, err = im.Do(context.Background(), scsi.CDB{scsi.OpTestUnitReady, 0, 0, 0, 0, 0}, nil)
	assert.True(t, scsi.IsSense(err, scsi.SenseNotReady, scsi.ASCMediumNotPresent))
}

func TestEject(t *testing.T) {
	im, err := FromPCM(pcm(cdda.BytesPerSector, 0))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = im.Do(ctx, scsi.Eject(), nil)
	require.NoError(t, err)
	_, err = im.Do(ctx, scsi.ReadCD(0, 1), make([]byte, cdda.BytesPerSector))
	assert.True(t, scsi.IsSense(err, scsi.SenseNotReady, scsi.ASCMediumNotPresent))

	_, err = im.Do(ctx, scsi.CDB{scsi.OpStartStopUnit, 0, 0, 0, 0x03, 0}, nil)
	require.NoError(t, err)
	_, err = im.Do(ctx, scsi.ReadCD(0, 1), make([]byte, cdda.BytesPerSector))
	assert.NoError(t, err)
}

func TestEmpty(t *testing.T) {
	_, err := FromPCM()
	assert.ErrorIs(t, err, cdda.ErrIllegalTOC)
	_, err = FromPCM(nil)
	assert.Error(t, err)
}

func TestOpenWAV(t *testing.T) {
	dir := t.TempDir()
	data := pcm(cdda.BytesPerSector+100, 5)
	path := filepath.Join(dir, "01.wav")
	require.NoError(t, os.WriteFile(path, append(cdda.WavHeader(len(data)), data...), 0o644))

	im, err := OpenWAV(path, path)
	require.NoError(t, err)
	defer im.Close()
	assert.Equal(t, 4, im.TOC().LeadOut)

	buf := make([]byte, 2*cdda.BytesPerSector)
	_, err = im.Do(context.Background(), scsi.ReadCD(2, 2), buf)
	require.NoError(t, err)
	assert.Equal(t, data, buf[:len(data)])

	bad := filepath.Join(dir, "bad.wav")
	require.NoError(t, os.WriteFile(bad, []byte("not a wav file at all, not even close to a header"), 0o644))
	_, err = OpenWAV(path, bad)
	assert.Error(t, err)
}
