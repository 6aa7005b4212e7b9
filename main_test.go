package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	termbox "github.com/nsf/termbox-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/panel"
	"github.com/rabidaudio/playcdda/player"
)

func testTOC(t *testing.T) cdda.TOC {
	toc, err := cdda.NewTOC([]cdda.Entry{
		{Number: 1, Type: cdda.Audio, Start: 0},
		{Number: 2, Type: cdda.Audio, Start: 3 * 60 * cdda.SectorsPerSecond},
		{Number: 3, Type: cdda.Data, Start: 6 * 60 * cdda.SectorsPerSecond},
	}, 7*60*cdda.SectorsPerSecond)
	require.NoError(t, err)
	return toc
}

func TestTrackArg(t *testing.T) {
	n, err := trackArg(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = trackArg([]string{"12"})
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	for _, bad := range []string{"0", "100", "two"} {
		_, err := trackArg([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestPrintTOC(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTOC(&buf, testTOC(t)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "TRACK")
	// track 1 lasts three minutes and track 2 starts after the pregap
	assert.Contains(t, lines[1], "03:00.00")
	assert.Contains(t, lines[2], "03:02.00")
	assert.Contains(t, lines[3], "data")
	assert.Contains(t, lines[4], "07:02.00")
}

func TestKeyEvent(t *testing.T) {
	v := &view{toc: testTOC(t)}

	_, ok := v.keyEvent(termbox.Event{Type: termbox.EventKey, Key: termbox.KeyArrowDown})
	assert.False(t, ok)
	assert.Equal(t, 1, v.selected)
	v.keyEvent(termbox.Event{Type: termbox.EventKey, Key: termbox.KeyArrowDown})
	v.keyEvent(termbox.Event{Type: termbox.EventKey, Key: termbox.KeyArrowDown})
	assert.Equal(t, 2, v.selected)

	ev, ok := v.keyEvent(termbox.Event{Type: termbox.EventKey, Key: termbox.KeyEnter})
	assert.True(t, ok)
	assert.Equal(t, panel.Event{Button: panel.Track, Arg: 3}, ev)

	ev, ok = v.keyEvent(termbox.Event{Type: termbox.EventKey, Key: termbox.KeySpace})
	assert.True(t, ok)
	assert.Equal(t, panel.Pause, ev.Button)

	ev, _ = v.keyEvent(termbox.Event{Type: termbox.EventKey, Ch: '+'})
	assert.Equal(t, panel.VolumeUp, ev.Button)
	ev, _ = v.keyEvent(termbox.Event{Type: termbox.EventKey, Ch: 's'})
	assert.Equal(t, panel.Stop, ev.Button)

	_, ok = v.keyEvent(termbox.Event{Type: termbox.EventKey, Ch: 'x'})
	assert.False(t, ok)

	assert.True(t, isQuit(termbox.Event{Ch: 'q'}))
	assert.True(t, isQuit(termbox.Event{Key: termbox.KeyEsc}))
	assert.False(t, isQuit(termbox.Event{Ch: 'n'}))
}

func TestKeyEventNoTracks(t *testing.T) {
	v := &view{}
	v.keyEvent(termbox.Event{Key: termbox.KeyArrowDown})
	assert.Equal(t, 0, v.selected)
	_, ok := v.keyEvent(termbox.Event{Key: termbox.KeyEnter})
	assert.False(t, ok)
}

func TestViewLines(t *testing.T) {
	v := &view{toc: testTOC(t), selected: 1}
	st := player.Status{State: player.Active, Playing: true, Track: 2, Elapsed: 65 * time.Second, Volume: 64}

	lines := v.lines(st)
	assert.Equal(t, "playing  track 02  01:05 / 03:00  vol 64", lines[0])
	assert.True(t, strings.HasPrefix(lines[3], "> *02"), lines[3])
	assert.True(t, strings.HasPrefix(lines[2], "   01"), lines[2])
	assert.Equal(t, helpLine, lines[len(lines)-1])

	st = player.Status{State: player.Idle, Track: 2, Err: errors.New("medium error")}
	lines = v.lines(st)
	assert.True(t, strings.HasPrefix(lines[0], "stopped"))
	assert.Equal(t, "error: medium error", lines[len(lines)-2])
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00", formatDuration(0))
	assert.Equal(t, "74:33", formatDuration(74*time.Minute+33*time.Second+500*time.Millisecond))
}
