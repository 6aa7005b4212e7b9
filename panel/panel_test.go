package panel_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/panel"
	"github.com/rabidaudio/playcdda/panel/mock"
	"github.com/rabidaudio/playcdda/player"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu     sync.Mutex
	calls  []string
	status player.Status
	volume int
	err    error
	toc    *cdda.TOC
}

func (f *fakeController) record(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
	return f.err
}

func (f *fakeController) Play(n int) error { return f.record(fmt.Sprintf("play %d", n)) }
func (f *fakeController) Pause() error { return f.record("pause") }
func (f *fakeController) Resume() error { return f.record("resume") }
func (f *fakeController) Stop() error { return f.record("stop") }
func (f *fakeController) Next() error { return f.record("next") }
func (f *fakeController) Prev() error { return f.record("prev") }
func (f *fakeController) Volume() int { return f.volume }
func (f *fakeController) Status() player.Status { return f.status }

func (f *fakeController) TOC() (cdda.TOC, bool) {
	if f.toc == nil {
		return cdda.TOC{}, false
	}
	return *f.toc, true
}

func (f *fakeController) SetVolume(v int) error {
	f.volume = v
	return f.record(fmt.Sprintf("volume %d", v))
}

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestApply(t *testing.T) {
	c := &fakeController{volume: 62}

	require.NoError(t, panel.Apply(c, panel.Event{Button: panel.Play}))
	c.status = player.Status{Playing: true, Track: 3}
	require.NoError(t, panel.Apply(c, panel.Event{Button: panel.Play}))
	require.NoError(t, panel.Apply(c, panel.Event{Button: panel.Pause}))
	c.status.Paused = true
	require.NoError(t, panel.Apply(c, panel.Event{Button: panel.Pause}))
	require.NoError(t, panel.Apply(c, panel.Event{Button: panel.Play}))
	require.NoError(t, panel.Apply(c, panel.Event{Button: panel.VolumeUp}))
	require.NoError(t, panel.Apply(c, panel.Event{Button: panel.VolumeDown}))
	require.NoError(t, panel.Apply(c, panel.Event{Button: panel.Track, Arg: 7}))
	require.NoError(t, panel.Apply(c, panel.Event{Button: panel.Next}))
	require.NoError(t, panel.Apply(c, panel.Event{Button: panel.Prev}))
	require.NoError(t, panel.Apply(c, panel.Event{Button: panel.Stop}))
	assert.ErrorIs(t, panel.Apply(c, panel.Event{Button: 42}), panel.ErrUnknownButton)

	assert.Equal(t, []string{
		"play 1",
		"pause",
		"resume",
		"resume",
		"volume 64",
		"volume 60",
		"play 7",
		"next",
		"prev",
		"stop",
	}, c.Calls())
}

func TestPlayStartsFirstAudioTrack(t *testing.T) {
	toc, err := cdda.NewTOC([]cdda.Entry{
		{Number: 1, Type: cdda.Data, Start: 0},
		{Number: 2, Type: cdda.Audio, Start: 11400},
	}, 20000)
	require.NoError(t, err)
	c := &fakeController{toc: &toc}

	require.NoError(t, panel.Apply(c, panel.Event{Button: panel.Play}))
	c.status = player.Status{Track: 2}
	require.NoError(t, panel.Apply(c, panel.Event{Button: panel.Play}))
	assert.Equal(t, []string{"play 2", "play 2"}, c.Calls())

	data, err := cdda.NewTOC([]cdda.Entry{{Number: 1, Type: cdda.Data, Start: 0}}, 20000)
	require.NoError(t, err)
	c = &fakeController{toc: &data}
	assert.ErrorIs(t, panel.Apply(c, panel.Event{Button: panel.Play}), player.ErrNoSuchTrack)
	assert.Empty(t, c.Calls())
}

func TestPoll(t *testing.T) {
	c := &fakeController{err: player.ErrNoDisc}
	p := mock.New(
		panel.Event{Button: panel.Track, Arg: 2},
		panel.Event{},
		panel.Event{Button: panel.Stop},
	)
	p.Err = errors.New("spi gone")

	err := panel.Poll(context.Background(), p, c, time.Millisecond, zerolog.Nop())
	assert.EqualError(t, err, "spi gone")
	assert.Equal(t, []string{"play 2", "stop"}, c.Calls())
	assert.Equal(t, 4, p.Queries)
}

func TestPollStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := mock.New()
	done := make(chan error, 1)
	go func() { done <- panel.Poll(ctx, p, &fakeController{}, time.Millisecond, zerolog.Nop()) }()

	p.Press(panel.Next, 0)
	require.Eventually(t, func() bool { return p.Pending() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poll did not return")
	}
}
