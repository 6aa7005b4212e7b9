package main

import (
	"fmt"
	"time"

	termbox "github.com/nsf/termbox-go"
	"github.com/spf13/cobra"

	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/panel"
	"github.com/rabidaudio/playcdda/player"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive player",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

const helpLine = "enter play  space pause  s stop  n/p next/prev  +/- volume  q quit"

type view struct {
	toc      cdda.TOC
	selected int // index into toc.Tracks
	message  string
}

// keyEvent maps a key press to the front panel button it stands for.
func (v *view) keyEvent(ev termbox.Event) (panel.Event, bool) {
	switch ev.Key {
	case termbox.KeyEnter:
		if v.selected < len(v.toc.Tracks) {
			return panel.Event{Button: panel.Track, Arg: uint8(v.toc.Tracks[v.selected].Number)}, true
		}
		return panel.Event{}, false
	case termbox.KeySpace:
		return panel.Event{Button: panel.Pause}, true
	case termbox.KeyArrowUp:
		v.selected = max(v.selected-1, 0)
		return panel.Event{}, false
	case termbox.KeyArrowDown:
		v.selected = max(min(v.selected+1, len(v.toc.Tracks)-1), 0)
		return panel.Event{}, false
	case termbox.KeyArrowRight:
		return panel.Event{Button: panel.Next}, true
	case termbox.KeyArrowLeft:
		return panel.Event{Button: panel.Prev}, true
	}
	switch ev.Ch {
	case 's':
		return panel.Event{Button: panel.Stop}, true
	case 'n':
		return panel.Event{Button: panel.Next}, true
	case 'p':
		return panel.Event{Button: panel.Prev}, true
	case '+', '=':
		return panel.Event{Button: panel.VolumeUp}, true
	case '-':
		return panel.Event{Button: panel.VolumeDown}, true
	}
	return panel.Event{}, false
}

func isQuit(ev termbox.Event) bool {
	return ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC || ev.Ch == 'q'
}

func stateLabel(st player.Status) string {
	switch {
	case st.Paused:
		return "paused"
	case st.Playing:
		return "playing"
	case st.State == player.Idle || st.State == player.Terminated:
		return "stopped"
	default:
		return st.State.String()
	}
}

// lines renders the screen, one string per row.
func (v *view) lines(st player.Status) []string {
	out := []string{
		fmt.Sprintf("%-8s track %02d  %s / %s  vol %d", stateLabel(st), st.Track,
			formatDuration(st.Elapsed), formatDuration(trackDuration(v.toc, st.Track)), st.Volume),
		"",
	}
	for i, t := range v.toc.Tracks {
		cursor := "  "
		if i == v.selected {
			cursor = "> "
		}
		now := " "
		if t.Number == st.Track && st.State == player.Active {
			now = "*"
		}
		out = append(out, fmt.Sprintf("%s%s%s", cursor, now, t))
	}
	out = append(out, "")
	if st.Err != nil {
		out = append(out, "error: "+st.Err.Error())
	} else if v.message != "" {
		out = append(out, v.message)
	}
	return append(out, helpLine)
}

func trackDuration(toc cdda.TOC, n int) time.Duration {
	if t, ok := toc.Track(n); ok {
		return t.Duration()
	}
	return 0
}

func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func draw(rows []string, st player.Status) error {
	if err := termbox.Clear(termbox.ColorDefault, termbox.ColorDefault); err != nil {
		return err
	}
	for y, row := range rows {
		fg := termbox.ColorDefault
		switch {
		case y == 0:
			fg = termbox.ColorGreen | termbox.AttrBold
		case y == len(rows)-2 && st.Err != nil:
			fg = termbox.ColorRed
		}
		x := 0
		for _, r := range row {
			termbox.SetCell(x, y, r, fg, termbox.ColorDefault)
			x++
		}
	}
	return termbox.Flush()
}

func runTUI(cmd *cobra.Command, args []string) error {
	dirty := make(chan struct{}, 1)
	s, err := openSession(func(player.Status) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := termbox.Init(); err != nil {
		return err
	}
	defer termbox.Close()

	// Interrupt blocks until PollEvent picks it up, so it runs off the
	// playback task.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-dirty:
				termbox.Interrupt()
			case <-done:
				return
			}
		}
	}()

	toc, _ := s.player.TOC()
	v := &view{toc: toc}
	for {
		st := s.player.Status()
		if err := draw(v.lines(st), st); err != nil {
			return err
		}
		ev := termbox.PollEvent()
		switch ev.Type {
		case termbox.EventError:
			return ev.Err
		case termbox.EventKey:
			if isQuit(ev) {
				return nil
			}
			if pe, ok := v.keyEvent(ev); ok {
				v.message = ""
				if err := panel.Apply(s.player, pe); err != nil {
					v.message = err.Error()
				}
			}
		}
	}
}
