// Package mock provides a scripted front panel for tests and for running
// without hardware.
package mock

import (
	"sync"

	"github.com/rabidaudio/playcdda/panel"
)

type Panel struct {
	mu      sync.Mutex
	events  []panel.Event
	Err     error // returned once the script runs out, if set
	Queries int
	Closed  bool
}

var _ panel.Panel = (*Panel)(nil)

func New(events ...panel.Event) *Panel {
	return &Panel{events: events}
}

// Press queues a button press.
func (m *Panel) Press(b panel.Button, arg uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, panel.Event{Button: b, Arg: arg})
}

func (m *Panel) Query() (ev panel.Event, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries++
	if len(m.events) == 0 {
		return ev, m.Err
	}
	ev, m.events = m.events[0], m.events[1:]
	return ev, nil
}

// Pending reports how many scripted presses have not been read yet.
func (m *Panel) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *Panel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
