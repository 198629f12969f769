package tui

import (
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lucasnoah/remediate/internal/notify"
)

// toastTTL is how long a resolved toast stays on screen.
const toastTTL = 4 * time.Second

// toastMsg adds or replaces a toast. Pending toasts keep their id when resolved.
type toastMsg struct {
	id    int64
	level notify.Level
	text  string
	at    time.Time
}

type toast struct {
	id    int64
	level notify.Level
	text  string
	at    time.Time
}

// ToastSink is a notify.Sink that forwards notifications into the bubbletea
// event loop. Plain notifications are dropped if the loop falls far behind.
// Tracked toasts and their resolutions are queued instead, in order, so a
// pending toast always gets replaced.
type ToastSink struct {
	ch     chan toastMsg
	nextID atomic.Int64
	now    func() time.Time

	mu       sync.Mutex
	overflow []toastMsg
}

// NewToastSink creates a sink with a small buffer.
func NewToastSink() *ToastSink {
	return &ToastSink{ch: make(chan toastMsg, 64), now: time.Now}
}

func (s *ToastSink) send(id int64, level notify.Level, text string) {
	select {
	case s.ch <- toastMsg{id: id, level: level, text: text, at: s.now()}:
	default:
	}
}

func (s *ToastSink) Info(msg string)    { s.send(s.nextID.Add(1), notify.LevelInfo, msg) }
func (s *ToastSink) Success(msg string) { s.send(s.nextID.Add(1), notify.LevelSuccess, msg) }
func (s *ToastSink) Error(msg string)   { s.send(s.nextID.Add(1), notify.LevelError, msg) }

// sendTracked never drops. Once anything is queued in overflow, later tracked
// messages queue behind it so a resolution cannot overtake its pending toast.
func (s *ToastSink) sendTracked(id int64, level notify.Level, text string) {
	msg := toastMsg{id: id, level: level, text: text, at: s.now()}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.overflow) == 0 {
		select {
		case s.ch <- msg:
			return
		default:
		}
	}
	s.overflow = append(s.overflow, msg)
}

func (s *ToastSink) popOverflow() (toastMsg, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.overflow) == 0 {
		return toastMsg{}, false
	}
	msg := s.overflow[0]
	s.overflow = s.overflow[1:]
	return msg, true
}

// Track shows a pending toast that is replaced in place on resolution.
func (s *ToastSink) Track(pending string) notify.Tracker {
	id := s.nextID.Add(1)
	s.sendTracked(id, notify.LevelPending, pending)
	return notify.NewTracker(func(level notify.Level, msg string) {
		s.sendTracked(id, level, msg)
	})
}

// next returns the next notification. The channel drains before overflow;
// overflow only fills while the channel is full.
func (s *ToastSink) next() toastMsg {
	select {
	case msg := <-s.ch:
		return msg
	default:
	}
	if msg, ok := s.popOverflow(); ok {
		return msg
	}
	return <-s.ch
}

// listen waits for the next notification.
func (s *ToastSink) listen() tea.Cmd {
	return func() tea.Msg {
		return s.next()
	}
}
