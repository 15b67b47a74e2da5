// Package notify manages transient UI notifications and their auto-dismiss
// timers.
package notify

import (
	"strconv"
	"sync"
	"time"

	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/state"
)

// DefaultDuration applies when Options.Duration is nil.
const DefaultDuration = models.DefaultNotificationDuration * time.Millisecond

type timer interface {
	Stop() bool
}

var afterFunc = func(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

var now = time.Now

type Options struct {
	Type     models.NotificationType
	Title    string
	Message  string
	Actions  []models.NotificationAction
	Progress *float64
	// Duration nil means DefaultDuration; zero keeps the notification until
	// it is hidden.
	Duration *time.Duration
}

// Sticky is a Duration that disables auto-dismiss.
func Sticky() *time.Duration {
	d := time.Duration(0)
	return &d
}

// Manager owns one cancellable timer per timed notification.
type Manager struct {
	store state.Dispatcher

	mu     sync.Mutex
	lastID int64
	live   map[string]timer
}

func NewManager(store state.Dispatcher) *Manager {
	return &Manager{store: store, live: make(map[string]timer)}
}

// nextID returns a nanosecond timestamp, bumped past the previous id when the
// clock has not advanced. Caller holds mu.
func (m *Manager) nextID() string {
	id := now().UnixNano()
	if id <= m.lastID {
		id = m.lastID + 1
	}
	m.lastID = id
	return strconv.FormatInt(id, 10)
}

// Show appends a notification and returns its id.
func (m *Manager) Show(opts Options) string {
	d := DefaultDuration
	if opts.Duration != nil {
		d = *opts.Duration
	}
	if d < 0 {
		d = 0
	}
	if opts.Type == "" {
		opts.Type = models.NotificationInfo
	}

	m.mu.Lock()
	id := m.nextID()
	m.live[id] = nil
	m.mu.Unlock()

	m.store.Dispatch(state.ShowNotification{Notification: models.Notification{
		ID:       id,
		Type:     opts.Type,
		Title:    opts.Title,
		Message:  opts.Message,
		Actions:  opts.Actions,
		Progress: opts.Progress,
		Duration: int(d / time.Millisecond),
	}})

	// The timer starts only once the notification is in state, so it can
	// never remove it before it is shown. A Hide or Clear that ran while the
	// show was in flight has already dropped the id; remove it again.
	m.mu.Lock()
	_, ok := m.live[id]
	if ok && d > 0 {
		m.live[id] = afterFunc(d, func() { m.Hide(id) })
	}
	m.mu.Unlock()
	if !ok {
		m.store.Dispatch(state.HideNotification{ID: id})
	}
	return id
}

// Hide removes the notification and cancels its timer. Safe to call any
// number of times, before or after the timer fires.
func (m *Manager) Hide(id string) {
	m.mu.Lock()
	if t, ok := m.live[id]; ok {
		delete(m.live, id)
		if t != nil {
			t.Stop()
		}
	}
	m.mu.Unlock()

	m.store.Dispatch(state.HideNotification{ID: id})
}

func (m *Manager) Progress(id string, value float64) {
	m.store.Dispatch(state.UpdateNotificationProgress{ID: id, Progress: value})
}

func (m *Manager) Success(title, message string) string {
	return m.Show(Options{Type: models.NotificationSuccess, Title: title, Message: message})
}

func (m *Manager) Error(title, message string) string {
	return m.Show(Options{Type: models.NotificationError, Title: title, Message: message})
}

func (m *Manager) Warning(title, message string) string {
	return m.Show(Options{Type: models.NotificationWarning, Title: title, Message: message})
}

func (m *Manager) Info(title, message string) string {
	return m.Show(Options{Type: models.NotificationInfo, Title: title, Message: message})
}

// Clear hides every notification this manager still tracks.
func (m *Manager) Clear() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.live))
	for id := range m.live {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Hide(id)
	}
}

// Close cancels all pending timers without touching state.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.live {
		if t != nil {
			t.Stop()
		}
		delete(m.live, id)
	}
}

// Pending reports how many notifications still have a live timer.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.live {
		if t != nil {
			n++
		}
	}
	return n
}
