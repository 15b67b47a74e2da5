package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/state"
)

type fakeTimer struct {
	d       time.Duration
	fire    func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	wasActive := !f.stopped
	f.stopped = true
	return wasActive
}

type timerRecorder struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func useFakeTimers(t *testing.T) *timerRecorder {
	t.Helper()
	rec := &timerRecorder{}
	orig := afterFunc
	afterFunc = func(d time.Duration, f func()) timer {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		ft := &fakeTimer{d: d, fire: f}
		rec.timers = append(rec.timers, ft)
		return ft
	}
	t.Cleanup(func() { afterFunc = orig })
	return rec
}

func ids(s state.State) []string {
	out := make([]string, 0, len(s.UI.Notifications))
	for _, n := range s.UI.Notifications {
		out = append(out, n.ID)
	}
	return out
}

func TestShow_DefaultDurationAndOrder(t *testing.T) {
	rec := useFakeTimers(t)
	store := state.NewStore(state.Initial())
	m := NewManager(store)

	first := m.Success("Saved", "")
	second := m.Error("Failed", "try again")

	got := ids(store.State())
	if len(got) != 2 || got[0] != first || got[1] != second {
		t.Fatalf("expected insertion order, got %v", got)
	}
	if len(rec.timers) != 2 || rec.timers[0].d != 3*time.Second {
		t.Fatalf("expected default 3s timers, got %+v", rec.timers)
	}
	if n := store.State().UI.Notifications[0]; n.Duration != 3000 || n.Type != models.NotificationSuccess {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestShow_StickyHasNoTimer(t *testing.T) {
	rec := useFakeTimers(t)
	store := state.NewStore(state.Initial())
	m := NewManager(store)

	id := m.Show(Options{Title: "Offline", Duration: Sticky()})
	if len(rec.timers) != 0 {
		t.Fatal("expected no timer for sticky notification")
	}
	if store.State().UI.Notifications[0].Duration != 0 {
		t.Fatal("expected zero duration recorded")
	}
	m.Hide(id)
	if len(store.State().UI.Notifications) != 0 {
		t.Fatal("expected sticky notification hidden explicitly")
	}
}

func TestHide_TwiceAndAfterTimerIsIdempotent(t *testing.T) {
	rec := useFakeTimers(t)
	store := state.NewStore(state.Initial())
	m := NewManager(store)

	a := m.Info("a", "")
	b := m.Info("b", "")

	m.Hide(a)
	m.Hide(a)
	if !rec.timers[0].stopped {
		t.Fatal("expected early hide to cancel the timer")
	}
	rec.timers[0].fire()

	rec.timers[1].fire()
	m.Hide(b)

	if got := ids(store.State()); len(got) != 0 {
		t.Fatalf("expected empty queue, got %v", got)
	}
	if m.Pending() != 0 {
		t.Fatalf("expected no live timers, got %d", m.Pending())
	}
}

func TestLateTimerDoesNotRemoveOtherNotification(t *testing.T) {
	rec := useFakeTimers(t)
	store := state.NewStore(state.Initial())
	m := NewManager(store)

	a := m.Info("a", "")
	m.Hide(a)
	b := m.Info("b", "")
	rec.timers[0].fire()

	if got := ids(store.State()); len(got) != 1 || got[0] != b {
		t.Fatalf("expected b to survive a stale timer, got %v", got)
	}
}

func TestIDsStrictlyIncrease(t *testing.T) {
	useFakeTimers(t)
	frozen := time.Unix(0, 1000)
	origNow := now
	now = func() time.Time { return frozen }
	t.Cleanup(func() { now = origNow })

	m := NewManager(state.NewStore(state.Initial()))
	a := m.Info("a", "")
	b := m.Info("b", "")
	if a != "1000" || b != "1001" {
		t.Fatalf("expected bumped ids, got %s %s", a, b)
	}
}

func TestProgressClearAndClose(t *testing.T) {
	rec := useFakeTimers(t)
	store := state.NewStore(state.Initial())
	m := NewManager(store)

	id := m.Show(Options{Title: "Uploading", Duration: Sticky()})
	m.Progress(id, 0.5)
	if p := store.State().UI.Notifications[0].Progress; p == nil || *p != 0.5 {
		t.Fatalf("expected progress 0.5, got %v", p)
	}

	m.Warning("w", "")
	m.Clear()
	if len(store.State().UI.Notifications) != 0 {
		t.Fatal("expected clear to hide everything")
	}

	m.Info("later", "")
	m.Close()
	if !rec.timers[len(rec.timers)-1].stopped || m.Pending() != 0 {
		t.Fatal("expected close to stop timers")
	}
}

func TestRealTimerHides(t *testing.T) {
	store := state.NewStore(state.Initial())
	m := NewManager(store)
	d := 10 * time.Millisecond
	m.Show(Options{Title: "quick", Duration: &d})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(store.State().UI.Notifications) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected timer to hide notification")
}

// clearingStore runs clear just before the first show reaches the store,
// the way a sign-out can land while an intent is reporting.
type clearingStore struct {
	*state.Store
	clear func()
	done  bool
}

func (c *clearingStore) Dispatch(a state.Action) {
	if _, ok := a.(state.ShowNotification); ok && !c.done {
		c.done = true
		c.clear()
	}
	c.Store.Dispatch(a)
}

func TestClearDuringShowLeavesNoStrandedNotification(t *testing.T) {
	rec := useFakeTimers(t)
	store := &clearingStore{Store: state.NewStore(state.Initial())}
	m := NewManager(store)
	store.clear = m.Clear

	m.Error("Failed", "try again")

	if got := ids(store.State()); len(got) != 0 {
		t.Fatalf("expected notification removed after the clear, got %v", got)
	}
	if len(rec.timers) != 0 || m.Pending() != 0 {
		t.Fatalf("expected no timers, got %d created and %d live", len(rec.timers), m.Pending())
	}

	next := m.Error("Again", "")
	if got := ids(store.State()); len(got) != 1 || got[0] != next {
		t.Fatalf("expected only the next notification, got %v", got)
	}
	if m.Pending() != 1 {
		t.Fatalf("expected one live timer, got %d", m.Pending())
	}
}
