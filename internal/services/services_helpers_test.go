package services

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/HammerMeetNail/widgetshare/internal/backend/memory"
	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/state"
)

// recorder reduces into a real store and keeps the action types in order.
type recorder struct {
	*state.Store

	mu    sync.Mutex
	types []string
}

func newRecorder() *recorder {
	return &recorder{Store: state.NewStore(state.Initial())}
}

func (r *recorder) Dispatch(a state.Action) {
	r.mu.Lock()
	r.types = append(r.types, a.Type())
	r.mu.Unlock()
	r.Store.Dispatch(a)
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = nil
}

func useFixedClock(t *testing.T, at time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = orig })
}

func seedProfile(t *testing.T, docs *memory.Documents, uid string) {
	t.Helper()
	p := models.Profile{UID: uid, Email: uid + "@example.com", DisplayName: uid, Preferences: models.DefaultPreferences()}
	if err := docs.Set(context.Background(), models.DocPath(models.CollectionUsers, uid), p); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func equalTypes(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func setPhotosAction() state.Action {
	return state.SetPhotos{Photos: []models.Photo{{ID: "p1"}}}
}
