// Package boundary contains render failures behind a fallback value.
package boundary

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/widgetshare/internal/logging"
)

// Incident records one contained failure. ID is quoted to support.
type Incident struct {
	ID  string
	Err error
	At  time.Time
}

func (i *Incident) Error() string {
	return fmt.Sprintf("incident %s: %v", i.ID, i.Err)
}

func (i *Incident) Unwrap() error {
	return i.Err
}

// Boundary renders through fn until the first failure, then keeps returning
// the fallback until Reset is called.
type Boundary[T any] struct {
	fallback T
	logger   *logging.Logger

	mu       sync.Mutex
	incident *Incident
}

func New[T any](fallback T, logger *logging.Logger) *Boundary[T] {
	if logger == nil {
		logger = logging.Default
	}
	return &Boundary[T]{fallback: fallback, logger: logger}
}

// Render calls fn unless the boundary is already in its error state. A panic
// or returned error trips the boundary.
func (b *Boundary[T]) Render(fn func() (T, error)) (out T, incident *Incident) {
	b.mu.Lock()
	if b.incident != nil {
		incident = b.incident
		b.mu.Unlock()
		return b.fallback, incident
	}
	b.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			out, incident = b.fallback, b.trip(fmt.Errorf("panic: %v", r))
		}
	}()

	v, err := fn()
	if err != nil {
		return b.fallback, b.trip(err)
	}
	return v, nil
}

func (b *Boundary[T]) trip(err error) *Incident {
	inc := &Incident{ID: uuid.NewString(), Err: err, At: time.Now().UTC()}

	b.mu.Lock()
	b.incident = inc
	b.mu.Unlock()

	b.logger.Error("Render failed", map[string]interface{}{
		"incident_id": inc.ID,
		"error":       err.Error(),
	})
	return inc
}

// Incident returns the current failure, or nil.
func (b *Boundary[T]) Incident() *Incident {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.incident
}

// Reset clears the error state so the next Render retries.
func (b *Boundary[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.incident = nil
}
