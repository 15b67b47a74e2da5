package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/HammerMeetNail/widgetshare/internal/logging"
	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/triggers"
)

const maxEventBytes = 1 << 20

const releaseTimeout = 5 * time.Second

// TriggerRunner is the reactive layer behind the event endpoints.
type TriggerRunner interface {
	WidgetUpdated(ctx context.Context, before, after models.Widget) []models.PushMessage
	FriendshipCreated(ctx context.Context, f models.Friendship) []models.PushMessage
	FriendshipUpdated(ctx context.Context, before, after models.Friendship) []models.PushMessage
	ChatMessageCreated(ctx context.Context, chatID string, msg models.ChatMessage) []models.PushMessage
	GenerateThumbnail(ctx context.Context, obj triggers.Object) string
	RecordPhotoUpload(ctx context.Context, obj triggers.Object) bool
	PhotoDeleted(ctx context.Context, photo models.Photo) []string
}

// ChangeEvent carries a document write. Before is nil on create and After
// is nil on delete.
type ChangeEvent[T any] struct {
	EventID string `json:"eventId"`
	ChatID  string `json:"chatId,omitempty"`
	Before  *T     `json:"before"`
	After   *T     `json:"after"`
}

type ObjectEvent struct {
	EventID string `json:"eventId"`
	triggers.Object
}

type TriggerResponse struct {
	EventID   string   `json:"eventId"`
	Duplicate bool     `json:"duplicate,omitempty"`
	Pushes    int      `json:"pushes"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Recorded  bool     `json:"recorded,omitempty"`
	Deleted   []string `json:"deleted,omitempty"`
}

type TriggerHandler struct {
	triggers TriggerRunner
	dedupe   triggers.Deduper
	logger   *logging.Logger
}

// NewTriggerHandler builds the event endpoints. dedupe may be nil, in which
// case every delivery runs.
func NewTriggerHandler(runner TriggerRunner, dedupe triggers.Deduper, logger *logging.Logger) *TriggerHandler {
	if logger == nil {
		logger = logging.Default
	}
	return &TriggerHandler{triggers: runner, dedupe: dedupe, logger: logger}
}

var errMissingEventID = errors.New("eventId is required")

func decodeEvent(w http.ResponseWriter, r *http.Request, v interface{ eventID() string }) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if v.eventID() == "" {
		return errMissingEventID
	}
	return nil
}

func (e *ChangeEvent[T]) eventID() string { return e.EventID }
func (e *ObjectEvent) eventID() string    { return e.EventID }

// claim reports whether this delivery should run. A dedupe outage runs the
// event anyway; a duplicate push beats a dropped one.
func (h *TriggerHandler) claim(ctx context.Context, eventID string) bool {
	if h.dedupe == nil {
		return true
	}
	first, err := h.dedupe.FirstDelivery(ctx, eventID)
	if err != nil {
		h.logger.Warn("Event dedupe unavailable", map[string]interface{}{"event_id": eventID, "error": err.Error()})
		return true
	}
	if !first {
		h.logger.Info("Skipping redelivered event", map[string]interface{}{"event_id": eventID})
	}
	return first
}

func (h *TriggerHandler) badEvent(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("Malformed trigger event", map[string]interface{}{"path": r.URL.Path, "error": err.Error()})
	writeError(w, http.StatusBadRequest, "Invalid event")
}

// runOnce claims eventID, runs fn and writes its response. When fn panics or
// the request is cancelled before fn returns, the claim is released so the
// redelivered event runs again.
func (h *TriggerHandler) runOnce(w http.ResponseWriter, r *http.Request, eventID string, fn func(ctx context.Context) TriggerResponse) {
	if !h.claim(r.Context(), eventID) {
		writeJSON(w, http.StatusOK, TriggerResponse{EventID: eventID, Duplicate: true})
		return
	}

	finished := false
	defer func() {
		if !finished || r.Context().Err() != nil {
			h.release(r.Context(), eventID)
		}
	}()

	resp := fn(r.Context())
	finished = true
	resp.EventID = eventID
	writeJSON(w, http.StatusOK, resp)
}

func (h *TriggerHandler) release(ctx context.Context, eventID string) {
	if h.dedupe == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := h.dedupe.Release(ctx, eventID); err != nil {
		h.logger.Error("Event claim release failed", map[string]interface{}{"event_id": eventID, "error": err.Error()})
		return
	}
	h.logger.Warn("Released event claim after an unfinished run", map[string]interface{}{"event_id": eventID})
}

// WidgetUpdated handles POST /triggers/widgets.updated.
func (h *TriggerHandler) WidgetUpdated(w http.ResponseWriter, r *http.Request) {
	var ev ChangeEvent[models.Widget]
	if err := decodeEvent(w, r, &ev); err != nil {
		h.badEvent(w, r, err)
		return
	}
	if ev.Before == nil || ev.After == nil {
		h.badEvent(w, r, errors.New("before and after are required"))
		return
	}
	h.runOnce(w, r, ev.EventID, func(ctx context.Context) TriggerResponse {
		sent := h.triggers.WidgetUpdated(ctx, *ev.Before, *ev.After)
		return TriggerResponse{Pushes: len(sent)}
	})
}

// FriendshipCreated handles POST /triggers/friends.created.
func (h *TriggerHandler) FriendshipCreated(w http.ResponseWriter, r *http.Request) {
	var ev ChangeEvent[models.Friendship]
	if err := decodeEvent(w, r, &ev); err != nil {
		h.badEvent(w, r, err)
		return
	}
	if ev.After == nil {
		h.badEvent(w, r, errors.New("after is required"))
		return
	}
	h.runOnce(w, r, ev.EventID, func(ctx context.Context) TriggerResponse {
		sent := h.triggers.FriendshipCreated(ctx, *ev.After)
		return TriggerResponse{Pushes: len(sent)}
	})
}

// FriendshipUpdated handles POST /triggers/friends.updated.
func (h *TriggerHandler) FriendshipUpdated(w http.ResponseWriter, r *http.Request) {
	var ev ChangeEvent[models.Friendship]
	if err := decodeEvent(w, r, &ev); err != nil {
		h.badEvent(w, r, err)
		return
	}
	if ev.Before == nil || ev.After == nil {
		h.badEvent(w, r, errors.New("before and after are required"))
		return
	}
	h.runOnce(w, r, ev.EventID, func(ctx context.Context) TriggerResponse {
		sent := h.triggers.FriendshipUpdated(ctx, *ev.Before, *ev.After)
		return TriggerResponse{Pushes: len(sent)}
	})
}

// ChatMessageCreated handles POST /triggers/chats.messages.created. The chat
// id comes from the envelope, or from the message when the envelope omits it.
func (h *TriggerHandler) ChatMessageCreated(w http.ResponseWriter, r *http.Request) {
	var ev ChangeEvent[models.ChatMessage]
	if err := decodeEvent(w, r, &ev); err != nil {
		h.badEvent(w, r, err)
		return
	}
	if ev.After == nil {
		h.badEvent(w, r, errors.New("after is required"))
		return
	}
	chatID := ev.ChatID
	if chatID == "" {
		chatID = ev.After.ChatID
	}
	if chatID == "" {
		h.badEvent(w, r, errors.New("chatId is required"))
		return
	}
	h.runOnce(w, r, ev.EventID, func(ctx context.Context) TriggerResponse {
		sent := h.triggers.ChatMessageCreated(ctx, chatID, *ev.After)
		return TriggerResponse{Pushes: len(sent)}
	})
}

// ObjectFinalized handles POST /triggers/storage.finalized. Thumbnail
// generation and upload recording both run on the same event.
func (h *TriggerHandler) ObjectFinalized(w http.ResponseWriter, r *http.Request) {
	var ev ObjectEvent
	if err := decodeEvent(w, r, &ev); err != nil {
		h.badEvent(w, r, err)
		return
	}
	if ev.Name == "" {
		h.badEvent(w, r, errors.New("name is required"))
		return
	}
	h.runOnce(w, r, ev.EventID, func(ctx context.Context) TriggerResponse {
		thumb := h.triggers.GenerateThumbnail(ctx, ev.Object)
		recorded := h.triggers.RecordPhotoUpload(ctx, ev.Object)
		return TriggerResponse{Thumbnail: thumb, Recorded: recorded}
	})
}

// PhotoDeleted handles POST /triggers/photos.deleted.
func (h *TriggerHandler) PhotoDeleted(w http.ResponseWriter, r *http.Request) {
	var ev ChangeEvent[models.Photo]
	if err := decodeEvent(w, r, &ev); err != nil {
		h.badEvent(w, r, err)
		return
	}
	if ev.Before == nil {
		h.badEvent(w, r, errors.New("before is required"))
		return
	}
	h.runOnce(w, r, ev.EventID, func(ctx context.Context) TriggerResponse {
		deleted := h.triggers.PhotoDeleted(ctx, *ev.Before)
		return TriggerResponse{Deleted: deleted}
	})
}
