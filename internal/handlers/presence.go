package handlers

import (
	"context"
	"net/http"

	"github.com/HammerMeetNail/widgetshare/internal/logging"
)

// UIDResolver turns a client token into a user id.
type UIDResolver interface {
	UID(ctx context.Context, token string) (string, error)
}

type PresenceServer interface {
	Serve(w http.ResponseWriter, r *http.Request, uid string)
}

type PresenceHandler struct {
	tokens UIDResolver
	hub    PresenceServer
	logger *logging.Logger
}

func NewPresenceHandler(tokens UIDResolver, hub PresenceServer, logger *logging.Logger) *PresenceHandler {
	if logger == nil {
		logger = logging.Default
	}
	return &PresenceHandler{tokens: tokens, hub: hub, logger: logger}
}

// Connect authenticates ?token= before upgrading, since browsers cannot set
// headers on websocket requests.
func (h *PresenceHandler) Connect(w http.ResponseWriter, r *http.Request) {
	uid, err := h.tokens.UID(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.logger.Warn("Presence token rejected", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	h.hub.Serve(w, r, uid)
}
