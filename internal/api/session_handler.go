package api

import (
	"net/http"
)

type SessionHandler struct {
	sessions *Sessions
}

func NewSessionHandler(sessions *Sessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SignOut ends the session's in-memory cart. The remotely persisted copy is
// left in place, so the same user signing back in gets their cart rehydrated.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	h.sessions.Drop(userID)

	respondJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
