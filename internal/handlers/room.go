// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bidblitz/bidblitz/internal/auth"
	"github.com/bidblitz/bidblitz/internal/session"
)

// CreateRoomHandler allocates a room, makes the requester its leader, and
// sets the credential cookie. A requester already holding a credential for a
// live room gets that membership back instead of a second room.
func CreateRoomHandler(reg *session.Registry, issuer *auth.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		m, err := reg.CreateRoom(claimsFromRequest(r, issuer))
		if err != nil {
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}
		if m.Created {
			auth.SetCookie(w, m.Token)
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// JoinRoomHandler allocates a player identity in an existing room and sets
// the credential cookie. The room id is the final path segment.
func JoinRoomHandler(reg *session.Registry, issuer *auth.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		roomID := strings.TrimPrefix(r.URL.Path, "/join-room/")
		if roomID == "" || strings.Contains(roomID, "/") {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		m, err := reg.JoinRoom(roomID, claimsFromRequest(r, issuer))
		if err == session.ErrRoomNotFound {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Room does not exist"})
			return
		}
		if err != nil {
			http.Error(w, "failed to join room", http.StatusInternalServerError)
			return
		}
		if m.Created {
			auth.SetCookie(w, m.Token)
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// claimsFromRequest reads the requester's existing credential, if any. An
// absent or invalid cookie is treated as no credential at all.
func claimsFromRequest(r *http.Request, issuer *auth.Issuer) *auth.Claims {
	claims, err := issuer.FromRequest(r)
	if err != nil {
		return nil
	}
	return &claims
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
