package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/game"
	"github.com/sirupsen/logrus"
)

// errNoIdentity means the request carried no token at all.
var errNoIdentity = errors.New("no token presented")

// tokenFromRequest looks for a token in the Authorization header, the "token" query parameter
// and the auth_token cookie, in that order.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if c, err := r.Cookie("auth_token"); err == nil {
		return c.Value
	}
	return ""
}

// identity returns the username proven by the request's token for session id. A request
// without a token returns errNoIdentity; a token that does not verify, or that was issued for
// another session, returns the verification error.
func (s *Server) identity(r *http.Request, id uuid.UUID) (string, error) {
	tok := tokenFromRequest(r)
	if tok == "" {
		return "", errNoIdentity
	}
	return s.Signer.Authenticate(tok, id)
}

// sessionID parses the {gameID} URL parameter. A malformed id cannot name a session.
func sessionID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "gameID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", game.ErrSessionNotFound, raw)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind game.Kind) int {
	switch kind {
	case game.KindNotFound:
		return http.StatusNotFound
	case game.KindConflict, game.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage hides storage and unknown failures from clients.
func errorMessage(err error, kind game.Kind) string {
	switch kind {
	case game.KindNotFound, game.KindConflict, game.KindValidation:
		return err.Error()
	default:
		return "internal server error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := game.KindOf(err)
	status := statusFor(kind)
	entry := s.Logger.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"status": status,
		"kind":   kind.String(),
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	writeJSON(w, status, map[string]string{
		"error": errorMessage(err, kind),
		"code":  kind.String(),
	})
}
