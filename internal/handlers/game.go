// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/game"
)

type createGameRequest struct {
	Name string `json:"name"`
}

type joinGameRequest struct {
	Username string `json:"username"`
}

type joinGameResponse struct {
	Game  game.SessionView `json:"game"`
	Token string           `json:"token"`
}

type moveRequest struct {
	Username string          `json:"username"`
	Move     json.RawMessage `json:"move"`
}

// decodeBody reads a JSON body into v. An empty body leaves v at its zero value.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", game.ErrMalformedRequest, err)
	}
	return nil
}

// viewer resolves who is asking in session id. A missing token is a spectator; a bad token,
// or one issued for another session, is rejected.
func (s *Server) viewer(w http.ResponseWriter, r *http.Request, id uuid.UUID) (string, bool) {
	user, err := s.identity(r, id)
	if errors.Is(err, errNoIdentity) {
		return "", true
	}
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token", "code": "unauthorized"})
		return "", false
	}
	return user, true
}

// CreateGameHandler handles POST /api/games.
func (s *Server) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Registry.CreateSession(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res.View)
}

// GetGameHandler handles GET /api/games/{gameID}, projected for the token's user.
func (s *Server) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	viewer, ok := s.viewer(w, r, id)
	if !ok {
		return
	}
	view, err := s.Registry.GetView(r.Context(), id, viewer)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// JoinGameHandler handles POST /api/games/{gameID}/join and issues the seat token.
func (s *Server) JoinGameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req joinGameRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Registry.JoinSession(r.Context(), id, req.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := s.Signer.CreateToken(id, req.Username)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("create token: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, joinGameResponse{Game: res.View, Token: token})
}

// StartGameHandler handles POST /api/games/{gameID}/start.
func (s *Server) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	viewer, ok := s.viewer(w, r, id)
	if !ok {
		return
	}
	res, err := s.Registry.StartSession(r.Context(), id, viewer)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.View)
}

// MoveHandler handles POST /api/games/{gameID}/move. The mover is the token's user when a
// token is presented, otherwise the username in the body.
func (s *Server) MoveHandler(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	viewer, ok := s.viewer(w, r, id)
	if !ok {
		return
	}
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	username := req.Username
	if viewer != "" {
		username = viewer
	}
	m, err := game.DecodeMove(req.Move)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Registry.SubmitMove(r.Context(), id, username, m)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.View)
}
