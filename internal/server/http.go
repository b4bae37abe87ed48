package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/bran/trump304/internal/engine"
	"github.com/bran/trump304/internal/store"
)

type createGameRequest struct {
	Mode       int    `json:"mode"`
	PlayerName string `json:"player_name"`
}

type joinGameRequest struct {
	PlayerName string `json:"player_name"`
}

// handleCreateGame handles POST /games
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Mode == 0 {
		req.Mode = 4
	}
	if req.PlayerName == "" {
		req.PlayerName = "Player 1"
	}

	result, err := s.dispatcher.CreateGame(r.Context(), req.Mode, req.PlayerName)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handleGetGame handles GET /games/{code}
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(mux.Vars(r)["code"])

	info, err := s.dispatcher.GameInfo(r.Context(), code)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleJoinGame handles POST /games/{code}/join
func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(mux.Vars(r)["code"])
	if code == "" {
		writeError(w, http.StatusBadRequest, "game code required")
		return
	}

	var req joinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlayerName == "" {
		req.PlayerName = "Player"
	}

	result, err := s.dispatcher.JoinGame(r.Context(), code, req.PlayerName)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// statusFor maps engine and store errors to HTTP statuses
func statusFor(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, store.ErrVersionConflict) {
		return http.StatusConflict
	}
	var engineErr *engine.Error
	if errors.As(err, &engineErr) {
		switch engineErr.Kind {
		case engine.KindNotFound:
			return http.StatusNotFound
		case engine.KindPermission:
			return http.StatusForbidden
		default:
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
