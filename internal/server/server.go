// Package server wires the HTTP request surface and the websocket
// channel surface onto the dispatcher.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bran/trump304/internal/dispatch"
)

// Server owns the router, the websocket hub, and the dispatcher
type Server struct {
	dispatcher *dispatch.Dispatcher
	hub        *Hub
	router     *mux.Router
	log        *slog.Logger
	baseCtx    context.Context
}

// New creates a server around an existing dispatcher and hub. The hub
// must be the dispatcher's Sender so fan-out reaches live sockets.
func New(dispatcher *dispatch.Dispatcher, hub *Hub, log *slog.Logger) *Server {
	s := &Server{
		dispatcher: dispatcher,
		hub:        hub,
		log:        log,
		baseCtx:    context.Background(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/games", s.handleCreateGame).Methods(http.MethodPost)
	r.HandleFunc("/games/{code}", s.handleGetGame).Methods(http.MethodGet)
	r.HandleFunc("/games/{code}/join", s.handleJoinGame).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWS)
	s.router = r

	return s
}

// Handler returns the HTTP handler for the whole surface
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until the context is canceled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.baseCtx = ctx

	srv := &http.Server{Addr: addr, Handler: s.router}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	s.log.Info("listening", "addr", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
