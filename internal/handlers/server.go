// internal/handlers/server.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/auth"
	"github.com/jason-s-yu/lacosa/internal/broadcast"
	"github.com/jason-s-yu/lacosa/internal/middleware"
	"github.com/jason-s-yu/lacosa/internal/registry"
	"github.com/sirupsen/logrus"
)

// Server wires the registry, the broadcast hub and token signing to HTTP and WebSocket routes.
// Handlers only translate requests; every rule lives in the registry and game packages.
type Server struct {
	Registry *registry.Registry
	Hub      *broadcast.Hub
	Signer   *auth.Signer
	Logger   *logrus.Logger

	// AllowedOrigins limits CORS and WebSocket origins in production.
	AllowedOrigins []string
	Production     bool

	// beforeAccept runs between reading a socket's initial state and the upgrade. Tests only.
	beforeAccept func(sessionID uuid.UUID)
}

// Routes builds the chi router for the API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(s.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api/games", func(r chi.Router) {
		r.Post("/", s.CreateGameHandler)
		r.Route("/{gameID}", func(r chi.Router) {
			r.Get("/", s.GetGameHandler)
			r.Post("/join", s.JoinGameHandler)
			r.Post("/start", s.StartGameHandler)
			r.Post("/move", s.MoveHandler)
			r.Get("/ws", s.GameWSHandler)
		})
	})
	return r
}

func (s *Server) corsOrigins() []string {
	if s.Production {
		return s.AllowedOrigins
	}
	return []string{"https://*", "http://*"}
}

// wsOriginPatterns converts allowed origins to the host patterns websocket.Accept expects.
func (s *Server) wsOriginPatterns() []string {
	if !s.Production {
		return []string{"*"}
	}
	out := make([]string, 0, len(s.AllowedOrigins))
	for _, o := range s.AllowedOrigins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		out = append(out, o)
	}
	return out
}
