// Package server exposes the analytics sink over HTTP. The ingest contract
// is the same structured-event stream the local log accepts, so a real
// analytics client can point here without the core noticing.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vity-loop/vity-loop/internal/store"
)

type Server struct {
	store     *store.SQLiteStore
	port      int
	router    *http.ServeMux
	log       zerolog.Logger
	startTime time.Time
}

func New(s *store.SQLiteStore, port int, logger zerolog.Logger) *Server {
	srv := &Server{
		store:     s,
		port:      port,
		router:    http.NewServeMux(),
		log:       logger,
		startTime: time.Now(),
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/e", s.handleIngest)
	s.router.HandleFunc("/api/events", s.handleEvents)
	s.router.HandleFunc("/api/record", s.handleRecord)
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)

	fmt.Println()
	fmt.Printf("vity-loop sink running on http://localhost:%d\n", s.port)
	fmt.Printf("Ingest events with: POST http://localhost:%d/e\n", s.port)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")

	return http.ListenAndServe(addr, s.router)
}

// Handler returns the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
