// Package server exposes a local status endpoint for a running bookctl
// instance: health, session state and prometheus metrics.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-bookstore-client/sessions"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	store    *sessions.Store
	registry *prometheus.Registry
	logger   zerolog.Logger
}

func New(env string, store *sessions.Store, registry *prometheus.Registry, logger zerolog.Logger) *Server {
	s := &Server{
		env:      env,
		mux:      http.NewServeMux(),
		store:    store,
		registry: registry,
		logger:   logger,
	}
	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	s.logger.Debug().Msgf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}
