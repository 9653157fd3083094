package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	RouteHealth  = "/healthz"
	RouteSession = "/session"
	RouteMetrics = "/metrics"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.StdMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.StdMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMetrics, ChainMiddleware(
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP,
		s.StdMiddleware()...,
	))
}
