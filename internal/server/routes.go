// Package server wires HTTP handlers into a ServeMux for the Agent Hub
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuthRoutes is the surface the boundary auth collaborator exposes to the
// router. It keeps this package free of a dependency on the auth internals.
type AuthRoutes interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
}

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: health check, WebSocket endpoint, console page, Prometheus
// metrics, and — when a collaborator is supplied — the auth endpoints.
func SetupRoutes(hub *Hub, auth AuthRoutes) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.Handle("/ws", NewWebSocketHandler(hub))
	mux.HandleFunc("/test", ConsolePageHandler)
	mux.Handle("/metrics", promhttp.Handler())
	if auth != nil {
		mux.HandleFunc("/auth/register", auth.Register)
		mux.HandleFunc("/auth/login", auth.Login)
		mux.HandleFunc("/auth/me", auth.Me)
	}
	return mux
}
