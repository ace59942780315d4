package api

import (
	"net/http"
	"time"
	"visit-route-engine/internal/api/handlers"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Planner        handlers.RoutePlanner
	Health         map[string]handlers.Pinger
	RequestTimeout time.Duration
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	health := &handlers.HealthHandler{Checks: deps.Health}
	points := &handlers.PointHandler{Planner: deps.Planner}
	routes := &handlers.RouteHandler{Planner: deps.Planner, Timeout: deps.RequestTimeout}

	mux.HandleFunc("/health", health.Health)
	mux.HandleFunc("/points", points.List)
	mux.HandleFunc("/routes/optimize", routes.Optimize)
	mux.HandleFunc("/routes/compare", routes.Compare)
	mux.HandleFunc("/routes/weekly", routes.Weekly)
	mux.Handle("/metrics", promhttp.Handler())

	return requestIDMiddleware(loggingMiddleware(mux))
}
