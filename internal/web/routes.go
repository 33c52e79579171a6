package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facegate/internal/web/handlers"
)

func (s *Server) setupRoutes(deps Deps) {
	enrollHandler := handlers.NewEnrollHandler(deps.Face, deps.Enroll)
	scanHandler := handlers.NewScanHandler(deps.Face, deps.Recognize)
	logsHandler := handlers.NewLogsHandler(deps.Audit)
	identitiesHandler := handlers.NewIdentitiesHandler(deps.Registry)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		r.Post("/enroll", enrollHandler.Enroll)
		r.Post("/scan", scanHandler.Scan)

		r.Get("/logs", logsHandler.List)
		r.Get("/identities", identitiesHandler.List)
	})
}
