package routes

import (
	"net/http"

	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/app"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/handler"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/middleware"
)

func SetupRoutes(a *app.App) http.Handler {
	evidence := handler.NewEvidenceHandler(a.EvidenceService)
	health := handler.NewStorageHealthHandler()

	mux := http.NewServeMux()

	// Evidence upload pipeline
	mux.HandleFunc("POST /api/evidence/presign", middleware.RequireUser(evidence.Presign))
	mux.HandleFunc("POST /api/evidence/commit", middleware.RequireUser(evidence.Commit))
	mux.HandleFunc("POST /api/evidence/upload", middleware.RequireUser(evidence.Upload))
	mux.HandleFunc("DELETE /api/evidence/{id}", middleware.RequireUser(evidence.Delete))
	mux.HandleFunc("GET /api/evidence/{id}/download", middleware.RequireUser(evidence.Download))

	// Deliverable tracking read model
	mux.HandleFunc("GET /api/skills/{skillId}/deliverables", middleware.RequireUser(evidence.Deliverables))

	// Operator diagnostics
	mux.HandleFunc("GET /api/storage/health", health.Health)

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.RequestLogging,
		middleware.NoCache,
		middleware.Auth(a.AuthService, a.UserRepo),
	)
}
