package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/prepdesk/server/internal/auth"
	"github.com/prepdesk/server/internal/http/handlers"
	"github.com/prepdesk/server/internal/middleware"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	plannerHandler *handlers.PlannerHandler,
	notesHandler *handlers.NotesHandler,
	pdfHandler *handlers.PDFHandler,
	healthHandler *handlers.HealthHandler,
	jwtService *auth.JWTService,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	// Method mismatches answer with a JSON error body.
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "method not allowed"})
	})

	r.Handle("/api/health", healthHandler)

	r.Get("/api/pdf", pdfHandler.HandleList)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/request_otp", authHandler.HandleRequestOTP)
		r.Post("/verify_otp", authHandler.HandleVerifyOTP)
	})

	// Protected routes (require valid JWT)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService))

		r.Post("/auth/signout", authHandler.HandleSignOut)

		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.HandleGet)
			r.Post("/", profileHandler.HandleSave)
			r.Patch("/", profileHandler.HandleUpdate)
			r.Get("/exists", profileHandler.HandleExists)
		})

		r.Route("/api/planner", func(r chi.Router) {
			r.Get("/", plannerHandler.HandleList)
			r.Post("/", plannerHandler.HandleAdd)
			r.Patch("/{id}", plannerHandler.HandleUpdate)
			r.Delete("/{id}", plannerHandler.HandleDelete)
		})

		r.Get("/api/notes/{id}", notesHandler.HandleGet)
	})

	return r
}
