// internal/routes/routes.go
package routes

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/khan-rustam/sparkshift-server/internal/config"
	"github.com/khan-rustam/sparkshift-server/internal/otp"
	"github.com/khan-rustam/sparkshift-server/internal/services"
)

// Deps collects the shared collaborators the route groups wire into their
// handlers.
type Deps struct {
	DB       *sql.DB
	Cfg      *config.Config
	S3       *config.S3Config
	Ledger   *otp.Ledger
	Notifier *services.Notifier
}

func SetupRoutes(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		resp := map[string]any{
			"status": "ok",
			"db":     map[string]string{"status": "ok"},
		}
		status := http.StatusOK
		if err := deps.DB.PingContext(req.Context()); err != nil {
			status = http.StatusServiceUnavailable
			resp["status"] = "degraded"
			resp["db"] = map[string]string{"status": "down", "error": err.Error()}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	})

	RegisterSwaggerRoutes(r)

	// API routes
	r.Route("/api", func(r chi.Router) {
		RegisterAuthRoutes(r, deps)
		RegisterPortfolioRoutes(r, deps)
		RegisterContactRoutes(r, deps)
	})

	return r
}
