package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/khan-rustam/sparkshift-server/internal/handlers"
)

func RegisterContactRoutes(router chi.Router, deps Deps) {
	contactHandler := handlers.NewContactHandler(deps.Notifier)

	router.Post("/contact", contactHandler.Submit)
}
