package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/khan-rustam/sparkshift-server/internal/handlers"
	"github.com/khan-rustam/sparkshift-server/internal/middleware"
	"github.com/khan-rustam/sparkshift-server/internal/repository"
)

func RegisterPortfolioRoutes(router chi.Router, deps Deps) {
	repo := repository.NewPortfolioRepository(deps.DB)
	portfolioHandler := handlers.NewPortfolioHandler(repo, deps.S3)

	router.Route("/portfolio", func(r chi.Router) {
		r.Get("/", portfolioHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(deps.Cfg.JWTSecret))
			r.Post("/", portfolioHandler.Create)
			r.Put("/{id}", portfolioHandler.Update)
			r.Delete("/{id}", portfolioHandler.Delete)
		})
	})
}
