package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/khan-rustam/sparkshift-server/internal/handlers"
	"github.com/khan-rustam/sparkshift-server/internal/middleware"
	"github.com/khan-rustam/sparkshift-server/internal/repository"
	"github.com/khan-rustam/sparkshift-server/internal/services"
)

func RegisterAuthRoutes(router chi.Router, deps Deps) {
	users := repository.NewUserRepository(deps.DB)
	authService := services.NewAuthService(users, deps.Ledger, deps.Notifier, deps.Cfg.JWTSecret)
	authHandler := handlers.NewAuthHandler(authService)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/send-registration-otp", authHandler.SendRegistrationOTP)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/verify-reset-otp", authHandler.VerifyResetOTP)
		r.Post("/reset-password", authHandler.ResetPassword)
		r.Post("/reset-password-request", authHandler.RequestResetLink)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(deps.Cfg.JWTSecret))
			r.Get("/profile", authHandler.Profile)
		})
	})
}
