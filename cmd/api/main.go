// cmd/api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/khan-rustam/sparkshift-server/internal/config"
	"github.com/khan-rustam/sparkshift-server/internal/db"
	"github.com/khan-rustam/sparkshift-server/internal/db/migrations"
	"github.com/khan-rustam/sparkshift-server/internal/otp"
	"github.com/khan-rustam/sparkshift-server/internal/routes"
	"github.com/khan-rustam/sparkshift-server/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Create database if it doesn't exist
	if err := db.CreateDatabaseIfNotExists(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to ensure database exists: %v", err)
	}

	// Initialize database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run database migrations
	if err := migrations.RunMigrations(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Verification codes live in Redis when configured, in-process otherwise.
	var store otp.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		store = otp.NewRedisStore(rdb, "otp")
		log.Printf("Using Redis OTP store at %s", cfg.RedisAddr)
	} else {
		store = otp.NewMemoryStore()
	}
	ledger := otp.NewLedger(store)

	// Outbound email: SMTP sender behind a retrying queue.
	sender := &services.SMTPSender{
		Host:   cfg.SMTPHost,
		Port:   cfg.SMTPPort,
		User:   cfg.SMTPUser,
		Pass:   cfg.SMTPPassword,
		From:   cfg.SMTPFrom,
		UseTLS: cfg.SMTPUseTLS,
	}
	queue := services.NewEmailQueue(sender, cfg.AdminEmail)
	queue.Start()
	notifier := services.NewNotifier(queue, cfg.AdminEmail)

	// S3 image hosting for portfolio uploads
	s3cfg, err := config.NewS3Config()
	if err != nil {
		log.Fatalf("Failed to configure S3: %v", err)
	}

	// Create router and setup routes
	router := routes.SetupRoutes(routes.Deps{
		DB:       database.DB,
		Cfg:      cfg,
		S3:       s3cfg,
		Ledger:   ledger,
		Notifier: notifier,
	})

	// Create server
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give server 5 seconds to finish current requests
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Let the queue finish its in-flight drain before exiting.
	queue.Stop()

	log.Println("Server exiting")
}
