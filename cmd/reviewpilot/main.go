package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-co-op/gocron"
	"github.com/reviewpilot/reviewpilot/internal/api/handlers"
	"github.com/reviewpilot/reviewpilot/internal/api/middleware"
	"github.com/reviewpilot/reviewpilot/internal/auth/google"
	"github.com/reviewpilot/reviewpilot/internal/auth/token"
	"github.com/reviewpilot/reviewpilot/internal/config"
	"github.com/reviewpilot/reviewpilot/internal/db"
	"github.com/reviewpilot/reviewpilot/internal/gbp"
	"github.com/reviewpilot/reviewpilot/internal/reply"
	syncengine "github.com/reviewpilot/reviewpilot/internal/sync"
	"github.com/reviewpilot/reviewpilot/internal/version"
)

func main() {
	cfg, err := config.Load("reviewpilot.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	oauthCfg := google.NewOAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	stateSecret := []byte(cfg.StateSecret)

	tokenManager := token.NewManager(database, oauthCfg)
	client := gbp.NewClient(tokenManager)
	engine := syncengine.NewEngine(database, client)

	generator := reply.NewHTTPGenerator(cfg.Generator.URL, cfg.Generator.APIKey)
	replySvc := reply.NewService(database, client, generator, cfg.Quota.MaxPerReply, cfg.Quota.MaxPerDay)

	// Scheduled background sync for every sync-enabled connection.
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.Every(cfg.Sync.IntervalMinutes).Minutes().Do(func() {
		log.Println("🔄 Scheduled review sync starting")
		engine.SyncAll(context.Background())
	})
	scheduler.StartAsync()

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", handlers.HealthHandler())

	// OAuth connect flow
	r.Get("/auth/google/login", google.HandleLogin(oauthCfg, stateSecret))
	r.Get("/auth/google/callback", google.HandleCallback(database, oauthCfg, stateSecret, cfg.SettingsURL))

	// Dashboard-facing API
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKey))

		r.Get("/accounts", handlers.AccountsHandler(database))
		r.Get("/locations", handlers.LocationsHandler(client))
		r.Post("/connections", handlers.CreateConnectionHandler(database))
		r.Delete("/connections/{businessID}", handlers.DeleteConnectionHandler(database))

		r.Post("/businesses/{businessID}/sync", handlers.SyncHandler(engine))
		r.Get("/businesses/{businessID}/reviews", handlers.ReviewsHandler(database))

		r.Post("/reviews/{reviewID}/generate", handlers.GenerateHandler(replySvc))
		r.Put("/replies/{replyID}", handlers.EditHandler(replySvc))
		r.Post("/replies/{replyID}/approve", handlers.ApproveHandler(replySvc))
		r.Post("/replies/{replyID}/publish", handlers.PublishHandler(replySvc))
	})

	log.Printf("🚀 ReviewPilot %s listening on %s", version.Version, cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
