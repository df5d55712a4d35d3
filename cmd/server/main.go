package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"rifa-web-app/internal/config"
	"rifa-web-app/internal/db"
	"rifa-web-app/internal/handlers"
	"rifa-web-app/internal/identity"
	"rifa-web-app/internal/logger"
	"rifa-web-app/internal/middleware"
	"rifa-web-app/internal/services"
	"rifa-web-app/internal/storage"
	"rifa-web-app/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel)

	database, err := db.Init(cfg.DatabaseURL, cfg.DatabaseAuthToken, log)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer database.Close()

	st := store.New(database, log)

	var notifier services.Notifier
	if cfg.TelegramToken != "" {
		tg, err := services.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramStaffChatID, log)
		if err != nil {
			log.Warnf("Failed to init Telegram notifier, notices disabled: %v", err)
		} else {
			notifier = tg
		}
	} else {
		log.Warnf("TELEGRAM_TOKEN not set, notices disabled")
	}

	svc := services.New(st, notifier, log, cfg.StatsUTCOffsetHours)
	idp := identity.NewClient(cfg.AuthURL, cfg.AuthAnonKey)
	files := storage.NewClient(cfg.StorageURL, cfg.StorageBucket, cfg.AuthAnonKey)
	h := handlers.New(svc, files, log)
	auth := middleware.NewAuthenticator(idp, st, cfg.AdminPassword, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public storefront API.
	r.Get("/api/raffles", h.ListRaffles)
	r.Post("/api/purchases", h.SubmitPurchase)
	r.Get("/api/purchases/lookup", h.FindMyPurchases)

	// Staff API.
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.RequireStaff)

		r.Post("/raffles", h.AdminCreateRaffle)
		r.Put("/raffles/{id}", h.AdminUpdateRaffle)
		r.Delete("/raffles/{id}", h.AdminDeleteRaffle)
		r.Get("/raffles/{id}/winner", h.AdminSearchWinner)
		r.Get("/raffles/{id}/top-buyers", h.AdminTopBuyers)

		r.Get("/requests", h.AdminListRequests)
		r.Get("/requests/pending", h.AdminPendingRequests)
		r.Get("/requests/{id}", h.AdminGetRequest)
		r.Post("/requests/{id}/approve", h.AdminApproveRequest)
		r.Post("/requests/{id}/reject", h.AdminRejectRequest)

		r.Get("/stats/today", h.AdminTodayStats)
		r.Get("/stats/daily", h.AdminDailyHistory)

		r.Get("/users", h.AdminListUsers)
		r.Post("/users", h.AdminCreateUser)
		r.Put("/users/{id}/role", h.AdminUpdateUserRole)
		r.Delete("/users/{id}", h.AdminDeleteUser)
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Infof("Servidor corriendo en http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infof("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Infof("Server exited")
}
