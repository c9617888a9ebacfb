package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"database/sql"

	"github.com/Dan9191/card-transfer-service/internal/config"
	"github.com/Dan9191/card-transfer-service/internal/handler"
	"github.com/Dan9191/card-transfer-service/internal/jobs"
	"github.com/Dan9191/card-transfer-service/internal/middleware"
	"github.com/Dan9191/card-transfer-service/internal/repository"
	"github.com/Dan9191/card-transfer-service/internal/service"
	"github.com/Dan9191/card-transfer-service/internal/utils/email"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	store := repository.NewStore(db)

	var notifier service.StatusNotifier
	if cfg.NotifyByEmail {
		notifier = email.NewSender(cfg, logger)
	}

	authSvc := service.NewAuthService(store, cfg.JWTSecret, logger)
	eventSvc := service.NewCardEventService(store, logger)
	cardSvc := service.NewCardService(store, store, store, eventSvc, notifier,
		cfg.EncryptionKey, cfg.HMACSecret, logger)
	failSvc := service.NewTransferFailService(store, store, logger)
	transferSvc := service.NewTransferService(store, store, store, failSvc,
		cfg.EncryptionKey, logger)
	userSvc := service.NewUserService(store, logger)

	h := handler.NewHandler(authSvc, transferSvc, cardSvc, eventSvc, userSvc, logger)

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")

	// Protected routes
	authRouter := r.PathPrefix("/api/v1").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/transfers", h.CreateTransfer).Methods("POST")
	authRouter.HandleFunc("/transfers/my", h.GetMyTransfers).Methods("GET")
	authRouter.HandleFunc("/transfers/{id:[0-9]+}", h.GetTransfer).Methods("GET")
	authRouter.HandleFunc("/transfers/card/{cardId:[0-9]+}", h.GetCardTransfers).Methods("GET")
	authRouter.HandleFunc("/user/cards", h.GetMyCards).Methods("GET")
	authRouter.HandleFunc("/user/cards/{id:[0-9]+}", h.GetMyCard).Methods("GET")
	authRouter.HandleFunc("/user/cards/{id:[0-9]+}/block", h.BlockMyCard).Methods("POST")

	// Admin routes
	adminRouter := authRouter.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.RequireAdmin)
	adminRouter.HandleFunc("/cards", h.CreateCard).Methods("POST")
	adminRouter.HandleFunc("/cards", h.ListCards).Methods("GET")
	adminRouter.HandleFunc("/cards/{id:[0-9]+}", h.UpdateCard).Methods("PUT")
	adminRouter.HandleFunc("/cards/{id:[0-9]+}", h.DeleteCard).Methods("DELETE")
	adminRouter.HandleFunc("/cards/{id:[0-9]+}/status", h.UpdateCardStatus).Methods("PUT")
	adminRouter.HandleFunc("/cards/{id:[0-9]+}/events", h.GetCardEvents).Methods("GET")
	adminRouter.HandleFunc("/users", h.ListUsers).Methods("GET")
	adminRouter.HandleFunc("/users/{id:[0-9]+}", h.GetUser).Methods("GET")
	adminRouter.HandleFunc("/users/{id:[0-9]+}", h.UpdateUser).Methods("PUT")
	adminRouter.HandleFunc("/users/{id:[0-9]+}", h.DeleteUser).Methods("DELETE")
	adminRouter.HandleFunc("/users/{id:[0-9]+}/toggle", h.ToggleUserStatus).Methods("POST")

	// Start expiry sweep
	sweeper, err := jobs.NewExpirySweeper(cardSvc, cfg.ExpirySweepCron, logger)
	if err != nil {
		logger.Fatalf("Failed to schedule expiry sweep: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")
	if err := server.Close(); err != nil {
		logger.Errorf("Server close: %v", err)
	}
}
