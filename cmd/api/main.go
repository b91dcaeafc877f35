package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/rmaffei/cobranca-service/internal/config"
	"github.com/rmaffei/cobranca-service/internal/handler"
	"github.com/rmaffei/cobranca-service/internal/integrations/chatapi"
	"github.com/rmaffei/cobranca-service/internal/middleware"
	"github.com/rmaffei/cobranca-service/internal/repository"
	"github.com/rmaffei/cobranca-service/internal/service"
	"github.com/rmaffei/cobranca-service/internal/utils/email"
	"github.com/robfig/cron/v3"
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
	repo := repository.NewRepository(db)
	chatClient := chatapi.NewClient(cfg, logger)
	mailSender := email.NewSender(cfg, logger)
	svc := service.NewService(repo, chatClient, mailSender, logger, cfg)
	h := handler.NewHandler(svc)

	// Daily reminder batch
	c := cron.New()
	if _, err := c.AddFunc(cfg.SchedulerSpec, func() {
		summary, err := svc.RunReminderBatch(context.Background())
		if err != nil {
			logger.Errorf("Reminder batch failed: %v", err)
			return
		}
		logger.Infof("Reminder batch finished: %d failures, %d alerts", len(summary.Failures), summary.AlertsCreated)
	}); err != nil {
		logger.Fatalf("Failed to schedule reminder batch: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Setup router
	r := mux.NewRouter()
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/cases", h.ImportCase).Methods("POST")
	authRouter.HandleFunc("/cases/{id}", h.GetCase).Methods("GET")
	authRouter.HandleFunc("/cases/{id}/settle", h.SettleCase).Methods("POST")
	authRouter.HandleFunc("/debtors/{id}/evaluate", h.EvaluateDebtor).Methods("POST")
	authRouter.HandleFunc("/debtors/{id}/transition", h.TransitionDebtor).Methods("POST")
	authRouter.HandleFunc("/debtors/{id}/notices", h.GenerateNotice).Methods("POST")
	authRouter.HandleFunc("/debtors/{id}/legal-action", h.LegalAction).Methods("POST")
	authRouter.HandleFunc("/notices/{id}/respond", h.RespondNotice).Methods("POST")
	authRouter.HandleFunc("/agreements/{id}/accept", h.AcceptAgreement).Methods("POST")
	authRouter.HandleFunc("/agreements/{id}/breach", h.BreachAgreement).Methods("POST")
	authRouter.HandleFunc("/scheduler/run", h.RunScheduler).Methods("POST")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
