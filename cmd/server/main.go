package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workhub/internal/commission"
	"workhub/internal/config"
	"workhub/internal/db"
	"workhub/internal/gateway"
	"workhub/internal/handlers"
	"workhub/internal/services"
	"workhub/internal/store"
	"workhub/internal/websocket"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	projects := store.NewProjectStore(database)
	proposals := store.NewProposalStore(database)
	transactions := store.NewTransactionStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewRunner(database)
	hub := websocket.NewHub()

	monobank := gateway.NewMonobank(cfg.MonobankBaseURL, cfg.MonobankToken,
		cfg.MonobankWebhookURL, cfg.FrontendURL, cfg.InvoiceValidity)

	prices := services.Prices{
		ConnectsPer20:        cfg.ConnectsPricePer20,
		SubscriptionMonthly:  cfg.SubscriptionMonthly,
		PromotionWeekly:      cfg.PromotionWeekly,
		WithdrawalFee:        cfg.WithdrawalFee,
		WithdrawalFeeExpress: cfg.WithdrawalFeeExpress,
	}
	payments := services.NewPaymentService(txRunner, users, projects, transactions,
		audit, monobank, commission.Default(), prices, hub)
	proposalSvc := services.NewProposalService(txRunner, users, projects, proposals, audit)

	handler := handlers.New(cfg, txRunner, users, projects, proposals, transactions,
		audit, payments, proposalSvc, monobank, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("workhub API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
