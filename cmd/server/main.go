package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"splitbook/internal/config"
	"splitbook/internal/db"
	"splitbook/internal/handlers"
	"splitbook/internal/notify"
	"splitbook/internal/services"
	"splitbook/internal/store"
	"splitbook/internal/websocket"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	accounts := store.NewAccountStore(database)
	codes := store.NewCodeStore(database)
	invitations := store.NewInvitationStore(database)
	pendingLinks := store.NewPendingLinkStore(database)
	friendshipEdges := store.NewFriendshipStore(database)
	expenses := store.NewExpenseStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()
	notifier := notify.NewLogNotifier()

	verifier := services.NewCodeVerifier(txRunner, accounts, codes, notifier, cfg.OTPTTL)
	friendships := services.NewFriendshipService(txRunner, accounts, friendshipEdges)
	onboarding := services.NewOnboardingService(
		txRunner, accounts, invitations, pendingLinks, verifier, friendships,
		audit, notifier, cfg.InviteTTL, cfg.MinPasswordLength, cfg.AppBaseURL,
	)
	ledger := services.NewLedgerService(txRunner, expenses, friendships, audit, hub)

	handler := handlers.New(cfg, accounts, onboarding, friendships, ledger, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("splitbook API listening on %s", server.Addr)
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
