package handlers

import (
	"net/http"

	"splitbook/internal/config"
	"splitbook/internal/middleware"
	"splitbook/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	cfg         config.Config
	accounts    AccountStore
	onboarding  OnboardingService
	friendships FriendshipService
	ledger      LedgerService
	hub         *websocket.Hub
}

func New(cfg config.Config, accounts AccountStore, onboarding OnboardingService, friendships FriendshipService, ledger LedgerService, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:         cfg,
		accounts:    accounts,
		onboarding:  onboarding,
		friendships: friendships,
		ledger:      ledger,
		hub:         hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/verify", h.VerifyEmail)
		r.Post("/resend-code", h.ResendCode)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})
	router.Route("/friends", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Get("/", h.ListFriends)
		r.Post("/invite", h.Invite)
	})
	router.Route("/expenses", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Post("/", h.RecordExpense)
		r.Get("/{friendID}", h.ListExpenses)
		r.Get("/{friendID}/balance", h.GetBalance)
	})
	router.Get("/ws/balances", h.WSBalances)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
