package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scramblenaija/scramble-be/internal/auth"
	"github.com/scramblenaija/scramble-be/internal/config"
	"github.com/scramblenaija/scramble-be/internal/contest"
	"github.com/scramblenaija/scramble-be/internal/http/handlers"
	"github.com/scramblenaija/scramble-be/internal/middleware"
	"github.com/scramblenaija/scramble-be/internal/storage"
	"github.com/scramblenaija/scramble-be/internal/subscription"
	"github.com/scramblenaija/scramble-be/internal/wallet"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner     *http.Server
	lifecycle *contest.Lifecycle
}

// New wires the settlement engine, handlers, and middleware into a ready server.
func New(cfg config.Config, store storage.Store, log *logrus.Entry) *Server {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	ledger := wallet.NewLedger(store, log)
	gate := subscription.NewGate(store, store, cfg.SubscriptionFee, cfg.SubscriptionTerm, log)
	lifecycle := contest.NewLifecycle(store, log)
	settler := contest.NewSettler(store, log)
	adjudicator := contest.NewAdjudicator(store, gate, settler, log)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewAuthHandler(store, tokens, cfg.InitBalance, log).Register(mux)
	handlers.NewContestHandler(store, lifecycle, adjudicator, tokens, log).Register(mux)
	handlers.NewSubscriptionHandler(gate, tokens, cfg.WebhookHash, log).Register(mux)
	handlers.NewWalletHandler(store, store, ledger, tokens, log).Register(mux)
	handlers.NewAdminHandler(store, lifecycle, tokens, log).Register(mux)

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(log, mux))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer, lifecycle: lifecycle}
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Lifecycle exposes the contest lifecycle manager for the expiry sweeper.
func (s *Server) Lifecycle() *contest.Lifecycle {
	return s.lifecycle
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
