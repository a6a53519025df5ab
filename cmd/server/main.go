package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/scramblenaija/scramble-be/internal/config"
	"github.com/scramblenaija/scramble-be/internal/logging"
	"github.com/scramblenaija/scramble-be/internal/models"
	"github.com/scramblenaija/scramble-be/internal/server"
	"github.com/scramblenaija/scramble-be/internal/storage"
	"github.com/scramblenaija/scramble-be/internal/storage/memory"
	"github.com/scramblenaija/scramble-be/internal/storage/postgres"
)

func main() {
	log := logging.New("scramble-backend")
	loadLocalEnv(log)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store storage.Store
	if cfg.DatabaseURL != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("init database")
		}
		store = pgStore
	} else {
		log.Warn("DATABASE_URL not set; using in-memory store")
		store = memory.NewStore()
	}
	defer store.Close()

	if err := bootstrapAdmin(ctx, store); err != nil {
		log.WithError(err).Fatal("bootstrap admin")
	}

	srv := server.New(cfg, store, log)

	// Contests past their deadline get expired in the background so a round
	// nobody wins does not linger forever.
	go srv.Lifecycle().RunSweeper(ctx, cfg.SweepInterval)

	go func() {
		log.WithField("addr", cfg.HTTPAddress()).Info("scramble backend listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Warn("graceful shutdown error")
	}
}

// bootstrapAdmin creates the admin account named by ADMIN_EMAIL and
// ADMIN_PASSWORD when it does not exist yet. Registration itself only ever
// creates students.
func bootstrapAdmin(ctx context.Context, store storage.Store) error {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}
	if _, err := store.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = store.CreateUser(ctx, models.User{
		Username:     "admin",
		Email:        email,
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
	})
	return err
}

func loadLocalEnv(log *logrus.Entry) {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found; relying on existing environment")
	}
}
