package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/zhouzirui/lexdesk/backend/internal/mockapi"
	"github.com/zhouzirui/lexdesk/backend/internal/platform/logger"
)

type mockConfig struct {
	Addr     string        `envconfig:"MOCK_ADDR" default:":8000"`
	Latency  time.Duration `envconfig:"MOCK_LATENCY" default:"1s"`
	Seed     uint64        `envconfig:"MOCK_SEED"`
	LogLevel string        `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	var cfg mockConfig
	if err := envconfig.Process("LEXDESK", &cfg); err != nil {
		bootLog := logger.New("lexdesk-mock-inference", logger.Options{})
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.New("lexdesk-mock-inference", logger.Options{Level: cfg.LogLevel, Pretty: true})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mockapi.NewRouter(mockapi.Options{Latency: cfg.Latency, Seed: cfg.Seed, Logger: log}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Addr).Dur("latency", cfg.Latency).Msg("mock inference api listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}
