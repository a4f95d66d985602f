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
	"github.com/rs/zerolog"

	"github.com/zhouzirui/lexdesk/backend/internal/config"
	"github.com/zhouzirui/lexdesk/backend/internal/handler"
	"github.com/zhouzirui/lexdesk/backend/internal/metrics"
	"github.com/zhouzirui/lexdesk/backend/internal/model/mode"
	"github.com/zhouzirui/lexdesk/backend/internal/platform/logger"
	"github.com/zhouzirui/lexdesk/backend/internal/service/ai"
	"github.com/zhouzirui/lexdesk/backend/internal/service/assistant"
	"github.com/zhouzirui/lexdesk/backend/internal/service/events"
	"github.com/zhouzirui/lexdesk/backend/internal/service/inference"
	"github.com/zhouzirui/lexdesk/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("lexdesk-api", logger.Options{})
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New("lexdesk-api", logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if envErr != nil {
		log.Warn().Err(envErr).Msg("failed to load .env file, continuing with system environment variables only")
	}

	adapter, err := storage.Open(storage.Config{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open history storage")
	}
	defer adapter.Close()

	client := inference.New(inference.Config{
		BaseURL:     cfg.Inference.BaseURL,
		Timeout:     cfg.Inference.Timeout,
		MaxRetries:  cfg.Inference.MaxRetries,
		BaseBackoff: cfg.Inference.BaseBackoff,
		MaxBackoff:  cfg.Inference.MaxBackoff,
	}, log)

	// Ark 模型可选；未配置时聊天走远端推理服务
	var chatModel assistant.ChatModel
	chatBackend := "remote"
	if cfg.UseArkChat() {
		aiService, err := ai.NewService(ctx, cfg.AI, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize AI service, chat falls back to the inference api")
		} else {
			chatModel = aiService
			chatBackend = "ark"
			log.Info().Str("model", cfg.AI.Model).Msg("AI chat service initialized")
		}
	}

	m := metrics.New()
	broker := events.NewBroker(0, log)

	workspace, err := assistant.New(assistant.Options{
		Adapter:   adapter,
		API:       client,
		ChatModel: chatModel,
		Modes:     mode.NewMemoryStore(mode.Seed()),
		Timeout:   cfg.Inference.RequestTimeout,
		Logger:    log,
		Events:    broker,
		Recorder:  m,
		History:   m,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build assistant workspace")
	}
	workspace.Initialize(ctx)

	router := handler.NewRouter(handler.Dependencies{
		Workspace:   workspace,
		Broker:      broker,
		Metrics:     m,
		Inference:   client,
		CORSOrigins: cfg.Server.CORSOrigins,
		ChatBackend: chatBackend,
		Logger:      log,
	})

	startServer(ctx, cfg.Server, router, log)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log zerolog.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("lexdesk backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
