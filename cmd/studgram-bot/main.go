package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/studgram/studgram-bot/internal/ai"
	"github.com/studgram/studgram-bot/internal/bot"
	"github.com/studgram/studgram-bot/internal/config"
	"github.com/studgram/studgram-bot/internal/directory"
	"github.com/studgram/studgram-bot/internal/engine"
	"github.com/studgram/studgram-bot/internal/logger"
	"github.com/studgram/studgram-bot/internal/studgram"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	client := studgram.NewClient(
		cfg.StudGram.BaseURL,
		cfg.StudGram.Token,
		time.Duration(cfg.StudGram.TimeoutSeconds)*time.Second,
	)
	service := studgram.NewService(client)

	dir := directory.New(service,
		time.Duration(cfg.Cache.ReferenceTTLSeconds)*time.Second,
		time.Duration(cfg.Cache.SubjectsTTLSeconds)*time.Second,
	)

	var assistant engine.Assistant
	if cfg.AI.Token != "" {
		assistant = ai.NewClient(cfg.AI.BaseURL, cfg.AI.Token, cfg.AI.Model)
	} else {
		logger.Warn(logger.Background(), "app", "assistant.disabled",
			slog.String("reason", "no openrouter token configured"),
		)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := service.Ping(pingCtx); err != nil {
		logger.Warn(logger.Background(), "app", "api.ping",
			slog.String("status", "error"),
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info(logger.Background(), "app", "api.ping",
			slog.String("status", "ok"),
		)
	}
	cancelPing()

	startedAt := time.Now()
	return bot.Run(ctx, bot.Options{
		Config: cfg,
		Build: func(sender engine.Sender) *engine.Engine {
			eng := engine.New(service, dir, assistant, sender)
			logger.Info(logger.Background(), "app", "ready",
				slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
			)
			return eng
		},
	})
}
